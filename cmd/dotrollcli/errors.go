package main

import "github.com/spf13/cobra"

// cliError carries the process exit code for a failed invocation.
type cliError struct {
	Code      int
	Err       error
	ShowUsage bool
	Cmd       *cobra.Command
}

func (e *cliError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *cliError) Unwrap() error { return e.Err }

// argumentError reports invalid or conflicting command-line options.
type argumentError struct {
	msg string
}

func (e *argumentError) Error() string { return e.msg }

func usageErr(cmd *cobra.Command, err error) error {
	return &cliError{Code: 2, Err: err, ShowUsage: true, Cmd: cmd}
}

func argErr(cmd *cobra.Command, msg string) error {
	return usageErr(cmd, &argumentError{msg: msg})
}

func runtimeErr(cmd *cobra.Command, err error) error {
	return &cliError{Code: 1, Err: err, Cmd: cmd}
}
