package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/janoszen/dotrollcli/internal/config"
	"github.com/janoszen/dotrollcli/internal/query"
	"github.com/janoszen/dotrollcli/internal/query/rest"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	return execute(args, env{stdout: stdout, stderr: stderr, newQuery: newRESTQuery})
}

// env holds what a single invocation talks to.
type env struct {
	stdout   io.Writer
	stderr   io.Writer
	newQuery func(cfg config.Config, log *slog.Logger) (query.Handler, error)
}

func execute(args []string, e env) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	root := newRootCmd(version, e)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var ce *cliError
		if errors.As(err, &ce) {
			if ce.Err != nil && ce.Err.Error() != "" {
				fmt.Fprintln(e.stderr, ce.Err.Error())
				fmt.Fprintln(e.stderr)
			}
			if ce.ShowUsage && ce.Cmd != nil {
				_ = ce.Cmd.Usage()
			}
			return ce.Code
		}
		fmt.Fprintln(e.stderr, err.Error())
		return 1
	}
	return 0
}

func newRESTQuery(cfg config.Config, log *slog.Logger) (query.Handler, error) {
	return rest.NewClient(rest.Options{
		Endpoint:   cfg.API.Endpoint,
		APIVersion: cfg.API.Version,
		APIKey:     cfg.API.Key,
		Username:   cfg.API.Username,
		Password:   cfg.API.Password,
		Timeout:    cfg.API.Timeout,
		UserAgent:  "dotrollcli/" + version,
		Logger:     log,
	})
}
