package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/janoszen/dotrollcli/internal/action"
	"github.com/janoszen/dotrollcli/internal/config"
	"github.com/janoszen/dotrollcli/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type options struct {
	Version string

	// Action flags; exactly one must be given.
	DomainPrices       bool
	HostingPrices      bool
	VPSPrices          bool
	DomainAvailability string
	DomainList         bool
	Currency           string

	// Global flags.
	VersionFlag bool
	ConfigFile  string
	JSON        bool
	Plain       bool
	Quiet       bool
	Verbose     bool
}

// configFlags maps config keys to the flags that override them.
var configFlags = map[string]string{
	"api.key":       "apikey",
	"api.endpoint":  "apiendpoint",
	"api.version":   "apiversion",
	"api.username":  "username",
	"api.password":  "password",
	"api.timeout":   "timeout",
	"output.format": "format",
	"logging.file":  "log-file",
}

func newRootCmd(ver string, e env) *cobra.Command {
	opts := &options{Version: ver}

	root := &cobra.Command{
		Use:   "dotrollcli [action] [flags]",
		Short: "Access the DotRoll API functionality from the command line",
		Long: `Access the DotRoll API functionality from the command line.

Exactly one action flag is required:
  --domain-prices, --hosting-prices, --vps-prices   (with --currency HUF|EUR|USD)
  --domain-availability <name>
  --domain-list`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, opts, e)
		},
	}
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)
	root.SetFlagErrorFunc(usageErr)

	f := root.Flags()
	f.BoolVar(&opts.DomainPrices, "domain-prices", false, "Action: list domain registration prices")
	f.BoolVar(&opts.HostingPrices, "hosting-prices", false, "Action: list web hosting prices")
	f.BoolVar(&opts.VPSPrices, "vps-prices", false, "Action: list VPS prices")
	f.StringVar(&opts.DomainAvailability, "domain-availability", "", "Action: check whether a domain name can be registered")
	f.BoolVar(&opts.DomainList, "domain-list", false, "Action: list the domains in the account")
	f.StringVar(&opts.Currency, "currency", "", "Currency for price actions: HUF|EUR|USD")

	pf := root.PersistentFlags()
	pf.BoolVar(&opts.VersionFlag, "version", false, "Print version and exit")
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "Config file (default "+displayDefaultPath()+")")
	pf.String("apikey", "", "The API key used to access the service")
	pf.String("apiendpoint", config.DefaultEndpoint, "The endpoint URL used to access the service. You don't normally need to change this")
	pf.String("apiversion", config.DefaultAPIVersion, "The API version used to access the service. You don't normally need to change this")
	pf.String("username", "", "Username for HTTP basic authentication")
	pf.String("password", "", "Password for HTTP basic authentication")
	pf.Duration("timeout", config.DefaultTimeout, "Request timeout (e.g. 30s, 2m)")
	pf.String("format", "auto", "Output format: auto|table|json|ndjson|plain|yaml")
	pf.BoolVar(&opts.JSON, "json", false, "Alias for --format json")
	pf.BoolVar(&opts.Plain, "plain", false, "Alias for --format plain (stable tab-separated)")
	pf.BoolVarP(&opts.Quiet, "quiet", "q", false, "Only log errors to stderr")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log requests and diagnostics to stderr")
	pf.String("log-file", "", "Write logs to a rotating file instead of stderr")

	return root
}

func runRoot(cmd *cobra.Command, args []string, opts *options, e env) error {
	if opts.VersionFlag {
		fmt.Fprintf(e.stdout, "dotrollcli %s (%s/%s)\n", opts.Version, runtime.GOOS, runtime.GOARCH)
		return nil
	}
	if len(args) > 0 {
		return argErr(cmd, fmt.Sprintf("unexpected arguments: %q", args))
	}

	sel, err := selectAction(cmd.Flags(), opts)
	if err != nil {
		return argErr(cmd, err.Error())
	}

	formatFlag, err := formatOverride(cmd.Flags(), opts)
	if err != nil {
		return argErr(cmd, err.Error())
	}
	if opts.Verbose && opts.Quiet {
		return argErr(cmd, "flags are mutually exclusive: --verbose, --quiet")
	}

	v := config.New()
	for key, name := range configFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return runtimeErr(cmd, err)
		}
	}
	if formatFlag != "" {
		v.Set("output.format", formatFlag)
	}
	if opts.Verbose {
		v.Set("logging.level", "debug")
	}
	if opts.Quiet {
		v.Set("logging.level", "error")
	}
	if err := config.ReadFile(v, opts.ConfigFile); err != nil {
		return runtimeErr(cmd, err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return runtimeErr(cmd, err)
	}
	if err := cfg.Validate(); err != nil {
		return usageErr(cmd, err)
	}

	format, err := resolveFormat(cfg.Output.Format, e.stdout)
	if err != nil {
		return usageErr(cmd, err)
	}

	log, closer, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		Output:     e.stderr,
	})
	if err != nil {
		return usageErr(cmd, err)
	}
	defer closer.Close()
	log.Debug("config loaded",
		"file", v.ConfigFileUsed(),
		"endpoint", cfg.API.Endpoint,
		"api_version", cfg.API.Version,
		"timeout", cfg.API.Timeout,
	)

	q, err := e.newQuery(cfg, log)
	if err != nil {
		return usageErr(cmd, err)
	}

	start := time.Now()
	result, err := sel.invoke(cmd.Context(), action.New(q))
	if err != nil {
		log.Debug("action failed", "action", sel.name, "error", err)
		return runtimeErr(cmd, err)
	}
	log.Info("action done", "action", sel.name, "duration", time.Since(start))

	if err := writeResult(e.stdout, format, sel.layout(), result); err != nil {
		return runtimeErr(cmd, fmt.Errorf("failed to write output: %w", err))
	}
	return nil
}

// formatOverride resolves --json/--plain against an explicit --format. It
// returns "" when the flags leave the configured format alone.
func formatOverride(fs *pflag.FlagSet, opts *options) (string, error) {
	if opts.JSON && opts.Plain {
		return "", fmt.Errorf("flags are mutually exclusive: --json, --plain")
	}
	alias := ""
	switch {
	case opts.JSON:
		alias = "json"
	case opts.Plain:
		alias = "plain"
	}
	if alias != "" && fs.Changed("format") {
		return "", fmt.Errorf("do not combine --format with --json/--plain")
	}
	return alias, nil
}

func displayDefaultPath() string {
	if p := config.DefaultPath(); p != "" {
		return p
	}
	return "none"
}
