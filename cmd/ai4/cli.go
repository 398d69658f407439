package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/GriffinCanCode/ai4/internal/bridge"
	"github.com/GriffinCanCode/ai4/internal/config"
	"github.com/GriffinCanCode/ai4/internal/ledger"
	"github.com/GriffinCanCode/ai4/internal/logging"
	"github.com/GriffinCanCode/ai4/internal/registry"
	"github.com/GriffinCanCode/ai4/internal/shared/paths"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks flag and argument errors; the flag set has already printed
// the details.
var errUsage = errors.New("usage error")

type command struct {
	summary string
	run     func(a *app, args []string) error
}

var commands = map[string]command{
	"train":    {"train a model and save it as an artifact", (*app).train},
	"evaluate": {"print the MSE of an artifact on fresh samples", (*app).evaluate},
	"deploy":   {"register an artifact and print its URI", (*app).deploy},
	"infer":    {"charge the payer and run a deployed model", (*app).infer},
	"mint":     {"create AI4 for an identity", (*app).mint},
	"burn":     {"destroy AI4 held by an identity", (*app).burn},
	"transfer": {"move AI4 between identities", (*app).transfer},
	"balance":  {"print the AI4 balance of an identity", (*app).balance},
	"list":     {"list deployed model URIs", (*app).list},
	"health":   {"check that a bridge server answers", (*app).health},
	"seed":     {"deploy every artifact under a directory", (*app).seed},
	"serve":    {"run the HTTP bridge", (*app).serve},
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	layout paths.Layout
	logger *logging.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "ai4: unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "ai4: %v\n", err)
		return exitError
	}
	layout, err := cfg.Layout()
	if err != nil {
		fmt.Fprintf(stderr, "ai4: %v\n", err)
		return exitError
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "ai4: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	a := &app{
		cfg:    cfg,
		layout: layout,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}

	if err := cmd.run(a, args[1:]); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			return exitOK
		case errors.Is(err, errUsage):
			return exitUsage
		case args[0] == "infer" && errors.Is(err, ledger.ErrInsufficientBalance):
			fmt.Fprintln(stderr, "insufficient MAT balance for inference")
		default:
			fmt.Fprintf(stderr, "ai4 %s: %v\n", args[0], err)
		}
		return exitError
	}
	return exitOK
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Usage: ai4 <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'ai4 <command> -h' for the flags of a command.")
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("ai4 "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parse parses args and checks that every name in required was given.
func (a *app) parse(fs *flag.FlagSet, args []string, required ...string) (map[string]bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(a.stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return nil, errUsage
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var missing []string
	for _, name := range required {
		if !set[name] {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(a.stderr, "missing required flags: %s\n", strings.Join(missing, ", "))
		fs.Usage()
		return nil, errUsage
	}
	return set, nil
}

// openBridge opens the registry and ledger in the base directory.
func (a *app) openBridge() (*bridge.Bridge, error) {
	reg, err := registry.NewManager(a.layout.Home, registry.WithLogger(a.logger.Component("registry")))
	if err != nil {
		return nil, err
	}
	led, err := ledger.New(a.layout.Home, ledger.WithLogger(a.logger.Component("ledger")))
	if err != nil {
		return nil, err
	}
	return bridge.New(reg, led, bridge.WithLogger(a.logger.Component("bridge"))), nil
}

// openClient connects to a remote bridge server.
func (a *app) openClient(remote string) (*bridge.Client, error) {
	cfg := bridge.DefaultClientConfig(remote)
	cfg.Timeout = a.cfg.Client.Timeout
	cfg.Retries = a.cfg.Client.Retries
	return bridge.NewClient(cfg, bridge.WithClientLogger(a.logger.Component("client")))
}
