package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/ai4/internal/bridge"
	"github.com/GriffinCanCode/ai4/internal/infrastructure/server"
	"github.com/GriffinCanCode/ai4/internal/ledger"
	"github.com/GriffinCanCode/ai4/internal/registry"
	"github.com/GriffinCanCode/ai4/internal/trainer"
)

// Command line training defaults; the library default runs longer.
const (
	defaultEpochs = 100
	defaultHidden = 4
)

func (a *app) train(args []string) error {
	defaults := trainer.DefaultHyperparameters()

	fs := a.newFlagSet("train")
	epochs := fs.Int("epochs", defaultEpochs, "gradient descent iterations")
	hidden := fs.Int("hidden", defaultHidden, "hidden layer width")
	lr := fs.Float64("lr", defaults.LearningRate, "learning rate")
	seed := fs.Uint64("seed", defaults.Seed, "random seed for data and init")
	out := fs.String("out", "", "artifact output directory")
	configPath := fs.String("config", "", "TOML hyperparameter file; explicit flags override it")
	failOnNaN := fs.Bool("fail-on-nan", false, "refuse to save a run whose loss is not finite")

	set, err := a.parse(fs, args, "out")
	if err != nil {
		return err
	}

	hp := defaults
	hp.Epochs = defaultEpochs
	hp.Hidden = defaultHidden
	if *configPath != "" {
		if hp, err = trainer.LoadHyperparameters(*configPath); err != nil {
			return err
		}
	}
	if *configPath == "" || set["epochs"] {
		hp.Epochs = *epochs
	}
	if *configPath == "" || set["hidden"] {
		hp.Hidden = *hidden
	}
	if set["lr"] {
		hp.LearningRate = *lr
	}
	if set["seed"] {
		hp.Seed = *seed
	}

	t := trainer.New(
		trainer.WithLogger(a.logger.Component("trainer")),
		trainer.WithFailOnNaN(*failOnNaN),
	)
	res, err := t.Train(hp, *out)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, res.Dir)
	return nil
}

func (a *app) evaluate(args []string) error {
	fs := a.newFlagSet("evaluate")
	dir := fs.String("artifact", "", "artifact directory")
	if _, err := a.parse(fs, args, "artifact"); err != nil {
		return err
	}

	mse, err := trainer.Evaluate(*dir, trainer.DefaultEvalSamples, trainer.DefaultEvalSeed)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "MSE: %.6f\n", mse)
	return nil
}

func (a *app) deploy(args []string) error {
	fs := a.newFlagSet("deploy")
	dir := fs.String("artifact", "", "artifact directory")
	name := fs.String("name", "", "model name used in the URI")
	if _, err := a.parse(fs, args, "artifact", "name"); err != nil {
		return err
	}

	b, err := a.openBridge()
	if err != nil {
		return err
	}
	uri, err := b.Deploy(*dir, *name)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, uri)
	return nil
}

func (a *app) infer(args []string) error {
	fs := a.newFlagSet("infer")
	uri := fs.String("uri", "", "model URI")
	input := fs.Float64("input", 0, "scalar input")
	payer := fs.String("payer", a.cfg.Billing.Payer, "who pays the MAT cost")
	cost := fs.Int64("cost", a.cfg.Billing.Cost, "MAT charged per call")
	remote := fs.String("remote", a.cfg.Client.Remote, "bridge server URL; empty runs locally")
	if _, err := a.parse(fs, args, "uri", "input"); err != nil {
		return err
	}

	var (
		receipt *bridge.Receipt
		err     error
	)
	if *remote != "" {
		client, cerr := a.openClient(*remote)
		if cerr != nil {
			return cerr
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Client.Timeout)
		defer cancel()
		receipt, err = client.Infer(ctx, bridge.InferRequest{URI: *uri, Input: input, Payer: *payer, Cost: cost})
	} else {
		b, berr := a.openBridge()
		if berr != nil {
			return berr
		}
		receipt, err = b.Infer(*uri, *input, *payer, *cost)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, receipt.Output)
	return nil
}

func (a *app) openLedger() (*ledger.Ledger, error) {
	return ledger.New(a.layout.Home, ledger.WithLogger(a.logger.Component("ledger")))
}

func (a *app) mint(args []string) error {
	fs := a.newFlagSet("mint")
	to := fs.String("to", "", "receiving identity")
	amount := fs.Int64("amount", 0, "AI4 to create")
	if _, err := a.parse(fs, args, "to", "amount"); err != nil {
		return err
	}

	led, err := a.openLedger()
	if err != nil {
		return err
	}
	if err := led.Mint(*to, *amount); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Minted %d %s to %s\n", *amount, ledger.Symbol, *to)
	return nil
}

func (a *app) burn(args []string) error {
	fs := a.newFlagSet("burn")
	from := fs.String("from", "", "identity to debit")
	amount := fs.Int64("amount", 0, "AI4 to destroy")
	if _, err := a.parse(fs, args, "from", "amount"); err != nil {
		return err
	}

	led, err := a.openLedger()
	if err != nil {
		return err
	}
	if err := led.Burn(*from, *amount); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Burned %d %s from %s\n", *amount, ledger.Symbol, *from)
	return nil
}

func (a *app) transfer(args []string) error {
	fs := a.newFlagSet("transfer")
	from := fs.String("from", "", "sending identity")
	to := fs.String("to", "", "receiving identity")
	amount := fs.Int64("amount", 0, "AI4 to move")
	if _, err := a.parse(fs, args, "from", "to", "amount"); err != nil {
		return err
	}

	led, err := a.openLedger()
	if err != nil {
		return err
	}
	if err := led.Transfer(*from, *to, *amount); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "ok")
	return nil
}

func (a *app) balance(args []string) error {
	fs := a.newFlagSet("balance")
	who := fs.String("who", "", "identity")
	remote := fs.String("remote", a.cfg.Client.Remote, "bridge server URL; empty reads the local ledger")
	if _, err := a.parse(fs, args, "who"); err != nil {
		return err
	}

	var (
		bal int64
		err error
	)
	if *remote != "" {
		client, cerr := a.openClient(*remote)
		if cerr != nil {
			return cerr
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Client.Timeout)
		defer cancel()
		bal, err = client.Balance(ctx, *who)
	} else {
		led, lerr := a.openLedger()
		if lerr != nil {
			return lerr
		}
		bal, err = led.BalanceOf(*who)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, bal)
	return nil
}

func (a *app) health(args []string) error {
	fs := a.newFlagSet("health")
	remote := fs.String("remote", a.cfg.Client.Remote, "bridge server URL")
	if _, err := a.parse(fs, args); err != nil {
		return err
	}
	if *remote == "" {
		fmt.Fprintln(a.stderr, "missing required flags: -remote")
		fs.Usage()
		return errUsage
	}

	client, err := a.openClient(*remote)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Client.Timeout)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "ok")
	return nil
}

func (a *app) list(args []string) error {
	fs := a.newFlagSet("list")
	format := fs.String("format", "text", "output format: text, json or yaml")
	remote := fs.String("remote", a.cfg.Client.Remote, "bridge server URL; empty reads the local registry")
	if _, err := a.parse(fs, args); err != nil {
		return err
	}
	switch *format {
	case "text", "json", "yaml":
	default:
		fmt.Fprintf(a.stderr, "unknown format %q\n", *format)
		fs.Usage()
		return errUsage
	}

	var (
		uris    []string
		records []registry.Record
		err     error
	)
	if *remote != "" {
		client, cerr := a.openClient(*remote)
		if cerr != nil {
			return cerr
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Client.Timeout)
		defer cancel()
		if *format == "text" {
			uris, err = client.List(ctx)
		} else {
			records, err = client.Models(ctx)
		}
	} else {
		b, berr := a.openBridge()
		if berr != nil {
			return berr
		}
		if *format == "text" {
			uris, err = b.List()
		} else {
			records, err = b.Models()
		}
	}
	if err != nil {
		return err
	}

	if *format == "text" {
		for _, uri := range uris {
			fmt.Fprintln(a.stdout, uri)
		}
		return nil
	}
	return a.writeRecords(*format, records)
}

func (a *app) writeRecords(format string, records []registry.Record) error {
	if records == nil {
		records = []registry.Record{}
	}

	switch format {
	case "json":
		data, err := sonic.ConfigStd.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode models: %w", err)
		}
		fmt.Fprintln(a.stdout, string(data))
	case "yaml":
		data, err := yaml.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to encode models: %w", err)
		}
		fmt.Fprint(a.stdout, string(data))
	}
	return nil
}

func (a *app) seed(args []string) error {
	fs := a.newFlagSet("seed")
	root := fs.String("root", a.layout.Artifacts(), "directory tree to scan for artifacts")
	pattern := fs.String("pattern", "", "doublestar glob over artifact paths relative to root")
	if _, err := a.parse(fs, args); err != nil {
		return err
	}

	b, err := a.openBridge()
	if err != nil {
		return err
	}
	report, err := registry.NewSeeder(b.Registry()).Seed(*root, *pattern)
	if err != nil {
		return err
	}

	for _, r := range report.Deployed {
		fmt.Fprintln(a.stdout, r.URI)
	}
	if len(report.Failed) > 0 {
		for dir, ferr := range report.Failed {
			fmt.Fprintf(a.stderr, "failed to deploy %s: %v\n", dir, ferr)
		}
		return fmt.Errorf("%d of %d artifacts failed to deploy",
			len(report.Failed), len(report.Failed)+len(report.Deployed))
	}
	return nil
}

func (a *app) serve(args []string) error {
	fs := a.newFlagSet("serve")
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	if _, err := a.parse(fs, args); err != nil {
		return err
	}
	a.cfg.Server.Addr = *addr

	srv, err := server.NewServer(a.cfg, a.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	fmt.Fprintf(a.stderr, "ai4 bridge listening on %s (home %s)\n", *addr, a.layout.Home)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "ai4 bridge stopped after %s\n", time.Since(start).Round(time.Second))
	return nil
}
