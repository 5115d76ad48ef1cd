// celerix-ivr is the admin CLI: it loads invitations into the configured store
// and runs admission checks against it without the telephony platform.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/pflag"

	"github.com/celerix-dev/celerix-ivr/internal/admission"
	"github.com/celerix-dev/celerix-ivr/internal/app"
	"github.com/celerix-dev/celerix-ivr/internal/config"
	"github.com/celerix-dev/celerix-ivr/internal/engine"
	"github.com/celerix-dev/celerix-ivr/pkg/schema"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, argv []string, stdout io.Writer) error {
	var backend, boltPath string
	var verbose bool

	flagSet := pflag.NewFlagSet("celerix-ivr", pflag.ContinueOnError)
	flagSet.StringVar(&backend, "backend", "", "store backend: memory, bolt or dynamodb (overrides config)")
	flagSet.StringVar(&boltPath, "bolt-path", "", "bolt file for the bolt backend (overrides config)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	args := flagSet.Args()
	if len(args) == 0 {
		printUsage(flagSet)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if backend != "" {
		cfg.Store.Backend = backend
	}
	if boltPath != "" {
		cfg.Store.BoltPath = boltPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if verbose {
		cfg.LogLevel = "debug"
	} else {
		cfg.LogLevel = "warn"
	}
	cfg.LogFormat = "text"
	logger := app.NewLogger(cfg, os.Stderr)

	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		if awsCfg, err = app.LoadAWS(ctx, cfg); err != nil {
			return err
		}
	}
	store, err := app.OpenStore(cfg, awsCfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return dispatch(ctx, cfg, store.Store, logger, strings.ToLower(args[0]), args[1:], stdout)
}

// tableDumper is implemented by the embedded engine.
type tableDumper interface {
	Tables() []string
	DumpTable(table string) map[string]sdk.Item
}

func dispatch(ctx context.Context, cfg *config.Config, store sdk.Store, logger *slog.Logger, command string, args []string, stdout io.Writer) error {
	counter := &admission.Counter{Store: store, Table: cfg.Store.CounterTable}
	consumer := &admission.Consumer{Records: store, Table: cfg.Store.CallerTable}

	switch command {
	case "seed":
		if len(args) != 1 {
			return errors.New("usage: celerix-ivr seed <file.json>")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var file schema.SeedFile
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		if err := engine.Seed(ctx, store, cfg.Store.CallerTable, cfg.Store.PromptTable, file); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Seeded %d callers and %d prompts.\n", len(file.Callers), len(file.Prompts))

	case "get":
		if len(args) != 1 {
			return errors.New("usage: celerix-ivr get <token>")
		}
		rec, err := sdk.Get[schema.CallerRecord](ctx, store, cfg.Store.CallerTable, args[0])
		if err != nil {
			return err
		}
		return printJSON(stdout, rec)

	case "count":
		if len(args) != 1 {
			return errors.New("usage: celerix-ivr count <jobPostId>")
		}
		n, err := counter.Count(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, n)

	case "validate":
		if len(args) != 2 {
			return errors.New("usage: celerix-ivr validate <token> <phone>")
		}
		gate := &admission.Gate{
			Validator: &admission.Validator{Records: store, Table: cfg.Store.CallerTable, Counter: counter},
			Consumer:  consumer,
			Logger:    logger,
		}
		res, err := gate.Admit(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(stdout, res)

	case "consume":
		if len(args) != 1 {
			return errors.New("usage: celerix-ivr consume <token>")
		}
		if err := consumer.Consume(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "OK")

	case "dump":
		dumper, ok := store.(tableDumper)
		if !ok {
			return fmt.Errorf("dump is only supported by the %s and %s backends", config.BackendMemory, config.BackendBolt)
		}
		if len(args) == 0 {
			return printJSON(stdout, dumper.Tables())
		}
		return printJSON(stdout, dumper.DumpTable(args[0]))

	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Println("Celerix IVR admin CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  celerix-ivr [flags] <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  seed <file.json>         Load caller records and job prompts")
	fmt.Println("  get <token>              Show a caller record")
	fmt.Println("  count <jobPostId>        Show how many candidates a job has admitted")
	fmt.Println("  validate <token> <phone> Run the admission check (consumes on Found)")
	fmt.Println("  consume <token>          Mark a token as used")
	fmt.Println("  dump [table]             List tables, or print a table (embedded backends)")
	fmt.Println("\nFlags:")
	fmt.Print(flagSet.FlagUsages())
	fmt.Println("\nEnvironment:")
	for _, name := range config.EnvNames() {
		fmt.Println("  " + name)
	}
}
