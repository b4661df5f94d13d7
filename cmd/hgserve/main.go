// Command hgserve is the knowledge-graph backend for hg.
//
//	hgserve [serve] [--addr ADDR] [--db PATH] ...
//	hgserve import [--replace] FILE.tsv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vanderheijden86/herbgraph/internal/kgstore"
	"github.com/vanderheijden86/herbgraph/internal/server"
	"github.com/vanderheijden86/herbgraph/pkg/config"
	"github.com/vanderheijden86/herbgraph/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "import" || args[0] == "version") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "import":
		return runImport(ctx, args, stdout)
	case "version":
		fmt.Fprintf(stdout, "hgserve %s\n", version.Version)
		return nil
	default:
		return runServe(ctx, args, stdout)
	}
}

// serverFlags binds the shared --config/--db flags and returns a loader
// that applies them on top of the config file and environment.
func serverFlags(fs *flag.FlagSet) func() (config.Config, error) {
	configPath := fs.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/herbgraph/config.yaml)")
	dbPath := fs.String("db", "", "SQLite triple store path")
	return func() (config.Config, error) {
		var (
			cfg config.Config
			err error
		)
		if *configPath != "" {
			cfg, err = config.LoadFrom(*configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return cfg, err
		}
		cfg.ApplyEnv()
		if *dbPath != "" {
			cfg.Server.Database = *dbPath
		}
		return cfg, nil
	}
}

func runServe(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("hgserve", flag.ContinueOnError)
	fs.SetOutput(stdout)
	load := serverFlags(fs)
	addr := fs.String("addr", "", "Listen address (overrides config and HG_SERVER_ADDR)")
	taxonomyPath := fs.String("taxonomy", "", "Taxonomy table JSON")
	namesPath := fs.String("names", "", "Plant name list CSV")
	noWatch := fs.Bool("no-watch", false, "Do not reload the taxonomy and name files when they change")
	dev := fs.Bool("dev", false, "Human-readable development logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := load()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *taxonomyPath != "" {
		cfg.Server.TaxonomyPath = *taxonomyPath
	}
	if *namesPath != "" {
		cfg.Server.NamesPath = *namesPath
	}

	logger, err := newLogger(*dev)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := kgstore.Open(cfg.Server.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if n, err := store.Count(ctx); err == nil {
		logger.Info("triple store opened", zap.String("path", store.Path()), zap.Int("triples", n))
	}

	opts := server.OptionsFromConfig(cfg.Server)
	opts.Store = store
	opts.Logger = logger
	opts.Watch = !*noWatch
	opts.Generator = newGenerator(cfg.Server.LLM, logger)

	srv, err := server.New(opts)
	if err != nil {
		return err
	}
	logger.Info("starting hgserve", zap.String("version", version.Version), zap.String("addr", cfg.Server.Addr))
	return srv.Run(ctx, cfg.Server.Addr)
}

// newGenerator returns nil when no key is configured so the text endpoints
// answer with an error instead of the server refusing to start.
func newGenerator(cfg config.LLMConfig, logger *zap.Logger) server.Generator {
	gen, err := server.NewChatGenerator(cfg)
	if err != nil {
		logger.Warn("text generation disabled",
			zap.String("api_key_env", cfg.APIKeyEnv),
			zap.Error(err))
		return nil
	}
	logger.Info("text generation enabled", zap.String("model", gen.Model()), zap.String("base_url", cfg.BaseURL))
	return gen
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("hgserve import", flag.ContinueOnError)
	fs.SetOutput(stdout)
	load := serverFlags(fs)
	replace := fs.Bool("replace", false, "Delete existing triples before importing")
	batch := fs.Int("batch", 0, "Rows per transaction (default 5000)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: hgserve import [--replace] FILE.tsv")
	}

	cfg, err := load()
	if err != nil {
		return err
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	store, err := kgstore.Open(cfg.Server.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.ImportTSV(ctx, f, kgstore.ImportOptions{Replace: *replace, BatchSize: *batch})
	if err != nil {
		return fmt.Errorf("import %s: %w", fs.Arg(0), err)
	}
	fmt.Fprintf(stdout, "Imported %d triples into %s\n", n, store.Path())
	return nil
}
