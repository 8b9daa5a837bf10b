package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	jsonmeta "github.com/i5heu/ouroboros-jsonmeta"
	"github.com/i5heu/ouroboros-jsonmeta/internal/config"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/apiServer"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/logging"
)

const (
	logKeyListenAddr = "listenAddr"
	logKeyDataPath   = "dataPath"
	logKeyBackend    = "backend"
	logKeySignal     = "signal"
	logKeyError      = "error"
	logKeyConfig     = "config"
)

func main() { // A
	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger.Info("starting jsonmeta daemon",
		logKeyConfig, flags.configPath,
		logKeyListenAddr, cfg.Listen,
		logKeyDataPath, cfg.DataPath,
		logKeyBackend, cfg.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("daemon error", logKeyError, err)
		os.Exit(1)
	}
}

// daemonFlags holds command line overrides for the config file.
type daemonFlags struct { // A
	configPath string
	listenAddr string
	dataPath   string
	backend    string
	authToken  string
	debug      bool
}

func parseFlags() daemonFlags { // A
	f := daemonFlags{}

	flag.StringVar(&f.configPath, "config", "config.yaml",
		"Path to the YAML config file")
	flag.StringVar(&f.listenAddr, "listen", "",
		"Address to serve the HTTP API on (overrides config)")
	flag.StringVar(&f.dataPath, "data", "",
		"Path to data directory (overrides config)")
	flag.StringVar(&f.backend, "backend", "",
		"Account store backend: badger, bolt or memory (overrides config)")
	flag.StringVar(&f.authToken, "auth-token", "",
		"Require this X-Auth-Token on every request (overrides config)")
	flag.BoolVar(&f.debug, "debug", false,
		"Enable debug logging")

	flag.Parse()

	return f
}

func (f daemonFlags) apply(cfg *config.Config) {
	if f.listenAddr != "" {
		cfg.Listen = f.listenAddr
	}
	if f.dataPath != "" {
		cfg.DataPath = f.dataPath
	}
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.authToken != "" {
		cfg.AuthToken = f.authToken
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}
}

// run serves the API until ctx is cancelled or a component fails.
func run(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
) error { // A
	programID, err := cfg.Program()
	if err != nil {
		return err
	}

	node, err := jsonmeta.New(jsonmeta.Config{
		Paths:                     []string{cfg.DataPath},
		MinimumFreeGB:             uint(cfg.MinimumFreeGB),
		Backend:                   cfg.Backend,
		ProgramID:                 programID,
		GarbageCollectionInterval: 10 * time.Minute,
		Logger:                    logger,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	if err := node.Start(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	opts := []apiServer.Option{apiServer.WithLogger(logger)}
	if cfg.AuthToken != "" {
		opts = append(opts, apiServer.WithAuth(apiServer.TokenAuth(cfg.AuthToken)))
	} else {
		logger.Warn("no auth token configured, airdrop and snapshot routes are disabled")
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           apiServer.New(node, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", logKeyListenAddr, cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("received shutdown signal", logKeySignal, ctx.Err().Error())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(
			srv.Shutdown(shutdownCtx),
			node.Close(shutdownCtx),
		)
	})

	err = g.Wait()
	logger.Info("daemon stopped")
	return err
}
