// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// comnsense-host runs the document side of comnsense without an
// office application: it loads .xlsx workbooks into memory, gives each
// an id and a router to the agent, and follows the files on disk so
// that external edits reach the agent as SheetChange events.
//
// Documents come from the config file's documents list and from the
// command line. Every router connects to upstream.address; the agent
// (or comnsense-agent-mock) must be listening there.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/comnsense/host"
	"github.com/bureau-foundation/comnsense/lib/clock"
	"github.com/bureau-foundation/comnsense/lib/config"
	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/fabric"
	"github.com/bureau-foundation/comnsense/lib/identity"
	"github.com/bureau-foundation/comnsense/lib/process"
	"github.com/bureau-foundation/comnsense/lib/version"
	"github.com/bureau-foundation/comnsense/lib/xlsx"
	"github.com/bureau-foundation/comnsense/router"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath, upstream, metricsListen string
	var showVersion bool

	flagSet := pflag.NewFlagSet("comnsense-host", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to comnsense.yaml (default: $COMNSENSE_CONFIG, else built-in defaults)")
	flagSet.StringVar(&upstream, "upstream", "", "agent endpoint host:port, overriding upstream.address")
	flagSet.StringVar(&metricsListen, "metrics-listen", "", "address for the /metrics endpoint, overriding metrics.listen")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		version.Print("comnsense-host")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if upstream != "" {
		cfg.Upstream.Address = upstream
	}
	if metricsListen != "" {
		cfg.Metrics.Listen = metricsListen
	}
	cfg.Documents = append(cfg.Documents, flagSet.Args()...)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv("COMNSENSE_CONFIG") != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := router.NewMetrics(registry)

	store, err := identity.Open(cfg.Paths.IdentityStore, clock.Real())
	if err != nil {
		return err
	}

	app := document.NewApplication()
	hub := fabric.NewHub(cfg.Hub.Buffer)
	defer hub.Close()

	manager := router.NewManager(router.ManagerConfig{
		Hub:             hub,
		UpstreamAddress: cfg.Upstream.Address,
		Host:            app,
		Identity:        store,
		PollInterval:    cfg.Upstream.PollInterval,
		DialTimeout:     cfg.Upstream.DialTimeout,
		Clock:           clock.Real(),
		Logger:          logger,
		Metrics:         metrics,
	})
	addin, err := host.New(host.Config{
		Application: app,
		Identity:    store,
		Publisher:   router.NewPublisher(hub, metrics),
		Manager:     manager,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer addin.Close()

	watcher, err := host.NewWatcher(host.WatcherConfig{
		Application: app,
		Load:        xlsx.Load,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, path := range cfg.Documents {
		if _, err := watcher.Open(path); err != nil {
			logger.Error("opening document", "path", path, "error", err)
		}
	}

	logger.Info("comnsense host running",
		"version", version.Info(),
		"upstream", cfg.Upstream.Address,
		"documents", len(app.Workbooks()),
		"identities", store.Len(),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return watcher.Run(groupCtx)
	})
	group.Go(func() error {
		return addin.Supervise(groupCtx, clock.Real(), cfg.Upstream.ReconnectInterval)
	})
	if cfg.Metrics.Listen != "" {
		server := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metricsHandler(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			logger.Info("serving metrics", "listen", cfg.Metrics.Listen)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = group.Wait()

	// Closing every document tells the agent and stops its router.
	logger.Info("shutting down", "documents", len(app.Workbooks()))
	for _, w := range app.Workbooks() {
		app.Close(w)
	}
	return err
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return mux
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `comnsense-host: serve spreadsheet documents to the comnsense agent.

Loads each .xlsx file, assigns it a persistent document id, starts a
router that connects to the agent, and reloads the file whenever it
changes on disk.

Usage:
  comnsense-host [flags] [file.xlsx ...]

Examples:
  # Serve one workbook to a local agent
  comnsense-host budget.xlsx

  # Use a config file and expose Prometheus metrics
  comnsense-host --config comnsense.yaml --metrics-listen 127.0.0.1:9464

Flags:
`)
	flagSet.PrintDefaults()
}
