package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/shardkv/internal/core/service"
	"github.com/yndnr/shardkv/internal/infra/buildinfo"
	"github.com/yndnr/shardkv/internal/infra/confloader"
	"github.com/yndnr/shardkv/internal/infra/shutdown"
	"github.com/yndnr/shardkv/internal/server/config"
	"github.com/yndnr/shardkv/internal/server/httpserver"
	"github.com/yndnr/shardkv/internal/server/localserver"
	"github.com/yndnr/shardkv/internal/server/redisserver"
	"github.com/yndnr/shardkv/internal/storage/memory"
	"github.com/yndnr/shardkv/internal/telemetry/logger"
	"github.com/yndnr/shardkv/internal/telemetry/metric"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags.
type options struct {
	configFile  string
	showVersion bool
	addr        string
	logLevel    string
	dataDir     string
	respAddr    string
	socket      string
	set         map[string]bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("shardkv-server", flag.ContinueOnError)

	opts := &options{set: make(map[string]bool)}
	fs.StringVar(&opts.configFile, "config", "", "Path to configuration file")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides server.http.addr)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (overrides log.level)")
	fs.StringVar(&opts.dataDir, "data-dir", "", "Base directory for dump files (overrides storage.data_dir)")
	fs.StringVar(&opts.respAddr, "resp-addr", "", "Enable the Redis protocol endpoint on this address")
	fs.StringVar(&opts.socket, "socket", "", "Serve the HTTP API on this Unix socket (overrides server.local.socket_path)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// overrides returns the config keys set explicitly on the command line.
func (o *options) overrides() map[string]any {
	m := make(map[string]any)
	if o.set["addr"] {
		m["server.http.addr"] = o.addr
	}
	if o.set["log-level"] {
		m["log.level"] = o.logLevel
	}
	if o.set["data-dir"] {
		m["storage.data_dir"] = o.dataDir
	}
	if o.set["resp-addr"] {
		m["server.resp.enabled"] = true
		m["server.resp.addr"] = o.respAddr
	}
	if o.set["socket"] {
		m["server.local.socket_path"] = o.socket
	}
	return m
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Show version and exit
	if opts.showVersion {
		fmt.Printf("shardkv-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting shardkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", opts.configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	store := memory.New(memory.WithShardCount(cfg.Storage.ShardCount))

	metrics := metric.NewRegistry()
	metrics.MustRegister(metric.NewStoreCollector(store))

	kv := service.NewKVService(store,
		service.WithDataDir(cfg.Storage.DataDir),
		service.WithMetrics(metrics),
		service.WithLogger(log),
	)

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Service:      kv,
		Logger:       log,
		Metrics:      metrics,
		ServeMetrics: cfg.Metrics.Enabled,
		RateLimit:    cfg.Server.RateLimit,
		MaxBodyBytes: cfg.Server.HTTP.MaxBodyBytes,
	})
	httpServer := httpserver.New(cfg.Server.HTTP, router, log)

	log.Info("store initialized",
		"shards", store.ShardCount(),
		"data_dir", cfg.Storage.DataDir)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout)

	// Hooks run in reverse order: the HTTP server stops before the watcher.
	if opts.configFile != "" {
		watcher, err := startConfigWatcher(opts, log)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(ctx context.Context) error {
				return watcher.Stop()
			})
		}
	}
	shutdownHandler.OnShutdown(httpServer.Shutdown)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(httpServer.ListenAndServe)

	if cfg.Server.RESP.Enabled {
		respServer := redisserver.New(cfg.Server.RESP, kv, log,
			redisserver.WithMetrics(metrics),
			redisserver.WithRateLimit(cfg.Server.RateLimit),
		)
		shutdownHandler.OnShutdown(respServer.Shutdown)
		g.Go(respServer.ListenAndServe)
	}

	if cfg.Server.Local.Enabled() {
		localRouter := httpserver.NewRouter(&httpserver.RouterConfig{
			Service:      kv,
			Logger:       log,
			Metrics:      metrics,
			ServeMetrics: cfg.Metrics.Enabled,
			MaxBodyBytes: cfg.Server.HTTP.MaxBodyBytes,
		})
		localServer := localserver.New(cfg.Server.Local.SocketPath, localRouter, log)
		shutdownHandler.OnShutdown(localServer.Shutdown)
		g.Go(localServer.ListenAndServe)
	}
	g.Go(func() error {
		return shutdownHandler.Wait(ctx)
	})

	log.Info("server started, press Ctrl+C to stop")
	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}

	log.Info("server stopped gracefully", "keys", store.Len())
	return nil
}

// loadConfig loads configuration from defaults, file, environment and flags.
func loadConfig(opts *options) (*config.ServerConfig, error) {
	cfg := config.Default()

	loaderOpts := []confloader.Option{confloader.WithOverrides(opts.overrides())}
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, confloader.WithConfigFile(opts.configFile))
	}
	loader := confloader.NewLoader(loaderOpts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger and makes it the default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       os.Stdout,
		RedactValues: cfg.Log.RedactValues,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}

// startConfigWatcher reloads the configuration file on change and applies
// the log level. Other settings need a restart.
func startConfigWatcher(opts *options, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(opts.configFile); err != nil {
		_ = watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(path string) {
		applyReload(opts, log)
	})
	watcher.StartAsync()
	return watcher, nil
}

// applyReload re-reads the configuration and applies the parts that can
// change at runtime. An invalid file leaves the running settings alone.
func applyReload(opts *options, log logger.Logger) {
	cfg, err := loadConfig(opts)
	if err != nil {
		log.Warn("config reload rejected", "error", err)
		return
	}

	if old := logger.GetLevel(); old != cfg.Log.Level {
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level changed", "from", old, "to", cfg.Log.Level)
	}
}
