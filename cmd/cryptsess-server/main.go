package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/yndnr/cryptsess/internal/app"
	"github.com/yndnr/cryptsess/internal/infra/buildinfo"
	"github.com/yndnr/cryptsess/internal/infra/confloader"
	"github.com/yndnr/cryptsess/internal/infra/shutdown"
	"github.com/yndnr/cryptsess/internal/server/config"
	"github.com/yndnr/cryptsess/internal/server/httpserver"
	"github.com/yndnr/cryptsess/internal/server/httpserver/handler"
	"github.com/yndnr/cryptsess/internal/session"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
	"github.com/yndnr/cryptsess/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("cryptsess-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := app.LoadConfig(*configFile, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting cryptsess-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"driver", cfg.Storage.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := metric.NewRegistry()
	stack, err := app.Build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, log)

	// Registered first so it runs last.
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return stack.Close()
	})

	if cfg.Session.GCInterval > 0 {
		collector, err := session.NewCollector(stack.Provider, cfg.Session.GCInterval, cfg.Session.MaxLifetime, log)
		if err != nil {
			stack.Close()
			return err
		}
		// The hook waits for an in-flight sweep so storage is not closed under it.
		shutdownHandler.OnShutdown("session-gc", collector.Start(ctx))
	}

	if *configFile != "" {
		watcher, err := watchLogLevel(*configFile, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	srv := httpserver.New(cfg.Server.HTTP, newRouter(cfg, stack, reg, log))
	shutdownHandler.OnShutdown("http", srv.Shutdown)

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// newRouter wires the HTTP surface onto the session stack.
func newRouter(cfg *config.ServerConfig, stack *app.Stack, reg *metric.Registry, log logger.Logger) http.Handler {
	cookie := handler.CookieConfig{
		Name:   cfg.Server.Cookie.Name,
		Path:   cfg.Server.Cookie.Path,
		Domain: cfg.Server.Cookie.Domain,
		Secure: cfg.Server.Cookie.Secure,
	}

	h := handler.New(handler.Config{
		Manager:      stack.Manager,
		Cookie:       cookie,
		MaxBodyBytes: cfg.Server.HTTP.MaxBodyBytes,
		GC: func(ctx context.Context) (int, error) {
			return stack.Provider.GC(ctx, cfg.Session.MaxLifetime)
		},
		Ready: func(ctx context.Context) error {
			_, err := stack.Storage.Exists(ctx, "readyz")
			return err
		},
		Logger: log,
	})

	return httpserver.NewRouter(httpserver.RouterConfig{
		Handler: h,
		Sessions: httpserver.SessionsConfig{
			Manager: stack.Manager,
			Cookie:  cookie,
			Limiter: httpserver.NewSessionLimiter(cfg.Server.RateLimit.NewSessionsPerSecond, cfg.Server.RateLimit.Burst),
			Metrics: reg,
			Logger:  log,
		},
		Metrics:        reg,
		MetricsPath:    cfg.Server.MetricsPath,
		AdminAllowList: cfg.Server.AdminAllowList,
		Logger:         log,
	})
}

// watchLogLevel reapplies log.level whenever the config file changes.
// Other settings need a restart.
func watchLogLevel(path string, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(string) {
		cfg, err := app.LoadConfig(path, nil)
		if err != nil {
			log.Warn("ignoring invalid config change", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	watcher.StartAsync()
	return watcher, nil
}
