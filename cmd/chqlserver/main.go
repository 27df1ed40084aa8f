package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/chqlbuilder/chqlbuilder/pkg/config"
	"github.com/chqlbuilder/chqlbuilder/pkg/errortracking"
	"github.com/chqlbuilder/chqlbuilder/pkg/httpapi"
	"github.com/chqlbuilder/chqlbuilder/pkg/httpmw"
	"github.com/chqlbuilder/chqlbuilder/pkg/logger"
	"github.com/chqlbuilder/chqlbuilder/pkg/metrics"
	"github.com/chqlbuilder/chqlbuilder/pkg/querycache"
	"github.com/chqlbuilder/chqlbuilder/pkg/server"
	"github.com/chqlbuilder/chqlbuilder/pkg/sourceregistry"
	"github.com/chqlbuilder/chqlbuilder/pkg/tracing"
)

func main() {
	cfgMgr := config.NewManager()
	if err := cfgMgr.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg, err := cfgMgr.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logger.Dev)
	if cfg.Logger.Path != "" {
		logger.UpdateLoggerPath(cfg.Logger.Path, cfg.Logger.Dev)
	}
	logger.Info("chqlserver starting")
	logger.Info("configuration loaded, server will listen on %s", cfg.Server.Addr)

	errTracker, err := errortracking.NewProviderFromConfig(cfg.ErrorTracking)
	if err != nil {
		logger.Error("failed to initialize error tracking: %v", err)
		os.Exit(1)
	}
	logger.InitErrorTracking(errTracker)
	defer logger.CloseErrorTracking()

	var shutdownTracer func(context.Context) error
	if cfg.Tracing.Enabled {
		shutdownTracer, err = tracing.InitTracer(tracing.Config{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: cfg.Tracing.ServiceVersion,
			Endpoint:       cfg.Tracing.Endpoint,
			Enabled:        cfg.Tracing.Enabled,
		})
		if err != nil {
			logger.Error("failed to initialize tracing: %v", err)
			os.Exit(1)
		}
	}

	metricsCfg := metrics.DefaultConfig()
	metricsProvider := metrics.NewPrometheusProvider(metricsCfg)
	metrics.SetProvider(metricsProvider)

	if err := initCompiledStatementCache(cfg.Cache); err != nil {
		logger.Error("failed to initialize compiled statement cache: %v", err)
		os.Exit(1)
	}

	registry := sourceregistry.New(cfg)
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error("error closing source registry: %v", err)
		}
	}()

	handler := httpapi.NewHandler(registry)

	router := mux.NewRouter()
	httpapi.SetupMuxRoutes(router, handler, metricsProvider.Handler())

	var chain http.Handler = router
	chain = httpmw.PanicRecovery(chain)
	if cfg.Middleware.MaxRequestSize > 0 {
		chain = httpmw.NewRequestSizeLimiter(cfg.Middleware.MaxRequestSize).Middleware(chain)
	}
	if cfg.Middleware.RateLimitRPS > 0 {
		chain = httpmw.NewRateLimiter(cfg.Middleware.RateLimitRPS, cfg.Middleware.RateLimitBurst).Middleware(chain)
	}
	chain = metricsProvider.Middleware(chain)
	chain = tracing.Middleware(chain)

	mgr := server.NewManager()

	host, port := parseAddr(cfg.Server.Addr)
	_, err = mgr.Add(server.Config{
		Name:            "chqlserver",
		Host:            host,
		Port:            port,
		Handler:         chain,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DrainTimeout:    cfg.Server.DrainTimeout,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
	})
	if err != nil {
		logger.Error("failed to add server: %v", err)
		os.Exit(1)
	}

	mgr.RegisterShutdownCallback(func(ctx context.Context) error {
		return registry.Close()
	})
	if shutdownTracer != nil {
		mgr.RegisterShutdownCallback(shutdownTracer)
	}
	mgr.RegisterShutdownCallback(func(ctx context.Context) error {
		errTracker.Flush(5)
		return errTracker.Close()
	})

	logger.Info("starting server on %s", cfg.Server.Addr)
	if err := mgr.ServeWithGracefulShutdown(); err != nil {
		logger.Error("server failed: %v", err)
		os.Exit(1)
	}
}

// initCompiledStatementCache points the compiled-statement cache at the
// provider named in config, defaulting to the package's own in-memory
// fallback when none is configured.
func initCompiledStatementCache(cfg config.CacheConfig) error {
	switch cfg.Provider {
	case "redis":
		return querycache.UseRedis(&querycache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case "memcache":
		return querycache.UseMemcache(&querycache.MemcacheConfig{
			Servers:      cfg.Memcache.Servers,
			MaxIdleConns: cfg.Memcache.MaxIdleConns,
			Timeout:      cfg.Memcache.Timeout,
		})
	default:
		return querycache.UseMemory(&querycache.Options{
			DefaultTTL: 5 * time.Minute,
			MaxSize:    10000,
		})
	}
}

// parseAddr splits a "host:port" or ":port" address into its parts,
// matching the format pkg/config.ServerConfig.Addr accepts.
func parseAddr(addr string) (host string, port int) {
	port = 8080
	if addr == "" {
		return host, port
	}
	if addr[0] == ':' {
		fmt.Sscanf(addr, ":%d", &port)
		return host, port
	}
	fmt.Sscanf(addr, "%[^:]:%d", &host, &port)
	return host, port
}
