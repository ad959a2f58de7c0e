// Entry point for the agendex service: HTTP API plus optional MCP stdio
// transport over the same extraction pipeline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/agendex/agendex/config"
	"github.com/agendex/agendex/docpipe"
	"github.com/agendex/agendex/extract"
	"github.com/agendex/agendex/dbopen"
	"github.com/agendex/agendex/inference"
	"github.com/agendex/agendex/observability"
	"github.com/agendex/agendex/server"
	"github.com/agendex/agendex/shield"
	"github.com/agendex/agendex/store"
)

func main() {
	configPath := flag.String("config", env("AGENDEX_CONFIG", ""), "path to YAML config file")
	mcpStdio := flag.Bool("mcp", env("MCP_TRANSPORT", "") == "stdio", "serve MCP over stdio instead of HTTP")
	flag.Parse()

	// Logging.
	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.DBPath, store.Config{Logger: logger})
	if err != nil {
		slog.Error("store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	engine := inference.NewClient(inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		APIKey:  cfg.APIKey(),
		Timeout: cfg.Inference.RequestTimeout,
		Logger:  logger,
	})

	docs := docpipe.New(docpipe.Config{
		MaxFileSize: cfg.MaxFileBytes(),
		Logger:      logger,
	})

	extractor := extract.New(extract.Config{
		Docs:        docs,
		Engine:      engine,
		Quota:       store.NewQuotaLedger(st, cfg.Quota.MonthlyTokens),
		Logger:      logger,
		Model:       cfg.Inference.Model,
		VisionModel: cfg.Inference.VisionModel,
	})

	if *mcpStdio {
		runMCP(ctx, extractor)
		return
	}

	if err := shield.Init(st.DB()); err != nil {
		slog.Error("shield init", "error", err)
		os.Exit(1)
	}
	limiter := shield.NewRateLimiter(st.DB(), "/healthz")
	limiter.StartReloader(ctx.Done())

	// Metrics live in their own database to keep writes off the event store.
	obsDB, err := dbopen.Open(cfg.DBPath+".obs", dbopen.WithMkdirAll(), dbopen.WithSchema(observability.Schema))
	if err != nil {
		slog.Error("metrics db", "error", err)
		os.Exit(1)
	}
	defer obsDB.Close()
	metrics := observability.NewMetricsManager(obsDB, 100, 5*time.Second)
	defer metrics.Close()

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: server.New(server.Config{
			Extractor:    extractor,
			Store:        st,
			Logger:       logger,
			Users:        cfg.Auth.Users,
			MaxBodyBytes: cfg.MaxFileBytes(),
			RateLimiter:  limiter,
			Metrics:      metrics,
		}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func runMCP(ctx context.Context, extractor *extract.Extractor) {
	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    "agendex",
		Version: "1.0.0",
	}, nil)
	extractor.RegisterMCP(mcpSrv)

	slog.Info("MCP stdio starting")
	if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		slog.Error("MCP stdio", "error", err)
		os.Exit(1)
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
