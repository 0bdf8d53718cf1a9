// Package main implements the fixium API server: repair sessions, photo
// capture, AI diagnosis and repair history over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zester4/fixium/engine/diagnose"
	"github.com/zester4/fixium/engine/history"
	"github.com/zester4/fixium/engine/knowledge"
	"github.com/zester4/fixium/engine/semantic"
	"github.com/zester4/fixium/engine/session"
	"github.com/zester4/fixium/pkg/metrics"
	"github.com/zester4/fixium/pkg/mid"
	"github.com/zester4/fixium/pkg/ollama"
)

// Config holds all environment-based configuration. The AI gateway is the
// only required backend; NATS, Neo4j, Qdrant and Ollama are optional and the
// server degrades gracefully without them.
type Config struct {
	Port        string
	MetricsPort int

	GatewayURL   string
	GatewayKey   string
	GatewayModel string

	HistoryPath string
	HistoryDB   string

	NATSURL    string
	Neo4jURL   string
	Neo4jUser  string
	Neo4jPass  string
	QdrantURL  string
	Collection string
	OllamaURL  string
	EmbedModel string

	CORSOrigin string
}

func loadConfig() Config {
	metricsPort, _ := strconv.Atoi(envOr("METRICS_PORT", "9091"))
	return Config{
		Port:         envOr("PORT", "8080"),
		MetricsPort:  metricsPort,
		GatewayURL:   envOr("AI_GATEWAY_URL", "https://openrouter.ai/api"),
		GatewayKey:   os.Getenv("AI_GATEWAY_KEY"),
		GatewayModel: envOr("AI_GATEWAY_MODEL", "google/gemini-3-flash-preview"),
		HistoryPath:  envOr("HISTORY_PATH", ""),
		HistoryDB:    envOr("HISTORY_DB", ""),
		NATSURL:      os.Getenv("NATS_URL"),
		Neo4jURL:     os.Getenv("NEO4J_URL"),
		Neo4jUser:    envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:    envOr("NEO4J_PASS", "password"),
		QdrantURL:    os.Getenv("QDRANT_URL"),
		Collection:   envOr("QDRANT_COLLECTION", "fixium_guides"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:   envOr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Optional backends ---
	var issues diagnose.IssueFinder
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		issues = knowledge.New(driver)
		logger.Info("knowledge graph enabled", "url", cfg.Neo4jURL)
	}

	var similar diagnose.SimilarFinder
	if cfg.QdrantURL != "" {
		vectors, err := semantic.New(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer vectors.Close()
		embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)
		similar = semantic.NewFinder(embedder, vectors)
		logger.Info("similar-repair search enabled", "url", cfg.QdrantURL)
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("fixium-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		logger.Info("event publishing enabled", "url", cfg.NATSURL)
	}

	// --- History store ---
	var store history.Store
	switch {
	case cfg.HistoryDB != "":
		db, err := history.OpenSQLite(ctx, cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("history db: %w", err)
		}
		defer db.Close()
		store = db
	case cfg.HistoryPath != "":
		store = history.NewFileStore(cfg.HistoryPath)
	default:
		store = history.NewMemStore()
		logger.Warn("no history backend configured, entries will not survive restarts")
	}
	recorder := history.NewRecorder(ctx, store, logger)

	// --- Diagnosis pipeline ---
	gateway := diagnose.NewGateway(diagnose.GatewayOpts{
		BaseURL: cfg.GatewayURL,
		APIKey:  cfg.GatewayKey,
		Model:   cfg.GatewayModel,
	})
	diag := diagnose.New(gateway, issues, similar, diagnose.DefaultOptions(), logger)

	reg := metrics.New()
	reg.ServeAsync(cfg.MetricsPort)

	srvr := &server{
		sessions: session.NewRegistry(),
		diag:     diag,
		history:  recorder,
		nc:       nc,
		metrics:  reg,
		logger:   logger,
	}

	handler := mid.Chain(srvr.routes(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("fixium-api"),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}
