// Command worker consumes completed repairs from NATS and indexes them into
// Qdrant and Neo4j so future diagnoses can draw on past repairs.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zester4/fixium/engine/ingest"
	"github.com/zester4/fixium/engine/knowledge"
	"github.com/zester4/fixium/engine/semantic"
	"github.com/zester4/fixium/pkg/metrics"
	"github.com/zester4/fixium/pkg/ollama"
)

const vectorDims = 768 // nomic-embed-text

func main() {
	var (
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS server URL")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		ollamaModel = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		neo4jURL    = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", "password", "Neo4j password")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "fixium_guides", "Qdrant collection name")
		metricsPort = flag.Int("metrics-port", 9091, "Prometheus metrics port")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*natsURL, *ollamaURL, *ollamaModel, *neo4jURL, *neo4jUser, *neo4jPass,
		*qdrantAddr, *collection, *metricsPort, logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(natsURL, ollamaURL, ollamaModel, neo4jURL, neo4jUser, neo4jPass,
	qdrantAddr, collection string, metricsPort int, logger *slog.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	met.ServeAsync(metricsPort)

	driver, err := neo4j.NewDriverWithContext(neo4jURL, neo4j.BasicAuth(neo4jUser, neo4jPass, ""))
	if err != nil {
		return err
	}
	defer driver.Close(ctx)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return err
	}
	logger.Info("connected to Neo4j", "url", neo4jURL)

	vectors, err := semantic.New(qdrantAddr, collection)
	if err != nil {
		return err
	}
	defer vectors.Close()
	if err := vectors.EnsureCollection(ctx, vectorDims); err != nil {
		return err
	}
	logger.Info("connected to Qdrant", "collection", collection, "dims", vectorDims)

	nc, err := nats.Connect(natsURL,
		nats.Name("fixium-worker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return err
	}
	defer nc.Drain()
	logger.Info("connected to NATS", "url", natsURL)

	sub, err := ingest.StartConsumer(nc, ingest.Deps{
		Embedder: ollama.NewEmbedClient(ollamaURL, ollamaModel),
		Vectors:  &countingVectors{inner: vectors, counter: met.Counter("fixium_worker_vector_writes_total")},
		Graph:    &countingGraph{inner: knowledge.New(driver), counter: met.Counter("fixium_worker_graph_writes_total")},
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	logger.Info("worker consuming", "subject", ingest.CompletedSubject)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
