// Package ingest indexes completed repairs: each finished guide published on
// NATS is validated, summarized, embedded and written to the vector and
// knowledge stores so future diagnoses can draw on it.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/zester4/fixium/engine/domain"
	"github.com/zester4/fixium/engine/semantic"
	"github.com/zester4/fixium/pkg/fn"
)

const (
	// CompletedSubject carries freshly completed repairs.
	CompletedSubject = "fixium.repair.completed"
	// DLQSubject receives repairs that failed indexing MaxRetries times.
	DLQSubject = "fixium.repair.dlq"
	// MaxRetries before a message is parked on the DLQ.
	MaxRetries = 3

	retryHeader = "X-Retry-Count"
)

// CompletedRepair is the event payload published when a repair finishes.
type CompletedRepair struct {
	HistoryID   string             `json:"historyId"`
	Guide       domain.RepairGuide `json:"guide"`
	CompletedAt int64              `json:"completedAt"`
}

// SummarizedRepair carries the embeddable summary text.
type SummarizedRepair struct {
	CompletedRepair
	Summary string
}

// EmbeddedRepair carries the summary vector.
type EmbeddedRepair struct {
	SummarizedRepair
	Vector []float32
}

// Embedder turns the summary into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorWriter is the write surface of the semantic store.
type VectorWriter interface {
	Upsert(ctx context.Context, records []semantic.GuideRecord) error
}

// GraphWriter is the write surface of the knowledge store.
type GraphWriter interface {
	SaveGuide(ctx context.Context, guide domain.RepairGuide) error
}

// Deps holds the external dependencies of the pipeline.
type Deps struct {
	Embedder Embedder
	Vectors  VectorWriter
	Graph    GraphWriter
	Logger   *slog.Logger
}

// Validate rejects events whose guide would poison the index.
var Validate fn.Stage[CompletedRepair, CompletedRepair] = func(_ context.Context, ev CompletedRepair) fn.Result[CompletedRepair] {
	if ev.Guide.ID == "" {
		return fn.Errf[CompletedRepair]("ingest: guide id missing")
	}
	if err := domain.ValidateDeviceInfo(ev.Guide.DeviceInfo); err != nil {
		return fn.Err[CompletedRepair](err)
	}
	if err := domain.ValidateAnalysis(domain.Analysis{
		Diagnosis: ev.Guide.Diagnosis,
		Steps:     ev.Guide.Steps,
		Parts:     ev.Guide.Parts,
		Tools:     ev.Guide.Tools,
	}); err != nil {
		return fn.Err[CompletedRepair](err)
	}
	return fn.Ok(ev)
}

// Summarize renders the guide into one embeddable paragraph.
var Summarize fn.Stage[CompletedRepair, SummarizedRepair] = func(_ context.Context, ev CompletedRepair) fn.Result[SummarizedRepair] {
	return fn.Ok(SummarizedRepair{CompletedRepair: ev, Summary: summarizeGuide(ev.Guide)})
}

// NewEmbed creates the embedding stage.
func NewEmbed(embedder Embedder) fn.Stage[SummarizedRepair, EmbeddedRepair] {
	return func(ctx context.Context, sr SummarizedRepair) fn.Result[EmbeddedRepair] {
		vec, err := embedder.Embed(ctx, sr.Summary)
		if err != nil {
			return fn.Err[EmbeddedRepair](fmt.Errorf("ingest: embed summary: %w", err))
		}
		return fn.Ok(EmbeddedRepair{SummarizedRepair: sr, Vector: vec})
	}
}

// NewStore creates the storage stage writing to Qdrant and Neo4j.
func NewStore(vectors VectorWriter, graph GraphWriter) fn.Stage[EmbeddedRepair, string] {
	return func(ctx context.Context, er EmbeddedRepair) fn.Result[string] {
		if err := graph.SaveGuide(ctx, er.Guide); err != nil {
			return fn.Err[string](fmt.Errorf("ingest: graph save: %w", err))
		}
		record := semantic.GuideRecord{
			ID:        er.Guide.ID,
			Embedding: er.Vector,
			Summary:   er.Summary,
			Category:  string(er.Guide.DeviceInfo.Category),
			Model:     er.Guide.DeviceInfo.Model,
			Steps:     len(er.Guide.Steps),
			CreatedAt: er.Guide.CreatedAt,
		}
		if err := vectors.Upsert(ctx, []semantic.GuideRecord{record}); err != nil {
			return fn.Err[string](fmt.Errorf("ingest: vector upsert: %w", err))
		}
		return fn.Ok(er.Guide.ID)
	}
}

func loggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Info("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Info("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline composes Validate → Summarize → Embed → Store.
func NewPipeline(deps Deps) fn.Stage[CompletedRepair, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(loggedTap[CompletedRepair]("validate", log), Validate)
	summarized := fn.Then(validated, Summarize)
	embedded := fn.Then(summarized, fn.Then(loggedTap[SummarizedRepair]("embed", log), NewEmbed(deps.Embedder)))
	return fn.Then(embedded, fn.Then(loggedTap[EmbeddedRepair]("store", log), NewStore(deps.Vectors, deps.Graph)))
}

// dlqMessage is published when a repair exhausts its retries.
type dlqMessage struct {
	Event   CompletedRepair `json:"event"`
	Error   string          `json:"error"`
	Retries int             `json:"retries"`
}

// StartConsumer subscribes the pipeline to the completed-repair subject.
// Failed messages are re-published with an incremented retry header, then
// parked on the DLQ once MaxRetries is reached.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(CompletedSubject, func(msg *nats.Msg) {
		var ev CompletedRepair
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Error("ingest: unmarshal failed", "err", err)
			return
		}

		ctx := context.Background()

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get(retryHeader); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, ev)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed", "err", pipeErr, "guide", ev.Guide.ID, "retry", retries)

			if retries >= MaxRetries {
				dlq := dlqMessage{Event: ev, Error: pipeErr.Error(), Retries: retries}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: dlq publish failed", "err", err)
				}
			} else {
				retry := nats.NewMsg(CompletedSubject)
				retry.Data = msg.Data
				retry.Header = nats.Header{}
				retry.Header.Set(retryHeader, fmt.Sprintf("%d", retries))
				if err := nc.PublishMsg(retry); err != nil {
					log.Error("ingest: retry publish failed", "err", err)
				}
			}
		} else {
			guideID, _ := result.Unwrap()
			log.Info("ingest: indexed", "guide", guideID)
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}
