// Package diagnose turns a session's photos and device metadata into a
// complete repair guide via one multimodal AI request.
package diagnose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zester4/fixium/engine/domain"
	"github.com/zester4/fixium/pkg/resilience"
)

// IssueFinder supplies known common issues for a device category, used to
// give the model context. Typically backed by the knowledge graph.
type IssueFinder interface {
	CommonIssues(ctx context.Context, category domain.DeviceCategory, limit int) ([]string, error)
}

// SimilarFinder supplies summaries of similar past repairs. Typically backed
// by the vector store.
type SimilarFinder interface {
	SimilarRepairs(ctx context.Context, device domain.DeviceInfo, limit int) ([]string, error)
}

// Options configures the pipeline.
type Options struct {
	// EnrichTimeout bounds the optional context lookups, not the AI call.
	EnrichTimeout time.Duration
	// EnrichLimit is how many issues/similar repairs to include.
	EnrichLimit int
	// Rate and Burst configure the per-process request limiter.
	Rate  float64
	Burst int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		EnrichTimeout: 3 * time.Second,
		EnrichLimit:   5,
		Rate:          5.0 / 60.0, // 5 analyses per minute
		Burst:         5,
	}
}

// Service is the diagnosis pipeline.
type Service struct {
	client  ChatClient
	issues  IssueFinder
	similar SimilarFinder
	limiter *resilience.Limiter
	breaker *resilience.Breaker
	flight  *resilience.Group[domain.RepairGuide]
	opts    Options
	logger  *slog.Logger
}

// New creates a diagnosis Service. issues and similar are optional; when nil
// the prompt simply carries no enrichment context.
func New(client ChatClient, issues IssueFinder, similar SimilarFinder, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  client,
		issues:  issues,
		similar: similar,
		limiter: resilience.NewLimiter(resilience.LimiterOpts{Rate: opts.Rate, Burst: opts.Burst}),
		breaker: resilience.NewBreaker(resilience.BreakerOpts{}),
		flight:  resilience.NewGroup[domain.RepairGuide](),
		opts:    opts,
		logger:  logger,
	}
}

// Analyze runs the full pipeline for one session: build the prompt, issue
// exactly one gateway request, parse and validate the reply, and assemble
// the guide. Concurrent calls for the same session id join the in-flight
// request instead of issuing another.
func (s *Service) Analyze(ctx context.Context, sessionID string, device domain.DeviceInfo, photos []domain.CapturedPhoto) (domain.RepairGuide, error) {
	if len(photos) == 0 {
		return domain.RepairGuide{}, fmt.Errorf("diagnose: %w", errors.New("no photos supplied"))
	}
	if !s.limiter.Allow() {
		return domain.RepairGuide{}, ErrRateLimited
	}

	guide, shared, err := s.flight.Do(ctx, sessionID, func(ctx context.Context) (domain.RepairGuide, error) {
		return s.analyzeOnce(ctx, device, photos)
	})
	if shared {
		s.logger.Info("diagnose joined in-flight analysis", "session", sessionID)
	}
	return guide, err
}

func (s *Service) analyzeOnce(ctx context.Context, device domain.DeviceInfo, photos []domain.CapturedPhoto) (domain.RepairGuide, error) {
	start := time.Now()
	s.logger.Info("diagnose start", "category", device.Category, "photos", len(photos))

	user := buildUserPrompt(device, photos, s.enrich(ctx, device))

	var text string
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		text, callErr = s.client.Complete(ctx, systemPrompt, user, photos)
		return callErr
	})
	if err != nil {
		s.logger.Warn("diagnose gateway call failed", "err", err)
		return domain.RepairGuide{}, err
	}

	analysis, err := ParseAnalysis(text)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			s.logger.Error("diagnose response rejected", "err", pe.Wrapped, "raw", truncateForLog(pe.Raw))
		}
		return domain.RepairGuide{}, err
	}

	guide := domain.RepairGuide{
		ID:         uuid.NewString(),
		DeviceInfo: device,
		Diagnosis:  analysis.Diagnosis,
		Steps:      analysis.Steps,
		Parts:      analysis.Parts,
		Tools:      analysis.Tools,
		CreatedAt:  time.Now().UnixMilli(),
	}
	s.logger.Info("diagnose done",
		"steps", len(guide.Steps),
		"confidence", guide.Diagnosis.Confidence,
		"duration", time.Since(start),
	)
	return guide, nil
}

// enrich gathers optional prompt context. Lookup failures are logged and
// skipped; enrichment never fails an analysis.
func (s *Service) enrich(ctx context.Context, device domain.DeviceInfo) []string {
	if s.issues == nil && s.similar == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.EnrichTimeout)
	defer cancel()

	var parts []string
	if s.issues != nil {
		issues, err := s.issues.CommonIssues(ctx, device.Category, s.opts.EnrichLimit)
		if err != nil {
			s.logger.Warn("diagnose: common-issue lookup failed, continuing without", "err", err)
		} else if len(issues) > 0 {
			parts = append(parts, "Known common issues for this device category:\n- "+strings.Join(issues, "\n- "))
		}
	}
	if s.similar != nil {
		similar, err := s.similar.SimilarRepairs(ctx, device, s.opts.EnrichLimit)
		if err != nil {
			s.logger.Warn("diagnose: similar-repair lookup failed, continuing without", "err", err)
		} else if len(similar) > 0 {
			parts = append(parts, "Summaries of similar past repairs:\n- "+strings.Join(similar, "\n- "))
		}
	}
	return parts
}

func truncateForLog(s string) string {
	if len(s) <= 500 {
		return s
	}
	return s[:500] + "..."
}
