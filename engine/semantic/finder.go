package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/zester4/fixium/engine/domain"
)

// Embedder turns text into a vector. Backed by the ollama client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the search surface of the VectorStore.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int, category domain.DeviceCategory) ([]GuideHit, error)
}

// Finder answers the diagnosis pipeline's similar-repair lookups by
// embedding the device description and searching the guide collection.
type Finder struct {
	embed Embedder
	store Searcher
}

// NewFinder creates a Finder.
func NewFinder(embed Embedder, store Searcher) *Finder {
	return &Finder{embed: embed, store: store}
}

// SimilarRepairs returns human-readable summaries of the closest past
// repairs for the given device, best match first.
func (f *Finder) SimilarRepairs(ctx context.Context, device domain.DeviceInfo, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	vec, err := f.embed.Embed(ctx, queryText(device))
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}
	hits, err := f.store.Search(ctx, vec, limit, device.Category)
	if err != nil {
		return nil, err
	}

	summaries := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Summary == "" {
			continue
		}
		summaries = append(summaries, fmt.Sprintf("%s (similarity %.2f)", h.Summary, h.Score))
	}
	return summaries, nil
}

func queryText(device domain.DeviceInfo) string {
	parts := []string{string(device.Category)}
	if device.Model != "" {
		parts = append(parts, device.Model)
	}
	if device.Condition != "" {
		parts = append(parts, device.Condition)
	}
	return strings.Join(parts, " ")
}
