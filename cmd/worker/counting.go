package main

import (
	"context"

	"github.com/zester4/fixium/engine/domain"
	"github.com/zester4/fixium/engine/semantic"
	"github.com/zester4/fixium/pkg/metrics"
)

// countingVectors wraps the vector store with a write counter.
type countingVectors struct {
	inner interface {
		Upsert(ctx context.Context, records []semantic.GuideRecord) error
	}
	counter *metrics.Counter
}

func (c *countingVectors) Upsert(ctx context.Context, records []semantic.GuideRecord) error {
	if err := c.inner.Upsert(ctx, records); err != nil {
		return err
	}
	c.counter.Add(int64(len(records)))
	return nil
}

// countingGraph wraps the knowledge store with a write counter.
type countingGraph struct {
	inner interface {
		SaveGuide(ctx context.Context, guide domain.RepairGuide) error
	}
	counter *metrics.Counter
}

func (c *countingGraph) SaveGuide(ctx context.Context, guide domain.RepairGuide) error {
	if err := c.inner.SaveGuide(ctx, guide); err != nil {
		return err
	}
	c.counter.Inc()
	return nil
}
