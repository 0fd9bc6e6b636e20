// Package gate bounds how many identification pipelines run at once.
package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const DefaultCapacity = 100

// Gate is the admission-control primitive for the pipeline. Callers block in
// Acquire until a slot frees up or their context is cancelled; every Acquire
// must be paired with a Release on all exit paths.
type Gate struct {
	sem *semaphore.Weighted
}

func New(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Gate{sem: semaphore.NewWeighted(int64(capacity))}
}

func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

func (g *Gate) Release() {
	g.sem.Release(1)
}
