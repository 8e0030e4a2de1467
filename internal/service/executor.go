package service

import (
	"context"
)

// SequentialExecutor runs one function at a time. A caller whose context
// ends while it waits gives up without running.
type SequentialExecutor struct {
	slot chan struct{}
}

func NewSequentialExecutor() *SequentialExecutor {
	return &SequentialExecutor{slot: make(chan struct{}, 1)}
}

// Execute waits for the slot, then runs fn with ctx. No delay is added
// between runs; pacing belongs to fn.
func (se *SequentialExecutor) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case se.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-se.slot }()

	// The slot may have been won in the same instant the context ended.
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
