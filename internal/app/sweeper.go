package app

import (
	"context"
	"log"
	"time"

	"rescueline/internal/engine"
)

// Sweeper periodically expires pending deals whose validity window has closed.
type Sweeper struct {
	Engine   *engine.Engine
	Interval time.Duration
}

// Start runs the sweeper until ctx is done. A non-positive interval disables it.
func (s Sweeper) Start(ctx context.Context) {
	if s.Engine == nil || s.Interval <= 0 {
		return
	}
	go s.run(ctx)
}

func (s Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		s.SweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce expires overdue deals and returns how many changed.
func (s Sweeper) SweepOnce(ctx context.Context) int {
	n := s.Engine.ExpireOverdue(ctx)
	if n > 0 {
		log.Printf("sweeper: expired %d rescue deals", n)
	}
	return n
}
