package app

import (
	"context"
	"fmt"
	"log"

	"rescueline/internal/config"
	"rescueline/internal/domain"
	"rescueline/internal/engine"
	"rescueline/internal/metrics"
)

// Build wires an engine from cfg: clock location, metrics and seed deals.
func Build(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	e := engine.New(cfg)
	e.Location = loc
	if cfg.Metrics.Enabled {
		e.Metrics = metrics.NewRegistry()
		publishTotals(e, e.Metrics)
	}
	if err := Seed(ctx, e, cfg.Seed.Deals); err != nil {
		return nil, err
	}
	return e, nil
}

// publishTotals keeps the registry's dashboard gauges current from the
// engine's committed snapshots.
func publishTotals(e *engine.Engine, reg *metrics.Registry) func() {
	return e.Subscribe(func(s engine.Snapshot) {
		reg.SetTotals(s.Dashboard.RescueDeals.Pending, s.Dashboard.TotalCO2Saved)
	})
}

// Seed creates the configured deals in order, so the last one ends up newest.
func Seed(ctx context.Context, e *engine.Engine, deals []config.SeedDeal) error {
	for i, sd := range deals {
		cat, err := domain.ParseCategory(sd.Category)
		if err != nil {
			return fmt.Errorf("seed deal %d: %w", i, err)
		}
		if _, err := e.CreateDeal(ctx, engine.CreateDealOptions{
			Category:        cat,
			Description:     sd.Description,
			DiscountPercent: sd.DiscountPercent,
			Quantity:        sd.Quantity,
		}); err != nil {
			return fmt.Errorf("seed deal %d: %w", i, err)
		}
	}
	if len(deals) > 0 {
		log.Printf("app: seeded %d rescue deals", len(deals))
	}
	return nil
}
