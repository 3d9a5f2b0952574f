package engine

import (
	"fmt"
	"time"

	"rescueline/internal/analytics"
	"rescueline/internal/domain"
)

// DealFilter narrows Deals; zero values match everything.
type DealFilter struct {
	Status   domain.Status
	Category domain.Category
}

// Deals returns copies of the matching deals, newest first.
func (e *Engine) Deals(f DealFilter) []domain.RescueDeal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := []domain.RescueDeal{}
	for _, d := range e.deals {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Category != "" && d.Category != f.Category {
			continue
		}
		out = append(out, d.Clone())
	}
	return out
}

func (e *Engine) Deal(id string) (domain.RescueDeal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.byID[id]
	if !ok {
		return domain.RescueDeal{}, fmt.Errorf("deal %s: %w", id, ErrNotFound)
	}
	return d.Clone(), nil
}

// Dashboard recomputes whole-history metrics at the current instant.
func (e *Engine) Dashboard() analytics.DashboardData {
	deals, now := e.snapshot()
	return analytics.BuildDashboard(deals, now, e.location())
}

func (e *Engine) TodayStats() analytics.TodayStats {
	deals, now := e.snapshot()
	return analytics.BuildTodayStats(deals, now, e.location())
}

// Activity returns the feed, newest first, at most activity.Limit entries.
func (e *Engine) Activity() []domain.Activity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activity.Entries()
}

func (e *Engine) Analytics(tf analytics.Timeframe) analytics.AnalyticsData {
	deals, now := e.snapshot()
	return analytics.BuildAnalytics(deals, tf, now, e.location())
}

// snapshot copies the collection and samples the clock under one read lock.
func (e *Engine) snapshot() ([]domain.RescueDeal, time.Time) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.copyDealsLocked(), e.now()
}

func (e *Engine) copyDealsLocked() []domain.RescueDeal {
	out := make([]domain.RescueDeal, len(e.deals))
	for i, d := range e.deals {
		out[i] = d.Clone()
	}
	return out
}
