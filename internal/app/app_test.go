package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rescueline/internal/config"
	"rescueline/internal/domain"
	"rescueline/internal/engine"
)

func TestBuildSeedsDeals(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Timezone = "UTC"
	cfg.Seed.Deals = []config.SeedDeal{
		{Category: "produce", Description: "Apples", DiscountPercent: 40, Quantity: "10"},
		{Category: "Meat", Description: "Chops", DiscountPercent: 30, Quantity: "2kg"},
	}
	e, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	deals := e.Deals(engine.DealFilter{})
	if len(deals) != 2 || deals[0].Category != domain.CategoryMeat {
		t.Fatalf("unexpected seeded deals %+v", deals)
	}
	if e.Metrics == nil {
		t.Fatalf("metrics should be enabled by default config")
	}
	if e.Location != time.UTC {
		t.Fatalf("location = %v", e.Location)
	}
	if len(e.Activity()) != 2 {
		t.Fatalf("seeding should emit one activity per deal")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Seed.Deals = []config.SeedDeal{{Category: "Frozen"}}
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSweepOnce(t *testing.T) {
	e, err := Build(context.Background(), config.Default())
	if err != nil {
		t.Fatal(err)
	}
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return clock }
	if _, err := e.CreateDeal(context.Background(), engine.CreateDealOptions{Category: domain.CategoryBakery, Quantity: "1"}); err != nil {
		t.Fatal(err)
	}
	s := Sweeper{Engine: e, Interval: time.Minute}
	if n := s.SweepOnce(context.Background()); n != 0 {
		t.Fatalf("expired too early: %d", n)
	}
	clock = clock.Add(25 * time.Hour)
	if n := s.SweepOnce(context.Background()); n != 1 {
		t.Fatalf("expected one expiry, got %d", n)
	}
}

func TestSweeperStopsWithContext(t *testing.T) {
	e := engine.New(config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	Sweeper{Engine: e, Interval: time.Millisecond}.Start(ctx)
	time.Sleep(5 * time.Millisecond)
	cancel()
}

func TestBuildPublishesTotalsToMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Seed.Deals = []config.SeedDeal{
		{Category: "Produce", Quantity: "10"},
		{Category: "Bakery", Quantity: "1"},
	}
	e, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	scrape := func() string {
		rec := httptest.NewRecorder()
		e.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Body.String()
	}
	if body := scrape(); !strings.Contains(body, "rescue_deals_pending 2") {
		t.Fatalf("pending gauge not published after seeding:\n%s", body)
	}
	deals := e.Deals(engine.DealFilter{Category: domain.CategoryBakery})
	e.TransitionStatus(context.Background(), engine.TransitionOptions{ID: deals[0].ID, Status: domain.StatusDonated})
	if body := scrape(); !strings.Contains(body, "rescue_deals_pending 1") {
		t.Fatalf("pending gauge not updated after donation:\n%s", body)
	}
}
