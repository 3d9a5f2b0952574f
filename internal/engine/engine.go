package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rescueline/internal/activity"
	"rescueline/internal/analytics"
	"rescueline/internal/config"
	"rescueline/internal/domain"
	"rescueline/internal/metrics"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidCategory = errors.New("invalid category")
)

const (
	defaultStaffActor    = "Store Staff"
	defaultCustomerActor = "Customer"
	systemActor          = "System"
)

// Engine is the single owner of the rescue deal collection. Every mutation
// runs under mu and appends exactly one activity per affected deal.
type Engine struct {
	Config   *config.Config
	Now      func() time.Time
	NewID    func() string
	Location *time.Location
	Logger   *log.Logger
	Metrics  *metrics.Registry

	mu       sync.RWMutex
	deals    []*domain.RescueDeal // newest first
	byID     map[string]*domain.RescueDeal
	activity *activity.Log

	// queueMu guards pending and delivering. Snapshots are queued under mu,
	// so queue order is commit order; delivery runs with no engine lock held.
	queueMu    sync.Mutex
	pending    []Snapshot
	delivering bool

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// Snapshot is pushed to subscribers after every committed mutation.
type Snapshot struct {
	Dashboard analytics.DashboardData `json:"dashboard"`
	Activity  []domain.Activity       `json:"activity"`
}

func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		Config:      cfg,
		Now:         time.Now,
		NewID:       uuid.NewString,
		Logger:      log.Default(),
		byID:        make(map[string]*domain.RescueDeal),
		subscribers: make(map[int]func(Snapshot)),
	}
	if loc, err := cfg.Location(); err == nil {
		e.Location = loc
	}
	e.activity = activity.New()
	e.activity.Now = e.now
	e.activity.NewID = e.newID
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e *Engine) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.Local
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (e *Engine) staffActor() string {
	if e.Config != nil && e.Config.Store.StaffActor != "" {
		return e.Config.Store.StaffActor
	}
	return defaultStaffActor
}

// CreateDealOptions are parameters for creating a deal. Only Category is validated.
type CreateDealOptions struct {
	Category        domain.Category
	Description     string
	DiscountPercent int
	Quantity        string
	ActorID         string
}

func (e *Engine) CreateDeal(ctx context.Context, opts CreateDealOptions) (domain.RescueDeal, error) {
	if !opts.Category.Valid() {
		return domain.RescueDeal{}, fmt.Errorf("%w %q", ErrInvalidCategory, opts.Category)
	}
	actor := opts.ActorID
	if actor == "" {
		actor = e.staffActor()
	}

	e.mu.Lock()
	now := e.now()
	co2, waste := domain.EstimateImpact(opts.Category, opts.Quantity)
	d := &domain.RescueDeal{
		ID:                        e.newID(),
		Category:                  opts.Category,
		Description:               opts.Description,
		DiscountPercent:           opts.DiscountPercent,
		Quantity:                  opts.Quantity,
		Status:                    domain.StatusPending,
		CreatedAt:                 now,
		EstimatedCO2Saved:         co2,
		EstimatedWastePreventedKg: waste,
		ExpiresAt:                 now.Add(domain.DealLifetime),
		Priority:                  domain.DerivePriority(opts.Category, opts.DiscountPercent),
	}
	e.deals = append([]*domain.RescueDeal{d}, e.deals...)
	e.byID[d.ID] = d
	category := d.Category
	e.appendActivityLocked(domain.Activity{
		Type:     domain.ActivityDealCreated,
		DealID:   d.ID,
		Actor:    actor,
		Action:   "created a rescue deal",
		Details:  fmt.Sprintf("%s - %d%% off", d.Description, d.DiscountPercent),
		Impact:   domain.Impact{CO2Saved: d.EstimatedCO2Saved, Category: &category},
		Category: d.Category,
	}, now)
	out := d.Clone()
	e.Metrics.ObserveCreated(string(d.Category))
	e.publishLocked(now)
	return out, nil
}

// TransitionOptions moves a pending deal to sold or donated.
type TransitionOptions struct {
	ID           string
	Status       domain.Status
	CustomerName *string
	Price        *float64
	ActorID      string
}

// TransitionResult reports whether a transition was applied. Deal holds the
// deal's state after the call when the deal exists.
type TransitionResult struct {
	Deal    *domain.RescueDeal `json:"deal,omitempty"`
	Applied bool               `json:"applied"`
	Reason  string             `json:"reason,omitempty"`
}

// TransitionStatus never fails: commands against unknown or already-terminal
// deals are logged and dropped without emitting activity.
func (e *Engine) TransitionStatus(ctx context.Context, opts TransitionOptions) TransitionResult {
	e.mu.Lock()
	d, ok := e.byID[opts.ID]
	switch {
	case !ok:
		e.mu.Unlock()
		return e.ignore(opts, nil, "deal not found")
	case opts.Status != domain.StatusSold && opts.Status != domain.StatusDonated:
		current := d.Clone()
		e.mu.Unlock()
		return e.ignore(opts, &current, fmt.Sprintf("unsupported target status %q", opts.Status))
	case d.Status != domain.StatusPending:
		current := d.Clone()
		e.mu.Unlock()
		return e.ignore(opts, &current, fmt.Sprintf("deal is %s", current.Status))
	}

	now := e.now()
	at := now
	d.Status = opts.Status
	switch opts.Status {
	case domain.StatusSold:
		d.SoldAt = &at
		if opts.CustomerName != nil {
			name := *opts.CustomerName
			d.CustomerName = &name
		}
		if opts.Price != nil {
			price := *opts.Price
			d.Price = &price
		}
		money := 0.0
		if d.Price != nil {
			money = *d.Price
		}
		actor := opts.ActorID
		if actor == "" && d.CustomerName != nil && *d.CustomerName != "" {
			actor = *d.CustomerName
		}
		if actor == "" {
			actor = defaultCustomerActor
		}
		e.appendActivityLocked(domain.Activity{
			Type:     domain.ActivityDealSold,
			DealID:   d.ID,
			Actor:    actor,
			Action:   "purchased a rescue deal",
			Details:  fmt.Sprintf("%s for %.2f", d.Description, money),
			Impact:   domain.Impact{CO2Saved: d.EstimatedCO2Saved, MoneySaved: &money},
			Category: d.Category,
		}, now)
	case domain.StatusDonated:
		d.DonatedAt = &at
		items := domain.ParseQuantity(d.Quantity)
		actor := opts.ActorID
		if actor == "" {
			actor = e.staffActor()
		}
		e.appendActivityLocked(domain.Activity{
			Type:     domain.ActivityDealDonated,
			DealID:   d.ID,
			Actor:    actor,
			Action:   "donated a rescue deal",
			Details:  fmt.Sprintf("%s (%s)", d.Description, d.Quantity),
			Impact:   domain.Impact{CO2Saved: d.EstimatedCO2Saved, ItemCount: &items},
			Category: d.Category,
		}, now)
	}
	out := d.Clone()
	e.Metrics.ObserveTransition(string(opts.Status))
	e.publishLocked(now)
	return TransitionResult{Deal: &out, Applied: true}
}

func (e *Engine) ignore(opts TransitionOptions, current *domain.RescueDeal, reason string) TransitionResult {
	e.logf("engine: ignoring transition of deal %s to %s: %s", opts.ID, opts.Status, reason)
	e.Metrics.ObserveIgnored()
	return TransitionResult{Deal: current, Applied: false, Reason: reason}
}

// ExpireOverdue marks every pending deal whose validity window has closed as
// expired, one activity per deal. It returns how many deals expired.
func (e *Engine) ExpireOverdue(ctx context.Context) int {
	e.mu.Lock()
	now := e.now()
	expired := 0
	// oldest first so the feed ends with the most recent expiry on top
	for i := len(e.deals) - 1; i >= 0; i-- {
		d := e.deals[i]
		if d.Status != domain.StatusPending || d.ExpiresAt.After(now) {
			continue
		}
		at := now
		d.Status = domain.StatusExpired
		d.ExpiredAt = &at
		category := d.Category
		e.appendActivityLocked(domain.Activity{
			Type:     domain.ActivityDealExpired,
			DealID:   d.ID,
			Actor:    systemActor,
			Action:   "marked a rescue deal expired",
			Details:  d.Description,
			Impact:   domain.Impact{CO2Saved: d.EstimatedCO2Saved, Category: &category},
			Category: d.Category,
		}, now)
		e.Metrics.ObserveTransition(string(domain.StatusExpired))
		expired++
	}
	if expired == 0 {
		e.mu.Unlock()
		return 0
	}
	e.publishLocked(now)
	return expired
}

// appendActivityLocked records a with the mutation's instant as its timestamp.
func (e *Engine) appendActivityLocked(a domain.Activity, at time.Time) {
	a.Timestamp = at
	if _, evicted := e.activity.Append(a); evicted {
		e.Metrics.ObserveEvicted()
	}
}

// publishLocked recomputes the derived views, queues the snapshot, releases
// mu and delivers queued snapshots to subscribers. Callers must hold mu for writing.
func (e *Engine) publishLocked(now time.Time) {
	snap := Snapshot{
		Dashboard: analytics.BuildDashboard(e.copyDealsLocked(), now, e.location()),
		Activity:  e.activity.Entries(),
	}
	e.queueMu.Lock()
	e.pending = append(e.pending, snap)
	e.queueMu.Unlock()
	e.mu.Unlock()
	e.deliver()
}

// deliver drains the queue in order. Only one goroutine drains at a time; the
// others return and leave their snapshots to it.
func (e *Engine) deliver() {
	e.queueMu.Lock()
	if e.delivering {
		e.queueMu.Unlock()
		return
	}
	e.delivering = true
	for len(e.pending) > 0 {
		snap := e.pending[0]
		e.pending = e.pending[1:]
		e.queueMu.Unlock()
		for _, fn := range e.subscriberList() {
			fn(snap)
		}
		e.queueMu.Lock()
	}
	e.delivering = false
	e.queueMu.Unlock()
}

// Subscribe registers fn for every committed snapshot, delivered in commit
// order with no engine lock held, so fn may read the engine. Under concurrent
// writers a snapshot may be delivered by another writer's goroutine after the
// committing call returns. The returned func unsubscribes.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subscribers, id)
	}
}

func (e *Engine) subscriberList() []func(Snapshot) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	ids := make([]int, 0, len(e.subscribers))
	for id := range e.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		out = append(out, e.subscribers[id])
	}
	return out
}
