package domain

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryProduce Category = "Produce"
	CategoryBakery  Category = "Bakery"
	CategoryDairy   Category = "Dairy"
	CategoryMeat    Category = "Meat"
)

// Categories lists the fixed category set in display order.
var Categories = []Category{CategoryProduce, CategoryBakery, CategoryDairy, CategoryMeat}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, known := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", s)
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSold    Status = "sold"
	StatusDonated Status = "donated"
	StatusExpired Status = "expired"
)

func (s Status) Terminal() bool {
	return s == StatusSold || s == StatusDonated || s == StatusExpired
}

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusSold:
		return StatusSold, nil
	case StatusDonated:
		return StatusDonated, nil
	case StatusExpired:
		return StatusExpired, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DealLifetime is how long a rescue deal stays valid after creation.
const DealLifetime = 24 * time.Hour

type RescueDeal struct {
	ID                        string     `json:"id"`
	Category                  Category   `json:"category" enum:"Produce,Bakery,Dairy,Meat"`
	Description               string     `json:"description"`
	DiscountPercent           int        `json:"discount_percent"`
	Quantity                  string     `json:"quantity"`
	Status                    Status     `json:"status" enum:"pending,sold,donated,expired"`
	CreatedAt                 time.Time  `json:"created_at" format:"date-time"`
	SoldAt                    *time.Time `json:"sold_at,omitempty" format:"date-time"`
	DonatedAt                 *time.Time `json:"donated_at,omitempty" format:"date-time"`
	ExpiredAt                 *time.Time `json:"expired_at,omitempty" format:"date-time"`
	CustomerName              *string    `json:"customer_name,omitempty"`
	Price                     *float64   `json:"price,omitempty"`
	EstimatedCO2Saved         float64    `json:"estimated_co2_saved"`
	EstimatedWastePreventedKg float64    `json:"estimated_waste_prevented_kg"`
	ExpiresAt                 time.Time  `json:"expires_at" format:"date-time"`
	Priority                  Priority   `json:"priority" enum:"low,medium,high"`
}

// Clone returns a deep copy so callers never share pointers with the store.
func (d RescueDeal) Clone() RescueDeal {
	out := d
	out.SoldAt = cloneTime(d.SoldAt)
	out.DonatedAt = cloneTime(d.DonatedAt)
	out.ExpiredAt = cloneTime(d.ExpiredAt)
	if d.CustomerName != nil {
		v := *d.CustomerName
		out.CustomerName = &v
	}
	if d.Price != nil {
		v := *d.Price
		out.Price = &v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type ActivityType string

const (
	ActivityDealCreated ActivityType = "deal_created"
	ActivityDealSold    ActivityType = "deal_sold"
	ActivityDealDonated ActivityType = "deal_donated"
	ActivityDealExpired ActivityType = "deal_expired"
)

// ActivityStatusNew is the only status an activity is recorded with.
const ActivityStatusNew = "new"

// Impact carries the per-type payload of an activity. CO2Saved is always set;
// exactly one of the remaining fields is set depending on the activity type.
type Impact struct {
	CO2Saved   float64   `json:"co2_saved"`
	MoneySaved *float64  `json:"money_saved,omitempty"`
	ItemCount  *float64  `json:"item_count,omitempty"`
	Category   *Category `json:"category,omitempty"`
}

type Activity struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type" enum:"deal_created,deal_sold,deal_donated,deal_expired"`
	DealID    string       `json:"deal_id,omitempty"`
	Actor     string       `json:"actor"`
	Action    string       `json:"action"`
	Details   string       `json:"details,omitempty"`
	Impact    Impact       `json:"impact"`
	Timestamp time.Time    `json:"timestamp" format:"date-time"`
	Status    string       `json:"status"`
	Category  Category     `json:"category"`
}
