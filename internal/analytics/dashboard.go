package analytics

import (
	"log"
	"math"
	"time"

	"rescueline/internal/domain"
)

type DealCounts struct {
	Total   int `json:"total"`
	Sold    int `json:"sold"`
	Donated int `json:"donated"`
	Pending int `json:"pending"`
	Expired int `json:"expired"`
}

// TodayStats is the compact view of deals created since local midnight.
type TodayStats struct {
	CO2Saved         float64 `json:"co2_saved"`
	WastePreventedKg float64 `json:"waste_prevented_kg"`
	CustomerSavings  float64 `json:"customer_savings"`
	DealsCreated     int     `json:"deals_created"`
}

type DashboardData struct {
	RescueDeals              DealCounts `json:"rescue_deals"`
	TotalCO2Saved            float64    `json:"total_co2_saved"`
	TotalWasteKg             float64    `json:"total_waste_kg"`
	RevenueTotal             float64    `json:"revenue_total"`
	CustomerSavingsTotal     float64    `json:"customer_savings_total"`
	AvgDiscountPercent       int        `json:"avg_discount_percent"`
	WasteReductionPercentage int        `json:"waste_reduction_percentage"`
	Today                    Summary    `json:"today"`
	ComputedAt               time.Time  `json:"computed_at" format:"date-time"`
}

// BuildDashboard summarizes the whole collection plus the slice created today in loc.
func BuildDashboard(deals []domain.RescueDeal, now time.Time, loc *time.Location) (out DashboardData) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("analytics: dashboard aggregation failed: %v", r)
			out = DashboardData{ComputedAt: now}
		}
	}()
	all := summarize(deals)
	out = DashboardData{
		RescueDeals: DealCounts{
			Total:   all.Created,
			Sold:    all.Sold,
			Donated: all.Donated,
			Pending: all.Pending,
			Expired: all.Expired,
		},
		TotalCO2Saved:            all.CO2Saved,
		TotalWasteKg:             all.WastePreventedKg,
		RevenueTotal:             all.Revenue,
		CustomerSavingsTotal:     all.CustomerSavings,
		AvgDiscountPercent:       all.AvgDiscountPercent,
		WasteReductionPercentage: WasteReductionPercentage(all.WastePreventedKg),
		Today:                    summarize(createdSince(deals, StartOfDay(now, loc))),
		ComputedAt:               now,
	}
	return out
}

// BuildTodayStats is the TodayStats view of BuildDashboard.
func BuildTodayStats(deals []domain.RescueDeal, now time.Time, loc *time.Location) (out TodayStats) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("analytics: today aggregation failed: %v", r)
			out = TodayStats{}
		}
	}()
	today := summarize(createdSince(deals, StartOfDay(now, loc)))
	return TodayStats{
		CO2Saved:         today.CO2Saved,
		WastePreventedKg: today.WastePreventedKg,
		CustomerSavings:  today.CustomerSavings,
		DealsCreated:     today.Created,
	}
}

// WasteReductionPercentage is a presentation heuristic: 85% plus 5 points per
// 100kg of prevented waste, capped at 95%.
func WasteReductionPercentage(totalWasteKg float64) int {
	return domain.RoundInt(math.Min(85+(totalWasteKg/100)*5, 95))
}

// StartOfDay returns local midnight of now's calendar day in loc.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func createdSince(deals []domain.RescueDeal, cutoff time.Time) []domain.RescueDeal {
	var out []domain.RescueDeal
	for _, d := range deals {
		if !d.CreatedAt.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out
}
