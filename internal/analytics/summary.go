// Package analytics recomputes dashboard and rolling-window metrics from a
// deal collection. Every function here is pure: same deals and clock, same output.
package analytics

import (
	"rescueline/internal/domain"
)

// fallbackDiscountPercent stands in for a missing discount when estimating customer savings.
const fallbackDiscountPercent = 30

// Summary holds the metrics shared by the dashboard, today's stats and rolling windows.
type Summary struct {
	Created            int     `json:"created"`
	Sold               int     `json:"sold"`
	Donated            int     `json:"donated"`
	Pending            int     `json:"pending"`
	Expired            int     `json:"expired"`
	CO2Saved           float64 `json:"co2_saved"`
	WastePreventedKg   float64 `json:"waste_prevented_kg"`
	Revenue            float64 `json:"revenue"`
	CustomerSavings    float64 `json:"customer_savings"`
	AvgDiscountPercent int     `json:"avg_discount_percent"`
}

func summarize(deals []domain.RescueDeal) Summary {
	var (
		s           Summary
		co2, waste  float64
		revenue     float64
		savings     float64
		discountSum int
	)
	for _, d := range deals {
		s.Created++
		switch d.Status {
		case domain.StatusSold:
			s.Sold++
		case domain.StatusDonated:
			s.Donated++
		case domain.StatusPending:
			s.Pending++
		case domain.StatusExpired:
			s.Expired++
		}
		co2 += d.EstimatedCO2Saved
		waste += d.EstimatedWastePreventedKg
		discountSum += d.DiscountPercent
		if d.Status == domain.StatusSold && d.Price != nil {
			revenue += *d.Price
			savings += CustomerSavings(*d.Price, d.DiscountPercent)
		}
	}
	s.CO2Saved = domain.Round1(co2)
	s.WastePreventedKg = domain.Round1(waste)
	s.Revenue = domain.Round2(revenue)
	s.CustomerSavings = domain.Round2(savings)
	if s.Created > 0 {
		s.AvgDiscountPercent = domain.RoundInt(float64(discountSum) / float64(s.Created))
	}
	return s
}

// CustomerSavings estimates what a buyer saved versus the undiscounted price.
// A zero discount is treated as 30%; a discount of 100% or more has no defined
// original price and yields no savings.
func CustomerSavings(price float64, discountPercent int) float64 {
	if discountPercent == 0 {
		discountPercent = fallbackDiscountPercent
	}
	if discountPercent >= 100 {
		return 0
	}
	original := price / (1 - float64(discountPercent)/100)
	return original - price
}
