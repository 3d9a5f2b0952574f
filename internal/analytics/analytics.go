package analytics

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"rescueline/internal/domain"
)

type Timeframe string

const (
	TimeframeWeek    Timeframe = "week"
	TimeframeMonth   Timeframe = "month"
	TimeframeQuarter Timeframe = "quarter"
	TimeframeYear    Timeframe = "year"
)

var Timeframes = []Timeframe{TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear}

func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Timeframes {
		if tf == known {
			return tf, nil
		}
	}
	return "", fmt.Errorf("invalid timeframe %q", s)
}

// WindowStart returns the rolling window's lower bound on loc's calendar.
// Month-based periods go through time.AddDate, so day-of-month overflow
// normalizes forward. A nil loc keeps now's own location.
func WindowStart(tf Timeframe, now time.Time, loc *time.Location) (time.Time, error) {
	if loc != nil {
		now = now.In(loc)
	}
	switch tf {
	case TimeframeWeek:
		return now.AddDate(0, 0, -7), nil
	case TimeframeMonth:
		return now.AddDate(0, -1, 0), nil
	case TimeframeQuarter:
		return now.AddDate(0, -3, 0), nil
	case TimeframeYear:
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid timeframe %q", tf)
}

type CategoryShare struct {
	Name       domain.Category `json:"name"`
	DealCount  int             `json:"deal_count"`
	Percentage int             `json:"percentage"`
}

type AnalyticsData struct {
	Timeframe          Timeframe       `json:"timeframe"`
	WindowStart        time.Time       `json:"window_start" format:"date-time"`
	WindowEnd          time.Time       `json:"window_end" format:"date-time"`
	DealsCreated       int             `json:"deals_created"`
	DealsSold          int             `json:"deals_sold"`
	DealsDonated       int             `json:"deals_donated"`
	CO2Saved           float64         `json:"co2_saved"`
	WastePreventedKg   float64         `json:"waste_prevented_kg"`
	Revenue            float64         `json:"revenue"`
	CustomerSavings    float64         `json:"customer_savings"`
	AvgDiscountPercent int             `json:"avg_discount_percent"`
	Categories         []CategoryShare `json:"categories"`
}

// Empty is the all-zero result returned when a window cannot be computed.
func Empty(tf Timeframe) AnalyticsData {
	return AnalyticsData{Timeframe: tf, Categories: []CategoryShare{}}
}

// BuildAnalytics summarizes deals created within [now-period, now], both ends inclusive.
func BuildAnalytics(deals []domain.RescueDeal, tf Timeframe, now time.Time, loc *time.Location) (out AnalyticsData) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("analytics: %s window aggregation failed: %v", tf, r)
			out = Empty(tf)
		}
	}()
	start, err := WindowStart(tf, now, loc)
	if err != nil {
		log.Printf("analytics: %v", err)
		return Empty(tf)
	}
	var window []domain.RescueDeal
	for _, d := range deals {
		if d.CreatedAt.Before(start) || d.CreatedAt.After(now) {
			continue
		}
		window = append(window, d)
	}
	s := summarize(window)
	return AnalyticsData{
		Timeframe:          tf,
		WindowStart:        start,
		WindowEnd:          now,
		DealsCreated:       s.Created,
		DealsSold:          s.Sold,
		DealsDonated:       s.Donated,
		CO2Saved:           s.CO2Saved,
		WastePreventedKg:   s.WastePreventedKg,
		Revenue:            s.Revenue,
		CustomerSavings:    s.CustomerSavings,
		AvgDiscountPercent: s.AvgDiscountPercent,
		Categories:         categoryDistribution(window),
	}
}

func categoryDistribution(deals []domain.RescueDeal) []CategoryShare {
	out := []CategoryShare{}
	if len(deals) == 0 {
		return out
	}
	counts := make(map[domain.Category]int)
	for _, d := range deals {
		counts[d.Category]++
	}
	for _, c := range domain.Categories {
		n, ok := counts[c]
		if !ok {
			continue
		}
		out = append(out, CategoryShare{
			Name:       c,
			DealCount:  n,
			Percentage: domain.RoundInt(float64(n) / float64(len(deals)) * 100),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DealCount > out[j].DealCount })
	return out
}
