package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestRegistryExposition(t *testing.T) {
	r := NewRegistry()
	r.ObserveCreated("Meat")
	r.ObserveCreated("Meat")
	r.ObserveTransition("sold")
	r.ObserveIgnored()
	r.SetTotals(3, 12.5)

	body := scrape(t, r)
	for _, want := range []string{
		`rescue_deals_created_total{category="Meat"} 2`,
		`rescue_deal_transitions_total{status="sold"} 1`,
		`rescue_deal_transitions_ignored_total 1`,
		`rescue_deals_pending 3`,
		`rescue_co2_saved_kg 12.5`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveCreated("Produce")
	r.ObserveTransition("donated")
	r.ObserveIgnored()
	r.ObserveEvicted()
	r.SetTotals(1, 1)
}
