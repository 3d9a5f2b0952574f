package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"rescueline/internal/analytics"
	"rescueline/internal/config"
	"rescueline/internal/domain"
	"rescueline/internal/engine"
	"rescueline/internal/metrics"
)

type testServer struct {
	URL    string
	Engine *engine.Engine
	client *http.Client
	close  func()

	mu  sync.Mutex
	now time.Time
}

func (s *testServer) setNow(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t
}

func (s *testServer) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Timezone = "UTC"
	e := engine.New(cfg)
	e.Metrics = metrics.NewRegistry()
	handler, err := New(Config{Engine: e, BasePath: "/v1"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
		now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	e.Now = testSrv.clock
	go srv.Serve(ln)
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health %d: %s", res.StatusCode, data)
	}
	var health HealthResponse
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.Store != "Local Market" {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestDocsPage(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/docs", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), "<html") {
		t.Fatalf("docs %d: %.200s", res.StatusCode, data)
	}
}

func TestCreateSellAndDashboard(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/deals", map[string]any{
		"category":         "produce",
		"description":      "Bruised apples",
		"discount_percent": 40,
		"quantity":         "10",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, data)
	}
	var created domain.RescueDeal
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal deal: %v", err)
	}
	if created.Category != domain.CategoryProduce || created.EstimatedCO2Saved != 25 || created.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected deal %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/deals/"+created.ID+"/status", map[string]any{
		"status":        "sold",
		"customer_name": "Alice",
		"price":         12,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("sell status %d: %s", res.StatusCode, data)
	}
	var tr TransitionResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		t.Fatal(err)
	}
	if !tr.Applied || tr.Deal == nil || tr.Deal.Status != domain.StatusSold {
		t.Fatalf("unexpected transition %+v", tr)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/deals/"+created.ID+"/status", map[string]any{"status": "donated"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("repeat status %d: %s", res.StatusCode, data)
	}
	tr = TransitionResponse{}
	_ = json.Unmarshal(data, &tr)
	if tr.Applied || tr.Reason == "" {
		t.Fatalf("second transition should be ignored: %+v", tr)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/dashboard", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status %d: %s", res.StatusCode, data)
	}
	var dash analytics.DashboardData
	if err := json.Unmarshal(data, &dash); err != nil {
		t.Fatal(err)
	}
	if dash.RevenueTotal != 12 || dash.CustomerSavingsTotal != 8 || dash.RescueDeals.Sold != 1 || dash.RescueDeals.Pending != 0 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/dashboard/today", nil)
	var today analytics.TodayStats
	if err := json.Unmarshal(data, &today); err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("today %d: %s", res.StatusCode, data)
	}
	if today.DealsCreated != 1 || today.CustomerSavings != 8 {
		t.Fatalf("unexpected today %+v", today)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/activity", nil)
	var feed ActivityResponse
	if err := json.Unmarshal(data, &feed); err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("activity %d: %s", res.StatusCode, data)
	}
	if len(feed.Items) != 2 || feed.Items[0].Type != domain.ActivityDealSold {
		t.Fatalf("unexpected feed %+v", feed.Items)
	}
}

func TestCreateDealRejectsUnknownCategory(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/deals", map[string]any{"category": "Frozen"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, data)
	}
	var body struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != "invalid_category" {
		t.Fatalf("unexpected error body %s", data)
	}
}

func TestGetDealNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/deals/missing", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, data)
	}
}

func TestListDealsFilters(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	meat, _ := srv.Engine.CreateDeal(ctx, engine.CreateDealOptions{Category: domain.CategoryMeat, Quantity: "1"})
	srv.Engine.CreateDeal(ctx, engine.CreateDealOptions{Category: domain.CategoryBakery, Quantity: "1"})
	srv.Engine.TransitionStatus(ctx, engine.TransitionOptions{ID: meat.ID, Status: domain.StatusDonated})

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/deals?status=pending", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, data)
	}
	var list DealListResponse
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 || list.Items[0].Category != domain.CategoryBakery {
		t.Fatalf("unexpected pending list %+v", list.Items)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/deals?category=meat", nil)
	list = DealListResponse{}
	if err := json.Unmarshal(data, &list); err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("list by category %d: %s", res.StatusCode, data)
	}
	if len(list.Items) != 1 || list.Items[0].ID != meat.ID {
		t.Fatalf("unexpected category list %+v", list.Items)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/analytics/month", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("analytics status %d: %s", res.StatusCode, data)
	}
	var out analytics.AnalyticsData
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.DealsCreated != 0 || out.Categories == nil || len(out.Categories) != 0 {
		t.Fatalf("expected empty analytics, got %s", data)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/analytics/decade", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown timeframe, got %d: %s", res.StatusCode, data)
	}
}

func TestExpireEndpointAndMetrics(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	srv.Engine.CreateDeal(ctx, engine.CreateDealOptions{Category: domain.CategoryBakery, Quantity: "1"})
	srv.setNow(time.Date(2024, 6, 2, 11, 0, 0, 0, time.UTC))

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/deals/expire", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expire status %d: %s", res.StatusCode, data)
	}
	var out ExpireResponse
	if err := json.Unmarshal(data, &out); err != nil || out.Expired != 1 {
		t.Fatalf("unexpected expire response %s", data)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/metrics", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), `rescue_deal_transitions_total{status="expired"} 1`) {
		t.Fatalf("metrics %d: %s", res.StatusCode, data)
	}
}

func TestOpenAPISpec(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/openapi.json", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), "/v1/analytics/{timeframe}") {
		t.Fatalf("openapi %d: %.200s", res.StatusCode, data)
	}
}
