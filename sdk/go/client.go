package rescuelinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Rescueline HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Deal represents the API rescue deal model.
type Deal struct {
	ID                        string     `json:"id"`
	Category                  string     `json:"category"`
	Description               string     `json:"description"`
	DiscountPercent           int        `json:"discount_percent"`
	Quantity                  string     `json:"quantity"`
	Status                    string     `json:"status"`
	CreatedAt                 time.Time  `json:"created_at"`
	SoldAt                    *time.Time `json:"sold_at,omitempty"`
	DonatedAt                 *time.Time `json:"donated_at,omitempty"`
	ExpiredAt                 *time.Time `json:"expired_at,omitempty"`
	CustomerName              *string    `json:"customer_name,omitempty"`
	Price                     *float64   `json:"price,omitempty"`
	EstimatedCO2Saved         float64    `json:"estimated_co2_saved"`
	EstimatedWastePreventedKg float64    `json:"estimated_waste_prevented_kg"`
	ExpiresAt                 time.Time  `json:"expires_at"`
	Priority                  string     `json:"priority"`
}

// Activity represents a feed entry.
type Activity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	DealID    string    `json:"deal_id,omitempty"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Impact    Impact    `json:"impact"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Category  string    `json:"category"`
}

type Impact struct {
	CO2Saved   float64  `json:"co2_saved"`
	MoneySaved *float64 `json:"money_saved,omitempty"`
	ItemCount  *float64 `json:"item_count,omitempty"`
	Category   *string  `json:"category,omitempty"`
}

// Dashboard represents the whole-history dashboard (partial).
type Dashboard struct {
	RescueDeals struct {
		Total   int `json:"total"`
		Sold    int `json:"sold"`
		Donated int `json:"donated"`
		Pending int `json:"pending"`
		Expired int `json:"expired"`
	} `json:"rescue_deals"`
	TotalCO2Saved            float64   `json:"total_co2_saved"`
	TotalWasteKg             float64   `json:"total_waste_kg"`
	RevenueTotal             float64   `json:"revenue_total"`
	CustomerSavingsTotal     float64   `json:"customer_savings_total"`
	AvgDiscountPercent       int       `json:"avg_discount_percent"`
	WasteReductionPercentage int       `json:"waste_reduction_percentage"`
	ComputedAt               time.Time `json:"computed_at"`
}

// TodayStats covers deals created since the store's local midnight.
type TodayStats struct {
	CO2Saved         float64 `json:"co2_saved"`
	WastePreventedKg float64 `json:"waste_prevented_kg"`
	CustomerSavings  float64 `json:"customer_savings"`
	DealsCreated     int     `json:"deals_created"`
}

type CategoryShare struct {
	Name       string `json:"name"`
	DealCount  int    `json:"deal_count"`
	Percentage int    `json:"percentage"`
}

// Analytics represents a rolling-window report.
type Analytics struct {
	Timeframe          string          `json:"timeframe"`
	WindowStart        time.Time       `json:"window_start"`
	WindowEnd          time.Time       `json:"window_end"`
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

// TransitionResult reports whether a status command took effect.
type TransitionResult struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
	Deal    *Deal  `json:"deal,omitempty"`
}

// CreateDealInput carries the fields accepted when creating a deal.
type CreateDealInput struct {
	Category        string `json:"category"`
	Description     string `json:"description,omitempty"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
	Quantity        string `json:"quantity,omitempty"`
	ActorID         string `json:"actor_id,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateDeal creates a rescue deal.
func (c *Client) CreateDeal(ctx context.Context, in CreateDealInput) (Deal, error) {
	var resp Deal
	err := c.do(ctx, http.MethodPost, "deals", in, &resp)
	return resp, err
}

// ListDeals returns deals newest first, optionally filtered by status and category.
func (c *Client) ListDeals(ctx context.Context, status, category string) ([]Deal, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if category != "" {
		q.Set("category", category)
	}
	endpoint := "deals"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Deal `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// GetDeal fetches a deal by id.
func (c *Client) GetDeal(ctx context.Context, id string) (Deal, error) {
	var resp Deal
	err := c.do(ctx, http.MethodGet, "deals/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// TransitionStatus moves a pending deal to sold or donated.
func (c *Client) TransitionStatus(ctx context.Context, id, status string, customerName *string, price *float64, actorID string) (TransitionResult, error) {
	body := map[string]any{"status": status}
	if customerName != nil {
		body["customer_name"] = *customerName
	}
	if price != nil {
		body["price"] = *price
	}
	if actorID != "" {
		body["actor_id"] = actorID
	}
	var resp TransitionResult
	endpoint := fmt.Sprintf("deals/%s/status", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Sell marks a deal sold.
func (c *Client) Sell(ctx context.Context, id, customerName string, price float64) (TransitionResult, error) {
	var name *string
	if customerName != "" {
		name = &customerName
	}
	return c.TransitionStatus(ctx, id, "sold", name, &price, "")
}

// Donate marks a deal donated.
func (c *Client) Donate(ctx context.Context, id string) (TransitionResult, error) {
	return c.TransitionStatus(ctx, id, "donated", nil, nil, "")
}

// ExpireOverdue expires pending deals past their validity window and returns the count.
func (c *Client) ExpireOverdue(ctx context.Context) (int, error) {
	var resp struct {
		Expired int `json:"expired"`
	}
	err := c.do(ctx, http.MethodPost, "deals/expire", nil, &resp)
	return resp.Expired, err
}

func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, "dashboard", nil, &resp)
	return resp, err
}

func (c *Client) TodayStats(ctx context.Context) (TodayStats, error) {
	var resp TodayStats
	err := c.do(ctx, http.MethodGet, "dashboard/today", nil, &resp)
	return resp, err
}

// Activity returns the recent activity feed, newest first.
func (c *Client) Activity(ctx context.Context) ([]Activity, error) {
	var resp struct {
		Items []Activity `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "activity", nil, &resp)
	return resp.Items, err
}

// Analytics returns the report for week, month, quarter or year.
func (c *Client) Analytics(ctx context.Context, timeframe string) (Analytics, error) {
	var resp Analytics
	err := c.do(ctx, http.MethodGet, "analytics/"+url.PathEscape(timeframe), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
