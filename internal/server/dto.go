package server

import (
	"rescueline/internal/analytics"
	"rescueline/internal/domain"
	"rescueline/internal/engine"
)

// Request payloads

type CreateDealRequest struct {
	Category        string `json:"category" example:"Produce" doc:"Produce, Bakery, Dairy or Meat (case-insensitive)"`
	Description     string `json:"description,omitempty"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
	Quantity        string `json:"quantity,omitempty" example:"5kg"`
	ActorID         string `json:"actor_id,omitempty"`
}

type TransitionRequest struct {
	Status       string   `json:"status" enum:"sold,donated"`
	CustomerName *string  `json:"customer_name,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	ActorID      string   `json:"actor_id,omitempty"`
}

// Response payloads

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Store  string `json:"store,omitempty"`
}

type DealListResponse struct {
	Items []domain.RescueDeal `json:"items"`
}

type TransitionResponse struct {
	Applied bool               `json:"applied"`
	Reason  string             `json:"reason,omitempty"`
	Deal    *domain.RescueDeal `json:"deal,omitempty"`
}

type ExpireResponse struct {
	Expired int `json:"expired"`
}

type ActivityResponse struct {
	Items []domain.Activity `json:"items"`
}

type healthOutput struct {
	Body HealthResponse
}

type dealOutput struct {
	Body domain.RescueDeal
}

type dealListOutput struct {
	Body DealListResponse
}

type transitionOutput struct {
	Body TransitionResponse
}

type expireOutput struct {
	Body ExpireResponse
}

type dashboardOutput struct {
	Body analytics.DashboardData
}

type todayOutput struct {
	Body analytics.TodayStats
}

type activityOutput struct {
	Body ActivityResponse
}

type analyticsOutput struct {
	Body analytics.AnalyticsData
}

// Conversion helpers

func transitionResponse(res engine.TransitionResult) TransitionResponse {
	return TransitionResponse{Applied: res.Applied, Reason: res.Reason, Deal: res.Deal}
}
