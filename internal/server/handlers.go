package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"rescueline/internal/analytics"
	"rescueline/internal/domain"
	"rescueline/internal/engine"
)

func registerDeals(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-deal",
		Method:        http.MethodPost,
		Path:          "/deals",
		Summary:       "Create rescue deal",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateDealRequest
	}) (*dealOutput, error) {
		cat, err := domain.ParseCategory(input.Body.Category)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "invalid_category", err.Error(), map[string]any{"category": input.Body.Category})
		}
		d, err := e.CreateDeal(ctx, engine.CreateDealOptions{
			Category:        cat,
			Description:     input.Body.Description,
			DiscountPercent: input.Body.DiscountPercent,
			Quantity:        input.Body.Quantity,
			ActorID:         input.Body.ActorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &dealOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-deals",
		Method:      http.MethodGet,
		Path:        "/deals",
		Summary:     "List rescue deals, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status   string `query:"status" enum:"pending,sold,donated,expired"`
		Category string `query:"category"`
	}) (*dealListOutput, error) {
		var f engine.DealFilter
		if input.Status != "" {
			st, err := domain.ParseStatus(input.Status)
			if err != nil {
				return nil, handleError(err)
			}
			f.Status = st
		}
		if input.Category != "" {
			cat, err := domain.ParseCategory(input.Category)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "invalid_category", err.Error(), map[string]any{"category": input.Category})
			}
			f.Category = cat
		}
		return &dealListOutput{Body: DealListResponse{Items: e.Deals(f)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deal",
		Method:      http.MethodGet,
		Path:        "/deals/{id}",
		Summary:     "Get rescue deal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dealOutput, error) {
		d, err := e.Deal(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &dealOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-deal",
		Method:      http.MethodPost,
		Path:        "/deals/{id}/status",
		Summary:     "Mark a pending deal sold or donated",
		Description: "Commands against unknown or non-pending deals are ignored and reported with applied=false.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body TransitionRequest
	}) (*transitionOutput, error) {
		st, err := domain.ParseStatus(input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		res := e.TransitionStatus(ctx, engine.TransitionOptions{
			ID:           input.ID,
			Status:       st,
			CustomerName: input.Body.CustomerName,
			Price:        input.Body.Price,
			ActorID:      input.Body.ActorID,
		})
		return &transitionOutput{Body: transitionResponse(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "expire-deals",
		Method:      http.MethodPost,
		Path:        "/deals/expire",
		Summary:     "Expire pending deals past their validity window",
	}, func(ctx context.Context, _ *struct{}) (*expireOutput, error) {
		return &expireOutput{Body: ExpireResponse{Expired: e.ExpireOverdue(ctx)}}, nil
	})
}

func registerDashboard(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Whole-history dashboard",
	}, func(ctx context.Context, _ *struct{}) (*dashboardOutput, error) {
		return &dashboardOutput{Body: e.Dashboard()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-today",
		Method:      http.MethodGet,
		Path:        "/dashboard/today",
		Summary:     "Stats for deals created since local midnight",
	}, func(ctx context.Context, _ *struct{}) (*todayOutput, error) {
		return &todayOutput{Body: e.TodayStats()}, nil
	})
}

func registerActivity(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "activity-feed",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "Recent activity, newest first",
	}, func(ctx context.Context, _ *struct{}) (*activityOutput, error) {
		return &activityOutput{Body: ActivityResponse{Items: e.Activity()}}, nil
	})
}

func registerAnalytics(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "analytics",
		Method:      http.MethodGet,
		Path:        "/analytics/{timeframe}",
		Summary:     "Rolling-window analytics",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Timeframe string `path:"timeframe" enum:"week,month,quarter,year"`
	}) (*analyticsOutput, error) {
		tf, err := analytics.ParseTimeframe(input.Timeframe)
		if err != nil {
			return nil, handleError(err)
		}
		return &analyticsOutput{Body: e.Analytics(tf)}, nil
	})
}
