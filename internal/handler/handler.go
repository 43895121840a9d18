package handler

import (
	"context"

	"vibeguard/internal/domain"
	"vibeguard/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type GuardAPI interface {
	Check(ctx context.Context, token, coinID string) (*service.CheckResult, error)
	Insights(ctx context.Context, token string, window domain.Window) (*service.InsightsResult, error)
	Multi(ctx context.Context, tokens []string, window domain.Window) *service.MultiResult
}

type PriceAPI interface {
	GetPrices(ctx context.Context, coinIDs []string) (map[string]*domain.PriceData, error)
}

type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub domain.Subscription) (*domain.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	AppendTx(ctx context.Context, rec domain.TxRecord) error
	ListTxHistory(ctx context.Context, userAddress string, limit int) ([]domain.TxRecord, error)
}

type MonitorRunner interface {
	RunOnce(ctx context.Context) domain.MonitorRunResult
}

type Handler struct {
	tracer  trace.Tracer
	guard   GuardAPI
	prices  PriceAPI
	subs    SubscriptionStore
	monitor MonitorRunner
	swapper service.SwapExecutor
}

func New(tracer trace.Tracer, guard GuardAPI, prices PriceAPI, subs SubscriptionStore, monitor MonitorRunner, swapper service.SwapExecutor) *Handler {
	return &Handler{
		tracer:  tracer,
		guard:   guard,
		prices:  prices,
		subs:    subs,
		monitor: monitor,
		swapper: swapper,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	r.GET("/health", h.Health)

	api := r.Group("/api/vibe")
	if auth != nil {
		api.Use(auth)
	}
	api.POST("/check", h.Check)
	api.POST("/insights", h.Insights)
	api.POST("/multi", h.Multi)
	api.GET("/prices", h.Prices)
	api.POST("/subscribe", h.Subscribe)
	api.GET("/subscriptions", h.Subscriptions)
	api.GET("/tx-history", h.TxHistory)
	api.POST("/run-once", h.RunOnce)
	api.POST("/execute-swap", h.ExecuteSwap)
}
