package handler

import (
	"net/http"
	"strconv"
	"strings"

	"vibeguard/internal/domain"

	"github.com/gin-gonic/gin"
)

type subscribeRequest struct {
	UserAddress   string `json:"userAddress" binding:"required"`
	TokenSymbol   string `json:"tokenSymbol" binding:"required"`
	TokenAddress  string `json:"tokenAddress"`
	Amount        string `json:"amount"`
	Enabled       *bool  `json:"enabled"`
	RiskThreshold int    `json:"riskThreshold"`
}

// Subscribe creates or updates a guard subscription for a wallet/token pair.
func (h *Handler) Subscribe(c *gin.Context) {
	if h.subs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscription store unavailable"})
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userAddress and tokenSymbol are required"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.subscribe")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(req.TokenSymbol))
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	threshold := req.RiskThreshold
	if threshold <= 0 || threshold > 100 {
		threshold = 80
	}

	sub, err := h.subs.UpsertSubscription(ctx, domain.Subscription{
		UserAddress:   strings.TrimSpace(req.UserAddress),
		TokenSymbol:   symbol,
		TokenID:       domain.CoinIDFor(symbol),
		TokenAddress:  strings.TrimSpace(req.TokenAddress),
		Amount:        req.Amount,
		Enabled:       enabled,
		RiskThreshold: threshold,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) Subscriptions(c *gin.Context) {
	if h.subs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscription store unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.subscriptions")
	defer span.End()

	subs, err := h.subs.ListSubscriptions(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (h *Handler) TxHistory(c *gin.Context) {
	if h.subs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "subscription store unavailable"})
		return
	}

	user := strings.TrimSpace(c.Query("user"))
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.tx-history")
	defer span.End()

	records, err := h.subs.ListTxHistory(ctx, user, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []domain.TxRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": records})
}

// RunOnce triggers one manual monitor pass over the enabled subscriptions.
func (h *Handler) RunOnce(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitor unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-once")
	defer span.End()

	c.JSON(http.StatusOK, h.monitor.RunOnce(ctx))
}

type executeSwapRequest struct {
	UserAddress  string `json:"userAddress" binding:"required"`
	TokenAddress string `json:"tokenAddress" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
}

// ExecuteSwap performs a manual emergency exit. Without a configured swap
// executor the endpoint reports 501: execution stays a system boundary.
func (h *Handler) ExecuteSwap(c *gin.Context) {
	if h.swapper == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "swap execution not configured"})
		return
	}

	var req executeSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userAddress, tokenAddress, and amount are required"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.execute-swap")
	defer span.End()

	swap, err := h.swapper.EmergencySwap(ctx, req.UserAddress, req.TokenAddress, req.Amount)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if swap.Success && h.subs != nil {
		if err := h.subs.AppendTx(ctx, domain.TxRecord{
			UserAddress:  req.UserAddress,
			TokenAddress: req.TokenAddress,
			TxHash:       swap.TxHash,
			Source:       "manual",
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, swap)
}
