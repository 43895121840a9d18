package handler

import (
	"io"
	"net/http"
	"strings"

	"vibeguard/internal/domain"

	"github.com/gin-gonic/gin"
)

type checkRequest struct {
	Token  string `json:"token" binding:"required"`
	CoinID string `json:"coinId"`
}

// Check runs the full sentiment + price + AI risk pipeline for one token.
func (h *Handler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.check")
	defer span.End()

	result, err := h.guard.Check(ctx, strings.ToUpper(strings.TrimSpace(req.Token)), req.CoinID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type insightsRequest struct {
	Token  string `json:"token" binding:"required"`
	Window string `json:"window"`
}

// Insights returns the enhanced sentiment snapshot plus price for a token.
func (h *Handler) Insights(c *gin.Context) {
	var req insightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	token := strings.ToUpper(strings.TrimSpace(req.Token))
	window, ok := domain.ParseWindow(req.Window)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window, expected Daily, 4H, 1H, or 15M"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.insights")
	defer span.End()

	result, err := h.guard.Insights(ctx, token, window)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type multiRequest struct {
	Tokens []string `json:"tokens"`
	Window string   `json:"window"`
}

// Multi returns sentiment snapshots for a token list, the default token set
// when none is given.
func (h *Handler) Multi(c *gin.Context) {
	var req multiRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	window, ok := domain.ParseWindow(req.Window)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window, expected Daily, 4H, 1H, or 15M"})
		return
	}

	var tokens []string
	for _, t := range req.Tokens {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			tokens = append(tokens, t)
		}
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.multi")
	defer span.End()

	c.JSON(http.StatusOK, h.guard.Multi(ctx, tokens, window))
}

// Prices returns cached prices for a comma-separated symbol list.
func (h *Handler) Prices(c *gin.Context) {
	symbols := domain.SupportedSymbols
	if raw := c.Query("tokens"); raw != "" {
		symbols = nil
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				symbols = append(symbols, strings.ToUpper(t))
			}
		}
	}

	coinIDs := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		coinIDs = append(coinIDs, domain.CoinIDFor(symbol))
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.prices")
	defer span.End()

	prices, err := h.prices.GetPrices(ctx, coinIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	bySymbol := make(map[string]*domain.PriceData, len(prices))
	for coinID, price := range prices {
		symbol := domain.CoinGeckoIDToSymbol[coinID]
		if symbol == "" {
			symbol = strings.ToUpper(coinID)
		}
		bySymbol[symbol] = price
	}
	c.JSON(http.StatusOK, gin.H{"prices": bySymbol})
}
