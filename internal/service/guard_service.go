package service

import (
	"context"
	"sync"
	"time"

	"vibeguard/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SentimentReader is the always-succeeds sentiment entry point.
type SentimentReader interface {
	SimpleScore(ctx context.Context, token string) domain.SentimentData
	Snapshot(ctx context.Context, token string, window domain.Window) *domain.EnhancedSentiment
	Many(ctx context.Context, tokens []string, window domain.Window) (map[string]*domain.EnhancedSentiment, string)
}

type PriceReader interface {
	GetPrice(ctx context.Context, coinID string) (*domain.PriceData, error)
	GetPrices(ctx context.Context, coinIDs []string) (map[string]*domain.PriceData, error)
}

type RiskAnalyzer interface {
	Analyze(ctx context.Context, sentiment domain.SentimentData, price domain.PriceData) domain.RiskAnalysis
}

// SwapExecutor performs the on-chain emergency exit. Execution is a
// boundary of this system; a nil executor means exits are advisory only.
type SwapExecutor interface {
	EmergencySwap(ctx context.Context, userAddress, tokenAddress, amount string) (domain.SwapResult, error)
}

// GuardService composes sentiment, price, and risk analysis into the
// position-check operations exposed by the API and the monitor.
type GuardService struct {
	tracer     trace.Tracer
	sentiments SentimentReader
	prices     PriceReader
	analyzer   RiskAnalyzer
}

func NewGuardService(tracer trace.Tracer, sentiments SentimentReader, prices PriceReader, analyzer RiskAnalyzer) *GuardService {
	return &GuardService{
		tracer:     tracer,
		sentiments: sentiments,
		prices:     prices,
		analyzer:   analyzer,
	}
}

type CheckResult struct {
	Sentiment domain.SentimentData `json:"sentiment"`
	Price     domain.PriceData     `json:"price"`
	Analysis  domain.RiskAnalysis  `json:"analysis"`
}

// Check runs the full pipeline for one token: sentiment and price fetched
// concurrently, then the AI risk verdict. Sentiment never fails; a price
// failure fails the check.
func (s *GuardService) Check(ctx context.Context, token, coinID string) (*CheckResult, error) {
	ctx, span := s.tracer.Start(ctx, "guard.check")
	defer span.End()
	span.SetAttributes(attribute.String("token", token))

	if coinID == "" {
		coinID = domain.CoinIDFor(token)
	}

	var (
		wg        sync.WaitGroup
		sentiment domain.SentimentData
		price     *domain.PriceData
		priceErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		sentiment = s.sentiments.SimpleScore(ctx, token)
	}()
	go func() {
		defer wg.Done()
		price, priceErr = s.prices.GetPrice(ctx, coinID)
	}()
	wg.Wait()

	if priceErr != nil {
		return nil, priceErr
	}

	analysis := s.analyzer.Analyze(ctx, sentiment, *price)
	return &CheckResult{Sentiment: sentiment, Price: *price, Analysis: analysis}, nil
}

type InsightsResult struct {
	Token     string                    `json:"token"`
	Window    domain.Window             `json:"window"`
	Enhanced  *domain.EnhancedSentiment `json:"enhanced"`
	Price     *domain.PriceData         `json:"price"`
	VibeScore int                       `json:"vibeScore"`
	Source    string                    `json:"source"`
}

// Insights returns the full enhanced snapshot plus price for one token.
func (s *GuardService) Insights(ctx context.Context, token string, window domain.Window) (*InsightsResult, error) {
	ctx, span := s.tracer.Start(ctx, "guard.insights")
	defer span.End()
	span.SetAttributes(attribute.String("token", token))

	coinID := domain.CoinIDFor(token)

	var (
		wg       sync.WaitGroup
		enhanced *domain.EnhancedSentiment
		price    *domain.PriceData
		priceErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		enhanced = s.sentiments.Snapshot(ctx, token, window)
	}()
	go func() {
		defer wg.Done()
		price, priceErr = s.prices.GetPrice(ctx, coinID)
	}()
	wg.Wait()

	if priceErr != nil {
		return nil, priceErr
	}

	source := domain.SourceCryptoracle
	if enhanced.IsFallback {
		source = domain.SourceFallback
	}

	return &InsightsResult{
		Token:     enhanced.Token,
		Window:    enhanced.Window,
		Enhanced:  enhanced,
		Price:     price,
		VibeScore: vibeScore(enhanced),
		Source:    source,
	}, nil
}

type MultiResult struct {
	Window    domain.Window                        `json:"window"`
	Tokens    map[string]*domain.EnhancedSentiment `json:"tokens"`
	UpdatedAt int64                                `json:"updatedAt"`
	Source    string                               `json:"source"`
}

// Multi returns the sentiment dashboard for a token list (default set when
// empty). Every requested token gets an entry, real or synthetic.
func (s *GuardService) Multi(ctx context.Context, tokens []string, window domain.Window) *MultiResult {
	ctx, span := s.tracer.Start(ctx, "guard.multi")
	defer span.End()

	if len(tokens) == 0 {
		tokens = domain.SupportedSymbols
	}

	snapshots, source := s.sentiments.Many(ctx, tokens, window)
	return &MultiResult{
		Window:    window,
		Tokens:    snapshots,
		UpdatedAt: time.Now().UnixMilli(),
		Source:    source,
	}
}

func vibeScore(snapshot *domain.EnhancedSentiment) int {
	score := int(snapshot.Sentiment.Positive*100 + 0.5)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
