package sentiment

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"vibeguard/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EnhancedFetcher is the upstream metric aggregator. A nil return means
// "no usable data" and triggers the synthetic fallback.
type EnhancedFetcher interface {
	FetchEnhanced(ctx context.Context, token string, window domain.Window) *domain.EnhancedSentiment
}

// Service always returns usable sentiment data: real when the provider
// delivers it, synthetic (and tagged as such) when it does not.
type Service struct {
	tracer   trace.Tracer
	provider EnhancedFetcher
}

func NewService(tracer trace.Tracer, provider EnhancedFetcher) *Service {
	return &Service{tracer: tracer, provider: provider}
}

// Snapshot returns the enhanced snapshot for a token, never nil.
func (s *Service) Snapshot(ctx context.Context, token string, window domain.Window) *domain.EnhancedSentiment {
	ctx, span := s.tracer.Start(ctx, "sentiment.snapshot")
	defer span.End()
	span.SetAttributes(attribute.String("token", token))

	symbol := strings.ToUpper(strings.TrimSpace(token))
	if !window.IsValid() {
		window = domain.WindowDaily
	}

	if s.provider != nil {
		if snapshot := s.provider.FetchEnhanced(ctx, symbol, window); snapshot != nil {
			return snapshot
		}
	}
	return Synthesize(symbol, window)
}

// SimpleScore reduces the snapshot to a single 0-100 score with provenance.
func (s *Service) SimpleScore(ctx context.Context, token string) domain.SentimentData {
	ctx, span := s.tracer.Start(ctx, "sentiment.simple-score")
	defer span.End()

	snapshot := s.Snapshot(ctx, token, domain.WindowDaily)

	score := int(math.Round(snapshot.Sentiment.Positive * 100))
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	source := domain.SourceCryptoracle
	if snapshot.IsFallback {
		source = domain.SourceFallback
	}

	return domain.SentimentData{
		Token:     snapshot.Token,
		Score:     score,
		Timestamp: time.Now().UnixMilli(),
		Sources:   []string{source},
	}
}

// Many fetches snapshots for all tokens concurrently. Every requested token
// gets an entry; one token's provider failure never affects another. The
// returned source is "fallback" only when every token needed fallback data.
func (s *Service) Many(ctx context.Context, tokens []string, window domain.Window) (map[string]*domain.EnhancedSentiment, string) {
	ctx, span := s.tracer.Start(ctx, "sentiment.many")
	defer span.End()
	span.SetAttributes(attribute.Int("token_count", len(tokens)))

	results := make(map[string]*domain.EnhancedSentiment, len(tokens))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, token := range tokens {
		symbol := strings.ToUpper(strings.TrimSpace(token))
		if symbol == "" {
			continue
		}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			snapshot := s.Snapshot(ctx, symbol, window)
			mu.Lock()
			results[symbol] = snapshot
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	source := domain.SourceFallback
	for _, snapshot := range results {
		if !snapshot.IsFallback {
			source = domain.SourceCryptoracle
			break
		}
	}
	return results, source
}
