package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"vibeguard/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const priceCacheTTL = 90 * time.Second

// PriceProvider supplies price data for CoinGecko coin ids.
type PriceProvider interface {
	FetchPrices(ctx context.Context, coinIDs []string) (map[string]*domain.PriceData, error)
	FetchPrice(ctx context.Context, coinID string) (*domain.PriceData, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// PriceService fronts the price provider with a short-lived Redis cache so
// the monitor and the dashboard endpoints don't hammer the free API.
type PriceService struct {
	tracer   trace.Tracer
	provider PriceProvider
	redis    RedisClient
}

func NewPriceService(tracer trace.Tracer, provider PriceProvider, redisClient RedisClient) *PriceService {
	return &PriceService{tracer: tracer, provider: provider, redis: redisClient}
}

// GetPrice returns price data for one coin id, cached for 90 seconds.
func (s *PriceService) GetPrice(ctx context.Context, coinID string) (*domain.PriceData, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.get-price")
	defer span.End()

	if s.redis != nil {
		cached, err := s.getCache(ctx, coinID)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	price, err := s.provider.FetchPrice(ctx, coinID)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		_ = s.setCache(ctx, coinID, price)
	}
	return price, nil
}

// GetPrices returns price data for several coin ids, fetching only the
// cache misses in one batched provider call.
func (s *PriceService) GetPrices(ctx context.Context, coinIDs []string) (map[string]*domain.PriceData, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.get-prices")
	defer span.End()

	result := make(map[string]*domain.PriceData, len(coinIDs))
	var missing []string

	for _, coinID := range coinIDs {
		if s.redis != nil {
			cached, _ := s.getCache(ctx, coinID)
			if cached != nil {
				result[coinID] = cached
				continue
			}
		}
		missing = append(missing, coinID)
	}

	if len(missing) > 0 {
		fetched, err := s.provider.FetchPrices(ctx, missing)
		if err != nil {
			return result, err
		}
		for coinID, price := range fetched {
			if s.redis != nil {
				_ = s.setCache(ctx, coinID, price)
			}
			result[coinID] = price
		}
	}

	return result, nil
}

func (s *PriceService) setCache(ctx context.Context, coinID string, price *domain.PriceData) error {
	data, err := json.Marshal(price)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "price:"+coinID, data, priceCacheTTL).Err()
}

func (s *PriceService) getCache(ctx context.Context, coinID string) (*domain.PriceData, error) {
	data, err := s.redis.Get(ctx, "price:"+coinID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var price domain.PriceData
	if err := json.Unmarshal(data, &price); err != nil {
		return nil, err
	}
	return &price, nil
}
