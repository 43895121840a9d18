package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vibeguard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches current price data from the CoinGecko free API.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewCoinGeckoProvider(tracer trace.Tracer) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: coingeckoBaseURL,
		tracer:  tracer,
	}
}

// FetchPrices fetches prices for the given CoinGecko coin ids in a single
// batched call. The result is keyed by coin id.
func (p *CoinGeckoProvider) FetchPrices(ctx context.Context, coinIDs []string) (map[string]*domain.PriceData, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-prices")
	defer span.End()

	if len(coinIDs) == 0 {
		return map[string]*domain.PriceData{}, nil
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_vol=true&include_24hr_change=true",
		p.baseURL, strings.Join(coinIDs, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(body))
	}

	// Response shape: {"bitcoin": {"usd": 97000, "usd_24h_vol": 4.5e10, "usd_24h_change": 2.34}, ...}
	var raw map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse prices: %w", err)
	}

	result := make(map[string]*domain.PriceData, len(raw))
	for coinID, data := range raw {
		token := domain.CoinGeckoIDToSymbol[coinID]
		if token == "" {
			token = strings.ToUpper(coinID)
		}
		result[coinID] = &domain.PriceData{
			Token:          token,
			Price:          data["usd"],
			Volume24h:      data["usd_24h_vol"],
			PriceChange24h: data["usd_24h_change"],
		}
	}

	return result, nil
}

// FetchPrice fetches price data for a single CoinGecko coin id.
func (p *CoinGeckoProvider) FetchPrice(ctx context.Context, coinID string) (*domain.PriceData, error) {
	prices, err := p.FetchPrices(ctx, []string{coinID})
	if err != nil {
		return nil, err
	}
	price, ok := prices[coinID]
	if !ok {
		return nil, fmt.Errorf("missing data for coin id %q", coinID)
	}
	return price, nil
}
