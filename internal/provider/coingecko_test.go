package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestCoinGeckoFetchPrices(t *testing.T) {
	t.Parallel()

	p := NewCoinGeckoProvider(trace.NewNoopTracerProvider().Tracer("test"))
	p.baseURL = "http://example"
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/simple/price") {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if ids := req.URL.Query().Get("ids"); ids != "bitcoin,ethereum" {
				t.Fatalf("unexpected ids: %s", ids)
			}
			resp := map[string]map[string]float64{
				"bitcoin":  {"usd": 97000, "usd_24h_vol": 4.5e10, "usd_24h_change": 2.34},
				"ethereum": {"usd": 3500, "usd_24h_vol": 1.2e10, "usd_24h_change": -1.1},
			}
			data, _ := json.Marshal(resp)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader(data)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	result, err := p.FetchPrices(context.Background(), []string{"bitcoin", "ethereum"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	btc := result["bitcoin"]
	if btc == nil || btc.Token != "BTC" || btc.Price != 97000 {
		t.Fatalf("unexpected BTC data: %+v", btc)
	}
	eth := result["ethereum"]
	if eth == nil || eth.PriceChange24h != -1.1 {
		t.Fatalf("unexpected ETH data: %+v", eth)
	}
}

func TestCoinGeckoFetchPriceMissingID(t *testing.T) {
	t.Parallel()

	p := NewCoinGeckoProvider(trace.NewNoopTracerProvider().Tracer("test"))
	p.baseURL = "http://example"
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{}`)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	if _, err := p.FetchPrice(context.Background(), "not-a-coin"); err == nil {
		t.Fatal("expected error for missing coin id")
	}
}

func TestCoinGeckoFetchPricesUpstreamError(t *testing.T) {
	t.Parallel()

	p := NewCoinGeckoProvider(trace.NewNoopTracerProvider().Tracer("test"))
	p.baseURL = "http://example"
	p.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader(`rate limited`)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	if _, err := p.FetchPrices(context.Background(), []string{"bitcoin"}); err == nil {
		t.Fatal("expected error on 429")
	}
}
