package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vibeguard/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultCryptoracleBaseURL = "https://api.cryptoracle.io/v1"

// Cryptoracle metric endpoint codes, grouped the way the snapshot is.
const (
	codeTotalMessages     = "CO-A-01-03"
	codeInteractions      = "CO-A-01-04"
	codeMentions          = "CO-A-01-05"
	codeUniqueUsers       = "CO-A-01-07"
	codeActiveCommunities = "CO-A-01-08"

	codePositive      = "CO-A-02-01"
	codeNegative      = "CO-A-02-02"
	codeSentimentDiff = "CO-A-02-03"

	codeDeviation        = "CO-S-01-01"
	codeMomentum         = "CO-S-01-02"
	codeBreakout         = "CO-S-01-03"
	codePriceDislocation = "CO-S-01-05"
)

var metricEndpoints = []string{
	codeTotalMessages, codeInteractions, codeMentions, codeUniqueUsers, codeActiveCommunities,
	codePositive, codeNegative, codeSentimentDiff,
	codeDeviation, codeMomentum, codeBreakout, codePriceDislocation,
}

// CryptoracleProvider fetches multi-metric sentiment snapshots from the
// Cryptoracle analytics API with one batched request per call.
type CryptoracleProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewCryptoracleProvider(tracer trace.Tracer, apiKey, baseURL string) *CryptoracleProvider {
	if baseURL == "" {
		baseURL = defaultCryptoracleBaseURL
	}
	return &CryptoracleProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		tracer:  tracer,
	}
}

// FetchEnhanced returns the aggregated sentiment snapshot for a token, or
// nil when no usable data can be produced. Missing configuration, transport
// and parse errors, and all-zero snapshots all collapse into nil; nothing
// escapes this method.
func (p *CryptoracleProvider) FetchEnhanced(ctx context.Context, token string, window domain.Window) *domain.EnhancedSentiment {
	ctx, span := p.tracer.Start(ctx, "cryptoracle.fetch-enhanced")
	defer span.End()
	span.SetAttributes(attribute.String("token", token), attribute.String("window", string(window)))

	if p.apiKey == "" {
		return nil
	}
	if !window.IsValid() {
		window = domain.WindowDaily
	}

	symbol := strings.ToUpper(strings.TrimSpace(token))
	endTime := time.Now()
	startTime := endTime.Add(-window.Duration())

	payload := map[string]any{
		"apiKey":    p.apiKey,
		"endpoints": metricEndpoints,
		"startTime": startTime.UnixMilli(),
		"endTime":   endTime.UnixMilli(),
		"timeType":  window.TimeType(),
		"token":     []string{symbol},
	}

	body, err := p.doRequest(ctx, payload)
	if err != nil {
		log.Printf("cryptoracle fetch for %s failed: %v", symbol, err)
		return nil
	}

	records := extractRecords(body, 0)
	if records == nil {
		log.Printf("cryptoracle response for %s has no record array", symbol)
		return nil
	}

	values := make(map[string]float64, len(metricEndpoints))
	for _, rec := range records {
		recToken := recordString(rec, "token", "symbol")
		if recToken != "" && !strings.EqualFold(recToken, symbol) {
			continue
		}
		code := strings.ToUpper(recordString(rec, "endpoint", "endpointCode", "code", "metric"))
		if code == "" {
			continue
		}
		value, ok := recordFloat(rec, "value", "val", "score")
		if !ok {
			continue
		}
		// At most one record per code is expected; last write wins.
		values[code] = value
	}

	snapshot := &domain.EnhancedSentiment{
		Token:  symbol,
		Window: window,
		Community: domain.CommunityActivity{
			TotalMessages:     int64(values[codeTotalMessages]),
			Interactions:      int64(values[codeInteractions]),
			Mentions:          int64(values[codeMentions]),
			UniqueUsers:       int64(values[codeUniqueUsers]),
			ActiveCommunities: int64(values[codeActiveCommunities]),
		},
		Sentiment: domain.SentimentScores{
			// Percentage-valued upstream, stored as fractions.
			Positive:      values[codePositive] / 100,
			Negative:      values[codeNegative] / 100,
			SentimentDiff: values[codeSentimentDiff] / 100,
		},
		Signals: domain.SentimentSignals{
			Deviation:        values[codeDeviation],
			Momentum:         values[codeMomentum],
			Breakout:         values[codeBreakout],
			PriceDislocation: values[codePriceDislocation],
		},
		Timestamp: endTime,
	}

	if snapshot.IsZero() {
		// Whether all-zero ever means a legitimately flat market is an open
		// question upstream; log it so the assumption stays auditable.
		log.Printf("cryptoracle returned all-zero snapshot for %s, treating as no data", symbol)
		return nil
	}

	return snapshot
}

func (p *CryptoracleProvider) doRequest(ctx context.Context, payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := p.baseURL + "/sentiment/metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cryptoracle API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

var recordContainerKeys = []string{"records", "list", "items", "data", "result"}

// extractRecords locates the record array in a provider payload whose shape
// is not contractually fixed. Strategies are tried in order, stopping at the
// first match: array at the root, an array-valued field under a plausible
// container key, then one level of string-encoded JSON.
func extractRecords(data []byte, depth int) []map[string]any {
	if depth > 2 {
		return nil
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	var arr []map[string]any
	if err := json.Unmarshal(trimmed, &arr); err == nil {
		return arr
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		for _, key := range recordContainerKeys {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			if records := extractRecords(raw, depth+1); records != nil {
				return records
			}
		}
		return nil
	}

	var nested string
	if err := json.Unmarshal(trimmed, &nested); err == nil {
		return extractRecords([]byte(nested), depth+1)
	}

	return nil
}

func recordString(rec map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := rec[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func recordFloat(rec map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := rec[key].(type) {
		case float64:
			return v, true
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
