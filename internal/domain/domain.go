package domain

import (
	"strings"
	"time"
)

// Window is the requested time granularity for sentiment aggregation.
type Window string

const (
	WindowDaily Window = "Daily"
	Window4H    Window = "4H"
	Window1H    Window = "1H"
	Window15M   Window = "15M"
)

func (w Window) IsValid() bool {
	switch w {
	case WindowDaily, Window4H, Window1H, Window15M:
		return true
	}
	return false
}

// Duration returns the width of the aggregation range for the window.
func (w Window) Duration() time.Duration {
	switch w {
	case Window15M:
		return 15 * time.Minute
	case Window1H:
		return time.Hour
	case Window4H:
		return 4 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// TimeType returns the Cryptoracle granularity code for the window.
func (w Window) TimeType() string {
	switch w {
	case Window15M:
		return "15M"
	case Window1H:
		return "1H"
	case Window4H:
		return "4H"
	default:
		return "1D"
	}
}

// ParseWindow normalizes a user-supplied window string. Empty input means
// the daily window; unrecognized input reports ok=false.
func ParseWindow(s string) (Window, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DAILY", "1D":
		return WindowDaily, true
	case "4H":
		return Window4H, true
	case "1H":
		return Window1H, true
	case "15M":
		return Window15M, true
	}
	return WindowDaily, false
}

// Provenance values for sentiment data.
const (
	SourceCryptoracle = "cryptoracle"
	SourceFallback    = "fallback"
)

var SupportedSymbols = []string{"BTC", "BNB", "ETH", "SOL", "XRP", "DOGE", "SUI", "USDT"}

var CoinGeckoID = map[string]string{
	"BTC":  "bitcoin",
	"BNB":  "binancecoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
	"SUI":  "sui",
	"USDT": "tether",
}

// CoinIDFor resolves a token symbol to its CoinGecko coin id; unknown
// symbols are assumed to already be coin ids.
func CoinIDFor(token string) string {
	symbol := strings.ToUpper(strings.TrimSpace(token))
	if id, ok := CoinGeckoID[symbol]; ok {
		return id
	}
	return strings.ToLower(strings.TrimSpace(token))
}

var CoinGeckoIDToSymbol = func() map[string]string {
	m := make(map[string]string, len(CoinGeckoID))
	for symbol, id := range CoinGeckoID {
		m[id] = symbol
	}
	return m
}()

// SentimentData is the scalar sentiment view for a token.
// Sources records provenance and is never empty.
type SentimentData struct {
	Token     string   `json:"token"`
	Score     int      `json:"score"`
	Timestamp int64    `json:"timestamp"`
	Sources   []string `json:"sources"`
}

type CommunityActivity struct {
	TotalMessages     int64 `json:"totalMessages"`
	Interactions      int64 `json:"interactions"`
	Mentions          int64 `json:"mentions"`
	UniqueUsers       int64 `json:"uniqueUsers"`
	ActiveCommunities int64 `json:"activeCommunities"`
}

// SentimentScores are fractions in [0,1]. Positive and Negative need not
// sum to 1 because the provider rounds each independently.
type SentimentScores struct {
	Positive      float64 `json:"positive"`
	Negative      float64 `json:"negative"`
	SentimentDiff float64 `json:"sentimentDiff"`
}

type SentimentSignals struct {
	Deviation        float64 `json:"deviation"`
	Momentum         float64 `json:"momentum"`
	Breakout         float64 `json:"breakout"`
	PriceDislocation float64 `json:"priceDislocation"`
}

type EnhancedSentiment struct {
	Token      string            `json:"token"`
	Window     Window            `json:"window"`
	Community  CommunityActivity `json:"community"`
	Sentiment  SentimentScores   `json:"sentiment"`
	Signals    SentimentSignals  `json:"signals"`
	Timestamp  time.Time         `json:"timestamp"`
	IsFallback bool              `json:"isFallback,omitempty"`
}

// IsZero reports whether every numeric field of the snapshot is exactly
// zero. Such a snapshot is treated as "provider returned no data", not as
// a legitimate flat market.
func (e *EnhancedSentiment) IsZero() bool {
	c, s, g := e.Community, e.Sentiment, e.Signals
	return c.TotalMessages == 0 && c.Interactions == 0 && c.Mentions == 0 &&
		c.UniqueUsers == 0 && c.ActiveCommunities == 0 &&
		s.Positive == 0 && s.Negative == 0 && s.SentimentDiff == 0 &&
		g.Deviation == 0 && g.Momentum == 0 && g.Breakout == 0 && g.PriceDislocation == 0
}

type PriceData struct {
	Token          string  `json:"token"`
	Price          float64 `json:"price"`
	Volume24h      float64 `json:"volume24h"`
	PriceChange24h float64 `json:"priceChange24h"`
}

// RoutingDecision links one model choice to one later outcome report.
type RoutingDecision struct {
	TraceID string `json:"traceId"`
	ModelID string `json:"modelId"`
}

type RiskAnalysis struct {
	RiskScore  int    `json:"riskScore"`
	ShouldExit bool   `json:"shouldExit"`
	Reason     string `json:"reason"`
	AIModel    string `json:"aiModel"`
}

type SwapResult struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Subscription struct {
	UserAddress   string    `json:"userAddress"`
	TokenSymbol   string    `json:"tokenSymbol"`
	TokenID       string    `json:"tokenId"`
	TokenAddress  string    `json:"tokenAddress"`
	Amount        string    `json:"amount"`
	Enabled       bool      `json:"enabled"`
	RiskThreshold int       `json:"riskThreshold"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type TxRecord struct {
	ID           int64     `json:"id"`
	UserAddress  string    `json:"userAddress"`
	TokenAddress string    `json:"tokenAddress"`
	TxHash       string    `json:"txHash"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MonitorRunResult summarizes one pass over the enabled subscriptions.
type MonitorRunResult struct {
	Checked      int      `json:"checked"`
	ExitsAdvised int      `json:"exitsAdvised"`
	Errors       []string `json:"errors,omitempty"`
}
