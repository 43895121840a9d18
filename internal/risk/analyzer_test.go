package risk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"vibeguard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type generatorStub struct {
	mu     sync.Mutex
	model  string
	prompt string
	out    string
	err    error
}

func (g *generatorStub) Generate(ctx context.Context, model, prompt string) (string, error) {
	g.mu.Lock()
	g.model = model
	g.prompt = prompt
	g.mu.Unlock()
	return g.out, g.err
}

type outcome struct {
	traceID string
	modelID string
	success bool
	reason  string
}

type routerStub struct {
	decision *domain.RoutingDecision

	mu       sync.Mutex
	outcomes []outcome
}

func (r *routerStub) Decide(ctx context.Context) *domain.RoutingDecision {
	return r.decision
}

func (r *routerStub) ReportOutcome(ctx context.Context, traceID, modelID string, success bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome{traceID, modelID, success, reason})
}

func newTestAnalyzer(router ModelRouter, llm TextGenerator) *Analyzer {
	return NewAnalyzer(trace.NewNoopTracerProvider().Tracer("test"), router, llm, "model-high", "model-low", 30)
}

func goodSentiment() domain.SentimentData {
	return domain.SentimentData{Token: "BTC", Score: 65, Sources: []string{"cryptoracle"}}
}

func somePrice() domain.PriceData {
	return domain.PriceData{Token: "BTC", Price: 97000, Volume24h: 4.5e10, PriceChange24h: -2.3}
}

func TestAnalyzeParsesVerdict(t *testing.T) {
	t.Parallel()

	gen := &generatorStub{out: `{"riskScore": 72, "shouldExit": true, "reason": "negative momentum"}`}
	a := newTestAnalyzer(nil, gen)

	result := a.Analyze(context.Background(), goodSentiment(), somePrice())
	if result.RiskScore != 72 || !result.ShouldExit || result.Reason != "negative momentum" {
		t.Fatalf("unexpected verdict: %+v", result)
	}
	if result.AIModel != "model-low" {
		t.Fatalf("score 65 should use the low tier, got %s", result.AIModel)
	}
	if !strings.Contains(gen.prompt, "Sentiment Score: 65/100") {
		t.Fatalf("prompt missing sentiment score: %q", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Price Change 24h: -2.30%") {
		t.Fatalf("prompt missing price change: %q", gen.prompt)
	}
}

func TestAnalyzeExtractsVerdictFromProse(t *testing.T) {
	t.Parallel()

	gen := &generatorStub{out: "Here is the answer:\n```json\n{\"riskScore\": 88.6, \"shouldExit\": true, \"reason\": \"a {braced} reason\"}\n```\nStay safe!"}
	a := newTestAnalyzer(nil, gen)

	result := a.Analyze(context.Background(), goodSentiment(), somePrice())
	if result.RiskScore != 89 || !result.ShouldExit {
		t.Fatalf("unexpected verdict: %+v", result)
	}
	if result.Reason != "a {braced} reason" {
		t.Fatalf("unexpected reason: %q", result.Reason)
	}
}

func TestAnalyzeBadSentimentUsesHighTier(t *testing.T) {
	t.Parallel()

	gen := &generatorStub{out: `{"riskScore": 90, "shouldExit": true, "reason": "panic"}`}
	a := newTestAnalyzer(nil, gen)

	sentiment := goodSentiment()
	sentiment.Score = 20
	result := a.Analyze(context.Background(), sentiment, somePrice())
	if result.AIModel != "model-high" {
		t.Fatalf("score below threshold should use the high tier, got %s", result.AIModel)
	}
}

func TestAnalyzeRouterOverridesTier(t *testing.T) {
	t.Parallel()

	gen := &generatorStub{out: `{"riskScore": 10, "shouldExit": false, "reason": "calm"}`}
	router := &routerStub{decision: &domain.RoutingDecision{TraceID: "trace-7", ModelID: "routed-model"}}
	a := newTestAnalyzer(router, gen)

	result := a.Analyze(context.Background(), goodSentiment(), somePrice())
	if result.AIModel != "routed-model" {
		t.Fatalf("router decision must win, got %s", result.AIModel)
	}

	router.mu.Lock()
	defer router.mu.Unlock()
	if len(router.outcomes) != 1 {
		t.Fatalf("expected one outcome report, got %d", len(router.outcomes))
	}
	o := router.outcomes[0]
	if o.traceID != "trace-7" || o.modelID != "routed-model" || !o.success {
		t.Fatalf("unexpected outcome: %+v", o)
	}
}

func TestAnalyzeSafeDefaultOnGenerateError(t *testing.T) {
	t.Parallel()

	router := &routerStub{}
	a := newTestAnalyzer(router, &generatorStub{err: errors.New("model timeout")})

	result := a.Analyze(context.Background(), goodSentiment(), somePrice())
	if result.RiskScore != 50 || result.ShouldExit {
		t.Fatalf("expected safe default, got %+v", result)
	}
	if !strings.Contains(result.Reason, "model timeout") {
		t.Fatalf("reason must carry the failure: %q", result.Reason)
	}
	if result.AIModel != "model-low" {
		t.Fatalf("unexpected model: %s", result.AIModel)
	}

	router.mu.Lock()
	defer router.mu.Unlock()
	if len(router.outcomes) != 1 || router.outcomes[0].success {
		t.Fatalf("failure must be reported, got %+v", router.outcomes)
	}
}

func TestAnalyzeSafeDefaultOnUnparseableOutput(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(nil, &generatorStub{out: "I cannot help with that."})
	result := a.Analyze(context.Background(), goodSentiment(), somePrice())
	if result.RiskScore != 50 || result.ShouldExit {
		t.Fatalf("expected safe default, got %+v", result)
	}
}

func TestAnalyzeSafeDefaultWithoutBackend(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(nil, nil)
	result := a.Analyze(context.Background(), goodSentiment(), somePrice())
	if result.RiskScore != 50 || result.ShouldExit {
		t.Fatalf("expected safe default, got %+v", result)
	}
	if result.AIModel == "" {
		t.Fatal("model name must never be empty")
	}
}

func TestParseVerdictClampsScore(t *testing.T) {
	t.Parallel()

	v, err := parseVerdict(`{"riskScore": 250, "shouldExit": false, "reason": "x"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.RiskScore != 100 {
		t.Fatalf("expected clamp to 100, got %d", v.RiskScore)
	}

	v, err = parseVerdict(`{"riskScore": -3, "shouldExit": false, "reason": "x"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.RiskScore != 0 {
		t.Fatalf("expected clamp to 0, got %d", v.RiskScore)
	}
}

func TestFirstJSONObjectSkipsBracesInStrings(t *testing.T) {
	t.Parallel()

	obj, ok := firstJSONObject(`noise {"reason": "odd } brace", "ok": true} trailing`)
	if !ok {
		t.Fatal("expected an object")
	}
	if !strings.HasSuffix(obj, `"ok": true}`) {
		t.Fatalf("object truncated at quoted brace: %q", obj)
	}

	if _, ok := firstJSONObject("no objects here"); ok {
		t.Fatal("expected no object")
	}
}

func TestTruncateReason(t *testing.T) {
	t.Parallel()

	if truncateReason("") != "exception" {
		t.Fatal("empty reason must become exception")
	}
	long := strings.Repeat("x", 500)
	if got := truncateReason(long); len(got) != maxReportReasonLen {
		t.Fatalf("expected %d chars, got %d", maxReportReasonLen, len(got))
	}
}
