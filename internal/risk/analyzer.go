package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"

	"vibeguard/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxReportReasonLen = 120

// ModelRouter decides which inference tier to use and accepts outcome
// reports. Decide returns nil when the routing service cannot help.
type ModelRouter interface {
	Decide(ctx context.Context) *domain.RoutingDecision
	ReportOutcome(ctx context.Context, traceID, modelID string, success bool, reason string)
}

// TextGenerator is a single-prompt inference backend.
type TextGenerator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Analyzer turns a sentiment + price pair into a risk verdict. Analyze
// never fails: every error path collapses into a safe default whose Reason
// field carries the failure description.
type Analyzer struct {
	tracer trace.Tracer
	router ModelRouter
	llm    TextGenerator

	modelHigh    string
	modelLow     string
	badThreshold int
}

func NewAnalyzer(tracer trace.Tracer, router ModelRouter, llm TextGenerator, modelHigh, modelLow string, badThreshold int) *Analyzer {
	return &Analyzer{
		tracer:       tracer,
		router:       router,
		llm:          llm,
		modelHigh:    modelHigh,
		modelLow:     modelLow,
		badThreshold: badThreshold,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, sentiment domain.SentimentData, price domain.PriceData) domain.RiskAnalysis {
	ctx, span := a.tracer.Start(ctx, "risk.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("token", sentiment.Token),
		attribute.Int("sentiment_score", sentiment.Score),
	)

	prompt := buildPrompt(sentiment, price)

	// Static tier choice and local trace id; both are replaced when the
	// routing service supplies a decision.
	traceID := uuid.NewString()
	model := a.modelLow
	if sentiment.Score < a.badThreshold {
		model = a.modelHigh
	}
	if a.router != nil {
		if decision := a.router.Decide(ctx); decision != nil {
			traceID = decision.TraceID
			model = decision.ModelID
		}
	}
	span.SetAttributes(attribute.String("llm.model", model))

	if a.llm == nil {
		return a.fail(ctx, traceID, model, "no inference backend configured")
	}

	raw, err := a.llm.Generate(ctx, model, prompt)
	if err != nil {
		return a.fail(ctx, traceID, model, err.Error())
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return a.fail(ctx, traceID, model, err.Error())
	}

	a.report(ctx, traceID, model, true, "")
	verdict.AIModel = model
	return verdict
}

func (a *Analyzer) fail(ctx context.Context, traceID, model, msg string) domain.RiskAnalysis {
	log.Printf("risk analysis failed: %s", msg)
	a.report(ctx, traceID, model, false, truncateReason(msg))

	if model == "" {
		model = "fallback"
	}
	return domain.RiskAnalysis{
		RiskScore:  50,
		ShouldExit: false,
		Reason:     fmt.Sprintf("Analysis failed (%s)", msg),
		AIModel:    model,
	}
}

func (a *Analyzer) report(ctx context.Context, traceID, model string, success bool, reason string) {
	if a.router == nil {
		return
	}
	a.router.ReportOutcome(ctx, traceID, model, success, reason)
}

func buildPrompt(sentiment domain.SentimentData, price domain.PriceData) string {
	return fmt.Sprintf(`Analyze crypto risk:
Token: %s
Sentiment Score: %d/100
Price Change 24h: %.2f%%
Volume 24h: $%.0f

Should we exit position? Respond with JSON: {riskScore: 0-100, shouldExit: boolean, reason: string}`,
		sentiment.Token, sentiment.Score, price.PriceChange24h, price.Volume24h)
}

// parseVerdict extracts the first balanced JSON object from model output
// that may wrap it in prose or markdown, and parses it as the verdict.
func parseVerdict(raw string) (domain.RiskAnalysis, error) {
	objText, ok := firstJSONObject(raw)
	if !ok {
		return domain.RiskAnalysis{}, fmt.Errorf("no JSON object in model response")
	}

	var parsed struct {
		RiskScore  float64 `json:"riskScore"`
		ShouldExit bool    `json:"shouldExit"`
		Reason     string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(objText), &parsed); err != nil {
		return domain.RiskAnalysis{}, fmt.Errorf("parse verdict: %w", err)
	}

	score := int(math.Round(parsed.RiskScore))
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	return domain.RiskAnalysis{
		RiskScore:  score,
		ShouldExit: parsed.ShouldExit,
		Reason:     parsed.Reason,
	}, nil
}

// firstJSONObject scans for the first balanced {...} substring, skipping
// braces inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func truncateReason(msg string) string {
	if msg == "" {
		return "exception"
	}
	if len(msg) > maxReportReasonLen {
		return msg[:maxReportReasonLen]
	}
	return msg
}
