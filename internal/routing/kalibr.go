package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"vibeguard/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultIntelligenceURL = "https://kalibr-intelligence.fly.dev"

// KalibrRouter asks the Kalibr Intelligence routing service which inference
// tier to use for a goal and reports outcomes back so future decisions can
// adapt.
type KalibrRouter struct {
	client   *http.Client
	tracer   trace.Tracer
	baseURL  string
	apiKey   string
	tenantID string
	goal     string

	modelHigh string
	modelLow  string
}

func NewKalibrRouter(tracer trace.Tracer, baseURL, apiKey, tenantID, goal, modelHigh, modelLow string) *KalibrRouter {
	if baseURL == "" {
		baseURL = defaultIntelligenceURL
	}
	return &KalibrRouter{
		client:    &http.Client{Timeout: 15 * time.Second},
		tracer:    tracer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		tenantID:  tenantID,
		goal:      goal,
		modelHigh: modelHigh,
		modelLow:  modelLow,
	}
}

func (r *KalibrRouter) Configured() bool {
	return r.apiKey != "" && r.tenantID != ""
}

// Decide asks the routing service which model to use. It returns nil when
// the service is not configured or the decision request fails; the caller
// is expected to fall back to its static tier choice.
func (r *KalibrRouter) Decide(ctx context.Context) *domain.RoutingDecision {
	ctx, span := r.tracer.Start(ctx, "kalibr.decide")
	defer span.End()
	span.SetAttributes(attribute.String("goal", r.goal))

	if !r.Configured() {
		return nil
	}

	r.registerPaths(ctx)

	body, err := r.post(ctx, "/api/v1/routing/decide", map[string]any{"goal": r.goal})
	if err != nil {
		log.Printf("kalibr decide failed: %v", err)
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("kalibr decide returned unparseable payload: %v", err)
		return nil
	}

	traceID := firstString(payload, "trace_id", "traceId")
	if traceID == "" {
		traceID = uuid.NewString()
	}
	modelID := firstString(payload, "model_id", "modelId", "recommended_model")
	if modelID == "" {
		modelID = r.modelLow
	}

	span.SetAttributes(attribute.String("model_id", modelID))
	return &domain.RoutingDecision{TraceID: traceID, ModelID: modelID}
}

// registerPaths makes the tier options available to the routing service
// before a decision. Registration is idempotent upstream; failures are
// swallowed so they can never block the decision request.
func (r *KalibrRouter) registerPaths(ctx context.Context) {
	seen := make(map[string]struct{}, 2)
	var wg sync.WaitGroup
	for _, modelID := range []string{r.modelHigh, r.modelLow} {
		if modelID == "" {
			continue
		}
		if _, dup := seen[modelID]; dup {
			continue
		}
		seen[modelID] = struct{}{}

		wg.Add(1)
		go func(modelID string) {
			defer wg.Done()
			if _, err := r.post(ctx, "/api/v1/routing/paths", map[string]any{
				"goal":     r.goal,
				"model_id": modelID,
			}); err != nil {
				log.Printf("kalibr path registration for %s failed: %v", modelID, err)
			}
		}(modelID)
	}
	wg.Wait()
}

// ReportOutcome sends the result of one analysis back to the routing
// service. It is fire-and-forget: the request is issued on a detached
// context and failures are only logged.
func (r *KalibrRouter) ReportOutcome(ctx context.Context, traceID, modelID string, success bool, reason string) {
	if !r.Configured() {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, 15*time.Second)
		defer cancel()

		_, err := r.post(ctx, "/api/v1/intelligence/report-outcome", map[string]any{
			"trace_id": traceID,
			"goal":     r.goal,
			"success":  success,
			"model_id": modelID,
			"reason":   reason,
		})
		if err != nil {
			log.Printf("kalibr report-outcome failed: %v", err)
		}
	}()
}

func (r *KalibrRouter) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", r.apiKey)
	req.Header.Set("X-Tenant-ID", r.tenantID)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("kalibr API error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
