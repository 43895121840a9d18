package ai

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

func newTestGemini(handler func(*http.Request) (*http.Response, error)) *GeminiClient {
	g := NewGeminiClient(trace.NewNoopTracerProvider().Tracer("test"), "test-key")
	g.baseURL = "http://example"
	g.client = &http.Client{Transport: roundTripFunc(handler)}
	return g
}

func geminiCandidates(texts ...string) map[string]any {
	parts := make([]map[string]string, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, map[string]string{"text": text})
	}
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": parts}},
		},
	}
}

func TestGeminiGenerate(t *testing.T) {
	t.Parallel()

	g := newTestGemini(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/v1beta/models/gemini-2.0-flash:generateContent") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("key") != "test-key" {
			t.Fatal("API key missing from query")
		}
		var payload struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unreadable payload: %v", err)
		}
		if len(payload.Contents) != 1 || payload.Contents[0].Role != "user" {
			t.Fatalf("unexpected contents: %+v", payload.Contents)
		}
		data, _ := json.Marshal(geminiCandidates("hello", "world"))
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	})

	out, err := g.Generate(context.Background(), "gemini-2.0-flash", "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello\nworld" {
		t.Fatalf("expected joined parts, got %q", out)
	}
}

func TestGeminiGenerateKeepsModelPrefix(t *testing.T) {
	t.Parallel()

	g := newTestGemini(func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.Path, "models/models/") {
			t.Fatalf("model prefix doubled: %s", req.URL.Path)
		}
		data, _ := json.Marshal(geminiCandidates("ok"))
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	})

	if _, err := g.Generate(context.Background(), "models/gemini-1.5-pro", "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGeminiGenerateErrors(t *testing.T) {
	t.Parallel()

	g := newTestGemini(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Body:       io.NopCloser(strings.NewReader(`{"error": "denied"}`)),
			Header:     make(http.Header),
		}, nil
	})
	if _, err := g.Generate(context.Background(), "m", "p"); err == nil {
		t.Fatal("expected error on non-200")
	}

	g = newTestGemini(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"candidates": []}`)),
			Header:     make(http.Header),
		}, nil
	})
	if _, err := g.Generate(context.Background(), "m", "p"); err == nil {
		t.Fatal("expected error on empty candidates")
	}

	g.apiKey = ""
	if _, err := g.Generate(context.Background(), "m", "p"); err == nil {
		t.Fatal("expected error without API key")
	}
}
