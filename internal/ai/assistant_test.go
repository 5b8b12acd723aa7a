package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAICompatAnalyzerSendsPromptAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("expected system and user messages, got %+v", body.Messages)
		}
		if !strings.Contains(body.Messages[0].Content, "RULE #1") {
			t.Errorf("policy prompt missing from system message")
		}
		if !strings.Contains(body.Messages[1].Content, "CONTRACT TITLE: Cache test") {
			t.Errorf("title missing from user message")
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"ok\"}"}}]}`))
	}))
	defer srv.Close()

	a := OpenAICompatAnalyzer{BaseURL: srv.URL + "/v1/", Model: "m", APIKey: "secret"}
	req := AnalysisRequest{Title: "Cache test", Text: "body", PolicyPrompt: "RULE #1"}
	for i := 0; i < 2; i++ {
		out, err := a.Analyze(context.Background(), req)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if out != `{"summary":"ok"}` {
			t.Fatalf("unexpected output %q", out)
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected second call served from cache, got %d calls", calls)
	}
}

func TestOpenAICompatAnalyzerRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"7s"}]}}`))
	}))
	defer srv.Close()

	a := OpenAICompatAnalyzer{BaseURL: srv.URL, Model: "m"}
	_, err := a.Analyze(context.Background(), AnalysisRequest{Title: "Rate limit test"})
	var rl RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Fatalf("expected 7s retry, got %s", rl.RetryAfter)
	}
}

func TestOpenAICompatAnalyzerRequiresEndpoint(t *testing.T) {
	if _, err := (OpenAICompatAnalyzer{Model: "m"}).Analyze(context.Background(), AnalysisRequest{}); err == nil {
		t.Fatalf("expected error without base url")
	}
	if _, err := (OpenAICompatAnalyzer{BaseURL: "http://x"}).Analyze(context.Background(), AnalysisRequest{}); err == nil {
		t.Fatalf("expected error without model")
	}
}

func TestOpenAICompatAnalyzerHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := OpenAICompatAnalyzer{BaseURL: srv.URL, Model: "m"}.Analyze(context.Background(), AnalysisRequest{Title: "HTTP error test"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected http error, got %v", err)
	}
}
