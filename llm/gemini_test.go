package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewGeminiClient("test-key", GeminiWithEndpoint(srv.URL), GeminiWithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	return c
}

func TestCompleteJSONParsesObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(candidateBody(`{"asunto": "ALEGACIONES", "checks": {"margen": true}}`)))
	})

	out, err := c.CompleteJSON(context.Background(), "sistema", map[string]string{"hola": "mundo"})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	var asunto string
	if err := json.Unmarshal(out["asunto"], &asunto); err != nil || asunto != "ALEGACIONES" {
		t.Fatalf("asunto = %q, err %v", asunto, err)
	}
}

func TestCompleteJSONStripsMarkdownFence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateBody("```json\n{\"ok\": true}\n```")))
	})
	out, err := c.CompleteJSON(context.Background(), "s", nil)
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if string(out["ok"]) != "true" {
		t.Fatalf("ok = %s", out["ok"])
	}
}

func TestCompleteJSONNoRetryOnBadRequest(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "invalid payload"}}`))
	})

	if _, err := c.CompleteJSON(context.Background(), "s", nil); err == nil {
		t.Fatal("expected error on 400")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("bad request retried %d times", n)
	}
}

func TestCompleteJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(candidateBody(`{"done": 1}`)))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	out, err := c.CompleteJSON(ctx, "s", nil)
	if err != nil {
		t.Fatalf("CompleteJSON after retries: %v", err)
	}
	if string(out["done"]) != "1" {
		t.Fatalf("done = %s", out["done"])
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("calls = %d, want 3", n)
	}
}

func TestCompleteJSONBlockedPrompt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback": {"blockReason": "SAFETY"}}`))
	})
	_, err := c.CompleteJSON(context.Background(), "s", nil)
	if err == nil {
		t.Fatal("expected blocked-prompt error")
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(""); err != ErrMissingAPIKey {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}
