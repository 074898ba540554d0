package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(ClientConfig{}, nil); err == nil {
		t.Fatal("expected error without API key")
	}

	c, err := NewOpenAIClient(ClientConfig{APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Model() != DefaultModel {
		t.Errorf("expected default model, got %q", c.Model())
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got completionRequest
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"approved\":true}"}}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClient(ClientConfig{BaseURL: server.URL + "/", APIKey: "secret", Model: "test-model"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply, err := c.Complete(context.Background(), ChatRequest{
		Messages:    []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}},
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != `{"approved":true}` {
		t.Errorf("unexpected reply: %q", reply)
	}

	if path != "/chat/completions" {
		t.Errorf("unexpected path: %q", path)
	}
	if auth != "Bearer secret" {
		t.Errorf("unexpected auth header: %q", auth)
	}
	if got.Model != "test-model" || len(got.Messages) != 2 || got.Temperature != 0.2 {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", got.ResponseFormat)
	}
}

func TestOpenAIClient_NoResponseFormatForText(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer server.Close()

	c, _ := NewOpenAIClient(ClientConfig{BaseURL: server.URL, APIKey: "k"}, nil)
	if _, err := c.Complete(context.Background(), ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := raw["response_format"]; ok {
		t.Error("response_format should be omitted for text requests")
	}
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantAPI bool
		wantMsg string
	}{
		{name: "server error", status: 500, body: "upstream down", wantAPI: true, wantMsg: "HTTP 500"},
		{name: "unauthorized", status: 401, body: `{"error":"bad key"}`, wantAPI: true, wantMsg: "bad key"},
		{name: "no choices", status: 200, body: `{"choices":[]}`, wantMsg: "no choices"},
		{name: "invalid body", status: 200, body: `not json`, wantMsg: "failed to decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewOpenAIClient(ClientConfig{BaseURL: server.URL, APIKey: "k"}, nil)
			_, err := c.Complete(context.Background(), ChatRequest{})
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) != tt.wantAPI {
				t.Errorf("APIError match = %v, want %v (%v)", !tt.wantAPI, tt.wantAPI, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestOpenAIClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := NewOpenAIClient(ClientConfig{BaseURL: server.URL, APIKey: "k"}, nil)
	if _, err := c.Complete(ctx, ChatRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
