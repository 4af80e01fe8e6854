package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestChatCompletion(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Hello!"}}]}`))
	}))
	defer server.Close()

	c := NewClient(Config{})
	reply, err := c.ChatCompletion(context.Background(), Credentials{
		APIKey:  "sk-test",
		BaseURL: server.URL + "/v1/",
	}, []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if reply != "Hello!" {
		t.Errorf("reply = %q, want Hello!", reply)
	}
	if got.Model != DefaultModel {
		t.Errorf("model = %q, want %q", got.Model, DefaultModel)
	}
	if got.Stream {
		t.Error("stream = true, want false")
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestChatCompletionMissingKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	_, err := c.ChatCompletion(context.Background(), Credentials{APIKey: "   "}, nil)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

func TestChatCompletionAPIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantBody string
	}{
		{"json body", http.StatusUnauthorized, `{"error": {"message": "bad key"}}`, `{"error":{"message":"bad key"}}`},
		{"non-json body", http.StatusBadGateway, `<html>oops</html>`, `{}`},
		{"empty body", http.StatusTooManyRequests, ``, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(Config{BaseURL: server.URL})
			_, err := c.ChatCompletion(context.Background(), Credentials{APIKey: "k"}, nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", apiErr.Body, tt.wantBody)
			}
			if !strings.Contains(err.Error(), http.StatusText(tt.status)) {
				t.Errorf("message %q lacks status text", err.Error())
			}
		})
	}
}

func TestChatCompletionEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	_, err := c.ChatCompletion(context.Background(), Credentials{APIKey: "k"}, nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/models" {
			t.Errorf("%s %s, want GET /models", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"m1","object":"model","created":1,"owned_by":"me"}]}`))
	}))
	defer server.Close()

	c := NewClient(Config{})
	models, err := c.ListModels(context.Background(), "k", server.URL)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 1 || models[0].ID != "m1" || models[0].OwnedBy != "me" {
		t.Errorf("models = %+v", models)
	}
}

func TestListModelsValidation(t *testing.T) {
	c := NewClient(Config{})
	if _, err := c.ListModels(context.Background(), "", "http://x"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("blank key error = %v", err)
	}
	if _, err := c.ListModels(context.Background(), "k", " "); !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("blank base URL error = %v", err)
	}
}

func TestListModelsAPIErrorIsAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"nope"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(Config{}).ListModels(context.Background(), "k", server.URL)
	if !IsAuthError(err) {
		t.Fatalf("IsAuthError(%v) = false", err)
	}
	if !strings.HasPrefix(err.Error(), "connection failed: 401 Unauthorized - ") {
		t.Errorf("message = %q", err.Error())
	}
}
