package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type capturedRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

func newTestServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "Lights off."}, "finish_reason": "stop"}]
}`

func TestOpenAIClient_Chat(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, completionBody, &captured)

	client, err := NewOpenAIClient(Options{
		APIKey:      "sk-test",
		Model:       "gpt-4",
		BaseURL:     srv.URL + "/v1",
		MaxTokens:   2000,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	got, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "policy"},
		{Role: RoleUser, Content: "Turn off lights"},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "Lights off." {
		t.Errorf("Chat() = %q, want %q", got, "Lights off.")
	}

	if captured.Model != "gpt-4" {
		t.Errorf("model = %q, want gpt-4", captured.Model)
	}
	if captured.MaxTokens != 2000 {
		t.Errorf("max_tokens = %d, want 2000", captured.MaxTokens)
	}
	if captured.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", captured.Temperature)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "Turn off lights" {
		t.Errorf("unexpected messages: %+v", captured.Messages)
	}
}

func TestOpenAIClient_ErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, ErrAuthentication},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, ErrRateLimited},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, ErrTransport},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body, nil)
			client, err := NewOpenAIClient(Options{APIKey: "sk-test", Model: "gpt-4", BaseURL: srv.URL + "/v1"})
			if err != nil {
				t.Fatalf("NewOpenAIClient() error = %v", err)
			}

			_, err = client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
			if !errors.Is(err, tt.want) {
				t.Errorf("Chat() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenAIClient_Deadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClient(Options{APIKey: "sk-test", Model: "gpt-4", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestNewOpenAIClient_Validation(t *testing.T) {
	if _, err := NewOpenAIClient(Options{Model: "gpt-4"}); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewOpenAIClient(Options{APIKey: "sk"}); err == nil {
		t.Error("expected error for missing model")
	}
}
