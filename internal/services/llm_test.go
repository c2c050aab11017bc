package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/shared"
)

func newTestChatClient(t *testing.T, handler http.HandlerFunc, attempts int) (*ChatClient, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var sleeps []time.Duration
	client, err := NewChatClient(
		shared.LLMConfig{APIKey: "sk-test", BaseURL: server.URL, Model: "test/model", RetryAttempts: attempts},
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }),
		WithRetryBackoff(100*time.Millisecond, time.Second),
		WithChatLogger(log.New(io.Discard)),
	)
	if err != nil {
		t.Fatalf("NewChatClient() error = %v", err)
	}
	return client, &sleeps
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
}

func TestChatClient(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewChatClient(shared.LLMConfig{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("SendTurn carries the transcript", func(t *testing.T) {
		var requests []chatCompletionRequest
		client, _ := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer sk-test" {
				t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
			}
			var req chatCompletionRequest
			json.NewDecoder(r.Body).Decode(&req)
			requests = append(requests, req)
			writeCompletion(w, "reply "+string(rune('0'+len(requests))))
		}, 1)

		session := client.StartSession("be kind")
		ctx := context.Background()

		first, err := session.SendTurn(ctx, "hello")
		if err != nil {
			t.Fatalf("SendTurn() error = %v", err)
		}
		if first != "reply 1" {
			t.Errorf("expected reply 1, got %q", first)
		}

		if _, err := session.SendTurn(ctx, "still here"); err != nil {
			t.Fatalf("SendTurn() error = %v", err)
		}

		if len(requests) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(requests))
		}
		second := requests[1]
		if second.Model != "test/model" {
			t.Errorf("expected model test/model, got %s", second.Model)
		}

		wantRoles := []string{"system", "user", "assistant", "user"}
		if len(second.Messages) != len(wantRoles) {
			t.Fatalf("expected %d messages, got %d", len(wantRoles), len(second.Messages))
		}
		for i, role := range wantRoles {
			if second.Messages[i].Role != role {
				t.Errorf("message %d role = %s, want %s", i, second.Messages[i].Role, role)
			}
		}
		if second.Messages[0].Content != "be kind" || second.Messages[2].Content != "reply 1" {
			t.Errorf("unexpected transcript %+v", second.Messages)
		}
	})

	t.Run("failed turn leaves transcript unchanged", func(t *testing.T) {
		var fail atomic.Bool
		client, _ := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
				return
			}
			writeCompletion(w, "ok")
		}, 3)

		session := client.StartSession("system")
		if _, err := session.SendTurn(context.Background(), "one"); err != nil {
			t.Fatalf("SendTurn() error = %v", err)
		}

		fail.Store(true)
		_, err := session.SendTurn(context.Background(), "two")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}

		if got := session.(*chatSession).Len(); got != 3 {
			t.Errorf("expected transcript of 3 messages after failed turn, got %d", got)
		}
	})

	t.Run("retries 429 and 5xx", func(t *testing.T) {
		var calls atomic.Int32
		client, sleeps := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch calls.Add(1) {
			case 1:
				w.Header().Set("Retry-After", "2")
				w.WriteHeader(http.StatusTooManyRequests)
			case 2:
				w.WriteHeader(http.StatusBadGateway)
			default:
				writeCompletion(w, "finally")
			}
		}, 3)

		reply, err := client.StartSession("s").SendTurn(context.Background(), "hi")
		if err != nil {
			t.Fatalf("SendTurn() error = %v", err)
		}
		if reply != "finally" {
			t.Errorf("expected finally, got %q", reply)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", calls.Load())
		}

		want := []time.Duration{time.Second, 200 * time.Millisecond}
		if len(*sleeps) != len(want) {
			t.Fatalf("expected %d sleeps, got %v", len(want), *sleeps)
		}
		for i, d := range want {
			if (*sleeps)[i] != d {
				t.Errorf("sleep %d = %s, want %s", i, (*sleeps)[i], d)
			}
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}, 3)

		if _, err := client.StartSession("s").SendTurn(context.Background(), "hi"); err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("expected a single call, got %d", calls.Load())
		}
	})

	t.Run("empty reply is retried then fails", func(t *testing.T) {
		var calls atomic.Int32
		client, _ := newTestChatClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeCompletion(w, "   ")
		}, 2)

		_, err := client.StartSession("s").SendTurn(context.Background(), "hi")
		if !errors.Is(err, errEmptyReply) {
			t.Errorf("expected errEmptyReply, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})
}

func TestBackoffDelay(t *testing.T) {
	c := &ChatClient{retryBaseDelay: time.Second, retryMaxDelay: 5 * time.Second}

	tc := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 5 * time.Second},
		{attempt: 10, want: 5 * time.Second},
	}

	for _, tt := range tc {
		if got := c.backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}
