package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/shared"
)

const (
	defaultLLMBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMTimeout     = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	chatTemperature       = 0.8
)

// ChatOption customises the chat client.
type ChatOption func(*ChatClient)

// WithChatHTTPClient overrides the default HTTP client.
func WithChatHTTPClient(client *http.Client) ChatOption {
	return func(c *ChatClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) ChatOption {
	return func(c *ChatClient) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) ChatOption {
	return func(c *ChatClient) {
		c.sleeper = sleeper
	}
}

// WithChatLogger sets the logger used for retries.
func WithChatLogger(logger *log.Logger) ChatOption {
	return func(c *ChatClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	apiKey  string
	baseURL string
	model   string

	httpClient     *http.Client
	logger         *log.Logger
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
}

// NewChatClient builds a client from the llm credentials section.
func NewChatClient(cfg shared.LLMConfig, opts ...ChatOption) (*ChatClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: llm api_key is required", shared.ErrMissingCredentials)
	}

	timeout := defaultLLMTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	c := &ChatClient{
		apiKey:         apiKey,
		baseURL:        strings.TrimSpace(cfg.BaseURL),
		model:          strings.TrimSpace(cfg.Model),
		httpClient:     &http.Client{Timeout: timeout},
		logger:         shared.NewLogger(nil),
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	if c.baseURL == "" {
		c.baseURL = defaultLLMBaseURL
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = defaultRetryAttempts
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartSession opens a transcript seeded with the system instruction.
func (c *ChatClient) StartSession(system string) ChatSession {
	return &chatSession{
		client:   c,
		messages: []chatMessage{{Role: "system", Content: system}},
	}
}

type chatSession struct {
	client *ChatClient

	mu       sync.Mutex
	messages []chatMessage
}

// SendTurn sends the transcript plus text and records both turns on success.
func (s *chatSession) SendTurn(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]chatMessage, len(s.messages), len(s.messages)+1)
	copy(pending, s.messages)
	pending = append(pending, chatMessage{Role: "user", Content: text})

	reply, err := s.client.complete(ctx, pending)
	if err != nil {
		return "", err
	}

	s.messages = append(pending, chatMessage{Role: "assistant", Content: reply})
	return reply, nil
}

// Len returns the number of messages in the transcript, including the system instruction.
func (s *chatSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("chat request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// errEmptyReply is retried; some providers return an empty choice under load.
var errEmptyReply = errors.New("chat request: empty reply")

func (c *ChatClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload := chatCompletionRequest{Model: c.model, Messages: messages, Temperature: chatTemperature}

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		reply, err := c.sendOnce(ctx, payload)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		delay, retry := c.retryDelay(ctx, err, attempt)
		if !retry {
			break
		}
		c.logger.Warn("chat request failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		if err := c.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
		}
	}

	return "", fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, lastErr)
}

func (c *ChatClient) sendOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("chat request: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("chat request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat request: read body: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("chat request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("chat request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}

	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", errEmptyReply
}

func (c *ChatClient) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= c.retryAttempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if errors.Is(err, errEmptyReply) {
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return min(statusErr.RetryAfter, c.retryMaxDelay), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay doubles from the base delay: attempt 1 -> base, 2 -> base*2, capped at the max.
func (c *ChatClient) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay
	for i := 1; i < attempt && delay < c.retryMaxDelay; i++ {
		delay *= 2
	}
	return min(delay, c.retryMaxDelay)
}

func (c *ChatClient) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay
		}
	}
	return 0
}
