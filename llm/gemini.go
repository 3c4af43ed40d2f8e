package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"rtm-backend/metrics"
)

const (
	generationAPI  = "https://generativelanguage.googleapis.com/v1beta/models/gemini-3-pro-preview:generateContent"
	maxRetries     = 3
	initialBackoff = time.Second
	maxPayloadLen  = 30000
	temperature    = 0.2
)

// GeminiClient talks to the Generative Language REST API directly. Calls go
// through a circuit breaker so a flapping upstream fails fast instead of
// holding generation goroutines for the full retry budget.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[map[string]json.RawMessage]
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// GeminiWithEndpoint overrides the generation endpoint. Used by tests.
func GeminiWithEndpoint(url string) GeminiOption {
	return func(c *GeminiClient) {
		c.endpoint = url
	}
}

// GeminiWithHTTPClient overrides the HTTP client.
func GeminiWithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient = hc
	}
}

// NewGeminiClient builds a JSON-mode client for the generation API.
func NewGeminiClient(apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &GeminiClient{
		apiKey:   apiKey,
		endpoint: generationAPI,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[map[string]json.RawMessage](gobreaker.Settings{
		Name:        "generation-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return c, nil
}

// CompleteJSON sends the system prompt plus the JSON-encoded payload and
// returns the model's top-level JSON object.
func (c *GeminiClient) CompleteJSON(ctx context.Context, systemPrompt string, payload any) (map[string]json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (map[string]json.RawMessage, error) {
		return c.callWithRetries(ctx, systemPrompt, payload)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.LLMCalls.WithLabelValues("circuit_open").Inc()
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result, nil
}

func (c *GeminiClient) callWithRetries(ctx context.Context, systemPrompt string, payload any) (map[string]json.RawMessage, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	userText := string(encoded)
	if len(userText) > maxPayloadLen {
		userText = userText[:maxPayloadLen]
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		result, retriable, err := c.callGenerationAPI(ctx, systemPrompt, userText)
		if err == nil {
			metrics.LLMCalls.WithLabelValues("ok").Inc()
			return result, nil
		}

		lastErr = err
		if !retriable {
			break
		}
	}

	metrics.LLMCalls.WithLabelValues("error").Inc()
	return nil, lastErr
}

type generationRequest struct {
	SystemInstruction *generationContent  `json:"system_instruction,omitempty"`
	Contents          []generationContent `json:"contents"`
	GenerationConfig  generationConfig    `json:"generationConfig"`
}

type generationContent struct {
	Parts []generationPart `json:"parts"`
}

type generationPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generationResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// callGenerationAPI performs one HTTP round-trip. The second return value
// reports whether the failure is worth retrying.
func (c *GeminiClient) callGenerationAPI(ctx context.Context, systemPrompt, userText string) (map[string]json.RawMessage, bool, error) {
	reqBody := generationRequest{
		SystemInstruction: &generationContent{
			Parts: []generationPart{{Text: systemPrompt}},
		},
		Contents: []generationContent{
			{Parts: []generationPart{{Text: userText}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			ResponseMimeType: "application/json",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrGenerationCall, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// bad request and bad credentials will not get better on retry
		retriable := resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusUnauthorized
		var parsed generationResponse
		if json.Unmarshal(respBytes, &parsed) == nil && parsed.Error.Message != "" {
			return nil, retriable, fmt.Errorf("%w: %s (status %d)", ErrGenerationCall, parsed.Error.Message, resp.StatusCode)
		}
		return nil, retriable, fmt.Errorf("%w: status %d", ErrGenerationCall, resp.StatusCode)
	}

	var parsed generationResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, true, fmt.Errorf("failed to decode response: %w", err)
	}

	if parsed.PromptFeedback.BlockReason != "" {
		metrics.LLMCalls.WithLabelValues("blocked").Inc()
		return nil, false, fmt.Errorf("%w: %s", ErrPromptBlocked, parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return nil, true, ErrNoCandidates
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, true, ErrEmptyResponse
	}

	obj, err := decodeObject(text)
	if err != nil {
		return nil, true, err
	}
	return obj, false, nil
}

// decodeObject parses the model text as a JSON object, tolerating the
// occasional markdown fence the model wraps around its output.
func decodeObject(text string) (map[string]json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return obj, nil
}
