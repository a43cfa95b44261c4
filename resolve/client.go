// Package resolve is the client for the external semantic-resolution
// service: an OpenAI-compatible chat API constrained to return JSON
// conforming to a caller-supplied schema.
package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/use-agent/skuforge/models"
)

// Params holds the resolution service configuration.
type Params struct {
	APIKey  string
	Model   string
	BaseURL string // e.g. "https://api.openai.com/v1"
	Timeout time.Duration
}

// Client issues structured-output resolution calls. It holds configuration
// only: the underlying HTTP client is constructed fresh for every call. A
// connection pinned to one concurrent execution scope must never be reused
// from another — a cached client outliving its scope produces connection
// errors on reuse, so each call gets its own cheap short-lived resource.
type Client struct {
	params Params
}

// NewClient creates a resolution client with the given parameters.
func NewClient(params Params) *Client {
	if params.Timeout <= 0 {
		params.Timeout = 60 * time.Second
	}
	return &Client{params: params}
}

// transientAttempts bounds transport-level retries (rate limits, 5xx).
// Semantic validation retries are the assembler's responsibility and are
// never handled here.
const transientAttempts = 2

// chatRequest is the chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Resolve sends the system and user prompts with a JSON Schema response
// constraint and returns the raw structured draft. Transient provider
// failures (429, 5xx) are retried a bounded number of times; everything
// else surfaces immediately as an ExtractError.
func (c *Client) Resolve(ctx context.Context, systemPrompt, userPrompt string, schema json.RawMessage) (json.RawMessage, error) {
	reqBody := chatRequest{
		Model: c.params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   "product_draft",
				Strict: true,
				Schema: schema,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.params.BaseURL, "/") + "/chat/completions"

	var raw json.RawMessage
	err = retry.Do(
		func() error {
			var callErr error
			raw, callErr = c.doCall(ctx, endpoint, bodyBytes)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(transientAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// doCall performs one HTTP round trip with a fresh client.
func (c *Client) doCall(ctx context.Context, endpoint string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.params.APIKey)

	// Fresh per call; see the Client doc comment.
	httpClient := &http.Client{Timeout: c.params.Timeout}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeResolverFailure, "resolution request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeResolverFailure, "failed to read resolution response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewExtractError(models.ErrCodeResolverFailure, "failed to parse resolution response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewExtractError(models.ErrCodeResolverFailure, "resolution service returned no choices", nil)
	}

	raw := chatResp.Choices[0].Message.Content
	if !json.Valid([]byte(raw)) {
		return nil, models.NewExtractError(models.ErrCodeResolverFailure, "resolution service returned invalid JSON", nil)
	}
	return json.RawMessage(raw), nil
}

// errTransientStatus marks provider errors worth one more attempt.
var errTransientStatus = errors.New("transient provider status")

// isTransient reports whether an error is worth one more transport attempt.
func isTransient(err error) bool {
	if errors.Is(err, errTransientStatus) {
		return true
	}
	var extractErr *models.ExtractError
	if errors.As(err, &extractErr) {
		return extractErr.Code == models.ErrCodeResolverRateLimited
	}
	return false
}

// classifyError maps HTTP status codes to resolver error codes.
func classifyError(statusCode int, body []byte) *models.ExtractError {
	var errResp chatErrorResponse
	msg := "resolution API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewExtractError(models.ErrCodeResolverAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewExtractError(models.ErrCodeResolverRateLimited, msg, nil)
	case statusCode >= 500:
		return models.NewExtractError(models.ErrCodeResolverFailure, fmt.Sprintf("resolution API returned %d: %s", statusCode, msg), errTransientStatus)
	default:
		return models.NewExtractError(models.ErrCodeResolverFailure, fmt.Sprintf("resolution API returned %d: %s", statusCode, msg), nil)
	}
}
