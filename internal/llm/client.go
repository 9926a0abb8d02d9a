// Package llm implements the remote translation capability over an
// OpenRouter-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lingodoc/translation-engine/internal/domain"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel   = "google/gemini-2.5-flash-preview-09-2025"
)

// Client handles communication with the chat completions API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiRequest is the outbound chat completions request body.
type apiRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// apiResponse is the chat completions response body.
type apiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// TranslationRequest is one translation call for a single work unit.
type TranslationRequest struct {
	Text       string
	SourceLang string
	TargetLang string
	Glossary   string
}

// TranslationResponse carries the translated text and token usage when the
// provider reports it.
type TranslationResponse struct {
	Text  string
	Usage *domain.Usage
}

// NewClient creates a new translation client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 90 * time.Second
	}

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		httpClient: &http.Client{
			Timeout: opts.RequestTimeout,
		},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Translate performs a single translation call. It does not retry; the
// executor owns the retry policy. Failures are classified into domain error
// types so the caller can distinguish transient from permanent conditions.
func (c *Client) Translate(ctx context.Context, req TranslationRequest) (*TranslationResponse, error) {
	body, err := json.Marshal(apiRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: buildSystemPrompt(req)},
			{Role: "user", Content: req.Text},
		},
		Stream: false,
	})
	if err != nil {
		return nil, domain.ClientError("marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, domain.ClientError("build request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Title", "Translation Engine")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.TimeoutError("translation call timed out", err)
		}
		return nil, domain.ServerError("send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, domain.ServerError("decode response", err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, domain.ServerError("response contained no choices", nil)
	}

	out := &TranslationResponse{Text: apiResp.Choices[0].Message.Content}
	if apiResp.Usage != nil {
		out.Usage = &domain.Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
		}
	}

	return out, nil
}

// classifyStatus maps a non-200 response into the retry taxonomy:
// 429 is rate limiting, 5xx is a server failure, everything else is a
// permanent client failure.
func classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(snippet))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.RateLimitedError(msg, nil)
	case resp.StatusCode >= 500:
		return domain.ServerError(msg, nil)
	default:
		return domain.ClientError(msg, nil)
	}
}

// buildSystemPrompt creates the translation instruction for one unit.
func buildSystemPrompt(req TranslationRequest) string {
	source := req.SourceLang
	if source == "" || source == "auto" {
		source = "the source language"
	}

	prompt := fmt.Sprintf(`You are a professional document translator. Translate the user's text from %s into %s.

Rules:
- Preserve paragraph breaks and the order of the content exactly.
- Do not summarize, omit, or add content.
- Keep numbers, units, proper nouns, and inline formatting unchanged.
- Output ONLY the translated text with no preamble or commentary.`, source, req.TargetLang)

	if req.Glossary != "" {
		prompt += "\n\nUse this terminology glossary where applicable:\n" + req.Glossary
	}

	return prompt
}
