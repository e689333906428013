package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fenwick/pennywise/internal/config"
	"github.com/fenwick/pennywise/internal/httpkit"
)

// DefaultGeminiBaseURL is the Google Generative Language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient talks to the Google Generative Language REST API
// (generateContent and streamGenerateContent).
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClient creates a Gemini client. Streaming responses hold the
// connection open for the life of the generation, so the underlying
// http.Client carries no overall timeout; callers bound requests with
// their context instead.
func NewGeminiClient(baseURL, apiKey, model string, logger *slog.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return &GeminiClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpkit.NewClient(httpkit.WithTimeout(0)),
		logger:     logger.With("component", "gemini"),
	}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

// Wire types for the generateContent family of endpoints.

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

func (r *geminiResponse) text() string {
	var b strings.Builder
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		break // only the first candidate is requested
	}
	return b.String()
}

// Complete sends a non-streaming generateContent request.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	resp, err := c.post(ctx, ":generateContent", prompt)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &Completion{Text: gr.text(), Model: c.model}
	if gr.UsageMetadata != nil {
		out.InputTokens = gr.UsageMetadata.PromptTokenCount
		out.OutputTokens = gr.UsageMetadata.CandidatesTokenCount
	}

	c.logger.Debug("completion done",
		"model", c.model,
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"content_len", len(out.Text),
	)
	c.logger.Log(ctx, config.LevelTrace, "completion content", "content", out.Text)

	return out, nil
}

// Stream sends a streamGenerateContent request with SSE framing and
// forwards each partial-text chunk to callback as it arrives.
func (c *GeminiClient) Stream(ctx context.Context, prompt string, callback StreamCallback) (*Completion, error) {
	resp, err := c.post(ctx, ":streamGenerateContent?alt=sse", prompt)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Completion{Model: c.model}
	var contentBuilder strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // skip malformed events
		}

		if token := chunk.text(); token != "" {
			contentBuilder.WriteString(token)
			if callback != nil {
				callback(token)
			}
		}
		if chunk.UsageMetadata != nil {
			out.InputTokens = chunk.UsageMetadata.PromptTokenCount
			out.OutputTokens = chunk.UsageMetadata.CandidatesTokenCount
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	out.Text = contentBuilder.String()

	c.logger.Debug("stream complete",
		"model", c.model,
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"content_len", len(out.Text),
	)
	c.logger.Log(ctx, config.LevelTrace, "stream final content", "content", out.Text)

	return out, nil
}

// Ping checks that the configured model exists and the key is valid.
func (c *GeminiClient) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1beta/models/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d", resp.StatusCode)
	}
	return nil
}

func (c *GeminiClient) post(ctx context.Context, method, prompt string) (*http.Response, error) {
	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s%s", c.baseURL, c.model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Log(ctx, config.LevelTrace, "request payload", "url", url, "body", string(payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := httpkit.ReadErrorBody(resp.Body, 2048)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, msg)
	}
	return resp, nil
}
