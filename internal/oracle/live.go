package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gpcscan/gpcscan/internal/model"
)

// Live oracle defaults. The endpoint speaks the OpenAI chat-completions
// dialect, which several hosted and self-hosted reasoning services accept.
const (
	defaultEndpoint  = "https://api.openai.com/v1/chat/completions"
	defaultModel     = "gpt-4o"
	defaultTimeout   = 20 * time.Second
	defaultMaxTokens = 1024
)

// systemPrompt steers the reasoning service. The reply schema it names must
// stay in lockstep with the Analysis JSON tags.
const systemPrompt = `You are a privacy compliance analyst auditing a website crawl.
For each page you receive structured page data and crawl context.
Score the page's privacy risk and choose which links should be crawled next.

High priority: checkout, contact, login, signup, privacy policy, cookie settings, newsletter, subscribe.
Medium priority: about, products, search, categories.
Low priority: blog posts, press releases, pagination, social media, external domains.

Prefer pages likely to send user data to third parties, load tracking scripts, collect PII through forms, or lack a "Do Not Sell" opt-out link.

Reply with a single JSON object using exactly these keys:
  "privacy_risk_score": integer 1-10, 10 = highest risk
  "page_purpose": short label for what the page does
  "risk_reasons": array of short strings explaining the score
  "trackers_loaded": array of tracker domains detected on the page
  "priority_urls": array of {"url": string, "priority": "high"|"medium"|"low", "reason": string}`

// Live calls an OpenAI-compatible chat-completions endpoint to analyze
// pages. It implements Oracle.
//
// Design decision: The API key lives only inside the resty client's
// Authorization header and is never stored on the struct or logged,
// because: 1. Error messages and debug logs routinely quote struct
// fields. 2. The secure log handler masks known key fields but cannot
// mask what was never supposed to appear. 3. A leaked oracle key bills
// someone else's account.
type Live struct {
	client    *resty.Client
	endpoint  string
	model     string
	maxTokens int
}

// LiveOption configures the live oracle.
type LiveOption func(*Live)

// WithEndpoint overrides the chat-completions endpoint URL.
func WithEndpoint(endpoint string) LiveOption {
	return func(l *Live) {
		if endpoint != "" {
			l.endpoint = endpoint
		}
	}
}

// WithModel overrides the model name sent with each request.
func WithModel(name string) LiveOption {
	return func(l *Live) {
		if name != "" {
			l.model = name
		}
	}
}

// WithTimeout overrides the whole-request timeout.
func WithTimeout(timeout time.Duration) LiveOption {
	return func(l *Live) {
		if timeout > 0 {
			l.client.SetTimeout(timeout)
		}
	}
}

// NewLive creates a live oracle authenticated with apiKey.
// It returns ErrMissingAPIKey on an empty key rather than issuing
// unauthenticated requests that fail one page at a time.
func NewLive(apiKey string, opts ...LiveOption) (*Live, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := resty.New()
	client.SetTimeout(defaultTimeout)
	client.SetAuthToken(apiKey)
	client.SetHeader("Content-Type", "application/json")

	l := &Live{
		client:    client,
		endpoint:  defaultEndpoint,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Name implements Oracle.
func (*Live) Name() string {
	return "live"
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the subset of the reply the oracle reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze implements Oracle. It POSTs the summary and crawl context to the
// endpoint and decodes the model's JSON reply into an Analysis.
func (l *Live) Analyze(ctx context.Context, summary *model.PageSummary, crawl *CrawlContext) (*Analysis, error) {
	userMsg, err := buildUserMessage(summary, crawl)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page summary: %w", err)
	}

	body := chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMsg},
		},
		Temperature:    0,
		MaxTokens:      l.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	// resty decodes the body into SetResult on 2xx and SetError otherwise;
	// pointing both at the same struct keeps the error payload readable.
	var out chatResponse
	resp, err := l.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(l.endpoint)
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return nil, fmt.Errorf("oracle endpoint returned %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return nil, fmt.Errorf("oracle endpoint returned %d", resp.StatusCode())
	}

	if len(out.Choices) == 0 {
		return nil, ErrNoAnswer
	}
	content := trimCodeFence(out.Choices[0].Message.Content)
	if content == "" {
		return nil, ErrNoAnswer
	}

	analysis := &Analysis{}
	if err := json.Unmarshal([]byte(content), analysis); err != nil {
		return nil, fmt.Errorf("failed to decode oracle reply: %w", err)
	}
	analysis.normalize()
	return analysis, nil
}

// buildUserMessage renders the per-page prompt: a short instruction plus
// the summary and crawl context as indented JSON.
func buildUserMessage(summary *model.PageSummary, crawl *CrawlContext) (string, error) {
	payload := struct {
		Page  *model.PageSummary `json:"page"`
		Crawl *CrawlContext      `json:"crawl_context"`
	}{summary, crawl}

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return "Analyze this page for privacy risk and crawl prioritization.\n\n" + string(b), nil
}

// trimCodeFence strips a markdown code fence some models wrap JSON replies
// in even when asked for a bare object.
func trimCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
