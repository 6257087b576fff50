package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobwatch/scraper-service/internal/model"
)

const clientTimeout = 45 * time.Second

// systemPrompt instructs the model to emit exactly the JSON object shape we
// persist. Temperature 0 keeps repeated extractions of the same posting as
// stable as the provider allows.
const systemPrompt = `You extract structured data from job postings.
Given a posting's title, company, location and description, return ONLY a
JSON object with these keys:
  "seniorityLevel"   - one of "intern", "junior", "mid", "senior", "lead", "unknown"
  "employmentType"   - one of "full-time", "part-time", "contract", "internship", "unknown"
  "remotePolicy"     - one of "remote", "hybrid", "onsite", "unknown"
  "skills"           - array of skill/technology strings mentioned
  "yearsExperience"  - required years as a string, or ""
  "salaryRange"      - stated salary range as a string, or ""
No prose, no markdown fences, only the JSON object.`

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient constructs a Client with a shared HTTP client.
func NewClient(baseURL, apiKey, model string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: clientTimeout},
		logger:  logger,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float32       `json:"temperature"`
	ResponseFormat respFormat    `json:"response_format"`
	Messages       []chatMessage `json:"messages"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract implements Extractor. A syntactically invalid response body is an
// HTTP/transport error; a response whose content is not a JSON object is
// ErrMalformedOutput, which the caller's retry policy treats as retryable.
func (c *Client) Extract(ctx context.Context, fields model.ScrapedFields) (json.RawMessage, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("extraction started",
		"req_id", rid, "model", c.model, "title", fields.Title, "company", fields.CompanyName)

	user := fmt.Sprintf("Title: %s\nCompany: %s\nLocation: %s\n\n%s",
		fields.Title, fields.CompanyName, fields.Location, fields.Description)

	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		Temperature:    0,
		ResponseFormat: respFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat completions POST: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, string(raw))
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedOutput)
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) || !strings.HasPrefix(content, "{") {
		c.logger.Warn("model returned non-JSON content",
			"req_id", rid, "content_len", len(content))
		return nil, fmt.Errorf("%w: content is not a JSON object", ErrMalformedOutput)
	}

	c.logger.Debug("extraction complete",
		"req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
	return json.RawMessage(content), nil
}
