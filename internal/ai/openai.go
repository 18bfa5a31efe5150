package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// Client talks to any OpenAI-compatible chat-completions endpoint (OpenAI,
// Azure OpenAI, DashScope compatible mode).
type Client struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	logger      *zap.Logger
}

func NewClient(endpoint, apiKey, model string, temperature float64, logger *zap.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

const analysisSystemPrompt = "You are a document analysis assistant. You analyze and classify document content accurately and reply only in the requested format."

func (c *Client) Analyze(ctx context.Context, content, fileName, contentType string) (*Analysis, error) {
	prompt := fmt.Sprintf(`Analyze the following document and reply with JSON only.

File name: %s
Content type: %s

Document content:
%s

Reply with JSON in exactly this shape:
{
  "summary": "summary of at most 150 words",
  "category": "document category (e.g. contract, report, resume, manual, invoice)",
  "tags": ["tag1", "tag2", "tag3"],
  "confidence": 0.85,
  "language": "main language of the document"
}`, fileName, contentType, clip(content, 4000))

	raw, err := c.chat(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var analysis Analysis
	if err := unmarshalEmbeddedJSON(raw, &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	return &analysis, nil
}

func (c *Client) Classify(ctx context.Context, content, fileName string) (*Classification, error) {
	prompt := fmt.Sprintf(`Classify the following document into the single best category:
contract, financial report, technical documentation, resume, business proposal, academic paper, manual, legal document, announcement, other.

File name: %s
Document content: %s

Reply with JSON only:
{"category": "chosen category", "confidence": 0.85, "subcategory": "optional subcategory"}`, fileName, clip(content, 2000))

	raw, err := c.chat(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var cls Classification
	if err := unmarshalEmbeddedJSON(raw, &cls); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}
	return &cls, nil
}

func (c *Client) GenerateTags(ctx context.Context, content string) ([]string, error) {
	prompt := fmt.Sprintf(`Generate 3 to 5 short tags describing the main characteristics of this document:

%s

Reply with JSON only:
{"tags": ["tag1", "tag2", "tag3"]}`, clip(content, 2000))

	raw, err := c.chat(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var out struct {
		Tags []string `json:"tags"`
	}
	if err := unmarshalEmbeddedJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("parse tags response: %w", err)
	}
	return out.Tags, nil
}

func (c *Client) Summarize(ctx context.Context, content string, maxLength int) (string, error) {
	prompt := fmt.Sprintf(`Write a concise summary of at most %d characters for this document:

%s

Reply with the summary text only, no JSON.`, maxLength, clip(content, 3000))

	raw, err := c.chat(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode provider response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// unmarshalEmbeddedJSON extracts the first {...} block from a model reply,
// tolerating prose or code fences around it.
func unmarshalEmbeddedJSON(raw string, v any) error {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
