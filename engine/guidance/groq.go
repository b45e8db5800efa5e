package guidance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pairents/edge/engine/domain"
)

const (
	defaultGroqBase  = "https://api.groq.com/openai/v1"
	defaultGroqModel = "llama-3.1-8b-instant"
)

// GroqClient calls the OpenAI-compatible chat completions API with a
// JSON response format.
type GroqClient struct {
	apiKey string
	model  string
	base   string
	client *http.Client
}

// NewGroqClient creates a client. Empty model and base select defaults.
func NewGroqClient(apiKey, model, base string, client *http.Client) *GroqClient {
	if model == "" {
		model = defaultGroqModel
	}
	if base == "" {
		base = defaultGroqBase
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GroqClient{apiKey: apiKey, model: model, base: base, client: client}
}

func (c *GroqClient) Name() string { return "groq" }

type groqRequest struct {
	Model          string        `json:"model"`
	Messages       []groqMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat groqFormat    `json:"response_format"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqFormat struct {
	Type string `json:"type"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
}

func (c *GroqClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := groqRequest{
		Model: c.model,
		Messages: []groqMessage{
			{Role: "system", Content: "You answer in strict JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.2,
		ResponseFormat: groqFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: groq: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: groq: %v", domain.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: groq: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var out groqResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: groq: %v", domain.ErrMalformedUpstream, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: groq: no choices", domain.ErrMalformedUpstream)
	}
	return out.Choices[0].Message.Content, nil
}
