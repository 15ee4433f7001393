// Package openai implements the llm.Provider interface on top of the
// OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/scmlabs/modsentry/internal/llm"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
)

const (
	ProviderName = "openai"

	textModel   = "gpt-4"
	visionModel = "gpt-4-vision-preview"

	moderationPrompt = `Analyze the following text for content moderation. Classify it as one of: toxic, spam, harassment, or safe.
Provide a confidence score (0-1) and reasoning.

Text: %s

Respond in JSON format:
{
    "classification": "toxic|spam|harassment|safe",
    "confidence": 0.95,
    "reasoning": "Explanation here"
}`

	imagePrompt = `Analyze this image for content moderation. Classify it as one of: toxic, spam, harassment, or safe.
Provide a confidence score (0-1) and reasoning.

Respond in JSON format:
{
    "classification": "toxic|spam|harassment|safe",
    "confidence": 0.95,
    "reasoning": "Explanation here"
}`
)

// Ensure Provider implements the llm.Provider interface.
var _ llm.Provider = (*Provider)(nil)

// Provider is an OpenAI-backed content classifier.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// New creates a new OpenAI provider.
func New(baseURL, apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &Provider{
		client:  &http.Client{},
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

func (p *Provider) Name() string { return ProviderName }

// Classify submits content to the chat completions endpoint and returns
// the model's answer as an opaque raw verdict.
func (p *Provider) Classify(ctx context.Context, content string, kind models.ContentType) (*llm.RawVerdict, error) {
	var reqBody chatRequest
	if kind == models.ContentImage {
		reqBody = chatRequest{
			Model: visionModel,
			Messages: []chatMessage{{
				Role: "user",
				Content: []map[string]interface{}{
					{"type": "text", "text": imagePrompt},
					{"type": "image_url", "image_url": map[string]string{
						"url": "data:image/jpeg;base64," + content,
					}},
				},
			}},
			MaxTokens: 300,
		}
	} else {
		reqBody = chatRequest{
			Model: textModel,
			Messages: []chatMessage{{
				Role:    "user",
				Content: fmt.Sprintf(moderationPrompt, content),
			}},
			Temperature: 0.1,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Malformed, errors.Wrap(err, "error marshaling request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.Wrap(err, "error creating request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		// Transport errors and exceeded deadlines both land here.
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.Wrap(err, "error calling OpenAI API"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.Wrap(err, "error reading OpenAI response"))
	}

	if resp.StatusCode != http.StatusOK {
		kind := llm.KindFromStatus(resp.StatusCode)
		return nil, llm.NewBackendError(ProviderName, kind,
			errors.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(body)))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.Wrap(err, "error decoding OpenAI response"))
	}
	if len(chatResp.Choices) == 0 {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.New("OpenAI response carries no choices"))
	}

	return &llm.RawVerdict{
		Text: chatResp.Choices[0].Message.Content,
		Raw:  json.RawMessage(body),
	}, nil
}
