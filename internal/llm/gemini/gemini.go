// Package gemini implements the llm.Provider interface on top of the
// Google Gemini generateContent REST API.
package gemini

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
	ProviderName = "gemini"

	model = "gemini-2.5-pro"

	textPrompt = `Analyze the following text for content moderation. Classify it as one of: toxic, spam, harassment, or safe.
Provide a confidence score (0-1) and detailed reasoning for your classification.

Text to analyze: %s

Respond with a JSON object: {"classification": "...", "confidence": 0.0, "reasoning": "..."}`

	imagePrompt = `Analyze this image for content moderation. Classify it as one of: toxic, spam, harassment, or safe.
Provide a confidence score (0-1) and detailed reasoning for your classification.

Respond with a JSON object: {"classification": "...", "confidence": 0.0, "reasoning": "..."}`
)

// Ensure Provider implements the llm.Provider interface.
var _ llm.Provider = (*Provider)(nil)

// Provider is a Gemini-backed content classifier.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// New creates a new Gemini provider.
func New(baseURL, apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	return &Provider{
		client:  &http.Client{},
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

func (p *Provider) Name() string { return ProviderName }

// Classify submits content to the generateContent endpoint and returns the
// model's answer as an opaque raw verdict.
func (p *Provider) Classify(ctx context.Context, content string, kind models.ContentType) (*llm.RawVerdict, error) {
	var parts []generatePart
	if kind == models.ContentImage {
		parts = []generatePart{
			{InlineData: &inlineData{MimeType: "image/jpeg", Data: content}},
			{Text: imagePrompt},
		}
	} else {
		parts = []generatePart{{Text: fmt.Sprintf(textPrompt, content)}}
	}

	var reqBody generateRequest
	reqBody.Contents = append(reqBody.Contents, struct {
		Parts []generatePart `json:"parts"`
	}{Parts: parts})

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Malformed, errors.Wrap(err, "error marshaling request"))
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.Wrap(err, "error creating request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.Wrap(err, "error calling Gemini API"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.Wrap(err, "error reading Gemini response"))
	}

	if resp.StatusCode != http.StatusOK {
		kind := llm.KindFromStatus(resp.StatusCode)
		return nil, llm.NewBackendError(ProviderName, kind,
			errors.Errorf("Gemini API returned status %d: %s", resp.StatusCode, string(body)))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.Wrap(err, "error decoding Gemini response"))
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, llm.NewBackendError(ProviderName, llm.Unavailable, errors.New("Gemini response carries no candidates"))
	}

	return &llm.RawVerdict{
		Text: genResp.Candidates[0].Content.Parts[0].Text,
		Raw:  json.RawMessage(body),
	}, nil
}
