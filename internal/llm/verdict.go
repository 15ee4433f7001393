package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
)

// Verdict is the structured interpretation of a RawVerdict.
type Verdict struct {
	Label      models.Classification
	Confidence float64
	Reasoning  string
}

// ErrUnparseable marks a raw verdict whose payload carried no recognizable
// classification at all. The orchestrator treats it as a backend-level
// failure and falls back to the next provider.
var ErrUnparseable = errors.New("verdict payload carries no classification")

type verdictPayload struct {
	Classification string   `json:"classification"`
	Confidence     *float64 `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
}

var (
	labelPattern      = regexp.MustCompile(`(?i)classification\s*[:=]\s*"?([a-zA-Z_-]+)`)
	confidencePattern = regexp.MustCompile(`(?i)confidence\s*(?:score)?\s*[:=]\s*"?(-?[0-9]*\.?[0-9]+)`)
)

// ParseVerdict maps a raw backend response onto the closed label set.
//
// The model's answer is read as JSON first, tolerating markdown code
// fences; free text with "classification: <label>" lines is the fallback.
// A recognizable payload with an unknown label still parses, as label
// unknown with confidence 0 and the raw text kept as reasoning.
func ParseVerdict(rv *RawVerdict) (*Verdict, error) {
	if rv == nil || strings.TrimSpace(rv.Text) == "" {
		return nil, errors.Wrap(ErrUnparseable, "empty verdict text")
	}

	text := stripCodeFences(rv.Text)

	var payload verdictPayload
	if err := json.Unmarshal(findJSONObject(text), &payload); err == nil && payload.Classification != "" {
		confidence := 0.0
		if payload.Confidence != nil {
			confidence = *payload.Confidence
		}
		return buildVerdict(payload.Classification, confidence, payload.Reasoning, rv.Text), nil
	}

	// Free-text answers like "classification: spam, confidence: 0.97".
	labelMatch := labelPattern.FindStringSubmatch(text)
	if labelMatch == nil {
		return nil, errors.Wrap(ErrUnparseable, "no classification field in verdict")
	}

	confidence := 0.0
	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			confidence = v
		}
	}

	return buildVerdict(labelMatch[1], confidence, rv.Text, rv.Text), nil
}

func buildVerdict(rawLabel string, confidence float64, reasoning, rawText string) *Verdict {
	label := models.Classification(strings.ToLower(strings.TrimSpace(rawLabel)))
	if !models.KnownClassification(label) {
		// Recoverable: the request still completes, it just carries no
		// actionable label.
		return &Verdict{
			Label:      models.ClassificationUnknown,
			Confidence: 0.0,
			Reasoning:  rawText,
		}
	}
	return &Verdict{
		Label:      label,
		Confidence: clampConfidence(confidence),
		Reasoning:  reasoning,
	}
}

func clampConfidence(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// findJSONObject extracts the first balanced top-level JSON object so
// answers with surrounding prose still decode.
func findJSONObject(text string) []byte {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return []byte(text)
	}
	return []byte(text[start : end+1])
}
