package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
)

func TestParseVerdictJSON(t *testing.T) {
	rv := &RawVerdict{Text: `{"classification": "toxic", "confidence": 0.92, "reasoning": "contains slurs"}`}

	v, err := ParseVerdict(rv)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationToxic, v.Label)
	assert.Equal(t, 0.92, v.Confidence)
	assert.Equal(t, "contains slurs", v.Reasoning)
}

func TestParseVerdictFencedJSON(t *testing.T) {
	rv := &RawVerdict{Text: "```json\n{\"classification\": \"harassment\", \"confidence\": 0.8, \"reasoning\": \"targeted abuse\"}\n```"}

	v, err := ParseVerdict(rv)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationHarassment, v.Label)
	assert.Equal(t, 0.8, v.Confidence)
}

func TestParseVerdictJSONWithProse(t *testing.T) {
	rv := &RawVerdict{Text: `Here is my analysis: {"classification": "safe", "confidence": 0.99, "reasoning": "benign"} Let me know if you need more.`}

	v, err := ParseVerdict(rv)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationSafe, v.Label)
}

func TestParseVerdictFreeText(t *testing.T) {
	rv := &RawVerdict{Text: "classification: spam, confidence: 0.97"}

	v, err := ParseVerdict(rv)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationSpam, v.Label)
	assert.Equal(t, 0.97, v.Confidence)
	assert.Equal(t, rv.Text, v.Reasoning)
}

func TestParseVerdictUnknownLabel(t *testing.T) {
	rv := &RawVerdict{Text: `{"classification": "dangerous", "confidence": 0.7, "reasoning": "whatever"}`}

	v, err := ParseVerdict(rv)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationUnknown, v.Label)
	assert.Equal(t, 0.0, v.Confidence)
	// The raw text survives as the rationale for the audit trail.
	assert.Equal(t, rv.Text, v.Reasoning)
}

func TestParseVerdictConfidenceClamped(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{1.4, 1.0},
		{-0.2, 0.0},
		{0.5, 0.5},
	}
	for _, tc := range cases {
		rv := &RawVerdict{Text: fmt.Sprintf(`{"classification": "toxic", "confidence": %v, "reasoning": "x"}`, tc.raw)}
		v, err := ParseVerdict(rv)
		require.NoError(t, err)
		assert.Equal(t, tc.want, v.Confidence, "raw confidence %v", tc.raw)
	}
}

func TestParseVerdictUnreadablePayload(t *testing.T) {
	for _, text := range []string{"", "   ", "the model refuses to answer", "{broken json"} {
		_, err := ParseVerdict(&RawVerdict{Text: text})
		assert.ErrorIs(t, err, ErrUnparseable, "text %q", text)
	}
}

func TestParseVerdictLabelClosure(t *testing.T) {
	inputs := []string{
		`{"classification": "toxic", "confidence": 99, "reasoning": "x"}`,
		`{"classification": "SPAM", "confidence": 0.5}`,
		`{"classification": "weird-label", "confidence": 0.5}`,
		"classification: harassment, confidence: 2.0",
		"classification: gibberish",
	}
	valid := map[models.Classification]bool{
		models.ClassificationSafe:       true,
		models.ClassificationToxic:      true,
		models.ClassificationSpam:       true,
		models.ClassificationHarassment: true,
		models.ClassificationUnknown:    true,
	}
	for _, text := range inputs {
		v, err := ParseVerdict(&RawVerdict{Text: text})
		require.NoError(t, err, "text %q", text)
		assert.True(t, valid[v.Label], "label %q outside closed set for %q", v.Label, text)
		assert.GreaterOrEqual(t, v.Confidence, 0.0)
		assert.LessOrEqual(t, v.Confidence, 1.0)
	}
}

func TestKindFromStatus(t *testing.T) {
	assert.Equal(t, Unauthorized, KindFromStatus(401))
	assert.Equal(t, Unauthorized, KindFromStatus(403))
	assert.Equal(t, Malformed, KindFromStatus(400))
	assert.Equal(t, Malformed, KindFromStatus(413))
	assert.Equal(t, Unavailable, KindFromStatus(429))
	assert.Equal(t, Unavailable, KindFromStatus(500))
	assert.Equal(t, Unavailable, KindFromStatus(503))
}
