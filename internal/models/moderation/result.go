package models

import (
	"time"

	"github.com/google/uuid"
)

// Classification is the closed label set a verdict can resolve to.
type Classification string

const (
	ClassificationSafe       Classification = "safe"
	ClassificationToxic      Classification = "toxic"
	ClassificationSpam       Classification = "spam"
	ClassificationHarassment Classification = "harassment"
	// ClassificationUnknown marks a verdict whose label could not be mapped
	// to the closed set. It still completes the request.
	ClassificationUnknown Classification = "unknown"
)

// KnownClassification reports whether label is one of the flaggable labels
// a backend may legitimately answer with.
func KnownClassification(label Classification) bool {
	switch label {
	case ClassificationSafe, ClassificationToxic, ClassificationSpam, ClassificationHarassment:
		return true
	}
	return false
}

// Flagged reports whether the label warrants operator notification.
// Safe and unknown content never notifies.
func (c Classification) Flagged() bool {
	switch c {
	case ClassificationToxic, ClassificationSpam, ClassificationHarassment:
		return true
	}
	return false
}

// ModerationResult is the parsed verdict for one request. Exactly one per
// completed request, never mutated after creation.
type ModerationResult struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	RequestID      uuid.UUID      `gorm:"type:uuid;not null;unique;index" json:"request_id"`
	Classification Classification `gorm:"size:20;not null" json:"classification"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `gorm:"type:text" json:"reasoning"`
	LLMProvider    string         `gorm:"size:50" json:"llm_provider"`
	LLMResponse    string         `gorm:"type:jsonb;default:'{}'" json:"llm_response"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
