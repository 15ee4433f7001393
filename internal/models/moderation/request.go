package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentStatus is the lifecycle state of a moderation request.
type ContentStatus string

const (
	StatusPending   ContentStatus = "pending"
	StatusCompleted ContentStatus = "completed"
	StatusFailed    ContentStatus = "failed"
)

// ContentType identifies the kind of submitted content.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// ModerationRequest records a single submission. The content itself is not
// stored, only its fingerprint; the fingerprint carries the unique index
// that makes resubmissions of identical content resolve to this row.
type ModerationRequest struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserEmail   string        `gorm:"size:100;not null;index" json:"user_email" validate:"required,email"`
	ContentType ContentType   `gorm:"size:10;not null" json:"content_type" validate:"required,oneof=text image"`
	ContentHash string        `gorm:"size:64;not null;unique;index" json:"content_hash"`
	Status      ContentStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`

	Result           *ModerationResult `gorm:"foreignKey:RequestID" json:"result,omitempty"`
	NotificationLogs []NotificationLog `gorm:"foreignKey:RequestID" json:"notification_logs,omitempty"`
}

// RequestOption configures a ModerationRequest.
type RequestOption func(*ModerationRequest)

func WithStatus(status ContentStatus) RequestOption {
	return func(r *ModerationRequest) { r.Status = status }
}

// NewModerationRequest builds a pending request row for the given submission.
func NewModerationRequest(userEmail string, contentType ContentType, contentHash string, opts ...RequestOption) *ModerationRequest {
	r := &ModerationRequest{
		ID:          uuid.New(),
		UserEmail:   userEmail,
		ContentType: contentType,
		ContentHash: contentHash,
		Status:      StatusPending,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
