package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies a notification channel.
type Channel string

const (
	ChannelSlack Channel = "slack"
	ChannelEmail Channel = "email"
)

// NotificationOutcome is the terminal state of one delivery attempt.
type NotificationOutcome string

const (
	NotificationSuccess NotificationOutcome = "success"
	NotificationFailed  NotificationOutcome = "failed"
)

// NotificationLog records every attempt to notify a channel about a
// request, one row per attempt. Append-only; a failed delivery never rolls
// back the request or its result.
type NotificationLog struct {
	ID        uuid.UUID           `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	RequestID uuid.UUID           `gorm:"type:uuid;not null;index" json:"request_id"`
	Channel   Channel             `gorm:"size:20;not null" json:"channel"`
	Status    NotificationOutcome `gorm:"size:20;not null" json:"status"`
	SentAt    time.Time           `gorm:"autoCreateTime" json:"sent_at"`
}
