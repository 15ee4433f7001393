package models

import moderation "github.com/scmlabs/modsentry/internal/models/moderation"

func RegisterModels() []interface{} {
	return []interface{}{
		&moderation.ModerationRequest{},
		&moderation.ModerationResult{},
		&moderation.NotificationLog{},
	}
}

type (
	ModerationRequest = moderation.ModerationRequest
	ModerationResult  = moderation.ModerationResult
	NotificationLog   = moderation.NotificationLog
	ContentStatus     = moderation.ContentStatus
	ContentType       = moderation.ContentType
	Classification    = moderation.Classification
	Channel           = moderation.Channel
)

const (
	StatusPending   = moderation.StatusPending
	StatusCompleted = moderation.StatusCompleted
	StatusFailed    = moderation.StatusFailed

	ContentText  = moderation.ContentText
	ContentImage = moderation.ContentImage

	ClassificationSafe       = moderation.ClassificationSafe
	ClassificationToxic      = moderation.ClassificationToxic
	ClassificationSpam       = moderation.ClassificationSpam
	ClassificationHarassment = moderation.ClassificationHarassment
	ClassificationUnknown    = moderation.ClassificationUnknown

	ChannelSlack = moderation.ChannelSlack
	ChannelEmail = moderation.ChannelEmail

	NotificationSuccess = moderation.NotificationSuccess
	NotificationFailed  = moderation.NotificationFailed
)

var (
	NewModerationRequest = moderation.NewModerationRequest
	KnownClassification  = moderation.KnownClassification
)
