// Package analytics provides read-only reporting over the persisted
// moderation state. It carries no pipeline logic.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"gorm.io/gorm"
)

// ActivityItem is one row of a user's recent request history.
type ActivityItem struct {
	RequestID      uuid.UUID             `json:"request_id"`
	ContentType    models.ContentType    `json:"content_type"`
	Status         models.ContentStatus  `json:"status"`
	CreatedAt      time.Time             `json:"created_at"`
	Classification models.Classification `json:"classification,omitempty"`
	Confidence     float64               `json:"confidence,omitempty"`
	LLMProvider    string                `json:"llm_provider,omitempty"`
}

// UserSummary aggregates one submitter's moderation history.
type UserSummary struct {
	UserEmail               string         `json:"user_email"`
	TotalRequests           int64          `json:"total_requests"`
	CompletedRequests       int64          `json:"completed_requests"`
	FailedRequests          int64          `json:"failed_requests"`
	ClassificationBreakdown map[string]int `json:"classification_breakdown"`
	RecentActivity          []ActivityItem `json:"recent_activity"`
	LastRequestDate         *time.Time     `json:"last_request_date"`
}

// SystemSummary aggregates system-wide counters.
type SystemSummary struct {
	TotalRequests           int64          `json:"total_requests"`
	StatusBreakdown         map[string]int `json:"status_breakdown"`
	ClassificationBreakdown map[string]int `json:"classification_breakdown"`
	RecentRequests24h       int64          `json:"recent_requests_24h"`
}

// Service answers analytics queries straight from the database.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type groupCount struct {
	Key   string
	Count int
}

// GetUserSummary builds the per-submitter summary: totals by status, the
// label breakdown of completed requests, and the ten most recent requests.
func (s *Service) GetUserSummary(ctx context.Context, userEmail string) (*UserSummary, error) {
	summary := &UserSummary{
		UserEmail:               userEmail,
		ClassificationBreakdown: map[string]int{},
		RecentActivity:          []ActivityItem{},
	}

	base := s.db.WithContext(ctx).Model(&models.ModerationRequest{}).Where("user_email = ?", userEmail)

	if err := base.Session(&gorm.Session{}).Count(&summary.TotalRequests).Error; err != nil {
		return nil, err
	}
	if summary.TotalRequests == 0 {
		return summary, nil
	}

	if err := base.Session(&gorm.Session{}).Where("status = ?", models.StatusCompleted).Count(&summary.CompletedRequests).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.StatusFailed).Count(&summary.FailedRequests).Error; err != nil {
		return nil, err
	}

	var labels []groupCount
	err := s.db.WithContext(ctx).Model(&models.ModerationResult{}).
		Select("moderation_results.classification AS key, count(*) AS count").
		Joins("JOIN moderation_requests ON moderation_requests.id = moderation_results.request_id").
		Where("moderation_requests.user_email = ?", userEmail).
		Group("moderation_results.classification").
		Scan(&labels).Error
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		summary.ClassificationBreakdown[l.Key] = l.Count
	}

	var recent []models.ModerationRequest
	err = s.db.WithContext(ctx).
		Preload("Result").
		Where("user_email = ?", userEmail).
		Order("created_at DESC").
		Limit(10).
		Find(&recent).Error
	if err != nil {
		return nil, err
	}
	for _, req := range recent {
		item := ActivityItem{
			RequestID:   req.ID,
			ContentType: req.ContentType,
			Status:      req.Status,
			CreatedAt:   req.CreatedAt,
		}
		if req.Result != nil {
			item.Classification = req.Result.Classification
			item.Confidence = req.Result.Confidence
			item.LLMProvider = req.Result.LLMProvider
		}
		summary.RecentActivity = append(summary.RecentActivity, item)
	}
	if len(recent) > 0 {
		summary.LastRequestDate = &recent[0].CreatedAt
	}

	return summary, nil
}

// GetSystemSummary builds the system-wide counters.
func (s *Service) GetSystemSummary(ctx context.Context) (*SystemSummary, error) {
	summary := &SystemSummary{
		StatusBreakdown:         map[string]int{},
		ClassificationBreakdown: map[string]int{},
	}

	if err := s.db.WithContext(ctx).Model(&models.ModerationRequest{}).Count(&summary.TotalRequests).Error; err != nil {
		return nil, err
	}

	var statuses []groupCount
	err := s.db.WithContext(ctx).Model(&models.ModerationRequest{}).
		Select("status AS key, count(*) AS count").
		Group("status").
		Scan(&statuses).Error
	if err != nil {
		return nil, err
	}
	for _, st := range statuses {
		summary.StatusBreakdown[st.Key] = st.Count
	}

	var labels []groupCount
	err = s.db.WithContext(ctx).Model(&models.ModerationResult{}).
		Select("classification AS key, count(*) AS count").
		Group("classification").
		Scan(&labels).Error
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		summary.ClassificationBreakdown[l.Key] = l.Count
	}

	yesterday := time.Now().Add(-24 * time.Hour)
	err = s.db.WithContext(ctx).Model(&models.ModerationRequest{}).
		Where("created_at >= ?", yesterday).
		Count(&summary.RecentRequests24h).Error
	if err != nil {
		return nil, err
	}

	return summary, nil
}
