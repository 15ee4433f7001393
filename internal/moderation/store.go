package moderation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"gorm.io/gorm"
)

// Store is the durable record of requests, results, and notification
// attempts. Each method is one transaction boundary; the pipeline as a
// whole is deliberately not a single transaction.
type Store interface {
	// FindRequestByFingerprint returns the request carrying the given
	// fingerprint with its result preloaded, or nil when absent.
	FindRequestByFingerprint(ctx context.Context, fingerprint string) (*models.ModerationRequest, error)

	// CreateRequest inserts a pending request row. A unique-constraint
	// violation on the fingerprint is reported as ErrDuplicateRequest.
	CreateRequest(ctx context.Context, req *models.ModerationRequest) error

	// CompleteRequest writes the result and marks the request completed in
	// one transaction. The result is immutable once written.
	CompleteRequest(ctx context.Context, req *models.ModerationRequest, res *models.ModerationResult) error

	// MarkRequestFailed transitions the request to failed. No result row exists.
	MarkRequestFailed(ctx context.Context, id uuid.UUID) error

	// FindResultByRequestID returns the result for a request, or nil when absent.
	FindResultByRequestID(ctx context.Context, id uuid.UUID) (*models.ModerationResult, error)

	// AppendNotificationLog records one notification delivery attempt.
	AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error
}

// ErrDuplicateRequest signals a fingerprint uniqueness violation, raised
// when two identical submissions race. Callers resolve it by re-fetching.
var ErrDuplicateRequest = errors.New("request with this fingerprint already exists")

type gormStore struct {
	db *gorm.DB
}

// NewStore builds the GORM-backed store over PostgreSQL.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) FindRequestByFingerprint(ctx context.Context, fingerprint string) (*models.ModerationRequest, error) {
	var req models.ModerationRequest
	err := s.db.WithContext(ctx).
		Preload("Result").
		Where("content_hash = ?", fingerprint).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *gormStore) CreateRequest(ctx context.Context, req *models.ModerationRequest) error {
	err := s.db.WithContext(ctx).Create(req).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate") {
		return ErrDuplicateRequest
	}
	return err
}

func (s *gormStore) CompleteRequest(ctx context.Context, req *models.ModerationRequest, res *models.ModerationResult) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(res).Error; err != nil {
			return err
		}
		return tx.Model(&models.ModerationRequest{}).
			Where("id = ?", req.ID).
			Update("status", models.StatusCompleted).Error
	})
}

func (s *gormStore) MarkRequestFailed(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.ModerationRequest{}).
		Where("id = ?", id).
		Update("status", models.StatusFailed).Error
}

func (s *gormStore) FindResultByRequestID(ctx context.Context, id uuid.UUID) (*models.ModerationResult, error) {
	var res models.ModerationResult
	err := s.db.WithContext(ctx).
		Where("request_id = ?", id).
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *gormStore) AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}
