package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"permit-portal-api/config"
	"permit-portal-api/models"

	"gorm.io/gorm"
)

// GormRecordStore implements RecordStore on MySQL through gorm.
type GormRecordStore struct {
	db *gorm.DB
}

// NewGormRecordStore wraps db, falling back to config.DB when db is nil.
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	if db == nil {
		db = config.DB
	}
	return &GormRecordStore{db: db}
}

func (s *GormRecordStore) GetApplication(ctx context.Context, applicationID int) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&app).Error; err != nil {
		return nil, notFound(err, "application %d", applicationID)
	}
	return &app, nil
}

func (s *GormRecordStore) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *GormRecordStore) GetSubmission(ctx context.Context, submissionID int) (*models.Submission, error) {
	var submission models.Submission
	if err := s.db.WithContext(ctx).Where("submission_id = ?", submissionID).First(&submission).Error; err != nil {
		return nil, notFound(err, "submission %d", submissionID)
	}
	return &submission, nil
}

func (s *GormRecordStore) ListSubmissionIDsByApplication(ctx context.Context, applicationID int) ([]int, error) {
	var ids []int
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("application_id = ?", applicationID).
		Order("submission_id ASC").
		Pluck("submission_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions for application %d: %w", applicationID, err)
	}
	return ids, nil
}

func (s *GormRecordStore) ListSubmissionIDsByOwner(ctx context.Context, ownerID int) ([]int, error) {
	var ids []int
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("user_id = ?", ownerID).
		Order("submission_id ASC").
		Pluck("submission_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions for user %d: %w", ownerID, err)
	}
	return ids, nil
}

func (s *GormRecordStore) ListDeadlineExpired(ctx context.Context, status models.StatusCode, column DeadlineColumn, now time.Time) ([]models.Submission, error) {
	if !column.Valid() {
		return nil, fmt.Errorf("unknown deadline column %q", column)
	}
	var rows []models.Submission
	err := s.db.WithContext(ctx).
		Where("current_status = ?", status).
		Where(fmt.Sprintf("%s IS NOT NULL AND %s < ?", column, column), now).
		Order("submission_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired %s: %w", column, err)
	}
	return rows, nil
}

func (s *GormRecordStore) UpdateSubmissionStatus(ctx context.Context, submissionID int, update models.SubmissionStatusUpdate) error {
	updates := map[string]interface{}{
		"current_status": update.Status,
		"updated_at":     update.UpdatedAt,
	}
	if update.PaymentDeadline != nil {
		updates["payment_deadline"] = *update.PaymentDeadline
	}
	if update.NewPaymentDeadline != nil {
		updates["newpayment_deadline"] = *update.NewPaymentDeadline
	}
	if update.RevisionDeadline != nil {
		updates["revision_deadline"] = *update.RevisionDeadline
	}
	if update.ApprovedAt != nil {
		updates["approved_at"] = *update.ApprovedAt
	}

	result := s.db.WithContext(ctx).Model(&models.Submission{}).
		Where("submission_id = ?", submissionID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update submission %d: %w", submissionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
	}
	return nil
}

func (s *GormRecordStore) DeleteSubmission(ctx context.Context, submissionID int) error {
	if err := s.db.WithContext(ctx).Where("submission_id = ?", submissionID).Delete(&models.Submission{}).Error; err != nil {
		return fmt.Errorf("failed to delete submission %d: %w", submissionID, err)
	}
	return nil
}

func (s *GormRecordStore) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

func (s *GormRecordStore) ListStatusHistory(ctx context.Context, submissionID int) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	if err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("changed_at ASC, history_id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	return entries, nil
}

func (s *GormRecordStore) LatestStatusHistory(ctx context.Context, submissionID int) (*models.StatusHistoryEntry, error) {
	var entry models.StatusHistoryEntry
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("changed_at DESC, history_id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest status: %w", err)
	}
	return &entry, nil
}

func (s *GormRecordStore) DeleteStatusHistory(ctx context.Context, submissionID int) error {
	if err := s.db.WithContext(ctx).Where("submission_id = ?", submissionID).Delete(&models.StatusHistoryEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete status history: %w", err)
	}
	return nil
}

func (s *GormRecordStore) AppendComment(ctx context.Context, comment *models.Comment) error {
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to append comment: %w", err)
	}
	return nil
}

func (s *GormRecordStore) ListComments(ctx context.Context, submissionID int) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("comment_date DESC, comment_id DESC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *GormRecordStore) DeleteComments(ctx context.Context, submissionID int) error {
	if err := s.db.WithContext(ctx).Where("submission_id = ?", submissionID).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	return nil
}

func (s *GormRecordStore) GetDocument(ctx context.Context, documentID int) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).First(&doc).Error; err != nil {
		return nil, notFound(err, "document %d", documentID)
	}
	return &doc, nil
}

func (s *GormRecordStore) ListDocuments(ctx context.Context, submissionID int) ([]models.Document, error) {
	var docs []models.Document
	if err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("document_id ASC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

func (s *GormRecordStore) InsertDocuments(ctx context.Context, documents []models.Document) error {
	if len(documents) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&documents).Error; err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	return nil
}

func (s *GormRecordStore) DeleteDocuments(ctx context.Context, submissionID int) error {
	if err := s.db.WithContext(ctx).Where("submission_id = ?", submissionID).Delete(&models.Document{}).Error; err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func notFound(err error, format string, args ...interface{}) error {
	subject := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", subject, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", subject, err)
}
