package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"permit-portal-api/models"
	"permit-portal-api/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DeadlineWindows are the default offsets applied when a transition that sets a
// deadline is not given one.
type DeadlineWindows struct {
	Payment  time.Duration
	Renotice time.Duration
	Revision time.Duration
}

func DefaultDeadlineWindows() DeadlineWindows {
	return DeadlineWindows{
		Payment:  7 * 24 * time.Hour,
		Renotice: 3 * 24 * time.Hour,
		Revision: 14 * 24 * time.Hour,
	}
}

// Deadlines are caller-supplied deadline values. Only the one matching the target
// status is used.
type Deadlines struct {
	PaymentDeadline    *time.Time `json:"payment_deadline,omitempty"`
	NewPaymentDeadline *time.Time `json:"newpayment_deadline,omitempty"`
	RevisionDeadline   *time.Time `json:"revision_deadline,omitempty"`
}

type TransitionInput struct {
	SubmissionID int
	Status       models.StatusCode
	ActorID      *int
	Deadlines    Deadlines
	Comment      *CommentInput
	// ExpectedStatus, when set, makes the transition fail unless the submission
	// is still in that status.
	ExpectedStatus *models.StatusCode
	// Note is appended to the rendered remarks.
	Note string

	viaResubmission bool
}

// TransitionResult is what a committed transition wrote.
type TransitionResult struct {
	SubmissionID int                           `json:"submission_id"`
	From         models.StatusCode             `json:"from_status"`
	To           models.StatusCode             `json:"to_status"`
	History      models.StatusHistoryEntry     `json:"history"`
	Comment      *models.Comment               `json:"comment,omitempty"`
	Update       models.SubmissionStatusUpdate `json:"-"`
}

// LifecycleService moves submissions between statuses and keeps the status
// ledger, the comment ledger and the submission row in step.
type LifecycleService struct {
	records  repository.RecordStore
	history  *StatusLedger
	comments *CommentLedger
	locker   SubmissionLocker
	windows  DeadlineWindows
	logger   *zap.Logger
	now      func() time.Time
}

func NewLifecycleService(records repository.RecordStore, locker SubmissionLocker, windows DeadlineWindows, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalLocker(0)
	}
	return &LifecycleService{
		records:  records,
		history:  NewStatusLedger(records),
		comments: NewCommentLedger(records),
		locker:   locker,
		windows:  windows,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// Transition validates and records a status change.
func (s *LifecycleService) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	input.viaResubmission = false
	return s.transition(ctx, input)
}

// CompleteInspection records the end of an on-site inspection.
func (s *LifecycleService) CompleteInspection(ctx context.Context, submissionID int, actorID *int, comment *CommentInput) (*TransitionResult, error) {
	inspecting := models.StatusInspecting
	return s.Transition(ctx, TransitionInput{
		SubmissionID:   submissionID,
		Status:         models.StatusInspected,
		ActorID:        actorID,
		Comment:        comment,
		ExpectedStatus: &inspecting,
	})
}

func (s *LifecycleService) transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	unlock, err := s.locker.Lock(ctx, input.SubmissionID)
	if err != nil {
		TransitionRejectionsTotal.WithLabelValues(errorReason(err)).Inc()
		return nil, err
	}
	defer unlock()
	return s.transitionLocked(ctx, input)
}

// transitionLocked expects the caller to hold the submission lock.
func (s *LifecycleService) transitionLocked(ctx context.Context, input TransitionInput) (result *TransitionResult, err error) {
	ctx, span := startSpan(ctx, "lifecycle.transition",
		attribute.Int("submission.id", input.SubmissionID),
		attribute.Int("status.target", int(input.Status)),
	)
	defer func() {
		if err != nil {
			TransitionRejectionsTotal.WithLabelValues(errorReason(err)).Inc()
		}
		finishSpan(span, err)
	}()

	log := s.logger.With(zap.Int("submission_id", input.SubmissionID), zap.Int("target_status", int(input.Status)))

	submission, err := s.loadSubmission(ctx, input.SubmissionID)
	if err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, invalidTransition("unknown status code %d", int(input.Status))
	}

	current, err := s.history.Current(ctx, input.SubmissionID)
	if err != nil {
		return nil, err
	}
	// A previous attempt recorded the entry but never reached the row.
	if current == input.Status && submission.CurrentStatus != current &&
		(input.ExpectedStatus == nil || *input.ExpectedStatus == submission.CurrentStatus) {
		return s.repairMirror(ctx, log, submission, input)
	}
	if input.ExpectedStatus != nil && *input.ExpectedStatus != current {
		return nil, invalidTransition("submission %d is %s, expected %s", input.SubmissionID, current, *input.ExpectedStatus)
	}
	if input.Status == models.StatusSubmitted && !input.viaResubmission {
		return nil, invalidTransition("%s can only be re-entered by resubmitting documents", models.StatusSubmitted)
	}
	if !CanTransition(current, input.Status) {
		return nil, invalidTransition("cannot move from %s to %s", current, input.Status)
	}
	if input.Status == models.StatusNeedsRevision && !input.Comment.HasRevision() {
		return nil, validationError("a revision remark is required for %s", models.StatusNeedsRevision)
	}
	if input.Comment != nil && input.Comment.Empty() {
		return nil, validationError("comment requires an official or revision remark")
	}

	now := s.now()
	update := s.resolveDeadlines(input.Status, input.Deadlines, now)

	remarks := RenderRemarks(input.Status, RemarkParams{
		Now:                now,
		PaymentDeadline:    update.PaymentDeadline,
		NewPaymentDeadline: update.NewPaymentDeadline,
		RevisionDeadline:   update.RevisionDeadline,
	})
	if note := strings.TrimSpace(input.Note); note != "" {
		remarks = strings.TrimSpace(remarks + " " + note)
	}

	entry := models.StatusHistoryEntry{
		SubmissionID: input.SubmissionID,
		StatusCode:   input.Status,
		Remarks:      remarks,
		ChangedBy:    input.ActorID,
		ChangedAt:    now,
	}
	if err := s.history.Append(ctx, &entry); err != nil {
		log.Error("failed to append status history", zap.Error(err))
		return nil, err
	}

	var comment *models.Comment
	if input.Comment != nil {
		historyID := entry.HistoryID
		comment = &models.Comment{
			SubmissionID:    input.SubmissionID,
			HistoryID:       &historyID,
			OfficialComment: input.Comment.Official,
			RevisionComment: input.Comment.Revision,
			CommentDate:     now,
		}
		if err := s.comments.Append(ctx, comment); err != nil {
			log.Error("failed to append comment", zap.Int("history_id", entry.HistoryID), zap.Error(err))
			return nil, err
		}
	}

	if err := s.records.UpdateSubmissionStatus(ctx, input.SubmissionID, update); err != nil {
		log.Error("failed to update submission status", zap.Int("history_id", entry.HistoryID), zap.Error(err))
		return nil, persistenceError("update submission status", err)
	}

	TransitionsTotal.WithLabelValues(current.String(), input.Status.String()).Inc()
	log.Info("status transition recorded",
		zap.String("from", current.String()),
		zap.String("to", input.Status.String()),
		zap.Int("history_id", entry.HistoryID),
	)

	return &TransitionResult{
		SubmissionID: input.SubmissionID,
		From:         current,
		To:           input.Status,
		History:      entry,
		Comment:      comment,
		Update:       update,
	}, nil
}

// repairMirror re-applies the row update for the latest ledger entry. Default
// deadlines are measured from that entry so they match its remark.
func (s *LifecycleService) repairMirror(ctx context.Context, log *zap.Logger, submission *models.Submission, input TransitionInput) (*TransitionResult, error) {
	latest, err := s.records.LatestStatusHistory(ctx, submission.SubmissionID)
	if err != nil {
		return nil, persistenceError("load latest status", err)
	}
	if latest == nil {
		return nil, invalidTransition("submission %d has no status history", submission.SubmissionID)
	}
	update := s.resolveDeadlines(latest.StatusCode, input.Deadlines, latest.ChangedAt)
	update.UpdatedAt = s.now()
	if err := s.records.UpdateSubmissionStatus(ctx, submission.SubmissionID, update); err != nil {
		log.Error("failed to repair submission status", zap.Int("history_id", latest.HistoryID), zap.Error(err))
		return nil, persistenceError("update submission status", err)
	}

	log.Warn("submission status mirror repaired",
		zap.String("row_status", submission.CurrentStatus.String()),
		zap.String("ledger_status", latest.StatusCode.String()),
		zap.Int("history_id", latest.HistoryID),
	)
	return &TransitionResult{
		SubmissionID: submission.SubmissionID,
		From:         submission.CurrentStatus,
		To:           latest.StatusCode,
		History:      *latest,
		Update:       update,
	}, nil
}

func (s *LifecycleService) resolveDeadlines(status models.StatusCode, given Deadlines, now time.Time) models.SubmissionStatusUpdate {
	update := models.SubmissionStatusUpdate{Status: status, UpdatedAt: now}

	pick := func(value *time.Time, window time.Duration) *time.Time {
		t := now.Add(window)
		if value != nil {
			t = *value
		}
		return &t
	}

	switch status {
	case models.StatusPaymentPending:
		update.PaymentDeadline = pick(given.PaymentDeadline, s.windows.Payment)
	case models.StatusPaymentFailed:
		update.NewPaymentDeadline = pick(given.NewPaymentDeadline, s.windows.Renotice)
	case models.StatusNeedsRevision:
		update.RevisionDeadline = pick(given.RevisionDeadline, s.windows.Revision)
	case models.StatusApproved:
		approvedAt := now
		update.ApprovedAt = &approvedAt
	}
	return update
}

func (s *LifecycleService) loadSubmission(ctx context.Context, submissionID int) (*models.Submission, error) {
	submission, err := s.records.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("submission %d", submissionID)
		}
		return nil, persistenceError("load submission", err)
	}
	return submission, nil
}

// CurrentStatus folds the status ledger of an existing submission.
func (s *LifecycleService) CurrentStatus(ctx context.Context, submissionID int) (models.StatusCode, error) {
	if _, err := s.loadSubmission(ctx, submissionID); err != nil {
		return 0, err
	}
	return s.history.Current(ctx, submissionID)
}

// ListHistory returns the status ledger oldest first.
func (s *LifecycleService) ListHistory(ctx context.Context, submissionID int) ([]models.StatusHistoryEntry, error) {
	if _, err := s.loadSubmission(ctx, submissionID); err != nil {
		return nil, err
	}
	return s.history.List(ctx, submissionID)
}

// ListComments returns the comment ledger newest first.
func (s *LifecycleService) ListComments(ctx context.Context, submissionID int) ([]models.Comment, error) {
	if _, err := s.loadSubmission(ctx, submissionID); err != nil {
		return nil, err
	}
	return s.comments.List(ctx, submissionID)
}

// ListDocuments returns the documents currently attached to a submission.
func (s *LifecycleService) ListDocuments(ctx context.Context, submissionID int) ([]models.Document, error) {
	if _, err := s.loadSubmission(ctx, submissionID); err != nil {
		return nil, err
	}
	docs, err := s.records.ListDocuments(ctx, submissionID)
	if err != nil {
		return nil, persistenceError("list documents", err)
	}
	return docs, nil
}

// GetSubmission returns the stored submission row.
func (s *LifecycleService) GetSubmission(ctx context.Context, submissionID int) (*models.Submission, error) {
	return s.loadSubmission(ctx, submissionID)
}
