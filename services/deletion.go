package services

import (
	"context"
	"errors"
	"time"

	"permit-portal-api/repository"
	"permit-portal-api/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const deletionSaga = "deletion"

// DeletionResult describes one fully deleted submission.
type DeletionResult struct {
	SubmissionID     int               `json:"submission_id"`
	HistoryRemoved   bool              `json:"history_removed"`
	DocumentsRemoved int               `json:"documents_removed"`
	Warnings         []ArtifactWarning `json:"warnings,omitempty"`
}

// DeletionFailure is a submission the bulk run could not finish.
type DeletionFailure struct {
	SubmissionID int    `json:"submission_id"`
	Step         int    `json:"step,omitempty"`
	StepName     string `json:"step_name,omitempty"`
	Error        string `json:"error"`
}

// DeletionReport summarises a bulk deletion. Failures do not stop the run.
type DeletionReport struct {
	RunID    string            `json:"run_id"`
	Deleted  []DeletionResult  `json:"deleted"`
	Failed   []DeletionFailure `json:"failed"`
	Warnings []ArtifactWarning `json:"warnings,omitempty"`
}

// DeletionService removes submissions together with their history, documents,
// blobs and comments.
type DeletionService struct {
	records   repository.RecordStore
	artifacts storage.ArtifactStore
	locker    SubmissionLocker
	logger    *zap.Logger
}

func NewDeletionService(records repository.RecordStore, artifacts storage.ArtifactStore, locker SubmissionLocker, logger *zap.Logger) *DeletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalLocker(0)
	}
	return &DeletionService{records: records, artifacts: artifacts, locker: locker, logger: logger}
}

// DeleteSubmission runs the cascade for one submission. A second call on a
// deleted id returns ErrNotFound.
func (s *DeletionService) DeleteSubmission(ctx context.Context, submissionID int) (*DeletionResult, error) {
	return s.deleteOne(ctx, uuid.NewString(), submissionID)
}

// DeleteSubmissions deletes every submission filed against an application.
// The catalog entry may already be gone; ErrNotFound means neither the
// application nor any submission for it exists.
func (s *DeletionService) DeleteSubmissions(ctx context.Context, applicationID int) (*DeletionReport, error) {
	ids, err := s.records.ListSubmissionIDsByApplication(ctx, applicationID)
	if err != nil {
		return nil, persistenceError("list submissions", err)
	}
	if len(ids) == 0 {
		if _, err := s.records.GetApplication(ctx, applicationID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFoundError("application %d", applicationID)
			}
			return nil, persistenceError("load application", err)
		}
	}
	return s.deleteMany(ctx, ids, zap.Int("application_id", applicationID))
}

// DeleteSubmissionsForUser deletes every submission owned by userID.
func (s *DeletionService) DeleteSubmissionsForUser(ctx context.Context, userID int) (*DeletionReport, error) {
	ids, err := s.records.ListSubmissionIDsByOwner(ctx, userID)
	if err != nil {
		return nil, persistenceError("list submissions", err)
	}
	return s.deleteMany(ctx, ids, zap.Int("user_id", userID))
}

func (s *DeletionService) deleteMany(ctx context.Context, ids []int, scope zap.Field) (*DeletionReport, error) {
	report := &DeletionReport{
		RunID:   uuid.NewString(),
		Deleted: []DeletionResult{},
		Failed:  []DeletionFailure{},
	}
	log := s.logger.With(zap.String("run_id", report.RunID), scope)
	start := time.Now()

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := s.deleteOne(ctx, report.RunID, id)
		if err != nil {
			// Another caller finished this one first.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			failure := DeletionFailure{SubmissionID: id, Error: err.Error()}
			var sagaErr *SagaError
			if errors.As(err, &sagaErr) {
				failure.Step = sagaErr.Step
				failure.StepName = sagaErr.StepName
			}
			report.Failed = append(report.Failed, failure)
			errs = append(errs, err)
			continue
		}
		report.Deleted = append(report.Deleted, *result)
		report.Warnings = append(report.Warnings, result.Warnings...)
	}

	log.Info("bulk submission deletion finished",
		zap.Int("requested", len(ids)),
		zap.Int("deleted", len(report.Deleted)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("warnings", len(report.Warnings)),
		zap.Duration("duration", time.Since(start)),
	)
	return report, errors.Join(errs...)
}

func (s *DeletionService) deleteOne(ctx context.Context, sagaID string, submissionID int) (result *DeletionResult, err error) {
	log := s.logger.With(zap.String("saga", deletionSaga), zap.String("saga_id", sagaID), zap.Int("submission_id", submissionID))
	ctx, span := startSpan(ctx, "submissions.delete",
		attribute.Int("submission.id", submissionID),
		attribute.String("saga.id", sagaID),
	)
	defer func() {
		outcome := "success"
		switch {
		case errors.Is(err, ErrNotFound):
			outcome = "not_found"
		case err != nil:
			outcome = "failure"
		}
		SagaRunsTotal.WithLabelValues(deletionSaga, outcome).Inc()
		finishSpan(span, err)
	}()

	unlock, err := s.locker.Lock(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.records.GetSubmission(ctx, submissionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("submission %d", submissionID)
		}
		return nil, persistenceError("load submission", err)
	}

	fail := func(step int, name string, cause error) error {
		SagaStepFailuresTotal.WithLabelValues(deletionSaga, name).Inc()
		log.Error("deletion step failed", zap.Int("step", step), zap.String("step_name", name), zap.Error(cause))
		return &SagaError{Saga: deletionSaga, SubmissionID: submissionID, Step: step, StepName: name, Err: cause}
	}

	result = &DeletionResult{SubmissionID: submissionID}

	if err := s.records.DeleteStatusHistory(ctx, submissionID); err != nil {
		return nil, fail(1, "delete_status_history", persistenceError("delete status history", err))
	}
	result.HistoryRemoved = true

	docs, err := s.records.ListDocuments(ctx, submissionID)
	if err != nil {
		return nil, fail(2, "delete_documents", persistenceError("list documents", err))
	}
	result.Warnings = deleteBlobs(ctx, s.artifacts, deletionSaga, docs, log)
	if err := s.records.DeleteDocuments(ctx, submissionID); err != nil {
		return nil, fail(2, "delete_documents", persistenceError("delete documents", err))
	}
	result.DocumentsRemoved = len(docs)

	if err := s.records.DeleteComments(ctx, submissionID); err != nil {
		return nil, fail(3, "delete_comments", persistenceError("delete comments", err))
	}

	if err := s.records.DeleteSubmission(ctx, submissionID); err != nil {
		return nil, fail(4, "delete_submission", persistenceError("delete submission", err))
	}

	log.Info("submission deleted",
		zap.Int("documents", result.DocumentsRemoved),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}
