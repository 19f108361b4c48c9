package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"permit-portal-api/models"
	"permit-portal-api/repository"
	"permit-portal-api/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const resubmissionSaga = "resubmission"

// DocumentSet is the outcome of a successful resubmission.
type DocumentSet struct {
	SubmissionID int                       `json:"submission_id"`
	Documents    []models.Document         `json:"documents"`
	History      models.StatusHistoryEntry `json:"history"`
	Warnings     []ArtifactWarning         `json:"warnings,omitempty"`
}

// DocumentSetManager replaces a submission's documents while it is in
// NeedsRevision.
type DocumentSetManager struct {
	records   repository.RecordStore
	artifacts storage.ArtifactStore
	lifecycle *LifecycleService
	logger    *zap.Logger
	now       func() time.Time
}

func NewDocumentSetManager(records repository.RecordStore, artifacts storage.ArtifactStore, lifecycle *LifecycleService, logger *zap.Logger) *DocumentSetManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentSetManager{
		records:   records,
		artifacts: artifacts,
		lifecycle: lifecycle,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for upload paths.
func (m *DocumentSetManager) WithClock(now func() time.Time) *DocumentSetManager {
	m.now = now
	return m
}

// Resubmit replaces every document of the submission with files and moves it back
// to Submitted. A failure leaves the submission in NeedsRevision; re-running the
// whole call is always safe.
func (m *DocumentSetManager) Resubmit(ctx context.Context, submissionID int, files []NewFile, actorID *int) (result *DocumentSet, err error) {
	sagaID := uuid.NewString()
	log := m.logger.With(zap.String("saga", resubmissionSaga), zap.String("saga_id", sagaID), zap.Int("submission_id", submissionID))

	ctx, span := startSpan(ctx, "documents.resubmit",
		attribute.Int("submission.id", submissionID),
		attribute.String("saga.id", sagaID),
		attribute.Int("files.count", len(files)),
	)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		SagaRunsTotal.WithLabelValues(resubmissionSaga, outcome).Inc()
		finishSpan(span, err)
	}()

	if len(files) == 0 {
		return nil, validationError("at least one file is required")
	}
	prepared, err := prepareFiles(files)
	if err != nil {
		return nil, err
	}

	unlock, err := m.lifecycle.locker.Lock(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := m.lifecycle.loadSubmission(ctx, submissionID); err != nil {
		return nil, err
	}
	current, err := m.lifecycle.history.Current(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if current != models.StatusNeedsRevision {
		return nil, invalidTransition("submission %d is %s; documents can only be resubmitted in %s", submissionID, current, models.StatusNeedsRevision)
	}

	fail := func(step int, name string, cause error) error {
		SagaStepFailuresTotal.WithLabelValues(resubmissionSaga, name).Inc()
		log.Error("resubmission step failed", zap.Int("step", step), zap.String("step_name", name), zap.Error(cause))
		return &SagaError{Saga: resubmissionSaga, SubmissionID: submissionID, Step: step, StepName: name, Err: cause}
	}

	existing, err := m.records.ListDocuments(ctx, submissionID)
	if err != nil {
		return nil, fail(1, "list_documents", persistenceError("list documents", err))
	}

	warnings := deleteBlobs(ctx, m.artifacts, resubmissionSaga, existing, log)

	if err := m.records.DeleteDocuments(ctx, submissionID); err != nil {
		return nil, fail(3, "delete_documents", persistenceError("delete documents", err))
	}

	now := m.now()
	docs, err := uploadFiles(ctx, m.artifacts, submissionID, prepared, now)
	if err != nil {
		return nil, fail(4, "upload_files", err)
	}

	if err := m.records.InsertDocuments(ctx, docs); err != nil {
		return nil, fail(5, "insert_documents", persistenceError("insert documents", err))
	}

	transition, err := m.lifecycle.transitionLocked(ctx, TransitionInput{
		SubmissionID:    submissionID,
		Status:          models.StatusSubmitted,
		ActorID:         actorID,
		Note:            fmt.Sprintf("%d document(s) resubmitted.", len(docs)),
		viaResubmission: true,
	})
	if err != nil {
		return nil, fail(6, "transition_submitted", err)
	}

	log.Info("documents resubmitted",
		zap.Int("removed", len(existing)),
		zap.Int("uploaded", len(docs)),
		zap.Int("warnings", len(warnings)),
	)

	return &DocumentSet{
		SubmissionID: submissionID,
		Documents:    docs,
		History:      transition.History,
		Warnings:     warnings,
	}, nil
}

// DocumentURL resolves a stored document to a URL the client can fetch it from.
func (m *DocumentSetManager) DocumentURL(ctx context.Context, documentID int) (*models.Document, string, error) {
	doc, err := m.Document(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	url, err := m.LinkURL(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	return doc, url, nil
}

// Document loads a document row without touching the artifact store.
func (m *DocumentSetManager) Document(ctx context.Context, documentID int) (*models.Document, error) {
	doc, err := m.records.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("document %d", documentID)
		}
		return nil, persistenceError("load document", err)
	}
	return doc, nil
}

// LinkURL resolves the fetchable URL of a stored document.
func (m *DocumentSetManager) LinkURL(ctx context.Context, doc *models.Document) (string, error) {
	objectPath, err := m.artifacts.PathFromLink(doc.FileLink)
	if err != nil {
		return "", artifactError("resolve document link", err)
	}
	url, err := m.artifacts.URL(ctx, objectPath)
	if err != nil {
		return "", artifactError("resolve document url", err)
	}
	return url, nil
}
