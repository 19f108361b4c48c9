package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"permit-portal-api/models"
	"permit-portal-api/repository"
	"permit-portal-api/storage"
	"permit-portal-api/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const intakeSaga = "intake"

// CreateSubmissionInput carries the applicant fields of a new submission.
type CreateSubmissionInput struct {
	ApplicationID int      `json:"application_id" validate:"required,gt=0"`
	OwnerID       int      `json:"user_id" validate:"required,gt=0"`
	FullName      string   `json:"full_name" validate:"required,max=255"`
	ContactNumber string   `json:"contact_number" validate:"required,max=32"`
	Address       string   `json:"address" validate:"required,max=1000"`
	Purpose       string   `json:"purpose" validate:"required,max=2000"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// CreatedSubmission is a stored submission with its first ledger entry.
type CreatedSubmission struct {
	Submission models.Submission         `json:"submission"`
	Documents  []models.Document         `json:"documents"`
	History    models.StatusHistoryEntry `json:"history"`
}

// SubmissionIntake files new submissions in status Submitted.
type SubmissionIntake struct {
	records   repository.RecordStore
	artifacts storage.ArtifactStore
	history   *StatusLedger
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewSubmissionIntake(records repository.RecordStore, artifacts storage.ArtifactStore, logger *zap.Logger) *SubmissionIntake {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionIntake{
		records:   records,
		artifacts: artifacts,
		history:   NewStatusLedger(records),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (i *SubmissionIntake) WithClock(now func() time.Time) *SubmissionIntake {
	i.now = now
	return i
}

// Create stores the submission, uploads its documents and writes the initial
// Submitted history entry.
func (i *SubmissionIntake) Create(ctx context.Context, input CreateSubmissionInput, files []NewFile) (result *CreatedSubmission, err error) {
	sagaID := uuid.NewString()
	ctx, span := startSpan(ctx, "submissions.create",
		attribute.Int("application.id", input.ApplicationID),
		attribute.String("saga.id", sagaID),
	)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		SagaRunsTotal.WithLabelValues(intakeSaga, outcome).Inc()
		finishSpan(span, err)
	}()

	input.FullName = utils.SanitizeInput(input.FullName)
	input.ContactNumber = utils.SanitizeInput(input.ContactNumber)
	input.Address = utils.SanitizeInput(input.Address)
	input.Purpose = utils.SanitizeInput(input.Purpose)
	if err := i.validate.Struct(input); err != nil {
		return nil, validationError("%s", describeValidation(err))
	}

	prepared, err := prepareFiles(files)
	if err != nil {
		return nil, err
	}

	if _, err := i.Application(ctx, input.ApplicationID); err != nil {
		return nil, err
	}

	now := i.now()
	submission := models.Submission{
		ApplicationID: input.ApplicationID,
		OwnerID:       input.OwnerID,
		CurrentStatus: models.StatusSubmitted,
		FullName:      input.FullName,
		ContactNumber: input.ContactNumber,
		Address:       input.Address,
		Purpose:       input.Purpose,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := i.records.CreateSubmission(ctx, &submission); err != nil {
		return nil, persistenceError("create submission", err)
	}

	log := i.logger.With(zap.String("saga", intakeSaga), zap.String("saga_id", sagaID), zap.Int("submission_id", submission.SubmissionID))
	fail := func(step int, name string, cause error) error {
		SagaStepFailuresTotal.WithLabelValues(intakeSaga, name).Inc()
		log.Error("intake step failed", zap.Int("step", step), zap.String("step_name", name), zap.Error(cause))
		return &SagaError{Saga: intakeSaga, SubmissionID: submission.SubmissionID, Step: step, StepName: name, Err: cause}
	}

	docs, err := uploadFiles(ctx, i.artifacts, submission.SubmissionID, prepared, now)
	if err != nil {
		return nil, fail(2, "upload_files", err)
	}
	if len(docs) > 0 {
		if err := i.records.InsertDocuments(ctx, docs); err != nil {
			return nil, fail(3, "insert_documents", persistenceError("insert documents", err))
		}
	}

	entry := models.StatusHistoryEntry{
		SubmissionID: submission.SubmissionID,
		StatusCode:   models.StatusSubmitted,
		Remarks:      RenderRemarks(models.StatusSubmitted, RemarkParams{Now: now}),
		ChangedBy:    &input.OwnerID,
		ChangedAt:    now,
	}
	if err := i.history.Append(ctx, &entry); err != nil {
		return nil, fail(4, "append_status_history", err)
	}

	log.Info("submission created", zap.Int("application_id", input.ApplicationID), zap.Int("documents", len(docs)))
	return &CreatedSubmission{Submission: submission, Documents: docs, History: entry}, nil
}

func describeValidation(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// Application returns the catalog entry applicants file against.
func (i *SubmissionIntake) Application(ctx context.Context, applicationID int) (*models.Application, error) {
	app, err := i.records.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("application %d", applicationID)
		}
		return nil, persistenceError("load application", err)
	}
	return app, nil
}
