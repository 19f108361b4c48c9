package services

import (
	"errors"
	"fmt"

	"permit-portal-api/repository"
)

var (
	// ErrNotFound means the referenced submission, application or document is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation means the caller must correct its input.
	ErrValidation = errors.New("validation error")
	// ErrInvalidTransition means the status code is unknown or not a legal successor.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrPersistence wraps record store write failures.
	ErrPersistence = errors.New("persistence error")
	// ErrArtifact wraps artifact store failures.
	ErrArtifact = errors.New("artifact error")
	// ErrSubmissionBusy means another operation holds the submission lock.
	ErrSubmissionBusy = errors.New("submission is busy")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invalidTransition(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// persistenceError classifies a record store failure. Missing rows keep their
// NotFound meaning.
func persistenceError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrNotFound, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func artifactError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrArtifact, op, err)
}

// SagaError reports the first fatal step of a multi-step operation. Every saga is
// safe to re-run from the top, so callers retry the whole operation.
type SagaError struct {
	Saga         string
	SubmissionID int
	Step         int
	StepName     string
	Err          error
}

func (e *SagaError) Error() string {
	return fmt.Sprintf("%s failed at step %d (%s) for submission %d: %v", e.Saga, e.Step, e.StepName, e.SubmissionID, e.Err)
}

func (e *SagaError) Unwrap() error {
	return e.Err
}

// Retryable reports whether re-running the saga can succeed without new input.
func (e *SagaError) Retryable() bool {
	return errors.Is(e.Err, ErrPersistence) || errors.Is(e.Err, ErrArtifact) || errors.Is(e.Err, ErrSubmissionBusy)
}

// ArtifactWarning records a best-effort blob delete that failed without aborting.
type ArtifactWarning struct {
	DocumentID int    `json:"document_id"`
	Path       string `json:"path,omitempty"`
	FileLink   string `json:"file_link"`
	Error      string `json:"error"`
}

func notFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
