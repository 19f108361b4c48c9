// Package repository holds the record store used by the workflow services: the
// submissions, status_history, comments and documents tables plus the read-only
// applications catalog.
//
// No implementation is required to offer cross-table transactions; callers order
// their writes and rely on idempotent deletes instead.
package repository

import (
	"context"
	"errors"
	"time"

	"permit-portal-api/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// RecordStore is the relational store collaborator.
type RecordStore interface {
	GetApplication(ctx context.Context, applicationID int) (*models.Application, error)

	CreateSubmission(ctx context.Context, submission *models.Submission) error
	GetSubmission(ctx context.Context, submissionID int) (*models.Submission, error)
	ListSubmissionIDsByApplication(ctx context.Context, applicationID int) ([]int, error)
	ListSubmissionIDsByOwner(ctx context.Context, ownerID int) ([]int, error)
	// ListDeadlineExpired returns submissions currently in status whose deadline
	// column is set and earlier than now.
	ListDeadlineExpired(ctx context.Context, status models.StatusCode, column DeadlineColumn, now time.Time) ([]models.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, submissionID int, update models.SubmissionStatusUpdate) error
	DeleteSubmission(ctx context.Context, submissionID int) error

	AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	// ListStatusHistory returns entries oldest first.
	ListStatusHistory(ctx context.Context, submissionID int) ([]models.StatusHistoryEntry, error)
	// LatestStatusHistory returns nil without error when the ledger is empty.
	LatestStatusHistory(ctx context.Context, submissionID int) (*models.StatusHistoryEntry, error)
	DeleteStatusHistory(ctx context.Context, submissionID int) error

	AppendComment(ctx context.Context, comment *models.Comment) error
	// ListComments returns comments newest first.
	ListComments(ctx context.Context, submissionID int) ([]models.Comment, error)
	DeleteComments(ctx context.Context, submissionID int) error

	GetDocument(ctx context.Context, documentID int) (*models.Document, error)
	ListDocuments(ctx context.Context, submissionID int) ([]models.Document, error)
	// InsertDocuments writes all rows in a single batch.
	InsertDocuments(ctx context.Context, documents []models.Document) error
	DeleteDocuments(ctx context.Context, submissionID int) error
}

// DeadlineColumn names one of the submission deadline columns.
type DeadlineColumn string

const (
	PaymentDeadlineColumn    DeadlineColumn = "payment_deadline"
	NewPaymentDeadlineColumn DeadlineColumn = "newpayment_deadline"
	RevisionDeadlineColumn   DeadlineColumn = "revision_deadline"
)

// Valid reports whether c is a known deadline column.
func (c DeadlineColumn) Valid() bool {
	switch c {
	case PaymentDeadlineColumn, NewPaymentDeadlineColumn, RevisionDeadlineColumn:
		return true
	}
	return false
}
