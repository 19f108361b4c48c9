package services

import (
	"context"
	"strings"

	"permit-portal-api/models"
	"permit-portal-api/repository"
)

// CommentInput is the optional remark pair attached to a transition.
type CommentInput struct {
	Official *string `json:"official_comment,omitempty"`
	Revision *string `json:"revision_comment,omitempty"`
}

// Empty reports whether neither remark carries text.
func (c *CommentInput) Empty() bool {
	return c == nil || (blank(c.Official) && blank(c.Revision))
}

// HasRevision reports whether a non-blank revision remark is present.
func (c *CommentInput) HasRevision() bool {
	return c != nil && !blank(c.Revision)
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func trimmedOrNil(s *string) *string {
	if blank(s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// CommentLedger stores official and revision remarks.
type CommentLedger struct {
	records repository.RecordStore
}

func NewCommentLedger(records repository.RecordStore) *CommentLedger {
	return &CommentLedger{records: records}
}

// Append stores the remark pair. Blank fields are stored as NULL and at least one
// must be present.
func (l *CommentLedger) Append(ctx context.Context, comment *models.Comment) error {
	comment.OfficialComment = trimmedOrNil(comment.OfficialComment)
	comment.RevisionComment = trimmedOrNil(comment.RevisionComment)
	if !comment.HasOfficial() && !comment.HasRevision() {
		return validationError("comment requires an official or revision remark")
	}
	if err := l.records.AppendComment(ctx, comment); err != nil {
		return persistenceError("append comment", err)
	}
	return nil
}

// List returns comments newest first.
func (l *CommentLedger) List(ctx context.Context, submissionID int) ([]models.Comment, error) {
	comments, err := l.records.ListComments(ctx, submissionID)
	if err != nil {
		return nil, persistenceError("list comments", err)
	}
	return comments, nil
}
