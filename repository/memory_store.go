package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"permit-portal-api/models"
)

// MemoryRecordStore is a process-local RecordStore used for local development
// (database.driver=memory) and tests. Rows are copied on the way in and out.
type MemoryRecordStore struct {
	mu sync.RWMutex

	applications map[int]models.Application
	submissions  map[int]models.Submission
	history      map[int]models.StatusHistoryEntry
	comments     map[int]models.Comment
	documents    map[int]models.Document

	nextSubmissionID int
	nextHistoryID    int
	nextCommentID    int
	nextDocumentID   int
}

// NewMemoryRecordStore returns an empty store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		applications: make(map[int]models.Application),
		submissions:  make(map[int]models.Submission),
		history:      make(map[int]models.StatusHistoryEntry),
		comments:     make(map[int]models.Comment),
		documents:    make(map[int]models.Document),
	}
}

// PutApplication seeds a catalog entry.
func (m *MemoryRecordStore) PutApplication(app models.Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app.Requirements = append([]string(nil), app.Requirements...)
	m.applications[app.ApplicationID] = app
}

func (m *MemoryRecordStore) GetApplication(_ context.Context, applicationID int) (*models.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.applications[applicationID]
	if !ok {
		return nil, fmt.Errorf("application %d: %w", applicationID, ErrNotFound)
	}
	app.Requirements = append([]string(nil), app.Requirements...)
	return &app, nil
}

func (m *MemoryRecordStore) CreateSubmission(_ context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if submission.SubmissionID == 0 {
		m.nextSubmissionID++
		submission.SubmissionID = m.nextSubmissionID
	} else if submission.SubmissionID > m.nextSubmissionID {
		m.nextSubmissionID = submission.SubmissionID
	}
	if _, exists := m.submissions[submission.SubmissionID]; exists {
		return fmt.Errorf("submission %d already exists", submission.SubmissionID)
	}
	m.submissions[submission.SubmissionID] = *submission
	return nil
}

func (m *MemoryRecordStore) GetSubmission(_ context.Context, submissionID int) (*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[submissionID]
	if !ok {
		return nil, fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
	}
	return &sub, nil
}

func (m *MemoryRecordStore) ListSubmissionIDsByApplication(_ context.Context, applicationID int) ([]int, error) {
	return m.submissionIDs(func(s models.Submission) bool { return s.ApplicationID == applicationID }), nil
}

func (m *MemoryRecordStore) ListSubmissionIDsByOwner(_ context.Context, ownerID int) ([]int, error) {
	return m.submissionIDs(func(s models.Submission) bool { return s.OwnerID == ownerID }), nil
}

func (m *MemoryRecordStore) submissionIDs(match func(models.Submission) bool) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int, 0)
	for id, sub := range m.submissions {
		if match(sub) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func (m *MemoryRecordStore) ListDeadlineExpired(_ context.Context, status models.StatusCode, column DeadlineColumn, now time.Time) ([]models.Submission, error) {
	if !column.Valid() {
		return nil, fmt.Errorf("unknown deadline column %q", column)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]models.Submission, 0)
	for _, sub := range m.submissions {
		if sub.CurrentStatus != status {
			continue
		}
		var deadline *time.Time
		switch column {
		case PaymentDeadlineColumn:
			deadline = sub.PaymentDeadline
		case NewPaymentDeadlineColumn:
			deadline = sub.NewPaymentDeadline
		case RevisionDeadlineColumn:
			deadline = sub.RevisionDeadline
		}
		if deadline != nil && deadline.Before(now) {
			rows = append(rows, sub)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubmissionID < rows[j].SubmissionID })
	return rows, nil
}

func (m *MemoryRecordStore) UpdateSubmissionStatus(_ context.Context, submissionID int, update models.SubmissionStatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[submissionID]
	if !ok {
		return fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
	}
	sub.CurrentStatus = update.Status
	sub.UpdatedAt = update.UpdatedAt
	if update.PaymentDeadline != nil {
		sub.PaymentDeadline = timePtr(*update.PaymentDeadline)
	}
	if update.NewPaymentDeadline != nil {
		sub.NewPaymentDeadline = timePtr(*update.NewPaymentDeadline)
	}
	if update.RevisionDeadline != nil {
		sub.RevisionDeadline = timePtr(*update.RevisionDeadline)
	}
	if update.ApprovedAt != nil {
		sub.ApprovedAt = timePtr(*update.ApprovedAt)
	}
	m.submissions[submissionID] = sub
	return nil
}

func (m *MemoryRecordStore) DeleteSubmission(_ context.Context, submissionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.submissions, submissionID)
	return nil
}

func (m *MemoryRecordStore) AppendStatusHistory(_ context.Context, entry *models.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHistoryID++
	entry.HistoryID = m.nextHistoryID
	m.history[entry.HistoryID] = *entry
	return nil
}

func (m *MemoryRecordStore) ListStatusHistory(_ context.Context, submissionID int) ([]models.StatusHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]models.StatusHistoryEntry, 0)
	for _, e := range m.history {
		if e.SubmissionID == submissionID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ChangedAt.Equal(entries[j].ChangedAt) {
			return entries[i].ChangedAt.Before(entries[j].ChangedAt)
		}
		return entries[i].HistoryID < entries[j].HistoryID
	})
	return entries, nil
}

func (m *MemoryRecordStore) LatestStatusHistory(ctx context.Context, submissionID int) (*models.StatusHistoryEntry, error) {
	entries, err := m.ListStatusHistory(ctx, submissionID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	latest := entries[len(entries)-1]
	return &latest, nil
}

func (m *MemoryRecordStore) DeleteStatusHistory(_ context.Context, submissionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.history {
		if e.SubmissionID == submissionID {
			delete(m.history, id)
		}
	}
	return nil
}

func (m *MemoryRecordStore) AppendComment(_ context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCommentID++
	comment.CommentID = m.nextCommentID
	m.comments[comment.CommentID] = *comment
	return nil
}

func (m *MemoryRecordStore) ListComments(_ context.Context, submissionID int) ([]models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	comments := make([]models.Comment, 0)
	for _, c := range m.comments {
		if c.SubmissionID == submissionID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CommentDate.Equal(comments[j].CommentDate) {
			return comments[i].CommentDate.After(comments[j].CommentDate)
		}
		return comments[i].CommentID > comments[j].CommentID
	})
	return comments, nil
}

func (m *MemoryRecordStore) DeleteComments(_ context.Context, submissionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.comments {
		if c.SubmissionID == submissionID {
			delete(m.comments, id)
		}
	}
	return nil
}

func (m *MemoryRecordStore) GetDocument(_ context.Context, documentID int) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[documentID]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", documentID, ErrNotFound)
	}
	return &doc, nil
}

func (m *MemoryRecordStore) ListDocuments(_ context.Context, submissionID int) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]models.Document, 0)
	for _, d := range m.documents {
		if d.SubmissionID != nil && *d.SubmissionID == submissionID {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocumentID < docs[j].DocumentID })
	return docs, nil
}

func (m *MemoryRecordStore) InsertDocuments(_ context.Context, documents []models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range documents {
		m.nextDocumentID++
		documents[i].DocumentID = m.nextDocumentID
		m.documents[documents[i].DocumentID] = documents[i]
	}
	return nil
}

func (m *MemoryRecordStore) DeleteDocuments(_ context.Context, submissionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.documents {
		if d.SubmissionID != nil && *d.SubmissionID == submissionID {
			delete(m.documents, id)
		}
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

var _ RecordStore = (*MemoryRecordStore)(nil)
var _ RecordStore = (*GormRecordStore)(nil)
