package repository

import (
	"context"
	"testing"
	"time"

	"permit-portal-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreHistoryOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	// Appended out of order; same timestamp falls back to insertion order.
	require.NoError(t, store.AppendStatusHistory(ctx, &models.StatusHistoryEntry{SubmissionID: 1, StatusCode: models.StatusUnderReview, ChangedAt: base.Add(time.Hour)}))
	require.NoError(t, store.AppendStatusHistory(ctx, &models.StatusHistoryEntry{SubmissionID: 1, StatusCode: models.StatusSubmitted, ChangedAt: base}))
	require.NoError(t, store.AppendStatusHistory(ctx, &models.StatusHistoryEntry{SubmissionID: 1, StatusCode: models.StatusNeedsRevision, ChangedAt: base.Add(time.Hour)}))
	require.NoError(t, store.AppendStatusHistory(ctx, &models.StatusHistoryEntry{SubmissionID: 2, StatusCode: models.StatusSubmitted, ChangedAt: base}))

	entries, err := store.ListStatusHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.StatusSubmitted, entries[0].StatusCode)
	assert.Equal(t, models.StatusUnderReview, entries[1].StatusCode)
	assert.Equal(t, models.StatusNeedsRevision, entries[2].StatusCode)

	latest, err := store.LatestStatusHistory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsRevision, latest.StatusCode)

	none, err := store.LatestStatusHistory(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryStoreUpdateKeepsUnsetDeadlines(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	deadline := time.Date(2024, 6, 9, 9, 30, 0, 0, time.UTC)

	sub := &models.Submission{ApplicationID: 1, OwnerID: 7, CurrentStatus: models.StatusUnderReview}
	require.NoError(t, store.CreateSubmission(ctx, sub))
	require.NoError(t, store.UpdateSubmissionStatus(ctx, sub.SubmissionID, models.SubmissionStatusUpdate{
		Status:          models.StatusPaymentPending,
		PaymentDeadline: &deadline,
	}))
	require.NoError(t, store.UpdateSubmissionStatus(ctx, sub.SubmissionID, models.SubmissionStatusUpdate{
		Status: models.StatusPaymentReceived,
	}))

	got, err := store.GetSubmission(ctx, sub.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentReceived, got.CurrentStatus)
	require.NotNil(t, got.PaymentDeadline)
	assert.True(t, deadline.Equal(*got.PaymentDeadline))

	err = store.UpdateSubmissionStatus(ctx, 404, models.SubmissionStatusUpdate{Status: models.StatusApproved})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteScopedToSubmission(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	one, two := 1, 2

	require.NoError(t, store.InsertDocuments(ctx, []models.Document{
		{FileName: "a.pdf", SubmissionID: &one},
		{FileName: "b.pdf", SubmissionID: &two},
		{FileName: "template.pdf", ApplicationID: &one},
	}))
	require.NoError(t, store.AppendComment(ctx, &models.Comment{SubmissionID: 1}))
	require.NoError(t, store.AppendComment(ctx, &models.Comment{SubmissionID: 2}))

	require.NoError(t, store.DeleteDocuments(ctx, 1))
	require.NoError(t, store.DeleteComments(ctx, 1))
	// Deleting again is a no-op.
	require.NoError(t, store.DeleteDocuments(ctx, 1))

	docs, err := store.ListDocuments(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, docs)
	docs, err = store.ListDocuments(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	template, err := store.GetDocument(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "template.pdf", template.FileName)

	comments, err := store.ListComments(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestMemoryStoreListsByApplicationAndOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	for _, sub := range []models.Submission{
		{ApplicationID: 1, OwnerID: 10},
		{ApplicationID: 2, OwnerID: 10},
		{ApplicationID: 1, OwnerID: 11},
	} {
		sub := sub
		require.NoError(t, store.CreateSubmission(ctx, &sub))
	}

	ids, err := store.ListSubmissionIDsByApplication(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids)

	ids, err = store.ListSubmissionIDsByOwner(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)

	ids, err = store.ListSubmissionIDsByOwner(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStoreDeadlineExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	require.NoError(t, store.CreateSubmission(ctx, &models.Submission{CurrentStatus: models.StatusPaymentPending, PaymentDeadline: &past}))
	require.NoError(t, store.CreateSubmission(ctx, &models.Submission{CurrentStatus: models.StatusPaymentPending, PaymentDeadline: &future}))
	require.NoError(t, store.CreateSubmission(ctx, &models.Submission{CurrentStatus: models.StatusPaymentPending}))
	require.NoError(t, store.CreateSubmission(ctx, &models.Submission{CurrentStatus: models.StatusNeedsRevision, PaymentDeadline: &past}))

	rows, err := store.ListDeadlineExpired(ctx, models.StatusPaymentPending, PaymentDeadlineColumn, now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].SubmissionID)

	_, err = store.ListDeadlineExpired(ctx, models.StatusPaymentPending, DeadlineColumn("created_at"), now)
	assert.Error(t, err)
}
