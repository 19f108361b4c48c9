package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"permit-portal-api/models"
	"permit-portal-api/repository"
	"permit-portal-api/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testNow = time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// memArtifacts is an in-memory ArtifactStore that records every delete attempt.
type memArtifacts struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	putErr    error
	deleteErr map[string]error
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{objects: map[string][]byte{}, deleteErr: map[string]error{}}
}

func (m *memArtifacts) Put(_ context.Context, objectPath string, body io.Reader, _ string) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectPath] = data
	return "mem://" + objectPath, nil
}

func (m *memArtifacts) URL(_ context.Context, objectPath string) (string, error) {
	return "https://files.test/" + objectPath, nil
}

func (m *memArtifacts) Delete(_ context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, objectPath)
	if err := m.deleteErr[objectPath]; err != nil {
		return err
	}
	delete(m.objects, objectPath)
	return nil
}

func (m *memArtifacts) PathFromLink(link string) (string, error) {
	if !strings.HasPrefix(link, "mem://") {
		return "", storage.ErrForeignLink
	}
	return strings.TrimPrefix(link, "mem://"), nil
}

func (m *memArtifacts) has(objectPath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectPath]
	return ok
}

type faultKey struct {
	op string
	id int
}

// faultyRecords injects errors into selected record store calls. An id of 0
// matches every submission.
type faultyRecords struct {
	*repository.MemoryRecordStore
	faults map[faultKey]error
}

func (f *faultyRecords) failOn(op string, id int, err error) {
	f.faults[faultKey{op: op, id: id}] = err
}

func (f *faultyRecords) fault(op string, id int) error {
	if err, ok := f.faults[faultKey{op: op, id: id}]; ok {
		return err
	}
	return f.faults[faultKey{op: op}]
}

func (f *faultyRecords) UpdateSubmissionStatus(ctx context.Context, id int, update models.SubmissionStatusUpdate) error {
	if err := f.fault("UpdateSubmissionStatus", id); err != nil {
		return err
	}
	return f.MemoryRecordStore.UpdateSubmissionStatus(ctx, id, update)
}

func (f *faultyRecords) AppendComment(ctx context.Context, comment *models.Comment) error {
	if err := f.fault("AppendComment", comment.SubmissionID); err != nil {
		return err
	}
	return f.MemoryRecordStore.AppendComment(ctx, comment)
}

func (f *faultyRecords) DeleteStatusHistory(ctx context.Context, id int) error {
	if err := f.fault("DeleteStatusHistory", id); err != nil {
		return err
	}
	return f.MemoryRecordStore.DeleteStatusHistory(ctx, id)
}

func (f *faultyRecords) DeleteComments(ctx context.Context, id int) error {
	if err := f.fault("DeleteComments", id); err != nil {
		return err
	}
	return f.MemoryRecordStore.DeleteComments(ctx, id)
}

func (f *faultyRecords) ListDocuments(ctx context.Context, id int) ([]models.Document, error) {
	if err := f.fault("ListDocuments", id); err != nil {
		return nil, err
	}
	return f.MemoryRecordStore.ListDocuments(ctx, id)
}

func (f *faultyRecords) DeleteDocuments(ctx context.Context, id int) error {
	if err := f.fault("DeleteDocuments", id); err != nil {
		return err
	}
	return f.MemoryRecordStore.DeleteDocuments(ctx, id)
}

func (f *faultyRecords) InsertDocuments(ctx context.Context, docs []models.Document) error {
	id := 0
	if len(docs) > 0 && docs[0].SubmissionID != nil {
		id = *docs[0].SubmissionID
	}
	if err := f.fault("InsertDocuments", id); err != nil {
		return err
	}
	return f.MemoryRecordStore.InsertDocuments(ctx, docs)
}

type fixture struct {
	records   *faultyRecords
	artifacts *memArtifacts
	lifecycle *LifecycleService
	documents *DocumentSetManager
	deletion  *DeletionService
}

const testApplicationID = 1

func newFixture(t *testing.T) *fixture {
	t.Helper()
	records := &faultyRecords{MemoryRecordStore: repository.NewMemoryRecordStore(), faults: map[faultKey]error{}}
	records.PutApplication(models.Application{
		ApplicationID: testApplicationID,
		Title:         "Building Permit",
		Type:          models.ApplicationTypePermit,
		Requirements:  []string{"Site plan", "Proof of ownership"},
	})
	artifacts := newMemArtifacts()
	logger := zaptest.NewLogger(t)
	locker := NewLocalLocker(time.Second)

	lifecycle := NewLifecycleService(records, locker, DefaultDeadlineWindows(), logger).WithClock(fixedClock)
	return &fixture{
		records:   records,
		artifacts: artifacts,
		lifecycle: lifecycle,
		documents: NewDocumentSetManager(records, artifacts, lifecycle, logger).WithClock(fixedClock),
		deletion:  NewDeletionService(records, artifacts, locker, logger),
	}
}

// seed stores a submission whose ledger ends in status, with one blob and row per
// document name.
func (f *fixture) seed(t *testing.T, ownerID int, status models.StatusCode, docNames ...string) int {
	t.Helper()
	ctx := context.Background()
	sub := models.Submission{
		ApplicationID: testApplicationID,
		OwnerID:       ownerID,
		CurrentStatus: status,
		FullName:      "Maria Santos",
		ContactNumber: "09171234567",
		Address:       "12 Rizal St",
		Purpose:       "Residential extension",
		CreatedAt:     testNow.Add(-72 * time.Hour),
		UpdatedAt:     testNow.Add(-72 * time.Hour),
	}
	require.NoError(t, f.records.CreateSubmission(ctx, &sub))

	require.NoError(t, f.records.AppendStatusHistory(ctx, &models.StatusHistoryEntry{
		SubmissionID: sub.SubmissionID,
		StatusCode:   models.StatusSubmitted,
		Remarks:      "seed",
		ChangedAt:    testNow.Add(-72 * time.Hour),
	}))
	if status != models.StatusSubmitted {
		require.NoError(t, f.records.AppendStatusHistory(ctx, &models.StatusHistoryEntry{
			SubmissionID: sub.SubmissionID,
			StatusCode:   status,
			Remarks:      "seed",
			ChangedAt:    testNow.Add(-48 * time.Hour),
		}))
	}

	docs := make([]models.Document, 0, len(docNames))
	for _, name := range docNames {
		objectPath := fmt.Sprintf("%d/1000-%s", sub.SubmissionID, name)
		link, err := f.artifacts.Put(ctx, objectPath, strings.NewReader("old "+name), "application/pdf")
		require.NoError(t, err)
		id := sub.SubmissionID
		docs = append(docs, models.Document{
			FileName:     name,
			FileType:     "pdf",
			FileLink:     link,
			SubmissionID: &id,
			UploadedAt:   testNow.Add(-72 * time.Hour),
		})
	}
	if len(docs) > 0 {
		require.NoError(t, f.records.MemoryRecordStore.InsertDocuments(ctx, docs))
	}
	return sub.SubmissionID
}

func strPtr(s string) *string { return &s }

func newFile(name, body string) NewFile {
	return NewFile{FileName: name, ContentType: "application/pdf", Content: strings.NewReader(body)}
}
