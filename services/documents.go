package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"permit-portal-api/models"
	"permit-portal-api/storage"
	"permit-portal-api/utils"

	"go.uber.org/zap"
)

// NewFile is one uploaded file. Content is read once.
type NewFile struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

type preparedFile struct {
	name        string
	fileType    string
	contentType string
	content     io.Reader
}

// prepareFiles sanitises names and rejects unusable or duplicate names in one batch.
func prepareFiles(files []NewFile) ([]preparedFile, error) {
	seen := make(map[string]struct{}, len(files))
	out := make([]preparedFile, 0, len(files))
	for i, f := range files {
		name := utils.SanitizeFilename(f.FileName)
		if name == "" {
			return nil, validationError("file %d has no usable name", i+1)
		}
		if f.Content == nil {
			return nil, validationError("file %q has no content", name)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, validationError("file %q appears more than once", name)
		}
		seen[key] = struct{}{}
		out = append(out, preparedFile{
			name:        name,
			fileType:    utils.FileTypeFromName(name),
			contentType: f.ContentType,
			content:     f.Content,
		})
	}
	return out, nil
}

// documentPath is {submission_id}/{timestamp}-{filename}.
func documentPath(submissionID int, at time.Time, fileName string) string {
	return fmt.Sprintf("%d/%d-%s", submissionID, at.UnixMilli(), fileName)
}

// uploadFiles puts every file and returns unsaved document rows in input order.
func uploadFiles(ctx context.Context, artifacts storage.ArtifactStore, submissionID int, files []preparedFile, now time.Time) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(files))
	for _, f := range files {
		objectPath := documentPath(submissionID, now, f.name)
		link, err := artifacts.Put(ctx, objectPath, f.content, f.contentType)
		if err != nil {
			return nil, artifactError(fmt.Sprintf("upload %s", objectPath), err)
		}
		id := submissionID
		docs = append(docs, models.Document{
			FileName:     f.name,
			FileType:     f.fileType,
			FileLink:     link,
			SubmissionID: &id,
			UploadedAt:   now,
		})
	}
	return docs, nil
}

// deleteBlobs removes the blobs behind docs. Failures become warnings.
func deleteBlobs(ctx context.Context, artifacts storage.ArtifactStore, saga string, docs []models.Document, logger *zap.Logger) []ArtifactWarning {
	var warnings []ArtifactWarning
	for _, doc := range docs {
		objectPath, err := artifacts.PathFromLink(doc.FileLink)
		if err == nil {
			err = artifacts.Delete(ctx, objectPath)
		}
		if err != nil {
			ArtifactDeleteWarningsTotal.WithLabelValues(saga).Inc()
			logger.Warn("failed to delete document blob",
				zap.Int("document_id", doc.DocumentID),
				zap.String("file_link", doc.FileLink),
				zap.Error(err),
			)
			warnings = append(warnings, ArtifactWarning{
				DocumentID: doc.DocumentID,
				Path:       objectPath,
				FileLink:   doc.FileLink,
				Error:      err.Error(),
			})
		}
	}
	return warnings
}
