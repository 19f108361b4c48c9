// Package storage holds the artifact (blob) store that uploaded documents live in.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	// ErrInvalidPath is returned for empty, absolute or parent-escaping object paths.
	ErrInvalidPath = errors.New("invalid artifact path")
	// ErrForeignLink is returned when a file link does not belong to the store.
	ErrForeignLink = errors.New("file link does not belong to this artifact store")
)

// ArtifactStore addresses objects by slash-separated relative path.
type ArtifactStore interface {
	// Put stores body at objectPath and returns the link persisted in documents.file_link.
	Put(ctx context.Context, objectPath string, body io.Reader, contentType string) (string, error)
	// URL returns a URL a client can fetch the object from.
	URL(ctx context.Context, objectPath string) (string, error)
	// Delete removes the object. Deleting a missing object succeeds.
	Delete(ctx context.Context, objectPath string) error
	// PathFromLink recovers the object path from a stored file link.
	PathFromLink(link string) (string, error)
}

// CleanPath normalises p and rejects paths that would leave the store root.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
