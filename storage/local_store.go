package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalArtifactStore keeps objects under a directory on the local filesystem,
// the same upload root the API serves files from.
type LocalArtifactStore struct {
	root    string
	baseURL string
}

// NewLocalArtifactStore creates root if needed. baseURL is the public prefix the
// API serves root under (for example "/files").
func NewLocalArtifactStore(root, baseURL string) (*LocalArtifactStore, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalArtifactStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root returns the directory objects are stored under.
func (s *LocalArtifactStore) Root() string {
	return s.root
}

func (s *LocalArtifactStore) Put(ctx context.Context, objectPath string, body io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", cleaned, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", cleaned, err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", cleaned, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", cleaned, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store %s: %w", cleaned, err)
	}
	return s.link(cleaned), nil
}

func (s *LocalArtifactStore) URL(_ context.Context, objectPath string) (string, error) {
	cleaned, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return s.link(cleaned), nil
}

func (s *LocalArtifactStore) Delete(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, err := CleanPath(objectPath)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", cleaned, err)
	}
	return nil
}

func (s *LocalArtifactStore) PathFromLink(link string) (string, error) {
	link = strings.TrimSpace(link)
	if s.baseURL != "" {
		prefix := s.baseURL + "/"
		if !strings.HasPrefix(link, prefix) {
			return "", fmt.Errorf("%q: %w", link, ErrForeignLink)
		}
		link = strings.TrimPrefix(link, prefix)
	}
	unescaped, err := url.PathUnescape(link)
	if err != nil {
		return "", fmt.Errorf("%q: %w", link, ErrInvalidPath)
	}
	return CleanPath(unescaped)
}

func (s *LocalArtifactStore) link(cleaned string) string {
	segments := strings.Split(cleaned, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	escaped := strings.Join(segments, "/")
	if s.baseURL == "" {
		return escaped
	}
	return s.baseURL + "/" + escaped
}
