package local

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"pdfvault-backend/internal/shared/storage/object"
)

// Store implements object.Uploader and object.Remover on the local
// filesystem. It is meant for development and tests.
type Store struct {
	baseDir       string
	publicBaseURL string
}

// New creates a new local object store rooted at baseDir. When publicBaseURL
// is empty, returned URLs use the file scheme.
func New(baseDir, publicBaseURL string) *Store {
	return &Store{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

// Upload writes data to a fresh key under namespace. The file is written to a
// temporary name and renamed into place, so a failed write never leaves a
// file at the returned location.
func (s *Store) Upload(ctx context.Context, data []byte, namespace string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := object.NewKey(namespace)
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename: %w", err)
	}

	return s.urlFor(key, fullPath), nil
}

// Remove deletes the file behind a URL previously returned by Upload.
func (s *Store) Remove(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := s.keyFor(rawURL)
	if err != nil {
		return err
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid storage key")
	}
	if err := os.Remove(filepath.Join(s.baseDir, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func (s *Store) urlFor(key, fullPath string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	abs, err := filepath.Abs(fullPath)
	if err != nil {
		abs = fullPath
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func (s *Store) keyFor(rawURL string) (string, error) {
	if s.publicBaseURL != "" {
		key, ok := strings.CutPrefix(rawURL, s.publicBaseURL+"/")
		if !ok {
			return "", fmt.Errorf("url %q is not served by this store", rawURL)
		}
		return key, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return "", fmt.Errorf("url %q is not served by this store", rawURL)
	}
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base dir: %w", err)
	}
	rel, err := filepath.Rel(base, filepath.FromSlash(u.Path))
	if err != nil {
		return "", fmt.Errorf("url %q is not served by this store", rawURL)
	}
	return filepath.ToSlash(rel), nil
}

var (
	_ object.Uploader = (*Store)(nil)
	_ object.Remover  = (*Store)(nil)
)
