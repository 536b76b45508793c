// Package storage keeps user avatar images on local disk and issues
// tokenized download URLs for them.
package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"mmanyinorie/internal/security"
)

var (
	ErrTooLarge        = errors.New("file exceeds maximum upload size")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrNotFound        = errors.New("file not found")
)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// AvatarStore saves one avatar per user under dir
type AvatarStore struct {
	dir     string
	baseURL string
	maxSize int64
	signer  *security.FileTokenSigner
}

// NewAvatarStore creates the avatar directory if needed
func NewAvatarStore(dir, baseURL string, maxSize int64, signer *security.FileTokenSigner) (*AvatarStore, error) {
	avatarDir := filepath.Join(dir, "avatars")
	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create avatar directory: %w", err)
	}
	return &AvatarStore{
		dir:     avatarDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		signer:  signer,
	}, nil
}

// MaxSize is the largest accepted avatar in bytes
func (s *AvatarStore) MaxSize() int64 {
	return s.maxSize
}

func objectKey(userID string) string {
	return "avatars/" + userID
}

func (s *AvatarStore) path(userID string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, `/\`) || strings.Contains(userID, "..") {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, userID), nil
}

// Save stores the avatar read from r, replacing any previous one, and
// returns its download URL.
func (s *AvatarStore) Save(userID string, r io.Reader) (string, error) {
	dst, err := s.path(userID)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrTooLarge
	}
	if !allowedTypes[http.DetectContentType(data)] {
		return "", ErrUnsupportedType
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write avatar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write avatar: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	return s.URL(userID)
}

// URL returns the public download URL with an access token in the query string
func (s *AvatarStore) URL(userID string) (string, error) {
	token, err := s.signer.Sign(objectKey(userID))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/files/avatars/%s?token=%s", s.baseURL, url.PathEscape(userID), url.QueryEscape(token)), nil
}

// Open verifies token and opens the avatar of userID.
// The caller must close the returned file.
func (s *AvatarStore) Open(userID, token string) (*os.File, string, error) {
	if err := s.signer.Verify(token, objectKey(userID)); err != nil {
		return nil, "", err
	}
	p, err := s.path(userID)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open avatar: %w", err)
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to rewind avatar: %w", err)
	}
	return f, http.DetectContentType(head[:n]), nil
}
