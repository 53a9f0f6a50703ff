package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	tokenFileName   = "token.json"
	pendingFileName = "pending_registration.json"
)

type tokenFile struct {
	Key     string    `json:"key"`
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

type pendingFile struct {
	Key       string              `json:"key"`
	Pending   PendingRegistration `json:"pending"`
	ExpiresAt time.Time           `json:"expires_at,omitempty"`
}

// FileTokenStore keeps the token in a private JSON file under a state directory.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore stores the token in dir/token.json.
func NewFileTokenStore(dir string) (*FileTokenStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileTokenStore{path: filepath.Join(dir, tokenFileName)}, nil
}

func (s *FileTokenStore) Load(_ context.Context) (string, error) {
	var f tokenFile
	found, err := readJSON(s.path, &f)
	if err != nil || !found {
		return "", err
	}
	return f.Token, nil
}

func (s *FileTokenStore) Save(_ context.Context, token string) error {
	return writeJSON(s.path, tokenFile{Key: TokenKey, Token: token, SavedAt: time.Now().UTC()})
}

func (s *FileTokenStore) Delete(_ context.Context) error {
	return removeFile(s.path)
}

// FilePendingStore keeps the registration draft in a private JSON file with
// an expiry, so a draft survives between CLI invocations but not forever.
type FilePendingStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewFilePendingStore stores drafts in dir/pending_registration.json.
func NewFilePendingStore(dir string, ttl time.Duration) (*FilePendingStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FilePendingStore{path: filepath.Join(dir, pendingFileName), ttl: ttl, now: time.Now}, nil
}

func (s *FilePendingStore) Load(ctx context.Context) (*PendingRegistration, error) {
	var f pendingFile
	found, err := readJSON(s.path, &f)
	if err != nil || !found {
		return nil, err
	}
	if !f.ExpiresAt.IsZero() && s.now().After(f.ExpiresAt) {
		_ = s.Delete(ctx)
		return nil, nil
	}
	p := f.Pending
	return &p, nil
}

func (s *FilePendingStore) Save(_ context.Context, pending PendingRegistration) error {
	f := pendingFile{Key: PendingKey, Pending: pending}
	if s.ttl > 0 {
		f.ExpiresAt = s.now().Add(s.ttl).UTC()
	}
	return writeJSON(s.path, f)
}

func (s *FilePendingStore) Delete(_ context.Context) error {
	return removeFile(s.path)
}

func readJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return true, nil
}

// writeJSON replaces path atomically so a crash never leaves half a file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
