package markers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resume-builder/internal/shared/util"
	"resume-builder/internal/uploadsession"
)

// FileStore keeps one JSON file per session marker and per owner under a
// base directory. File names are hashes of the ids.
type FileStore struct {
	baseDir string
	now     func() time.Time
}

type markerFile struct {
	SessionID string    `json:"sessionId"`
	JobID     string    `json:"jobId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type lastDocumentFile struct {
	OwnerID    string    `json:"ownerId"`
	DocumentID string    `json:"documentId"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewFileStore creates the marker directories under baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("state dir is empty")
	}
	for _, dir := range []string{"markers", "last"} {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

func (s *FileStore) markerPath(sessionID string) string {
	return filepath.Join(s.baseDir, "markers", util.HashUserKey(sessionID)+".json")
}

func (s *FileStore) lastPath(ownerID string) string {
	return filepath.Join(s.baseDir, "last", util.HashUserKey(ownerID)+".json")
}

func (s *FileStore) LoadMarker(ctx context.Context, sessionID string) (uploadsession.JobID, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", false, ErrInvalidKey
	}
	var rec markerFile
	ok, err := readJSON(ctx, s.markerPath(sessionID), &rec)
	if err != nil || !ok {
		return "", false, err
	}
	return uploadsession.JobID(rec.JobID), rec.JobID != "", nil
}

func (s *FileStore) SaveMarker(ctx context.Context, sessionID string, job uploadsession.JobID) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidKey
	}
	return writeJSON(ctx, s.markerPath(sessionID), markerFile{
		SessionID: sessionID,
		JobID:     string(job),
		UpdatedAt: s.now().UTC(),
	})
}

func (s *FileStore) ClearMarker(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.markerPath(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}
	return nil
}

func (s *FileStore) LastDocument(ctx context.Context, ownerID string) (uploadsession.DocumentID, bool, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", false, ErrInvalidKey
	}
	var rec lastDocumentFile
	ok, err := readJSON(ctx, s.lastPath(ownerID), &rec)
	if err != nil || !ok {
		return "", false, err
	}
	return uploadsession.DocumentID(rec.DocumentID), rec.DocumentID != "", nil
}

func (s *FileStore) SaveLastDocument(ctx context.Context, ownerID string, document uploadsession.DocumentID) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrInvalidKey
	}
	return writeJSON(ctx, s.lastPath(ownerID), lastDocumentFile{
		OwnerID:    ownerID,
		DocumentID: string(document),
		UpdatedAt:  s.now().UTC(),
	})
}

func (s *FileStore) PurgeMarkers(ctx context.Context, olderThan time.Time) (int, error) {
	dir := filepath.Join(s.baseDir, "markers")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read markers dir: %w", err)
	}
	n := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		var rec markerFile
		ok, err := readJSON(ctx, path, &rec)
		if err != nil || !ok {
			continue
		}
		if rec.UpdatedAt.Before(olderThan) {
			if err := os.Remove(path); err == nil {
				n++
			}
		}
	}
	return n, nil
}

func readJSON(ctx context.Context, path string, v any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeJSON replaces path atomically through a temp file in the same directory.
func writeJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
