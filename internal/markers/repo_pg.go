package markers

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"resume-builder/internal/uploadsession"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) LoadMarker(ctx context.Context, sessionID string) (uploadsession.JobID, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", false, ErrInvalidKey
	}
	var job string
	err := s.DB.QueryRowContext(ctx, `SELECT job_id FROM upload_session_markers WHERE session_id = $1`, sessionID).Scan(&job)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return uploadsession.JobID(job), true, nil
}

func (s *PGStore) SaveMarker(ctx context.Context, sessionID string, job uploadsession.JobID) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidKey
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO upload_session_markers (session_id, job_id, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (session_id) DO UPDATE SET job_id = EXCLUDED.job_id, updated_at = EXCLUDED.updated_at`,
		sessionID, string(job))
	return err
}

func (s *PGStore) ClearMarker(ctx context.Context, sessionID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM upload_session_markers WHERE session_id = $1`, sessionID)
	return err
}

func (s *PGStore) LastDocument(ctx context.Context, ownerID string) (uploadsession.DocumentID, bool, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", false, ErrInvalidKey
	}
	var doc string
	err := s.DB.QueryRowContext(ctx, `SELECT document_id FROM last_documents WHERE owner_id = $1`, ownerID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return uploadsession.DocumentID(doc), true, nil
}

func (s *PGStore) SaveLastDocument(ctx context.Context, ownerID string, document uploadsession.DocumentID) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrInvalidKey
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO last_documents (owner_id, document_id, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (owner_id) DO UPDATE SET document_id = EXCLUDED.document_id, updated_at = EXCLUDED.updated_at`,
		ownerID, string(document))
	return err
}

func (s *PGStore) PurgeMarkers(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM upload_session_markers WHERE updated_at < $1`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var _ Store = (*PGStore)(nil)
