package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/richbai90/mvcapture/internal/domain"
)

// CaptureRepo implements domain.CaptureRepository using SQLite.
type CaptureRepo struct {
	db *sql.DB
}

func NewCaptureRepo(db *sql.DB) *CaptureRepo {
	return &CaptureRepo{db: db}
}

func (r *CaptureRepo) Insert(ctx context.Context, c domain.CaptureRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO captures(
			id, session_id, slide_index, output_path, frames_ok, frames_absent, decode_failures,
			bytes, duration_ms, status, error_text, created_at
		)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		nullableString(c.SessionID),
		c.SlideIndex,
		c.OutputPath,
		c.FramesOK,
		c.FramesAbsent,
		c.DecodeFailures,
		c.Bytes,
		c.DurationMS,
		string(c.Status),
		nullableString(c.ErrorText),
		timeToUnixMillis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}

	return nil
}

func (r *CaptureRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.CaptureRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, slide_index, output_path, frames_ok, frames_absent, decode_failures,
			bytes, duration_ms, status, error_text, created_at
		FROM captures
		WHERE session_id = ?
		ORDER BY slide_index ASC, created_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.CaptureRecord
	for rows.Next() {
		var (
			c         domain.CaptureRecord
			session   sql.NullString
			status    string
			errText   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &session, &c.SlideIndex, &c.OutputPath, &c.FramesOK, &c.FramesAbsent,
			&c.DecodeFailures, &c.Bytes, &c.DurationMS, &status, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		c.SessionID = stringOrEmpty(session)
		c.Status = domain.CaptureStatus(status)
		c.ErrorText = stringOrEmpty(errText)
		c.CreatedAt = unixMillisToTime(createdAt)
		out = append(out, c)
	}

	return out, rows.Err()
}
