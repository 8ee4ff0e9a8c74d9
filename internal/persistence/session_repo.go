package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/domain"
)

// SessionRepo implements domain.SessionRepository using SQLite.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Upsert merges s into the stored row. Zero timestamps and empty descriptive
// fields keep their stored values, and a finished or aborted session never
// returns to running.
func (r *SessionRepo) Upsert(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions(id, started_at, finished_at, image_folder, output_dir, strategy, slides, captured, failed, status)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = CASE WHEN sessions.started_at > 0 THEN sessions.started_at ELSE excluded.started_at END,
			finished_at = CASE WHEN excluded.finished_at > 0 THEN excluded.finished_at ELSE sessions.finished_at END,
			image_folder = CASE WHEN excluded.image_folder <> '' THEN excluded.image_folder ELSE sessions.image_folder END,
			output_dir = CASE WHEN excluded.output_dir <> '' THEN excluded.output_dir ELSE sessions.output_dir END,
			strategy = CASE WHEN excluded.strategy <> '' THEN excluded.strategy ELSE sessions.strategy END,
			slides = MAX(sessions.slides, excluded.slides),
			captured = MAX(sessions.captured, excluded.captured),
			failed = MAX(sessions.failed, excluded.failed),
			status = CASE WHEN sessions.status IN (?, ?) THEN sessions.status ELSE excluded.status END
	`,
		s.ID,
		timeToUnixMillis(s.StartedAt),
		timeToUnixMillis(s.FinishedAt),
		s.ImageFolder,
		s.OutputDir,
		s.Strategy,
		s.Slides,
		s.Captured,
		s.Failed,
		string(s.Status),
		string(connectors.SessionStatusFinished),
		string(connectors.SessionStatusAborted),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	return nil
}

const sessionColumns = `id, started_at, finished_at, image_folder, output_dir, strategy, slides, captured, failed, status`

func (r *SessionRepo) Get(ctx context.Context, id string) (domain.Session, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("load session: %w", err)
	}

	return s, true, nil
}

func (r *SessionRepo) ListRecent(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY started_at DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s          domain.Session
		startedAt  int64
		finishedAt int64
		status     string
	)
	if err := row.Scan(&s.ID, &startedAt, &finishedAt, &s.ImageFolder, &s.OutputDir, &s.Strategy,
		&s.Slides, &s.Captured, &s.Failed, &status); err != nil {
		return domain.Session{}, err
	}
	s.StartedAt = unixMillisToTime(startedAt)
	s.FinishedAt = unixMillisToTime(finishedAt)
	s.Status = domain.SessionStatus(status)

	return s, nil
}
