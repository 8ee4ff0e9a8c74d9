package domain

import "context"

type SessionRepository interface {
	Upsert(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, bool, error)
	ListRecent(ctx context.Context, limit int) ([]Session, error)
}

type CaptureRepository interface {
	Insert(ctx context.Context, c CaptureRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]CaptureRecord, error)
}
