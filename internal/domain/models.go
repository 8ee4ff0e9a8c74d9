package domain

import (
	"time"

	"github.com/richbai90/mvcapture/internal/connectors"
)

type SessionStatus = connectors.SessionStatus

type CaptureStatus string

const (
	CaptureStatusOK     CaptureStatus = "ok"
	CaptureStatusFailed CaptureStatus = "failed"
)

// Session is one slideshow run with its capture outcome counters.
type Session struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	ImageFolder string
	OutputDir   string
	Strategy    string
	Slides      int
	Captured    int
	Failed      int
	Status      SessionStatus
}

// CaptureRecord is the stored outcome of one capture job.
type CaptureRecord struct {
	ID             string
	SessionID      string
	SlideIndex     int
	OutputPath     string
	FramesOK       int
	FramesAbsent   int
	DecodeFailures int
	Bytes          int
	DurationMS     int64
	Status         CaptureStatus
	ErrorText      string
	CreatedAt      time.Time
}

func SessionFromState(s connectors.SessionState) Session {
	out := Session{
		ID:          s.SessionID,
		ImageFolder: s.ImageFolder,
		OutputDir:   s.OutputDir,
		Strategy:    s.Strategy,
		Slides:      s.Slides,
		Captured:    s.Captured,
		Failed:      s.Failed,
		Status:      s.Status,
	}
	if s.Status == connectors.SessionStatusRunning {
		out.StartedAt = s.Timestamp
	} else {
		out.FinishedAt = s.Timestamp
	}

	return out
}

func CaptureFromResult(r connectors.CaptureResult) CaptureRecord {
	status := CaptureStatusOK
	if !r.Succeeded() {
		status = CaptureStatusFailed
	}

	return CaptureRecord{
		ID:             r.CaptureID,
		SessionID:      r.SessionID,
		SlideIndex:     r.SlideIndex,
		OutputPath:     r.OutputPath,
		FramesOK:       r.FramesOK,
		FramesAbsent:   r.FramesAbsent,
		DecodeFailures: r.DecodeFailures,
		Bytes:          r.Bytes,
		DurationMS:     r.Duration.Milliseconds(),
		Status:         status,
		ErrorText:      r.Err,
		CreatedAt:      r.Timestamp,
	}
}
