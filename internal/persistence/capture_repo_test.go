package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/richbai90/mvcapture/internal/domain"
)

func TestCaptureRepoInsertAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewCaptureRepo(openTestDB(t).db)
	at := time.Now().UTC().Truncate(time.Millisecond)

	records := []domain.CaptureRecord{
		{ID: "c2", SessionID: "s1", SlideIndex: 1, OutputPath: "/out/1.jpg", Status: domain.CaptureStatusFailed, ErrorText: "no image", CreatedAt: at},
		{ID: "c1", SessionID: "s1", SlideIndex: 0, OutputPath: "/out/0.jpg", FramesOK: 9, FramesAbsent: 1, Bytes: 4096, DurationMS: 1200, Status: domain.CaptureStatusOK, CreatedAt: at},
		{ID: "c3", SlideIndex: 0, Status: domain.CaptureStatusOK, CreatedAt: at},
	}
	for _, rec := range records {
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.ID, err)
		}
	}
	// Duplicate ids are ignored.
	if err := repo.Insert(ctx, records[0]); err != nil {
		t.Fatalf("insert duplicate: %v", err)
	}

	got, err := repo.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 captures, got %d", len(got))
	}
	if got[0].ID != "c1" || got[0].FramesOK != 9 || got[0].Bytes != 4096 || got[0].ErrorText != "" {
		t.Fatalf("unexpected first capture: %+v", got[0])
	}
	if got[1].ID != "c2" || got[1].Status != domain.CaptureStatusFailed || got[1].ErrorText != "no image" {
		t.Fatalf("unexpected second capture: %+v", got[1])
	}
	if !got[1].CreatedAt.Equal(at) {
		t.Fatalf("unexpected created_at: %v", got[1].CreatedAt)
	}
}
