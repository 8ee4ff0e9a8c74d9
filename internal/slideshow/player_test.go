package slideshow

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestListImagesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "c.JPG", "notes.txt", "d.gif"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "e.jpg"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ListImages(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.png"), filepath.Join(dir, "c.JPG")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("images = %v, want %v", got, want)
	}
}

func TestListImagesEmptyFolder(t *testing.T) {
	if _, err := ListImages(t.TempDir()); !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
}

func TestNewPlayerValidates(t *testing.T) {
	if _, err := NewPlayer(nil, time.Second); !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
	if _, err := NewPlayer([]string{"a"}, 0); err == nil {
		t.Fatalf("expected delay error")
	}
}

func TestPlayerTimeline(t *testing.T) {
	p, err := NewPlayer([]string{"a", "b"}, time.Second)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	t0 := time.Unix(0, 0)
	at := func(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

	if st := p.Step(at(0)); st.Show != "a" || st.Capture {
		t.Fatalf("first step: %+v", st)
	}
	if st := p.Step(at(400)); st.Show != "" || st.Capture {
		t.Fatalf("before half delay: %+v", st)
	}
	st := p.Step(at(500))
	if !st.Capture || st.CaptureIndex != 0 {
		t.Fatalf("expected capture of slide 0: %+v", st)
	}
	if st := p.Step(at(600)); st.Capture {
		t.Fatalf("capture requested twice while in flight")
	}

	p.CaptureFinished(0, false)
	if st := p.Step(at(700)); !st.Capture || st.CaptureIndex != 0 {
		t.Fatalf("failed capture should be retried: %+v", st)
	}
	p.CaptureFinished(0, true)
	if st := p.Step(at(800)); st.Capture {
		t.Fatalf("captured slide requested again: %+v", st)
	}

	if st := p.Step(at(1000)); st.Show != "b" || st.Capture {
		t.Fatalf("second slide: %+v", st)
	}
	if p.Current() != 1 {
		t.Fatalf("current = %d", p.Current())
	}
	if st := p.Step(at(1500)); !st.Capture || st.CaptureIndex != 1 {
		t.Fatalf("expected capture of slide 1: %+v", st)
	}
	if st := p.Step(at(2000)); !st.Done {
		t.Fatalf("expected done after last slide: %+v", st)
	}
	if !p.Done() {
		t.Fatalf("player should report done")
	}
}

func TestPlayerIgnoresLateCaptureForPreviousSlide(t *testing.T) {
	p, _ := NewPlayer([]string{"a", "b"}, time.Second)
	t0 := time.Unix(0, 0)
	p.Step(t0)
	p.Step(t0.Add(500 * time.Millisecond))
	p.Step(t0.Add(time.Second))

	p.CaptureFinished(0, true)
	st := p.Step(t0.Add(1500 * time.Millisecond))
	if !st.Capture || st.CaptureIndex != 1 {
		t.Fatalf("slide 1 still needs a capture: %+v", st)
	}
}
