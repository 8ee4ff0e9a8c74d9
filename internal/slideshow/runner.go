package slideshow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/richbai90/mvcapture/internal/capture"
)

const DefaultTick = time.Second / 60

// Display puts a slide on screen.
type Display interface {
	Show(path string) error
}

type Capturer interface {
	Capture(job capture.Job) <-chan capture.Result
}

type Summary struct {
	Slides   int
	Captured int
	Failed   int
	Missing  []int
}

type Runner struct {
	Player   *Player
	Display  Display
	Capturer Capturer
	Session  *capture.Session
	Logger   *slog.Logger
	Tick     time.Duration
	Now      func() time.Time
}

// Run plays the slideshow until the last slide has been shown or ctx ends.
// Captures run on the capturer's own goroutine; their results are picked up
// between ticks so presentation never waits for the camera.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tick := r.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	summary := Summary{Slides: r.Player.Slides()}
	captured := make(map[int]bool, summary.Slides)
	var (
		pending      <-chan capture.Result
		pendingIndex int
	)

	record := func(res capture.Result) {
		ok := res.Err == nil
		r.Player.CaptureFinished(pendingIndex, ok)
		if r.Session != nil {
			r.Session.Record(res)
		}
		if ok {
			captured[pendingIndex] = true
			summary.Captured++
			logger.Debug("slide captured", "index", pendingIndex, "path", res.Job.OutputPath)

			return
		}
		summary.Failed++
		logger.Debug("no image captured", "index", pendingIndex, "error", res.Err)
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var runErr error
loop:
	for {
		st := r.Player.Step(now())
		if st.Show != "" {
			if err := r.Display.Show(st.Show); err != nil {
				runErr = fmt.Errorf("show slide: %w", err)

				break
			}
		}
		if st.Done {
			logger.Debug("last slide displayed")

			break
		}
		if st.Capture {
			pendingIndex = st.CaptureIndex
			pending = r.Capturer.Capture(r.job(st.CaptureIndex))
		}

		select {
		case <-ctx.Done():
			runErr = ctx.Err()

			break loop
		case res := <-pending:
			pending = nil
			record(res)
		case <-ticker.C:
		}
	}

	if pending != nil {
		select {
		case res := <-pending:
			record(res)
		case <-ctx.Done():
		}
	}

	for i := 0; i < summary.Slides; i++ {
		if !captured[i] {
			summary.Missing = append(summary.Missing, i)
		}
	}

	return summary, runErr
}

func (r *Runner) job(index int) capture.Job {
	if r.Session != nil {
		return r.Session.Job(index)
	}

	return capture.Job{SlideIndex: index, OutputPath: fmt.Sprintf("%d.jpg", index)}
}
