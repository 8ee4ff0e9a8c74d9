// Package capture runs capture jobs: a burst of snapshots from the camera,
// merged into one image and saved, on a single background worker.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/snapshot"
)

const (
	DefaultBurstSize = 10
	queueDepth       = 16
)

var (
	ErrNoImage = errors.New("capture: no usable frame in burst")
	ErrStopped = errors.New("capture: service stopped")
)

// Processor merges a burst of JPEG frames into the image at outputPath and
// reports how many frames it could decode.
type Processor interface {
	Process(frames [][]byte, outputPath string) (int, error)
}

// Job asks for one capture written to OutputPath.
type Job struct {
	SessionID  string
	SlideIndex int
	OutputPath string
}

type Result struct {
	CaptureID      string
	Job            Job
	FramesOK       int
	FramesAbsent   int
	DecodeFailures int
	Bytes          int
	Duration       time.Duration
	Err            error
}

type Settings struct {
	Request   snapshot.Request
	Strategy  snapshot.Strategy
	BurstSize int
}

type Dependencies struct {
	Logger  *slog.Logger
	Bus     bus.MessageBus
	Link    snapshot.Link
	Fetcher *snapshot.Fetcher
	// Processor may be nil, in which case the last frame is saved as is.
	Processor Processor
}

type jobRequest struct {
	job    Job
	result chan Result
}

type Service struct {
	logger    *slog.Logger
	bus       bus.MessageBus
	link      snapshot.Link
	fetcher   *snapshot.Fetcher
	processor Processor
	settings  Settings

	queue chan jobRequest
	done  chan struct{}
}

func NewService(deps Dependencies, settings Settings) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = snapshot.NewFetcher(snapshot.WithLogger(logger))
	}
	if settings.BurstSize <= 0 {
		settings.BurstSize = DefaultBurstSize
	}
	if settings.Strategy == nil {
		settings.Strategy = snapshot.Cutthrough{}
	}

	return &Service{
		logger:    logger,
		bus:       deps.Bus,
		link:      deps.Link,
		fetcher:   fetcher,
		processor: deps.Processor,
		settings:  settings,
		queue:     make(chan jobRequest, queueDepth),
		done:      make(chan struct{}),
	}
}

func (s *Service) Settings() Settings {
	return s.settings
}

// Start runs queued jobs one after another until ctx ends.
func (s *Service) Start(ctx context.Context) {
	go s.runQueue(ctx)
}

// Capture queues job and returns a channel that receives its result once.
func (s *Service) Capture(job Job) <-chan Result {
	resCh := make(chan Result, 1)
	if job.OutputPath == "" {
		resCh <- Result{Job: job, Err: errors.New("capture: output path is required")}
		close(resCh)

		return resCh
	}

	select {
	case <-s.done:
		resCh <- Result{Job: job, Err: ErrStopped}
		close(resCh)

		return resCh
	default:
	}

	select {
	case s.queue <- jobRequest{job: job, result: resCh}:
	case <-s.done:
		resCh <- Result{Job: job, Err: ErrStopped}
		close(resCh)
	}

	return resCh
}

func (s *Service) runQueue(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.failPending()

			return
		case req := <-s.queue:
			req.result <- s.Run(ctx, req.job)
			close(req.result)
		}
	}
}

func (s *Service) failPending() {
	for {
		select {
		case req := <-s.queue:
			req.result <- Result{Job: req.job, Err: ErrStopped}
			close(req.result)
		default:
			return
		}
	}
}

// Run executes job on the calling goroutine. The link must not be in use
// elsewhere.
func (s *Service) Run(ctx context.Context, job Job) Result {
	started := time.Now()
	res := Result{CaptureID: uuid.New().String(), Job: job}
	logger := s.logger.With("capture_id", res.CaptureID, "slide", job.SlideIndex)
	s.publish(connectors.TopicCaptureStarted, connectors.CaptureStarted{
		SessionID:  job.SessionID,
		SlideIndex: job.SlideIndex,
		OutputPath: job.OutputPath,
		Timestamp:  started,
	})

	frames, lastErr := s.burst(ctx, logger, &res)
	switch {
	case ctx.Err() != nil:
		res.Err = ctx.Err()
	case len(frames) == 0:
		res.Err = fmt.Errorf("%w: %d attempts: %w", ErrNoImage, res.FramesAbsent, lastErr)
	default:
		res.Err = s.process(frames, job.OutputPath, &res)
	}
	res.Duration = time.Since(started)

	if res.Err != nil {
		logger.Warn("capture failed", "frames", res.FramesOK, "absent", res.FramesAbsent, "error", res.Err)
	} else {
		logger.Info("capture saved", "path", job.OutputPath, "frames", res.FramesOK, "absent", res.FramesAbsent,
			"decode_failures", res.DecodeFailures, "duration", res.Duration)
	}
	s.publish(connectors.TopicCaptureResult, toEvent(res))

	return res
}

func (s *Service) burst(ctx context.Context, logger *slog.Logger, res *Result) ([][]byte, error) {
	frames := make([][]byte, 0, s.settings.BurstSize)
	var lastErr error
	for i := 0; i < s.settings.BurstSize; i++ {
		if ctx.Err() != nil {
			break
		}
		frame, err := s.fetcher.Fetch(ctx, s.link, s.settings.Request, s.settings.Strategy)
		if err != nil {
			res.FramesAbsent++
			lastErr = err
			if snapshot.IsRecoverable(err) {
				logger.Debug("no frame", "attempt", i+1, "error", err)
			} else {
				logger.Warn("snapshot failed", "attempt", i+1, "error", err)
			}
			continue
		}
		frames = append(frames, frame.Data)
		res.Bytes += len(frame.Data)
	}
	res.FramesOK = len(frames)

	return frames, lastErr
}

func (s *Service) process(frames [][]byte, outputPath string, res *Result) error {
	if s.processor == nil {
		return saveRaw(outputPath, frames[len(frames)-1])
	}

	decoded, err := s.processor.Process(frames, outputPath)
	res.DecodeFailures = len(frames) - decoded
	if err != nil && decoded == 0 {
		return fmt.Errorf("%w: %w", ErrNoImage, err)
	}

	return err
}

func saveRaw(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

func (s *Service) publish(topic string, msg any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, msg)
}

func toEvent(res Result) connectors.CaptureResult {
	ev := connectors.CaptureResult{
		CaptureID:      res.CaptureID,
		SessionID:      res.Job.SessionID,
		SlideIndex:     res.Job.SlideIndex,
		OutputPath:     res.Job.OutputPath,
		FramesOK:       res.FramesOK,
		FramesAbsent:   res.FramesAbsent,
		DecodeFailures: res.DecodeFailures,
		Bytes:          res.Bytes,
		Duration:       res.Duration,
		Timestamp:      time.Now(),
	}
	if res.Err != nil {
		ev.Err = res.Err.Error()
	}

	return ev
}
