package snapshot

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"
)

const (
	sizeHeaderLen     = 4
	DefaultMaxPayload = 16 << 20
)

// Frame is a completely transferred JPEG payload.
type Frame struct {
	Data     []byte
	Size     int
	Strategy string
	Stats    Stats
	Elapsed  time.Duration
}

type Option func(*Fetcher)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(f *Fetcher) {
		if obs != nil {
			f.observer = obs
		}
	}
}

// WithMaxPayload rejects size headers above limit as framing violations.
func WithMaxPayload(limit int) Option {
	return func(f *Fetcher) {
		if limit > 0 {
			f.maxPayload = limit
		}
	}
}

// WithFallback retries a failed retrieval once with another strategy, on a
// fresh buffer, when the failure was an absent frame.
func WithFallback(strategy Strategy) Option {
	return func(f *Fetcher) {
		f.fallback = strategy
	}
}

// Fetcher runs the snapshot exchange. It keeps no per-fetch state and may be
// shared, but each Link must only be used by one fetch at a time.
type Fetcher struct {
	logger     *slog.Logger
	observer   Observer
	maxPayload int
	fallback   Strategy
	newBuffer  func(size int) []byte
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		logger:     slog.Default().With("component", "snapshot"),
		observer:   nopObserver{},
		maxPayload: DefaultMaxPayload,
		newBuffer:  func(size int) []byte { return make([]byte, size) },
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch requests one snapshot and retrieves it with strategy. Errors matching
// ErrNoFrame mean no frame was available; ErrFraming means the device broke
// the protocol.
func (f *Fetcher) Fetch(ctx context.Context, link Link, req Request, strategy Strategy) (Frame, error) {
	if link == nil || strategy == nil {
		return Frame{}, errors.New("snapshot: fetch needs a link and a strategy")
	}
	if err := req.Validate(); err != nil {
		return Frame{}, err
	}
	started := time.Now()

	resp, err := link.Call(ctx, ProcSnapshot, req.Args())
	if err != nil {
		f.logger.Debug("snapshot request unanswered", "error", err)
		f.observer.Observe(Event{Kind: EventFailed, Strategy: strategy.Name(), Elapsed: time.Since(started), Err: ErrNotReady})

		return Frame{}, errors.Join(ErrNotReady, err)
	}
	size, err := f.parseSize(resp)
	if err != nil {
		f.logger.Warn("snapshot size header rejected", "error", err)
		f.observer.Observe(Event{Kind: EventFailed, Strategy: strategy.Name(), Elapsed: time.Since(started), Err: err})

		return Frame{}, err
	}
	f.observer.Observe(Event{Kind: EventSize, Strategy: strategy.Name(), Size: size})

	data, used, stats, err := f.retrieve(ctx, link, strategy, size)
	elapsed := time.Since(started)
	if err != nil {
		f.logger.Debug("frame retrieval failed", "strategy", used, "size", size, "requests", stats.Requests, "error", err)
		f.observer.Observe(Event{Kind: EventFailed, Strategy: used, Size: size, Elapsed: elapsed, Err: err})

		return Frame{}, err
	}
	f.observer.Observe(Event{Kind: EventDone, Strategy: used, Size: size, Elapsed: elapsed})
	f.logger.Debug("frame retrieved", "strategy", used, "size", size, "requests", stats.Requests,
		"retries", stats.Retries, "elapsed", elapsed)

	return Frame{Data: data, Size: size, Strategy: used, Stats: stats, Elapsed: elapsed}, nil
}

func (f *Fetcher) parseSize(resp []byte) (int, error) {
	if len(resp) != sizeHeaderLen {
		return 0, &FramingError{Reason: "size header must be 4 bytes", Got: len(resp)}
	}
	size := binary.LittleEndian.Uint32(resp)
	if size == 0 {
		return 0, &FramingError{Reason: "zero payload size", Got: 0}
	}
	if uint64(size) > uint64(f.maxPayload) {
		return 0, &FramingError{Reason: "payload size exceeds limit", Got: int(size)}
	}

	return int(size), nil
}

func (f *Fetcher) retrieve(ctx context.Context, link Link, strategy Strategy, size int) ([]byte, string, Stats, error) {
	buf := f.newBuffer(size)
	stats, err := strategy.Retrieve(ctx, link, buf, f.observer)
	if err == nil {
		return buf, strategy.Name(), stats, nil
	}
	if f.fallback == nil || !IsRecoverable(err) || ctx.Err() != nil {
		return nil, strategy.Name(), stats, err
	}

	f.logger.Info("retrieval failed, falling back", "strategy", strategy.Name(), "fallback", f.fallback.Name(), "error", err)
	f.observer.Observe(Event{Kind: EventFallback, Strategy: f.fallback.Name(), Size: size, Err: err})
	buf = f.newBuffer(size)
	more, err := f.fallback.Retrieve(ctx, link, buf, f.observer)
	stats = stats.add(more)
	if err != nil {
		return nil, f.fallback.Name(), stats, err
	}

	return buf, f.fallback.Name(), stats, nil
}
