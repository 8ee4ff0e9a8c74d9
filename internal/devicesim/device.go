// Package devicesim emulates the camera side of the link for tests, demos
// and the "sim" connector.
package devicesim

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/richbai90/mvcapture/internal/rpc"
	"github.com/richbai90/mvcapture/internal/snapshot"
)

// FrameSource yields the JPEG captured by the n-th snapshot (0-based).
type FrameSource func(n int) ([]byte, error)

// StaticFrames always returns the same payload.
func StaticFrames(payload []byte) FrameSource {
	return func(int) ([]byte, error) { return payload, nil }
}

// PatternFrames renders a shifted test pattern per snapshot.
func PatternFrames(width, height int) FrameSource {
	return func(n int) ([]byte, error) { return TestPattern(width, height, n) }
}

// Call records one request the device handled.
type Call struct {
	Name string
	Args []byte
}

type Device struct {
	source FrameSource
	logger *slog.Logger

	mu            sync.Mutex
	snapshots     int
	current       []byte
	failSnapshots int
	failChunks    map[uint32]int
	bulkLimit     int
	silentBulk    bool
	delay         time.Duration
	calls         []Call
}

func New(source FrameSource, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}

	return &Device{
		source:     source,
		logger:     logger.With("component", "devicesim"),
		failChunks: map[uint32]int{},
		bulkLimit:  -1,
	}
}

// FailSnapshots makes the next n snapshot requests answer "no result".
func (d *Device) FailSnapshots(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failSnapshots = n
}

// FailChunk makes the next n reads of the chunk at offset answer "no result".
func (d *Device) FailChunk(offset uint32, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failChunks[offset] = n
}

// TruncateBulk limits cutthrough streams to n bytes; a negative n restores
// full streams.
func (d *Device) TruncateBulk(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bulkLimit = n
}

// SetDelay postpones every reply.
func (d *Device) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Call(nil), d.calls...)
}

func (d *Device) Snapshots() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.snapshots
}

// Serve answers requests on rw until it fails or ctx ends.
func (d *Device) Serve(ctx context.Context, rw io.ReadWriter) error {
	return rpc.Serve(ctx, rw, d.Handle, d.logger)
}

func (d *Device) Handle(name string, args []byte) rpc.Reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, Call{Name: name, Args: append([]byte(nil), args...)})
	reply := d.handleLocked(name, args)
	reply.Delay = d.delay

	return reply
}

func (d *Device) handleLocked(name string, args []byte) rpc.Reply {
	switch name {
	case snapshot.ProcSnapshot:
		return d.snapshot(args)
	case snapshot.ProcRead:
		return d.read(args)
	default:
		d.logger.Debug("unknown procedure", "procedure", name)

		return rpc.Reply{NoResult: true}
	}
}

func (d *Device) snapshot(args []byte) rpc.Reply {
	if d.failSnapshots > 0 {
		d.failSnapshots--

		return rpc.Reply{NoResult: true}
	}
	parts := strings.Split(string(args), ",")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		d.logger.Debug("rejecting snapshot arguments", "args", string(args))

		return rpc.Reply{NoResult: true}
	}

	frame, err := d.source(d.snapshots)
	if err != nil || len(frame) == 0 {
		d.logger.Warn("frame source failed", "error", err)

		return rpc.Reply{NoResult: true}
	}
	d.snapshots++
	d.current = frame
	size := make([]byte, 4)
	// #nosec G115 -- simulated frames are far below 4 GiB.
	binary.LittleEndian.PutUint32(size, uint32(len(frame)))

	return rpc.Reply{Data: size}
}

func (d *Device) read(args []byte) rpc.Reply {
	if d.current == nil {
		return rpc.Reply{NoResult: true}
	}

	switch len(args) {
	case 0:
		stream := d.current
		if d.bulkLimit >= 0 && d.bulkLimit < len(stream) {
			stream = stream[:d.bulkLimit]
		}

		return rpc.Reply{Stream: stream}
	case 8:
		offset := binary.LittleEndian.Uint32(args[0:4])
		length := binary.LittleEndian.Uint32(args[4:8])
		if n := d.failChunks[offset]; n > 0 {
			d.failChunks[offset] = n - 1

			return rpc.Reply{NoResult: true}
		}
		if int(offset) >= len(d.current) {
			return rpc.Reply{NoResult: true}
		}
		end := min(uint64(offset)+uint64(length), uint64(len(d.current)))

		return rpc.Reply{Data: d.current[offset:end]}
	default:
		return rpc.Reply{NoResult: true}
	}
}
