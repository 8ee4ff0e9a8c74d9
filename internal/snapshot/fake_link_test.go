package snapshot

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

var errLost = errors.New("lost")

// fakeLink serves a fixed payload and lets tests fail individual requests.
type fakeLink struct {
	mu sync.Mutex

	payload      []byte
	snapshotErr  error
	sizeOverride []byte
	failChunk    func(offset uint32, attempt int) bool
	shortChunk   map[uint32]int
	streamLimit  int

	snapshots    int
	syncs        int
	chunkCalls   map[uint32]int
	rawReads     int
	lastSnapArgs string
}

func newFakeLink(payload []byte) *fakeLink {
	return &fakeLink{payload: payload, chunkCalls: map[uint32]int{}, streamLimit: -1}
}

func (l *fakeLink) Call(_ context.Context, name string, args []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch name {
	case ProcSnapshot:
		l.snapshots++
		l.lastSnapArgs = string(args)
		if l.snapshotErr != nil {
			return nil, l.snapshotErr
		}
		if l.sizeOverride != nil {
			return l.sizeOverride, nil
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(len(l.payload)))

		return out, nil
	case ProcRead:
		if len(args) == 0 {
			l.syncs++

			return nil, nil
		}
		offset := binary.LittleEndian.Uint32(args[0:4])
		length := binary.LittleEndian.Uint32(args[4:8])
		l.chunkCalls[offset]++
		if l.failChunk != nil && l.failChunk(offset, l.chunkCalls[offset]) {
			return nil, errLost
		}
		end := min(int(offset+length), len(l.payload))
		if n, ok := l.shortChunk[offset]; ok && n > 0 {
			l.shortChunk[offset] = n - 1
			end--
		}

		return append([]byte(nil), l.payload[offset:end]...), nil
	}

	return nil, errors.New("unknown procedure")
}

func (l *fakeLink) ReadBytes(_ context.Context, buf []byte, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rawReads++
	n := copy(buf, l.payload)
	if l.streamLimit >= 0 && l.streamLimit < n {
		for i := l.streamLimit; i < n; i++ {
			buf[i] = 0
		}

		return &shortRead{read: l.streamLimit}
	}

	return nil
}

type shortRead struct {
	read int
}

func (e *shortRead) Error() string  { return "short read" }
func (e *shortRead) BytesRead() int { return e.read }

func testPayload(size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(i*7 + 3)
	}

	return out
}
