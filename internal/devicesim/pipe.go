package devicesim

import (
	"bytes"
	"context"
	"net"
	"sync"
)

// Pipe serves the device over an in-memory connection and returns the host
// end. stop closes both ends and waits for the device loop to exit.
//
// The device side writes into a queue, like a USB transmit buffer, so a
// reply the host gave up on never stalls the device loop.
func Pipe(ctx context.Context, d *Device) (host net.Conn, stop func()) {
	host, deviceEnd := net.Pipe()
	device := newQueuedConn(deviceEnd)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Serve(ctx, device); err != nil && ctx.Err() == nil {
			d.logger.Debug("device loop stopped", "error", err)
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()
			_ = host.Close()
			_ = device.Close()
			<-done
		})
	}

	return host, stop
}

// queuedConn accepts writes immediately and delivers them in order from a
// background goroutine.
type queuedConn struct {
	net.Conn

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
	err    error
}

func newQueuedConn(conn net.Conn) *queuedConn {
	q := &queuedConn{Conn: conn}
	q.cond = sync.NewCond(&q.mu)
	go q.drain()

	return q
}

func (q *queuedConn) Write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		if q.err != nil {
			return 0, q.err
		}

		return 0, net.ErrClosed
	}
	q.queue = append(q.queue, bytes.Clone(p))
	q.cond.Signal()

	return len(p), nil
}

func (q *queuedConn) Close() error {
	q.mu.Lock()
	q.closed = true
	q.queue = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	return q.Conn.Close()
}

func (q *queuedConn) drain() {
	for {
		q.mu.Lock()
		for len(q.queue) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()

			return
		}
		next := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()

		if _, err := q.Conn.Write(next); err != nil {
			q.mu.Lock()
			q.closed = true
			q.err = err
			q.queue = nil
			q.mu.Unlock()

			return
		}
	}
}
