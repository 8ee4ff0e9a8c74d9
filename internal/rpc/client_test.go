package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"
)

func startDevice(t *testing.T, handler HandlerFunc) *Client {
	t.Helper()

	host, device := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Serve(ctx, device, handler, nil)
	}()
	t.Cleanup(func() {
		cancel()
		_ = host.Close()
		_ = device.Close()
		<-done
	})

	return NewClient(NewConnTransport("pipe", host), nil, 200*time.Millisecond)
}

func TestCallReturnsResult(t *testing.T) {
	client := startDevice(t, func(name string, args []byte) Reply {
		return Reply{Data: append([]byte(name+":"), args...)}
	})

	got, err := client.Call(context.Background(), "echo", []byte("abc"))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(got) != "echo:abc" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestCallEmptyResultIsNotAnError(t *testing.T) {
	client := startDevice(t, func(string, []byte) Reply { return Reply{} })

	got, err := client.Call(context.Background(), "sync", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %x", got)
	}
}

func TestCallNoResult(t *testing.T) {
	client := startDevice(t, func(string, []byte) Reply { return Reply{NoResult: true} })

	_, err := client.Call(context.Background(), "snap", nil)
	if !errors.Is(err, ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("no-result reply must not look like a timeout: %v", err)
	}
}

func TestCallTimeout(t *testing.T) {
	client := startDevice(t, func(string, []byte) Reply { return Reply{Silent: true} })

	started := time.Now()
	_, err := client.Call(context.Background(), "snap", nil)
	if !errors.Is(err, ErrNoResponse) || !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrNoResponse+ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("call took too long: %s", elapsed)
	}
}

func TestCallDiscardsStaleResponse(t *testing.T) {
	host, device := net.Pipe()
	t.Cleanup(func() {
		_ = host.Close()
		_ = device.Close()
	})
	client := NewClient(NewConnTransport("pipe", host), nil, time.Second)

	go func() {
		payload, err := readFrame(ioReadFullFunc(device))
		if err != nil {
			return
		}
		req, err := decodeRequest(payload)
		if err != nil {
			return
		}
		for _, resp := range []response{
			{seq: req.seq - 1, status: statusOK, data: []byte("stale")},
			{seq: req.seq, status: statusOK, data: []byte("fresh")},
		} {
			out, _ := encodeResponse(resp)
			frame, _ := encodeFrame(out)
			if _, err := device.Write(frame); err != nil {
				return
			}
		}
	}()

	got, err := client.Call(context.Background(), "snap", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(got) != "fresh" {
		t.Fatalf("expected fresh response, got %q", got)
	}
}

func TestReadBytesStream(t *testing.T) {
	stream := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	client := startDevice(t, func(string, []byte) Reply { return Reply{Stream: stream} })

	if _, err := client.Call(context.Background(), "read", nil); err != nil {
		t.Fatalf("call: %v", err)
	}
	buf := make([]byte, len(stream))
	if err := client.ReadBytes(context.Background(), buf, time.Second); err != nil {
		t.Fatalf("read bytes: %v", err)
	}
	if !bytes.Equal(buf, stream) {
		t.Fatalf("stream mismatch: got %x want %x", buf, stream)
	}
}

func TestReadBytesShortRead(t *testing.T) {
	client := startDevice(t, func(string, []byte) Reply { return Reply{Stream: []byte{1, 2, 3, 4}} })

	if _, err := client.Call(context.Background(), "read", nil); err != nil {
		t.Fatalf("call: %v", err)
	}
	err := client.ReadBytes(context.Background(), make([]byte, 8), 50*time.Millisecond)

	var short *ShortReadError
	if !errors.As(err, &short) {
		t.Fatalf("expected ShortReadError, got %v", err)
	}
	if short.Read != 4 || short.Want != 8 {
		t.Fatalf("unexpected short read counts: %+v", short)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected short read to be a timeout, got %v", err)
	}
}

func TestOverlappingUseIsRejected(t *testing.T) {
	client := startDevice(t, func(string, []byte) Reply { return Reply{} })

	client.inFlight.Lock()
	defer client.inFlight.Unlock()

	if _, err := client.Call(context.Background(), "snap", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from Call, got %v", err)
	}
	if err := client.ReadBytes(context.Background(), make([]byte, 1), time.Millisecond); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from ReadBytes, got %v", err)
	}
}

type writeFailTransport struct {
	writeErr   error
	closeCalls int
}

func (t *writeFailTransport) Name() string {
	return "fake"
}

func (t *writeFailTransport) Connect(context.Context) error {
	return nil
}

func (t *writeFailTransport) Close() error {
	t.closeCalls++

	return nil
}

func (t *writeFailTransport) ReadFrame(context.Context) ([]byte, error) {
	return nil, ErrTimeout
}

func (t *writeFailTransport) WriteFrame(context.Context, []byte) error {
	return t.writeErr
}

func (t *writeFailTransport) ReadRaw(context.Context, []byte) (int, error) {
	return 0, ErrTimeout
}

func TestCallDropsLinkAfterFailedWrite(t *testing.T) {
	tests := []struct {
		name      string
		writeErr  error
		wantClose int
	}{
		{name: "write deadline", writeErr: fmt.Errorf("write frame: %w", os.ErrDeadlineExceeded), wantClose: 1},
		{name: "broken pipe", writeErr: errors.New("write frame: broken pipe"), wantClose: 1},
		{name: "not connected", writeErr: ErrNotConnected, wantClose: 0},
	}

	for _, tt := range tests {
		tr := &writeFailTransport{writeErr: tt.writeErr}
		client := NewClient(tr, nil, 50*time.Millisecond)

		_, err := client.Call(context.Background(), "snap", nil)
		if !errors.Is(err, ErrNoResponse) {
			t.Fatalf("%s: expected ErrNoResponse, got %v", tt.name, err)
		}
		if tr.closeCalls != tt.wantClose {
			t.Fatalf("%s: expected %d closes, got %d", tt.name, tt.wantClose, tr.closeCalls)
		}
	}
}

func TestReadTimeoutKeepsLink(t *testing.T) {
	tr := &writeFailTransport{}
	client := NewClient(tr, nil, 50*time.Millisecond)

	if _, err := client.Call(context.Background(), "snap", nil); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if tr.closeCalls != 0 {
		t.Fatalf("read timeout must not close the link, got %d closes", tr.closeCalls)
	}
}
