package devicesim

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richbai90/mvcapture/internal/rpc"
	"github.com/richbai90/mvcapture/internal/snapshot"
)

func TestTransportReconnects(t *testing.T) {
	payload := bytes.Repeat([]byte{7}, 900)
	tr := NewTransport(New(StaticFrames(payload), nil))
	client := rpc.NewClient(tr, nil, 500*time.Millisecond)
	defer func() { _ = client.Close() }()

	if _, err := tr.ReadFrame(context.Background()); !errors.Is(err, rpc.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected before connect, got %v", err)
	}

	fetcher := snapshot.NewFetcher()
	for i := 0; i < 2; i++ {
		frame, err := fetcher.Fetch(context.Background(), client, snapshot.DefaultRequest(), snapshot.Cutthrough{Timeout: time.Second})
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if !bytes.Equal(frame.Data, payload) {
			t.Fatalf("fetch %d returned a different frame", i)
		}
		if !tr.Connected() {
			t.Fatalf("transport should be connected after fetch")
		}
		if err := tr.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	if tr.Device().Snapshots() != 2 {
		t.Fatalf("snapshots = %d", tr.Device().Snapshots())
	}
}

func TestTransportRecoversAfterSlowReply(t *testing.T) {
	payload := bytes.Repeat([]byte{3, 1, 4}, 700)
	d := New(StaticFrames(payload), nil)
	tr := NewTransport(d)
	client := rpc.NewClient(tr, nil, 200*time.Millisecond)
	defer func() { _ = client.Close() }()
	args := snapshot.DefaultRequest().Args()

	d.SetDelay(400 * time.Millisecond)
	if _, err := client.Call(context.Background(), "jpeg_image_snapshot", args); !errors.Is(err, rpc.ErrTimeout) {
		t.Fatalf("expected timeout from slow device, got %v", err)
	}

	d.SetDelay(0)
	time.Sleep(300 * time.Millisecond)
	for i := 0; i < 3; i++ {
		size, err := client.Call(context.Background(), "jpeg_image_snapshot", args)
		if err != nil {
			t.Fatalf("call %d after slow reply: %v", i, err)
		}
		if len(size) != 4 {
			t.Fatalf("call %d: expected 4-byte size, got %d bytes", i, len(size))
		}
	}

	frame, err := snapshot.NewFetcher().Fetch(context.Background(), client, snapshot.DefaultRequest(), snapshot.Chunked{Window: 512})
	if err != nil {
		t.Fatalf("chunked fetch after slow reply: %v", err)
	}
	if !bytes.Equal(frame.Data, payload) {
		t.Fatalf("chunked fetch returned a different frame")
	}
}

func TestPipeDeviceDoesNotBlockOnUnreadReplies(t *testing.T) {
	d := New(StaticFrames([]byte{1, 2, 3, 4}), nil)
	host, stop := Pipe(context.Background(), d)
	defer stop()
	client := rpc.NewClient(rpc.NewConnTransport("sim", host), nil, 300*time.Millisecond)
	args := snapshot.DefaultRequest().Args()

	// Nobody reads the first two replies before the third request goes out.
	d.SetDelay(100 * time.Millisecond)
	tr := client.Transport()
	for i := 0; i < 2; i++ {
		req := []byte{0x01, byte(200 + i), byte(len("jpeg_image_snapshot"))}
		req = append(append(req, "jpeg_image_snapshot"...), args...)
		if err := tr.WriteFrame(context.Background(), req); err != nil {
			t.Fatalf("write request %d: %v", i, err)
		}
	}
	d.SetDelay(0)

	if _, err := client.Call(context.Background(), "jpeg_image_snapshot", args); err != nil {
		t.Fatalf("call behind unread replies: %v", err)
	}
}
