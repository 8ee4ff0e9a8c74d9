package capture

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/devicesim"
	"github.com/richbai90/mvcapture/internal/rpc"
	"github.com/richbai90/mvcapture/internal/snapshot"
)

type fakeProcessor struct {
	mu      sync.Mutex
	decoded int
	err     error
	bursts  [][][]byte
	outputs []string
}

func (p *fakeProcessor) Process(frames [][]byte, outputPath string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bursts = append(p.bursts, frames)
	p.outputs = append(p.outputs, outputPath)
	if p.decoded >= 0 && p.decoded < len(frames) {
		return p.decoded, p.err
	}

	return len(frames), p.err
}

func newTestService(t *testing.T, d *devicesim.Device, proc Processor, b bus.MessageBus, burst int) *Service {
	t.Helper()

	host, stop := devicesim.Pipe(context.Background(), d)
	t.Cleanup(stop)
	link := rpc.NewClient(rpc.NewConnTransport("sim", host), nil, 500*time.Millisecond)
	t.Cleanup(func() { _ = link.Close() })

	return NewService(Dependencies{Link: link, Bus: b, Processor: proc}, Settings{
		Request:   snapshot.DefaultRequest(),
		Strategy:  snapshot.Chunked{Window: 1024},
		BurstSize: burst,
	})
}

func TestRunSkipsAbsentFrames(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 3000)
	d := devicesim.New(devicesim.StaticFrames(payload), nil)
	d.FailSnapshots(2)
	proc := &fakeProcessor{decoded: -1}
	svc := newTestService(t, d, proc, nil, 4)

	res := svc.Run(context.Background(), Job{SessionID: "s1", SlideIndex: 3, OutputPath: "out/3.jpg"})
	if res.Err != nil {
		t.Fatalf("run: %v", res.Err)
	}
	if res.FramesOK != 2 || res.FramesAbsent != 2 {
		t.Fatalf("frames ok=%d absent=%d, want 2/2", res.FramesOK, res.FramesAbsent)
	}
	if res.Bytes != 2*len(payload) {
		t.Fatalf("bytes = %d", res.Bytes)
	}
	if len(proc.bursts) != 1 || len(proc.bursts[0]) != 2 {
		t.Fatalf("processor saw %d bursts", len(proc.bursts))
	}
	if proc.outputs[0] != "out/3.jpg" {
		t.Fatalf("output path = %q", proc.outputs[0])
	}
	if res.CaptureID == "" {
		t.Fatalf("expected capture id")
	}
}

func TestRunWithoutFramesReportsNoImage(t *testing.T) {
	d := devicesim.New(devicesim.StaticFrames([]byte{1, 2, 3}), nil)
	d.FailSnapshots(10)
	proc := &fakeProcessor{decoded: -1}
	svc := newTestService(t, d, proc, nil, 3)

	res := svc.Run(context.Background(), Job{OutputPath: filepath.Join(t.TempDir(), "0.jpg")})
	if !errors.Is(res.Err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", res.Err)
	}
	if !errors.Is(res.Err, snapshot.ErrNoFrame) {
		t.Fatalf("expected absence cause, got %v", res.Err)
	}
	if len(proc.bursts) != 0 {
		t.Fatalf("processor must not run without frames")
	}
}

func TestRunCountsDecodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		decoded int
		err     error
		wantErr error
	}{
		{name: "partial", decoded: 1},
		{name: "none", decoded: 0, err: errors.New("decode"), wantErr: ErrNoImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := devicesim.New(devicesim.StaticFrames([]byte{9, 9, 9, 9}), nil)
			proc := &fakeProcessor{decoded: tt.decoded, err: tt.err}
			svc := newTestService(t, d, proc, nil, 3)

			res := svc.Run(context.Background(), Job{OutputPath: "x.jpg"})
			if res.DecodeFailures != 3-tt.decoded {
				t.Fatalf("decode failures = %d", res.DecodeFailures)
			}
			if tt.wantErr == nil && res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, res.Err)
			}
		})
	}
}

func TestRunWithoutProcessorSavesLastFrame(t *testing.T) {
	payload, err := devicesim.TestPattern(64, 48, 0)
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	d := devicesim.New(devicesim.StaticFrames(payload), nil)
	svc := newTestService(t, d, nil, nil, 2)
	out := filepath.Join(t.TempDir(), "nested", "1.jpg")

	res := svc.Run(context.Background(), Job{OutputPath: out})
	if res.Err != nil {
		t.Fatalf("run: %v", res.Err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("saved frame differs from payload")
	}
}

func TestCaptureQueuePublishesEvents(t *testing.T) {
	b := bus.New(nil)
	defer b.Close()
	sub := b.Subscribe(connectors.TopicCaptureStarted, connectors.TopicCaptureResult)
	defer b.Unsubscribe(sub)

	d := devicesim.New(devicesim.StaticFrames([]byte{1, 2, 3, 4, 5}), nil)
	proc := &fakeProcessor{decoded: -1}
	svc := newTestService(t, d, proc, b, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	first := svc.Capture(Job{SessionID: "s", SlideIndex: 0, OutputPath: "0.jpg"})
	second := svc.Capture(Job{SessionID: "s", SlideIndex: 1, OutputPath: "1.jpg"})
	for i, ch := range []<-chan Result{first, second} {
		select {
		case res := <-ch:
			if res.Err != nil || res.Job.SlideIndex != i {
				t.Fatalf("result %d: %+v", i, res)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %d", i)
		}
	}

	var started, finished int
	for started+finished < 4 {
		select {
		case msg := <-sub:
			switch ev := msg.(type) {
			case connectors.CaptureStarted:
				started++
			case connectors.CaptureResult:
				if !ev.Succeeded() || ev.FramesOK != 1 {
					t.Fatalf("unexpected result event: %+v", ev)
				}
				finished++
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("events: started=%d finished=%d", started, finished)
		}
	}
}

func TestCaptureAfterStopFails(t *testing.T) {
	d := devicesim.New(devicesim.StaticFrames([]byte{1}), nil)
	svc := newTestService(t, d, &fakeProcessor{decoded: -1}, nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	cancel()
	<-svc.done

	res := <-svc.Capture(Job{OutputPath: "a.jpg"})
	if !errors.Is(res.Err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", res.Err)
	}
}

func TestCaptureRequiresOutputPath(t *testing.T) {
	svc := NewService(Dependencies{}, Settings{})
	res := <-svc.Capture(Job{})
	if res.Err == nil {
		t.Fatalf("expected error")
	}
}

func TestSessionTracksResults(t *testing.T) {
	sess := NewSession("slides", "out", "chunked", 3)
	job := sess.Job(2)
	if job.SessionID != sess.ID || job.OutputPath != filepath.Join("out", "2.jpg") {
		t.Fatalf("unexpected job: %+v", job)
	}
	sess.Record(Result{})
	sess.Record(Result{})
	sess.Record(Result{Err: ErrNoImage})

	state := sess.State(connectors.SessionStatusFinished)
	if state.Captured != 2 || state.Failed != 1 || state.Slides != 3 {
		t.Fatalf("unexpected state: %+v", state)
	}
}
