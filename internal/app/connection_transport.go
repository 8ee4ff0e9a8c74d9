package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/richbai90/mvcapture/internal/config"
	"github.com/richbai90/mvcapture/internal/devicesim"
	"github.com/richbai90/mvcapture/internal/rpc"
)

const (
	simFrameWidth  = 640
	simFrameHeight = 480
)

type connectedReporter interface {
	Connected() bool
}

// SwitchableTransport wraps the active connector and lets runtime swap it on config updates.
type SwitchableTransport struct {
	mu sync.RWMutex

	cfg       config.ConnectionConfig
	transport rpc.Transport
}

func NewConnectionTransport(cfg config.ConnectionConfig) (*SwitchableTransport, error) {
	tr, err := newTransportForConnection(cfg)
	if err != nil {
		return nil, err
	}

	return &SwitchableTransport{
		cfg:       cfg,
		transport: tr,
	}, nil
}

func (t *SwitchableTransport) Apply(cfg config.ConnectionConfig) error {
	next, err := newTransportForConnection(cfg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	current := t.transport
	t.transport = next
	t.cfg = cfg
	t.mu.Unlock()

	if current != nil {
		_ = current.Close()
	}

	return nil
}

func (t *SwitchableTransport) Name() string {
	tr := t.current()
	if tr == nil {
		return "unknown"
	}

	return tr.Name()
}

func (t *SwitchableTransport) StatusTarget() string {
	t.mu.RLock()
	tr := t.transport
	cfg := t.cfg
	t.mu.RUnlock()

	if provider, ok := tr.(rpc.StatusTargetResolver); ok {
		if target := strings.TrimSpace(provider.StatusTarget()); target != "" {
			return target
		}
	}

	return ConnectionTarget(cfg)
}

func (t *SwitchableTransport) Connected() bool {
	reporter, ok := t.current().(connectedReporter)

	return ok && reporter.Connected()
}

func (t *SwitchableTransport) Connect(ctx context.Context) error {
	tr := t.current()
	if tr == nil {
		return fmt.Errorf("%w: transport is not configured", rpc.ErrNotConnected)
	}

	return tr.Connect(ctx)
}

func (t *SwitchableTransport) Close() error {
	tr := t.current()
	if tr == nil {
		return nil
	}

	return tr.Close()
}

func (t *SwitchableTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	tr := t.current()
	if tr == nil {
		return nil, rpc.ErrNotConnected
	}

	return tr.ReadFrame(ctx)
}

func (t *SwitchableTransport) WriteFrame(ctx context.Context, payload []byte) error {
	tr := t.current()
	if tr == nil {
		return rpc.ErrNotConnected
	}

	return tr.WriteFrame(ctx, payload)
}

func (t *SwitchableTransport) ReadRaw(ctx context.Context, buf []byte) (int, error) {
	tr := t.current()
	if tr == nil {
		return 0, rpc.ErrNotConnected
	}

	return tr.ReadRaw(ctx, buf)
}

func (t *SwitchableTransport) current() rpc.Transport {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.transport
}

func (t *SwitchableTransport) Config() config.ConnectionConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.cfg
}

func NewTransportForConnection(cfg config.ConnectionConfig) (rpc.Transport, error) {
	return newTransportForConnection(cfg)
}

func newTransportForConnection(cfg config.ConnectionConfig) (rpc.Transport, error) {
	switch cfg.Connector {
	case config.ConnectorTCP:
		return rpc.NewIPTransport(cfg.Host, cfg.Port), nil
	case config.ConnectorSerial:
		return rpc.NewSerialTransport(cfg.SerialPort, cfg.SerialBaud), nil
	case config.ConnectorSim:
		device := devicesim.New(devicesim.PatternFrames(simFrameWidth, simFrameHeight), slog.Default())

		return devicesim.NewTransport(device), nil
	default:
		return nil, fmt.Errorf("unknown connector: %q", cfg.Connector)
	}
}
