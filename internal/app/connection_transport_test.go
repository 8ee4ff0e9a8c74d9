package app

import (
	"context"
	"errors"
	"testing"

	"github.com/richbai90/mvcapture/internal/config"
	"github.com/richbai90/mvcapture/internal/rpc"
)

func TestNewTransportForConnection(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ConnectionConfig
		want    string
		wantErr bool
	}{
		{
			name: "tcp",
			cfg:  config.ConnectionConfig{Connector: config.ConnectorTCP, Host: "127.0.0.1"},
			want: "tcp",
		},
		{
			name: "serial",
			cfg:  config.ConnectionConfig{Connector: config.ConnectorSerial, SerialPort: "/dev/ttyACM0", SerialBaud: 115200},
			want: "serial",
		},
		{
			name: "sim",
			cfg:  config.ConnectionConfig{Connector: config.ConnectorSim},
			want: "sim",
		},
		{
			name:    "unknown",
			cfg:     config.ConnectionConfig{Connector: "usb"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tr, err := NewTransportForConnection(tc.cfg)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got nil", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if tr.Name() != tc.want {
			t.Fatalf("%s: expected transport %q, got %q", tc.name, tc.want, tr.Name())
		}
	}
}

func TestConnectionTransportApplySwitchesImplementation(t *testing.T) {
	connTr, err := NewConnectionTransport(config.ConnectionConfig{Connector: config.ConnectorTCP, Host: "192.168.1.10"})
	if err != nil {
		t.Fatalf("new connection transport: %v", err)
	}
	if connTr.Name() != "tcp" {
		t.Fatalf("expected initial transport tcp, got %q", connTr.Name())
	}
	if got := connTr.StatusTarget(); got != "192.168.1.10:2217" {
		t.Fatalf("unexpected status target %q", got)
	}

	if err := connTr.Apply(config.ConnectionConfig{Connector: config.ConnectorSim}); err != nil {
		t.Fatalf("apply sim config: %v", err)
	}
	if connTr.Name() != "sim" {
		t.Fatalf("expected switched transport sim, got %q", connTr.Name())
	}
	if err := connTr.Connect(context.Background()); err != nil {
		t.Fatalf("connect sim: %v", err)
	}
	if !connTr.Connected() {
		t.Fatalf("sim transport should report connected")
	}
	if err := connTr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if connTr.Connected() {
		t.Fatalf("closed transport reports connected")
	}
}

func TestConnectionTransportApplyKeepsCurrentOnError(t *testing.T) {
	connTr, err := NewConnectionTransport(config.ConnectionConfig{Connector: config.ConnectorTCP, Host: "192.168.1.10"})
	if err != nil {
		t.Fatalf("new connection transport: %v", err)
	}

	if err := connTr.Apply(config.ConnectionConfig{Connector: config.ConnectorType("usb")}); err == nil {
		t.Fatalf("expected apply error for unknown connector")
	}
	if connTr.Name() != "tcp" {
		t.Fatalf("expected transport to remain tcp after failed apply, got %q", connTr.Name())
	}
}

func TestConnectionTransportUnconnectedReads(t *testing.T) {
	connTr, err := NewConnectionTransport(config.ConnectionConfig{Connector: config.ConnectorSim})
	if err != nil {
		t.Fatalf("new connection transport: %v", err)
	}

	var _ rpc.Transport = connTr
	if _, err := connTr.ReadRaw(context.Background(), make([]byte, 4)); !errors.Is(err, rpc.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
