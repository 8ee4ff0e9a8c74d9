package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/richbai90/mvcapture/internal/rpc"
	"github.com/richbai90/mvcapture/internal/snapshot"
)

// ConnectorType identifies which link backend should be used.
type ConnectorType string

// TransferMode selects how frame payloads are pulled from the device.
type TransferMode string

const (
	ConnectorSerial ConnectorType = "serial"
	ConnectorTCP    ConnectorType = "tcp"
	ConnectorSim    ConnectorType = "sim"

	TransferCutthrough TransferMode = "cutthrough"
	TransferChunked    TransferMode = "chunked"

	DefaultSerialBaud    = rpc.DefaultBaudRate
	DefaultTCPPort       = rpc.DefaultTCPPort
	DefaultCallTimeoutMs = 1000
	DefaultRawTimeoutMs  = 5000
	DefaultDelayMs       = 1000
	DefaultBurstSize     = 10
	MaxWindow            = rpc.MaxResponseData
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level" toml:"level"`
	Format    string `json:"format" toml:"format"`
	LogToFile bool   `json:"log_to_file" toml:"log_to_file"`
}

// ConnectionConfig contains connector-specific link parameters.
type ConnectionConfig struct {
	Connector  ConnectorType `json:"connector" toml:"connector"`
	SerialPort string        `json:"serial_port" toml:"serial_port"`
	SerialBaud int           `json:"serial_baud" toml:"serial_baud"`
	Host       string        `json:"host" toml:"host"`
	Port       int           `json:"port" toml:"port"`
}

// TransferConfig tunes frame retrieval.
type TransferConfig struct {
	Mode              TransferMode `json:"mode" toml:"mode"`
	Window            int          `json:"window" toml:"window"`
	Attempts          int          `json:"attempts" toml:"attempts"`
	RetryDelayMs      int          `json:"retry_delay_ms" toml:"retry_delay_ms"`
	RetryMultiplier   float64      `json:"retry_multiplier" toml:"retry_multiplier"`
	RetryMaxDelayMs   int          `json:"retry_max_delay_ms" toml:"retry_max_delay_ms"`
	RetryJitter       bool         `json:"retry_jitter" toml:"retry_jitter"`
	CallTimeoutMs     int          `json:"call_timeout_ms" toml:"call_timeout_ms"`
	RawTimeoutMs      int          `json:"raw_timeout_ms" toml:"raw_timeout_ms"`
	FallbackToChunked bool         `json:"fallback_to_chunked" toml:"fallback_to_chunked"`
	MaxPayload        int          `json:"max_payload" toml:"max_payload"`
}

// SnapshotConfig is the sensor setup sent with every snapshot request.
type SnapshotConfig struct {
	PixelFormat string `json:"pixel_format" toml:"pixel_format"`
	FrameSize   string `json:"frame_size" toml:"frame_size"`
	FrameRate   string `json:"frame_rate" toml:"frame_rate"`
}

// SessionConfig describes a slideshow capture session.
type SessionConfig struct {
	ImageFolder string `json:"image_folder" toml:"image_folder"`
	DelayMs     int    `json:"delay_ms" toml:"delay_ms"`
	OutputDir   string `json:"output_dir" toml:"output_dir"`
	BurstSize   int    `json:"burst_size" toml:"burst_size"`
}

// NotificationConfig stores desktop notification preferences.
type NotificationConfig struct {
	Enabled bool                     `json:"enabled" toml:"enabled"`
	Events  NotificationEventsConfig `json:"events" toml:"events"`
}

// NotificationEventsConfig stores per-event notification toggles.
type NotificationEventsConfig struct {
	CaptureFailed    bool `json:"capture_failed" toml:"capture_failed"`
	SessionFinished  bool `json:"session_finished" toml:"session_finished"`
	ConnectionStatus bool `json:"connection_status" toml:"connection_status"`
}

type MetricsConfig struct {
	ListenAddr string `json:"listen_addr" toml:"listen_addr"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Connection    ConnectionConfig   `json:"connection" toml:"connection"`
	Transfer      TransferConfig     `json:"transfer" toml:"transfer"`
	Snapshot      SnapshotConfig     `json:"snapshot" toml:"snapshot"`
	Session       SessionConfig      `json:"session" toml:"session"`
	Logging       LoggingConfig      `json:"logging" toml:"logging"`
	Notifications NotificationConfig `json:"notifications" toml:"notifications"`
	Metrics       MetricsConfig      `json:"metrics" toml:"metrics"`
}

func Default() AppConfig {
	return AppConfig{
		Connection: ConnectionConfig{
			Connector:  ConnectorSerial,
			SerialBaud: DefaultSerialBaud,
			Port:       DefaultTCPPort,
		},
		Transfer: TransferConfig{
			Mode:          TransferCutthrough,
			Window:        snapshot.DefaultWindow,
			Attempts:      snapshot.DefaultAttempts,
			CallTimeoutMs: DefaultCallTimeoutMs,
			RawTimeoutMs:  DefaultRawTimeoutMs,
			MaxPayload:    snapshot.DefaultMaxPayload,
		},
		Snapshot: SnapshotConfig{
			PixelFormat: snapshot.DefaultPixelFormat,
			FrameSize:   snapshot.DefaultFrameSize,
		},
		Session: SessionConfig{
			DelayMs:   DefaultDelayMs,
			BurstSize: DefaultBurstSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Events: NotificationEventsConfig{
				CaptureFailed:    true,
				SessionFinished:  true,
				ConnectionStatus: true,
			},
		},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads the config at path, JSON unless the file ends in .toml. A
// missing file yields the defaults.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by the runtime or given on the command line.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if isTOML(cleanPath) {
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("decode config toml: %w", err)
		}
	} else if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	def := Default()
	if c.Connection.Connector == "" {
		c.Connection.Connector = def.Connection.Connector
	}
	if c.Connection.SerialBaud <= 0 {
		c.Connection.SerialBaud = DefaultSerialBaud
	}
	if c.Connection.Port == 0 {
		c.Connection.Port = DefaultTCPPort
	}
	c.Transfer.Mode = TransferMode(strings.ToLower(strings.TrimSpace(string(c.Transfer.Mode))))
	if c.Transfer.Mode == "" {
		c.Transfer.Mode = def.Transfer.Mode
	}
	if c.Transfer.Window == 0 {
		c.Transfer.Window = def.Transfer.Window
	}
	if c.Transfer.Attempts == 0 {
		c.Transfer.Attempts = def.Transfer.Attempts
	}
	if c.Transfer.CallTimeoutMs == 0 {
		c.Transfer.CallTimeoutMs = DefaultCallTimeoutMs
	}
	if c.Transfer.RawTimeoutMs == 0 {
		c.Transfer.RawTimeoutMs = DefaultRawTimeoutMs
	}
	if c.Transfer.MaxPayload == 0 {
		c.Transfer.MaxPayload = def.Transfer.MaxPayload
	}
	if strings.TrimSpace(c.Snapshot.PixelFormat) == "" {
		c.Snapshot.PixelFormat = def.Snapshot.PixelFormat
	}
	if strings.TrimSpace(c.Snapshot.FrameSize) == "" {
		c.Snapshot.FrameSize = def.Snapshot.FrameSize
	}
	if c.Session.DelayMs == 0 {
		c.Session.DelayMs = DefaultDelayMs
	}
	if c.Session.BurstSize == 0 {
		c.Session.BurstSize = DefaultBurstSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c AppConfig) Validate() error {
	var errs []error

	switch c.Connection.Connector {
	case ConnectorSerial:
		if strings.TrimSpace(c.Connection.SerialPort) == "" {
			errs = append(errs, errors.New("serial port is required"))
		}
		if c.Connection.SerialBaud <= 0 {
			errs = append(errs, errors.New("serial baud must be positive"))
		}
	case ConnectorTCP:
		if strings.TrimSpace(c.Connection.Host) == "" {
			errs = append(errs, errors.New("tcp host is required"))
		}
		if c.Connection.Port <= 0 || c.Connection.Port > 65535 {
			errs = append(errs, fmt.Errorf("tcp port out of range: %d", c.Connection.Port))
		}
	case ConnectorSim:
	default:
		errs = append(errs, fmt.Errorf("unknown connector: %s", c.Connection.Connector))
	}

	t := c.Transfer
	switch t.Mode {
	case TransferCutthrough, TransferChunked:
	default:
		errs = append(errs, fmt.Errorf("unknown transfer mode: %s", t.Mode))
	}
	if t.Window <= 0 || t.Window > MaxWindow {
		errs = append(errs, fmt.Errorf("transfer window must be in 1..%d, got %d", MaxWindow, t.Window))
	}
	if t.Attempts <= 0 {
		errs = append(errs, errors.New("transfer attempts must be positive"))
	}
	if t.CallTimeoutMs <= 0 || t.RawTimeoutMs <= 0 {
		errs = append(errs, errors.New("transfer timeouts must be positive"))
	}
	if t.RetryDelayMs < 0 || t.RetryMaxDelayMs < 0 || t.RetryMultiplier < 0 {
		errs = append(errs, errors.New("retry backoff values must not be negative"))
	}
	if t.MaxPayload <= 0 {
		errs = append(errs, errors.New("max payload must be positive"))
	}

	if err := c.SnapshotRequest().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Session.DelayMs <= 0 {
		errs = append(errs, errors.New("session delay must be positive"))
	}
	if c.Session.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format: %s", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func (c AppConfig) SnapshotRequest() snapshot.Request {
	return snapshot.Request{
		PixelFormat: c.Snapshot.PixelFormat,
		FrameSize:   c.Snapshot.FrameSize,
		FrameRate:   c.Snapshot.FrameRate,
	}
}

func (t TransferConfig) CallTimeout() time.Duration {
	return time.Duration(t.CallTimeoutMs) * time.Millisecond
}

func (t TransferConfig) RawTimeout() time.Duration {
	return time.Duration(t.RawTimeoutMs) * time.Millisecond
}

func (t TransferConfig) RetryPolicy() snapshot.RetryPolicy {
	return snapshot.RetryPolicy{
		Attempts: t.Attempts,
		Backoff: snapshot.Backoff{
			InitialDelay: time.Duration(t.RetryDelayMs) * time.Millisecond,
			Multiplier:   t.RetryMultiplier,
			MaxDelay:     time.Duration(t.RetryMaxDelayMs) * time.Millisecond,
			Jitter:       t.RetryJitter,
		},
	}
}

func (s SessionConfig) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		raw []byte
		err error
	)
	if isTOML(path) {
		raw, err = toml.Marshal(cfg)
	} else {
		raw, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
