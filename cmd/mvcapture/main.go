package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/richbai90/mvcapture/internal/app"
	"github.com/richbai90/mvcapture/internal/capture"
	"github.com/richbai90/mvcapture/internal/config"
	"github.com/richbai90/mvcapture/internal/imaging"
	"github.com/richbai90/mvcapture/internal/notifications"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("run mvcapture", "error", err)
		os.Exit(1)
	}
}

type options struct {
	ConfigFile  string
	Connector   string
	SerialPort  string
	Baud        int
	Host        string
	TCPPort     int
	Mode        string
	Window      int
	Attempts    int
	Fallback    bool
	Burst       int
	Count       int
	Out         string
	Format      string
	Size        string
	Rate        string
	Simulate    bool
	MetricsAddr string
	NoDecode    bool
	Verbose     bool

	set map[string]bool
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("mvcapture", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ConfigFile, "config", "", "config file (.json or .toml)")
	fs.StringVar(&opts.Connector, "connector", "", "link type: serial, tcp or sim")
	fs.StringVar(&opts.SerialPort, "port", "", "serial port, e.g. /dev/ttyACM0 or COM3")
	fs.IntVar(&opts.Baud, "baud", 0, "serial baud rate")
	fs.StringVar(&opts.Host, "host", "", "tcp bridge host[:port]")
	fs.StringVar(&opts.Mode, "mode", "", "transfer mode: cutthrough or chunked")
	fs.IntVar(&opts.Window, "window", 0, "chunk size in bytes for chunked mode")
	fs.IntVar(&opts.Attempts, "attempts", 0, "attempts per chunk in chunked mode")
	fs.BoolVar(&opts.Fallback, "fallback", false, "retry a failed cutthrough transfer in chunked mode")
	fs.IntVar(&opts.Burst, "burst", 0, "snapshots stacked into each capture")
	fs.IntVar(&opts.Count, "count", 1, "number of captures")
	fs.StringVar(&opts.Out, "out", "snapshot.jpg", "output file; numbered when -count > 1")
	fs.StringVar(&opts.Format, "format", "", "sensor pixel format, e.g. sensor.GRAYSCALE")
	fs.StringVar(&opts.Size, "size", "", "sensor frame size, e.g. sensor.B128X128")
	fs.StringVar(&opts.Rate, "rate", "", "sensor frame rate")
	fs.BoolVar(&opts.Simulate, "simulate", false, "use the built-in camera simulator")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	fs.BoolVar(&opts.NoDecode, "no-decode", false, "save the last raw frame without decoding or stacking")
	fs.BoolVar(&opts.Verbose, "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.Count < 1 {
		return options{}, fmt.Errorf("-count must be positive: %d", opts.Count)
	}
	if strings.TrimSpace(opts.Out) == "" {
		return options{}, errors.New("-out is required")
	}
	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	if opts.set["host"] {
		host, port, err := splitHostPort(opts.Host)
		if err != nil {
			return options{}, err
		}
		opts.Host, opts.TCPPort = host, port
	}

	return opts, nil
}

// apply overrides cfg with the flags given on the command line.
func (o options) apply(cfg *config.AppConfig) {
	if o.set["connector"] {
		cfg.Connection.Connector = config.ConnectorType(strings.ToLower(strings.TrimSpace(o.Connector)))
	}
	if o.set["port"] {
		cfg.Connection.SerialPort = strings.TrimSpace(o.SerialPort)
		if !o.set["connector"] {
			cfg.Connection.Connector = config.ConnectorSerial
		}
	}
	if o.set["baud"] {
		cfg.Connection.SerialBaud = o.Baud
	}
	if o.set["host"] {
		cfg.Connection.Host = o.Host
		if o.TCPPort > 0 {
			cfg.Connection.Port = o.TCPPort
		}
		if !o.set["connector"] {
			cfg.Connection.Connector = config.ConnectorTCP
		}
	}
	if o.Simulate {
		cfg.Connection.Connector = config.ConnectorSim
	}
	if o.set["mode"] {
		cfg.Transfer.Mode = config.TransferMode(strings.ToLower(strings.TrimSpace(o.Mode)))
	}
	if o.set["window"] {
		cfg.Transfer.Window = o.Window
	}
	if o.set["attempts"] {
		cfg.Transfer.Attempts = o.Attempts
	}
	if o.set["fallback"] {
		cfg.Transfer.FallbackToChunked = o.Fallback
	}
	if o.set["burst"] {
		cfg.Session.BurstSize = o.Burst
	}
	if o.set["format"] {
		cfg.Snapshot.PixelFormat = o.Format
	}
	if o.set["size"] {
		cfg.Snapshot.FrameSize = o.Size
	}
	if o.set["rate"] {
		cfg.Snapshot.FrameRate = o.Rate
	}
	if o.set["metrics-addr"] {
		cfg.Metrics.ListenAddr = o.MetricsAddr
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.Logging.LogToFile = false
}

func splitHostPort(raw string) (string, int, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, ":") {
		return raw, 0, nil
	}
	host, portText, err := net.SplitHostPort(raw)
	if err != nil {
		return "", 0, fmt.Errorf("parse -host: %w", err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("parse -host: invalid port %q", portText)
	}

	return host, port, nil
}

// outputPath numbers captures as name-001.jpg, name-002.jpg, ... when more
// than one is taken.
func outputPath(out string, index, count int) string {
	if count <= 1 {
		return out
	}
	ext := filepath.Ext(out)
	if ext == "" {
		ext = ".jpg"
	}

	return fmt.Sprintf("%s-%03d%s", strings.TrimSuffix(out, filepath.Ext(out)), index+1, ext)
}

func run(args []string) error {
	opts, err := parseOptions(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}

		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtimeOpts := app.Options{
		ConfigFile:    opts.ConfigFile,
		Configure:     opts.apply,
		Notifications: notifications.NewBeeepSender(slog.Default()),
	}
	if !opts.NoDecode {
		runtimeOpts.Processor = imaging.NewStacker(slog.Default())
	}

	rt, err := app.Initialize(ctx, runtimeOpts)
	if err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}
	defer func() {
		_ = rt.Close()
	}()

	logger := rt.LogManager.Logger("cli")
	cfg := rt.CurrentConfig()
	logger.Info("starting mvcapture",
		"version", app.BuildVersion(),
		"connector", cfg.Connection.Connector,
		"target", app.ConnectionTarget(cfg.Connection),
		"mode", cfg.Transfer.Mode,
		"burst", rt.Capture.Settings().BurstSize,
		"count", opts.Count,
	)

	failed := 0
	for i := 0; i < opts.Count; i++ {
		job := capture.Job{SlideIndex: i, OutputPath: outputPath(opts.Out, i, opts.Count)}
		var res capture.Result
		select {
		case res = <-rt.Capture.Capture(job):
		case <-ctx.Done():
			return ctx.Err()
		}
		if res.Err != nil {
			failed++
			logger.Error("capture failed", "index", i, "error", res.Err)

			continue
		}
		logger.Info("capture written",
			"path", job.OutputPath,
			"frames", res.FramesOK,
			"absent", res.FramesAbsent,
			"decode_failures", res.DecodeFailures,
			"bytes", res.Bytes,
			"duration", res.Duration.Round(time.Millisecond),
			"throughput_kib_s", throughput(res.Bytes, res.Duration),
		)
	}

	if failed == opts.Count {
		return fmt.Errorf("all %d captures failed", opts.Count)
	}
	if failed > 0 {
		logger.Warn("some captures failed", "failed", failed, "count", opts.Count)
	}

	return nil
}

func throughput(bytes int, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}

	return strconv.FormatFloat(float64(bytes)/1024/d.Seconds(), 'f', 1, 64)
}
