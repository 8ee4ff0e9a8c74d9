package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/richbai90/mvcapture/internal/app"
	"github.com/richbai90/mvcapture/internal/capture"
	"github.com/richbai90/mvcapture/internal/config"
	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/imaging"
	"github.com/richbai90/mvcapture/internal/slideshow"
	"github.com/richbai90/mvcapture/internal/ui"
)

const usage = `Usage: slideshow [flags] [image_folder] [delay_ms] [output_dir] [port]

Shows every .jpg/.png in image_folder fullscreen for delay_ms and captures
the camera halfway through each slide into output_dir/<n>.jpg. Missing
arguments are asked for on stdin. A port of "sim" uses the built-in camera
simulator.

Flags:
`

type launchOptions struct {
	ConfigFile string
	Simulate   bool
	NoDecode   bool
	Verbose    bool

	Folder    string
	DelayMs   int
	OutputDir string
	Port      string
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		slog.Error("run slideshow", "error", err)
		os.Exit(1)
	}
}

func parseLaunchOptions(args []string, stderr io.Writer) (launchOptions, error) {
	var opts launchOptions
	fs := flag.NewFlagSet("slideshow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = io.WriteString(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.ConfigFile, "config", "", "config file (.json or .toml)")
	fs.BoolVar(&opts.Simulate, "simulate", false, "use the built-in camera simulator")
	fs.BoolVar(&opts.NoDecode, "no-decode", false, "save the last raw frame of each burst without stacking")
	fs.BoolVar(&opts.Verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return launchOptions{}, err
	}

	rest := fs.Args()
	if len(rest) > 4 {
		return launchOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(rest[4:], " "))
	}
	if len(rest) > 0 {
		opts.Folder = strings.TrimSpace(rest[0])
	}
	if len(rest) > 1 {
		delay, err := parseDelay(rest[1])
		if err != nil {
			return launchOptions{}, err
		}
		opts.DelayMs = delay
	}
	if len(rest) > 2 {
		opts.OutputDir = strings.TrimSpace(rest[2])
	}
	if len(rest) > 3 {
		opts.Port = strings.TrimSpace(rest[3])
	}

	return opts, nil
}

func parseDelay(raw string) (int, error) {
	delay, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || delay <= 0 {
		return 0, fmt.Errorf("delay must be a positive number of milliseconds: %q", raw)
	}

	return delay, nil
}

// promptMissing asks for every argument not given on the command line.
// An empty answer keeps the saved value when there is one.
func promptMissing(in *bufio.Reader, out io.Writer, opts *launchOptions, saved config.AppConfig) error {
	ask := func(question, current string) (string, error) {
		if current != "" {
			_, _ = fmt.Fprintf(out, "%s [%s]: ", question, current)
		} else {
			_, _ = fmt.Fprintf(out, "%s: ", question)
		}
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read answer: %w", err)
		}
		if answer := strings.TrimSpace(line); answer != "" {
			return answer, nil
		}

		return current, nil
	}

	var err error
	if opts.Folder == "" {
		if opts.Folder, err = ask("Folder containing the images", saved.Session.ImageFolder); err != nil {
			return err
		}
		if opts.Folder == "" {
			return errors.New("image folder is required")
		}
	}
	if opts.DelayMs == 0 {
		answer, err := ask("Delay between images in milliseconds", strconv.Itoa(saved.Session.DelayMs))
		if err != nil {
			return err
		}
		if opts.DelayMs, err = parseDelay(answer); err != nil {
			return err
		}
	}
	if opts.OutputDir == "" {
		if opts.OutputDir, err = ask("Folder where captures are saved", saved.Session.OutputDir); err != nil {
			return err
		}
		if opts.OutputDir == "" {
			return errors.New("output folder is required")
		}
	}
	if opts.Port == "" && !opts.Simulate && saved.Connection.Connector == config.ConnectorSerial {
		if opts.Port, err = ask("Camera serial port", saved.Connection.SerialPort); err != nil {
			return err
		}
	}

	return nil
}

func (o launchOptions) apply(cfg *config.AppConfig) {
	cfg.Session.ImageFolder = o.Folder
	cfg.Session.DelayMs = o.DelayMs
	cfg.Session.OutputDir = o.OutputDir
	switch {
	case o.Simulate || strings.EqualFold(o.Port, string(config.ConnectorSim)):
		cfg.Connection.Connector = config.ConnectorSim
	case o.Port != "":
		cfg.Connection.Connector = config.ConnectorSerial
		cfg.Connection.SerialPort = o.Port
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseLaunchOptions(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}

		return err
	}

	paths, err := app.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	if opts.ConfigFile != "" {
		paths = paths.WithConfigFile(opts.ConfigFile)
	}
	saved, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := promptMissing(bufio.NewReader(stdin), stdout, &opts, saved); err != nil {
		return err
	}

	images, err := slideshow.ListImages(opts.Folder)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtimeOpts := app.Options{ConfigFile: opts.ConfigFile, Configure: opts.apply}
	if !opts.NoDecode {
		runtimeOpts.Processor = imaging.NewStacker(slog.Default())
	}
	rt, err := app.Initialize(ctx, runtimeOpts)
	if err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}
	var closeOnce sync.Once
	closeRuntime := func() {
		closeOnce.Do(func() {
			_ = rt.Close()
		})
	}
	defer closeRuntime()

	logger := rt.LogManager.Logger("slideshow")
	cfg := rt.CurrentConfig()
	if err := rt.SaveAndApplyConfig(cfg); err != nil {
		logger.Warn("save session settings", "error", err)
	}

	delay := time.Duration(cfg.Session.DelayMs) * time.Millisecond
	player, err := slideshow.NewPlayer(images, delay)
	if err != nil {
		return err
	}
	sess := capture.NewSession(opts.Folder, opts.OutputDir, string(cfg.Transfer.Mode), len(images))
	logger.Info("starting slideshow",
		"session", sess.ID,
		"slides", len(images),
		"delay", delay,
		"output_dir", opts.OutputDir,
		"target", app.ConnectionTarget(cfg.Connection),
	)
	rt.Capture.PublishSession(sess, connectors.SessionStatusRunning)

	status, ok := rt.CurrentConnStatus()
	if !ok {
		status = app.ConnectionStatusFromConfig(cfg.Connection)
	}

	var (
		summary slideshow.Summary
		playErr error
	)
	err = ui.Run(ui.Dependencies{
		Bus:           rt.Bus,
		CurrentConfig: rt.CurrentConfig,
		InitialStatus: status,
		Play: func(playCtx context.Context, display slideshow.Display) error {
			runner := &slideshow.Runner{
				Player:   player,
				Display:  display,
				Capturer: rt.Capture,
				Session:  sess,
				Logger:   logger,
			}
			summary, playErr = runner.Run(mergeDone(playCtx, ctx))
			finalStatus := connectors.SessionStatusFinished
			if playErr != nil {
				finalStatus = connectors.SessionStatusAborted
			}
			rt.Capture.PublishSession(sess, finalStatus)

			return playErr
		},
		OnQuit: stop,
	})
	if err != nil {
		return fmt.Errorf("run ui: %w", err)
	}

	logger.Info("slideshow ended",
		"session", sess.ID,
		"slides", summary.Slides,
		"captured", summary.Captured,
		"failed", summary.Failed,
		"missing", summary.Missing,
	)
	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return playErr
	}

	return nil
}

// mergeDone returns a context that ends when either parent ends.
func mergeDone(a, b context.Context) context.Context {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	context.AfterFunc(ctx, func() { stop() })

	return ctx
}
