package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"levels/cmd"
	"levels/internal/control"
	"levels/internal/engine"
	"levels/internal/log"
	"levels/internal/metrics"
	"levels/internal/transport"
	"levels/internal/tui"
	"levels/pkg/build"

	"github.com/prometheus/client_golang/prometheus"
)

const startTimeout = 5 * time.Second

// main is the entry point for the loudness meter.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load configuration
//   - Open the capture backend
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the metrics endpoint if configured
//   - Start the engine through the controller
//   - Deliver readings to the terminal meter or stdout
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the engine and its controller
//   - Release the capture backend
func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no ldflags; that is not fatal.
	buildErr := build.Initialize()

	// Limit OS threads: the capture callback thread is owned by the audio
	// backend, one thread polls the ring and one serves UI and I/O.
	runtime.GOMAXPROCS(2)

	options, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if options.Command == "" {
		return nil // --help or --version
	}
	cfg := options.Config

	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	if buildErr != nil {
		log.Debugf("Build: %v", buildErr)
	}

	provider, release, err := cmd.NewProvider(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			log.Errorf("Capture: %v", err)
		}
	}()

	// Handle one-off commands that don't require the engine to be running
	if options.Command == cmd.CommandList {
		return cmd.ListDevices(os.Stdout, provider)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if addr := cfg.Metrics.ListenAddress; addr != "" {
		go func() {
			if err := m.Serve(ctx, addr); err != nil {
				log.Errorf("Metrics: %v", err)
			}
		}()
	}

	ctrl := control.New(engine.New(provider, engine.WithMetrics(m)))
	defer func() {
		// ==================== SHUTDOWN PHASE (Cold Path) ====================
		if err := ctrl.Close(); err != nil {
			log.Errorf("Control: %v", err)
		}
	}()

	if cfg.UI.Plain {
		return runPlain(ctx, ctrl)
	}
	return runMeter(ctx, ctrl)
}

// runPlain prints one line per reading until a termination signal arrives.
func runPlain(ctx context.Context, ctrl *control.Controller) error {
	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := ctrl.Start(startCtx, transport.NewLoggingResponder(os.Stdout)); err != nil {
		return err
	}
	if status, err := ctrl.Status(startCtx); err == nil {
		c := status.Config
		log.Infof("Metering %s at %d Hz, %d ch, %s", status.Device.Name, c.SampleRate, c.Channels, c.Format)
	}

	// Block until termination signal is received
	<-ctx.Done()
	return nil
}

// runMeter shows the terminal meter. Logs go to a file so they don't tear
// the screen.
func runMeter(ctx context.Context, ctrl *control.Controller) error {
	logPath := filepath.Join(os.TempDir(), build.GetBuildFlags().Name+".log")
	if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		log.SetOutput(f)
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}
	defer log.SetOutput(os.Stderr)

	var also transport.Responder
	if log.GetLevel() == log.LevelDebug {
		also = transport.NewLoggingResponder(logWriter{})
	}
	return tui.Run(ctx, ctrl, also)
}

// logWriter sends each write to the debug log.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Debugf("Reading: %s", strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
