package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/FC2Observ/observ/internal/config"
	"github.com/FC2Observ/observ/internal/logging"
	intOtel "github.com/FC2Observ/observ/internal/otel"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "fc2observ"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// LogFile is the rotating log file of this session
	LogFile io.WriteCloser

	SessionStartTime time.Time = time.Now()

	closers      []io.Closer
	shutdownOnce sync.Once
)

func usage() {
	fmt.Fprintf(os.Stderr, `%s %s (%s)

Usage:
  %s [-config dir] [run]           poll the observer client and stream events
  %s [-config dir] maps import dir  load <dir>/<map>/meta.* into the map database
  %s [-config dir] maps list        list maps known to the configured source
  %s schema -out dir                write JSON Schemas of every outbound event
`, AppName, CurrentVersion, BuildDate, AppName, AppName, AppName, AppName)
}

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	cmd := "run"
	if len(args) > 0 {
		cmd = strings.ToLower(args[0])
		args = args[1:]
	}

	if cmd == "schema" {
		if err := runSchema(args); err != nil {
			fmt.Fprintf(os.Stderr, "schema: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := setup(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer shutdownLogging()

	var err error
	switch cmd {
	case "run":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = run(ctx)
		stop()
	case "maps":
		err = runMaps(args)
	default:
		usage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		Logger.Error("Exiting with error", "command", cmd, "error", err)
		shutdownLogging()
		os.Exit(1)
	}
}

// setup loads the config and brings up logging. Console output goes to
// stderr because stdout may carry the event stream.
func setup(configDir string) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		if !errors.Is(err, config.ErrNoConfigFile) {
			return err
		}
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}

	logCfg := config.GetLogConfig()
	if err := os.MkdirAll(logCfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	LogFile = logging.NewRotatingFile(
		logging.LogFilePath(logCfg.Dir, AppName, SessionStartTime),
		logging.RotationConfig{
			MaxSizeMB:  logCfg.MaxSizeMB,
			MaxBackups: logCfg.MaxBackups,
			MaxAgeDays: logCfg.MaxAgeDays,
		},
	)

	var err error
	OTelProvider, err = intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), LogFile))
	if err != nil {
		Logger.Error("Failed to initialize OTel, continuing without it", "error", err)
		OTelProvider, _ = intOtel.New(intOtel.Config{})
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, closer, err := logging.NewGelfHandler(gl.Address, logCfg.Level)
		if err != nil {
			Logger.Error("Failed to initialize Graylog output", "address", gl.Address, "error", err)
		} else {
			extra = append(extra, h)
			closers = append(closers, closer)
		}
	}

	SlogManager.Setup(LogFile, logCfg.Level, OTelProvider.LoggerProvider(), extra...)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)

	Logger.Info("Starting", "app", AppName, "version", CurrentVersion, "build", BuildDate)
	return nil
}

func shutdownLogging() {
	shutdownOnce.Do(flushAndClose)
}

func flushAndClose() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "log flush failed: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown failed: %v\n", err)
		}
	}
	for _, c := range closers {
		_ = c.Close()
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
