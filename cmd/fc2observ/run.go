package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/FC2Observ/observ/internal/api"
	"github.com/FC2Observ/observ/internal/config"
	"github.com/FC2Observ/observ/internal/dispatcher"
	"github.com/FC2Observ/observ/internal/gsi"
	"github.com/FC2Observ/observ/internal/influx"
	"github.com/FC2Observ/observ/internal/logging"
	"github.com/FC2Observ/observ/internal/match"
	"github.com/FC2Observ/observ/internal/monitor"
	"github.com/FC2Observ/observ/internal/output"
	"github.com/FC2Observ/observ/internal/parser"
	"github.com/FC2Observ/observ/internal/poller"
	"github.com/FC2Observ/observ/internal/radar"
	"github.com/FC2Observ/observ/internal/worker"
)

// Services
var (
	matchContext    *match.Context
	eventDispatcher *dispatcher.Dispatcher
	workerManager   *worker.Manager
	sinks           *output.Multi
	pollerService   *poller.Poller
	gsiHandler      *gsi.Handler
	monitorService  *monitor.Service
	influxManager   *influx.Manager
)

// run assembles the pipeline and blocks until ctx is cancelled or the push
// receiver fails to listen.
func run(ctx context.Context) error {
	matchContext = match.NewContext()
	SlogManager.GetMapName = matchContext.MapName

	catalog, closeMaps, err := openCatalog(config.GetMapsConfig(), config.GetDBConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := closeMaps(); err != nil {
			Logger.Warn("Failed to close map source", "error", err)
		}
	}()

	radarCfg := config.GetRadarConfig()
	pool := radar.NewPool(radarCfg.TrailLength)

	sinks = output.NewSinks(config.GetOutputConfig(), os.Stdout, Logger)
	if err := sinks.Init(); err != nil {
		Logger.Warn("Some output sinks failed to start", "error", err)
	}
	if sinks.Len() == 0 {
		Logger.Warn("No output sink enabled, events are discarded")
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			Logger.Warn("Failed to close output sinks", "error", err)
		}
	}()

	eventDispatcher, err = dispatcher.New(Logger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	workerManager = worker.NewManager(worker.Dependencies{
		Output: sinks,
		Maps:   catalog,
		Match:  matchContext,
		Mapper: radar.NewMapper(pool),
		Radar:  radarCfg,
		Logger: Logger,
	})
	Logger.Debug("Registering worker handlers with dispatcher")
	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Info("Worker handlers registered with dispatcher")

	pollerCfg := config.GetPollerConfig()
	client := api.New(pollerCfg.URL, pollerCfg.Timeout)
	pollerService, err = poller.New(poller.Dependencies{
		Fetcher:  client,
		Parser:   parser.NewParser(Logger, pollerCfg.RequireLocalPlayer),
		Emitter:  eventDispatcher,
		Logger:   Logger,
		Interval: pollerCfg.Interval,
		Timeout:  pollerCfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}
	SlogManager.IsPollerRunning = pollerService.Running

	hcCtx, cancel := context.WithTimeout(ctx, pollerCfg.Timeout)
	if err := client.Healthcheck(hcCtx); err != nil {
		Logger.Warn("Snapshot source not reachable yet, polling anyway", "url", client.URL(), "error", err)
	}
	cancel()

	gsiHandler = gsi.NewHandler(eventDispatcher, Logger)
	gsiServer := gsi.NewServer(config.GetGSIConfig().Addr(), gsiHandler, Logger)

	var pointWriter monitor.PointWriter
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		influxManager = influx.NewManager(influxCfg, logging.NewZerolog(os.Stderr, config.GetLogConfig().Level, "influx"))
		if err := influxManager.Connect(ctx); err != nil {
			Logger.Error("Failed to initialize InfluxDB", "error", err)
		} else {
			pointWriter = influxManager
		}
		defer func() {
			if err := influxManager.Close(); err != nil {
				Logger.Warn("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	monCfg := config.GetMonitorConfig()
	monitorService = monitor.NewService(monitor.Dependencies{
		Poller:     pollerService,
		Push:       gsiHandler,
		Dropped:    eventDispatcher.Dropped,
		MapName:    matchContext.MapName,
		Influx:     pointWriter,
		Logger:     Logger,
		StatusFile: monCfg.StatusFile,
		Interval:   monCfg.Interval,
	})
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start status monitor", "error", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	var serveErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := gsiServer.Run(runCtx); err != nil {
			serveErr = fmt.Errorf("gsi receiver: %w", err)
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		_ = pollerService.Run(runCtx)
	}()

	<-runCtx.Done()
	Logger.Info("Shutting down")
	wg.Wait()

	monitorService.Stop()
	eventDispatcher.Close()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer flushCancel()
	if err := OTelProvider.Flush(flushCtx); err != nil {
		Logger.Warn("OTel flush failed", "error", err)
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}
