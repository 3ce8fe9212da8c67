package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FC2Observ/observ/internal/gsi"
	"github.com/FC2Observ/observ/internal/influx"
	"github.com/FC2Observ/observ/internal/poller"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DefaultInterval is used when no monitor interval is configured.
const DefaultInterval = time.Second

// PollerStats is implemented by *poller.Poller.
type PollerStats interface {
	Stats() poller.Stats
	Running() bool
}

// PushStats is implemented by *gsi.Handler.
type PushStats interface {
	Stats() gsi.Stats
}

// PointWriter is implemented by *influx.Manager.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Poller     PollerStats
	Push       PushStats
	Dropped    func() int64
	MapName    func() string
	Influx     PointWriter
	Logger     *slog.Logger
	StatusFile string
	Interval   time.Duration
}

// Status is the snapshot written to the status file every interval.
type Status struct {
	Time          time.Time    `json:"time"`
	Map           string       `json:"map"`
	PollerRunning bool         `json:"pollerRunning"`
	Poller        poller.Stats `json:"poller"`
	Push          gsi.Stats    `json:"push"`
	EventsDropped int64        `json:"eventsDropped"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects the current program status
func (s *Service) GetStatus() Status {
	st := Status{Time: time.Now().UTC()}
	if s.deps.MapName != nil {
		st.Map = s.deps.MapName()
	}
	if s.deps.Poller != nil {
		st.Poller = s.deps.Poller.Stats()
		st.PollerRunning = s.deps.Poller.Running()
	}
	if s.deps.Push != nil {
		st.Push = s.deps.Push.Stats()
	}
	if s.deps.Dropped != nil {
		st.EventsDropped = s.deps.Dropped()
	}
	return st
}

// WriteStatus replaces the status file with st. The file is written to a
// temporary name first so readers never see a partial document.
func (s *Service) WriteStatus(st Status) error {
	if s.deps.StatusFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	tmp := s.deps.StatusFile + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.deps.StatusFile), 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusFile)
}

func (s *Service) report() {
	st := s.GetStatus()
	if err := s.WriteStatus(st); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
	}

	if s.deps.Influx == nil {
		return
	}
	point := influx.TickPoint(st.Map, st.Poller.TicksOK, st.Poller.TicksFailed, st.Poller.TicksSkipped,
		st.Poller.LastTickDuration, st.Time)
	point.AddField("events_dropped", st.EventsDropped)
	point.AddField("push_received", st.Push.Received)
	point.AddField("push_dropped", st.Push.Dropped)
	if err := s.deps.Influx.WritePoint(point); err != nil {
		s.deps.Logger.Debug("Error writing status point", "error", err)
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval, "file", s.deps.StatusFile)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				s.report()
				return
			case <-ticker.C:
				s.report()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor after a final report and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	done := s.done
	if done == nil {
		s.mu.Unlock()
		return
	}
	s.done = nil
	close(s.stopChan)
	s.mu.Unlock()

	<-done
}
