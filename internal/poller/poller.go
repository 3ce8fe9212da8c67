// Package poller drives the snapshot fetch, normalize and emit cycle on a
// fixed interval.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/FC2Observ/observ/internal/dispatcher"
	"github.com/FC2Observ/observ/internal/parser"
	"github.com/FC2Observ/observ/pkg/streaming"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/FC2Observ/observ/internal/poller"

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 100 * time.Millisecond

// Fetcher returns one raw snapshot document.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) ([]byte, error)
}

// Emitter receives the events of a tick.
type Emitter interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Stats is a point-in-time copy of the poller counters.
type Stats struct {
	TicksOK          int64         `json:"ticksOk"`
	TicksFailed      int64         `json:"ticksFailed"`
	TicksSkipped     int64         `json:"ticksSkipped"`
	LastTickDuration time.Duration `json:"lastTickDurationNs"`
	LastSuccess      time.Time     `json:"lastSuccess"`
}

// Dependencies holds all dependencies for the poller
type Dependencies struct {
	Fetcher  Fetcher
	Parser   *parser.Parser
	Emitter  Emitter
	Logger   *slog.Logger
	Interval time.Duration
	Timeout  time.Duration
}

// Poller fetches a snapshot every interval and emits its events.
// Failed ticks are skipped; the next tick is the only retry.
type Poller struct {
	deps Dependencies

	running      atomic.Bool
	ticksOK      atomic.Int64
	ticksFailed  atomic.Int64
	ticksSkipped atomic.Int64
	lastDuration atomic.Int64
	lastSuccess  atomic.Int64

	ticks    metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a poller. Uses the global OTel meter for metrics (no-op if not configured).
func New(deps Dependencies) (*Poller, error) {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	p := &Poller{deps: deps}
	m := otel.Meter(instrumentationName)

	var err error
	p.ticks, err = m.Int64Counter(
		"poller.ticks",
		metric.WithDescription("Poll ticks by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	p.duration, err = m.Float64Histogram(
		"poller.tick.duration",
		metric.WithDescription("Duration of a successful tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return p, nil
}

// Running reports whether Run is active.
func (p *Poller) Running() bool {
	return p.running.Load()
}

func (p *Poller) Stats() Stats {
	s := Stats{
		TicksOK:          p.ticksOK.Load(),
		TicksFailed:      p.ticksFailed.Load(),
		TicksSkipped:     p.ticksSkipped.Load(),
		LastTickDuration: time.Duration(p.lastDuration.Load()),
	}
	if ns := p.lastSuccess.Load(); ns != 0 {
		s.LastSuccess = time.Unix(0, ns)
	}
	return s
}

// Run ticks until ctx is cancelled. A tick in progress is abandoned on cancel.
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("poller already running")
	}
	defer p.running.Store(false)

	p.deps.Logger.Info("Poller started", "interval", p.deps.Interval, "timeout", p.deps.Timeout)

	ticker := time.NewTicker(p.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.deps.Logger.Info("Poller stopped")
			return nil
		case <-ticker.C:
			_ = p.Tick(ctx)
		}
	}
}

func (p *Poller) outcome(ctx context.Context, name string) {
	p.ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", name)))
}

// Tick runs one fetch, normalize and emit cycle.
func (p *Poller) Tick(ctx context.Context) error {
	start := time.Now()

	fetchCtx := ctx
	if p.deps.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.deps.Timeout)
		defer cancel()
	}

	body, err := p.deps.Fetcher.FetchSnapshot(fetchCtx)
	if err != nil {
		p.ticksFailed.Add(1)
		p.outcome(ctx, "fetch_failed")
		p.deps.Logger.Debug("Snapshot fetch failed", "error", err)
		return err
	}

	res, err := p.deps.Parser.Parse(body)
	if err != nil {
		var ve *parser.ValidationError
		if errors.As(err, &ve) {
			p.ticksSkipped.Add(1)
			p.outcome(ctx, "skipped")
		} else {
			p.ticksFailed.Add(1)
			p.outcome(ctx, "parse_failed")
			p.deps.Logger.Debug("Snapshot parse failed", "error", err)
		}
		return err
	}

	p.emit(res)

	elapsed := time.Since(start)
	p.ticksOK.Add(1)
	p.lastDuration.Store(int64(elapsed))
	p.lastSuccess.Store(time.Now().UnixNano())
	p.outcome(ctx, "ok")
	p.duration.Record(ctx, float64(elapsed.Microseconds())/1000)
	return nil
}

func (p *Poller) emit(res *parser.Result) {
	events := make([]dispatcher.Event, 0, 6)
	events = append(events, dispatcher.NewEvent(streaming.TypePlayers, streaming.PlayersPayload{Players: res.Players}))
	if res.Bomb != nil {
		events = append(events, dispatcher.NewEvent(streaming.TypeBomb, *res.Bomb))
	}
	events = append(events,
		dispatcher.NewEvent(streaming.TypeSmokes, res.Grenades.Smokes),
		dispatcher.NewEvent(streaming.TypeInfernos, res.Grenades.Infernos),
		dispatcher.NewEvent(streaming.TypeFlashbangs, res.Grenades.Flashbangs),
		dispatcher.NewEvent(streaming.TypeProjectiles, res.Grenades.Projectiles),
	)

	for _, e := range events {
		if _, err := p.deps.Emitter.Dispatch(e); err != nil {
			p.deps.Logger.Debug("Event not delivered", "type", e.Type, "error", err)
		}
	}
}
