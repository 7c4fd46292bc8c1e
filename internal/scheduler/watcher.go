package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/notify"
	"github.com/hamed0406/slotwatch/internal/probe"
	"github.com/hamed0406/slotwatch/internal/repo"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	}
	return "IDLE"
}

// Reporter prints the per-location outcome of each cycle.
type Reporter interface {
	Found(loc domain.LocationID, at time.Time) error
	NotFound(loc domain.LocationID, w domain.Window) error
	Warn(msg string) error
}

type WatchConfig struct {
	Locations      []domain.LocationID
	Window         domain.Window
	Interval       time.Duration
	RequestTimeout time.Duration
	// FirstSlotOnly matches only the soonest returned slot instead of
	// every slot in the response.
	FirstSlotOnly bool
}

type Watcher struct {
	Logger   *zap.Logger
	Fetcher  probe.Fetcher
	Reporter Reporter
	Alerts   notify.Notifier
	Status   repo.StatusStore
	Cfg      WatchConfig

	state atomic.Int32
	now   func() time.Time

	mCycles      prometheus.Counter
	mFetches     prometheus.Counter
	mFetchErrors prometheus.Counter
	mMatches     prometheus.Counter
	mAlertErrors prometheus.Counter
	mCycleDur    prometheus.Histogram
}

// NewWatcher wires a watcher. Metrics are registered on reg when it is
// non-nil. status may be nil.
func NewWatcher(
	logger *zap.Logger,
	fetcher probe.Fetcher,
	reporter Reporter,
	alerts notify.Notifier,
	status repo.StatusStore,
	cfg WatchConfig,
	reg prometheus.Registerer,
) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if alerts == nil {
		alerts = notify.Nop{}
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	f := promauto.With(reg)
	return &Watcher{
		Logger:   logger,
		Fetcher:  fetcher,
		Reporter: reporter,
		Alerts:   alerts,
		Status:   status,
		Cfg:      cfg,
		now:      time.Now,
		mCycles: f.NewCounter(prometheus.CounterOpts{
			Name: "slotwatch_cycles_total", Help: "Completed poll cycles",
		}),
		mFetches: f.NewCounter(prometheus.CounterOpts{
			Name: "slotwatch_fetches_total", Help: "Slot queries sent to the scheduler API",
		}),
		mFetchErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "slotwatch_fetch_errors_total", Help: "Slot queries that failed and were skipped",
		}),
		mMatches: f.NewCounter(prometheus.CounterOpts{
			Name: "slotwatch_matches_total", Help: "Slots found inside the window",
		}),
		mAlertErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "slotwatch_alert_errors_total", Help: "Alerts that could not be delivered",
		}),
		mCycleDur: f.NewHistogram(prometheus.HistogramOpts{
			Name: "slotwatch_cycle_duration_seconds", Help: "Poll cycle duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (w *Watcher) State() State { return State(w.state.Load()) }

func (w *Watcher) setState(s State) { w.state.Store(int32(s)) }

// Run polls until ctx is cancelled, sleeping Interval between cycles.
// Cancellation is observed between cycles only, so a started cycle always
// finishes. It returns nil when stopped by ctx and the error otherwise.
func (w *Watcher) Run(ctx context.Context) error {
	w.setState(StateRunning)
	w.Logger.Info("watch_started",
		zap.Ints("locations", locationInts(w.Cfg.Locations)),
		zap.Time("window_start", w.Cfg.Window.Start),
		zap.Time("window_end", w.Cfg.Window.End),
		zap.Duration("interval", w.Cfg.Interval),
		zap.Bool("first_slot_only", w.Cfg.FirstSlotOnly),
	)

	for {
		if ctx.Err() != nil {
			return w.stop()
		}
		if err := w.RunCycle(ctx); err != nil {
			w.setState(StateFailed)
			w.Logger.Error("watch_failed", zap.Error(err))
			return err
		}

		t := time.NewTimer(w.Cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return w.stop()
		case <-t.C:
		}
	}
}

func (w *Watcher) stop() error {
	w.setState(StateStopped)
	w.Logger.Info("watch_stopped")
	return nil
}

// RunCycle checks every location once, in configured order.
func (w *Watcher) RunCycle(ctx context.Context) error {
	start := time.Now()
	defer func() { w.mCycleDur.Observe(time.Since(start).Seconds()) }()

	// in-flight work is never aborted by an interrupt
	cctx := context.WithoutCancel(ctx)
	for _, loc := range w.Cfg.Locations {
		if err := w.checkLocation(cctx, loc); err != nil {
			return err
		}
	}
	w.mCycles.Inc()
	return nil
}

func (w *Watcher) checkLocation(ctx context.Context, loc domain.LocationID) error {
	fctx, cancel := context.WithTimeout(ctx, w.Cfg.RequestTimeout)
	slots, err := w.Fetcher.Fetch(fctx, loc)
	cancel()
	w.mFetches.Inc()

	obs := domain.Observation{Location: loc, CheckedAt: w.now().UTC()}
	if err != nil {
		w.mFetchErrors.Inc()
		obs.Err = err.Error()
		w.Logger.Warn("fetch_error", zap.Int("location_id", int(loc)), zap.Error(err))
		if werr := w.Reporter.Warn(fmt.Sprintf("could not check location %d: %v", loc, err)); werr != nil {
			return fmt.Errorf("report location %d: %w", loc, werr)
		}
	}

	slot, ok := w.match(slots)
	if !ok {
		w.record(ctx, obs)
		if err := w.Reporter.NotFound(loc, w.Cfg.Window); err != nil {
			return fmt.Errorf("report location %d: %w", loc, err)
		}
		w.Logger.Debug("slot_not_found", zap.Int("location_id", int(loc)), zap.Int("returned", len(slots)))
		return nil
	}

	w.mMatches.Inc()
	obs.Found = true
	obs.Slot = &slot.Start
	w.record(ctx, obs)
	w.Logger.Info("slot_found", zap.Int("location_id", int(loc)), zap.Time("slot", slot.Start))
	if err := w.Reporter.Found(loc, slot.Start); err != nil {
		return fmt.Errorf("report location %d: %w", loc, err)
	}

	title, text := notify.AlertText(loc, slot.Start)
	if err := w.Alerts.Send(ctx, title, text); err != nil {
		w.mAlertErrors.Inc()
		w.Logger.Warn("alert_error", zap.Int("location_id", int(loc)), zap.Error(err))
		if werr := w.Reporter.Warn("alert failed: " + err.Error()); werr != nil {
			return fmt.Errorf("report location %d: %w", loc, werr)
		}
	}
	return nil
}

// match returns the soonest slot inside the window.
func (w *Watcher) match(slots []domain.Slot) (domain.Slot, bool) {
	if w.Cfg.FirstSlotOnly && len(slots) > 1 {
		slots = slots[:1]
	}
	for _, s := range slots {
		if w.Cfg.Window.Contains(s.Start) {
			return s, true
		}
	}
	return domain.Slot{}, false
}

func (w *Watcher) record(ctx context.Context, o domain.Observation) {
	if w.Status == nil {
		return
	}
	if err := w.Status.Record(ctx, o); err != nil {
		w.Logger.Warn("status_record_error", zap.Int("location_id", int(o.Location)), zap.Error(err))
	}
}

func locationInts(locs []domain.LocationID) []int {
	out := make([]int, len(locs))
	for i, l := range locs {
		out[i] = int(l)
	}
	return out
}
