// Package detect runs conflict detection behind a debounce boundary.
//
// Submissions replace the current job snapshot and arm a quiet-period
// timer; only after the input settles does a detection pass run, and
// only the latest submission's result is published (last-write-wins).
package detect

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fieldops/internal/eventbus"
	"fieldops/internal/schedule"
	"fieldops/internal/schedule/alert"
	"fieldops/internal/schedule/conflict"
)

const (
	defaultDebounce    = 500 * time.Millisecond
	defaultRatePerMin  = 60
	defaultHistorySize = 200
)

type Config struct {
	Enabled       bool
	Debounce      time.Duration
	RatePerMinute int
	HistorySize   int
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = defaultRatePerMin
	}
	if c.HistorySize <= 0 {
		c.HistorySize = defaultHistorySize
	}
	return c
}

// Result is the payload published on the bus after each pass.
type Result struct {
	Generation uint64              `json:"generation"`
	Jobs       int                 `json:"jobs"`
	Conflicts  []conflict.Conflict `json:"conflicts"`
	Alerts     []alert.Alert       `json:"alerts"`
	StartedAt  time.Time           `json:"started_at"`
	Took       time.Duration       `json:"took"`
}

// RunInfo is one entry in the bounded run history.
type RunInfo struct {
	Generation uint64        `json:"generation"`
	StartedAt  time.Time     `json:"started_at"`
	Took       time.Duration `json:"took"`
	Jobs       int           `json:"jobs"`
	Conflicts  int           `json:"conflicts"`
	Alerts     int           `json:"alerts"`
}

// Snapshot is a point-in-time view for introspection.
type Snapshot struct {
	Enabled    bool      `json:"enabled"`
	Generation uint64    `json:"generation"`
	Pending    bool      `json:"pending"`
	Runs       []RunInfo `json:"runs"`
}

type Service struct {
	log *slog.Logger
	bus eventbus.Bus

	// now is swappable for tests.
	now func() time.Time

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	jobs  []schedule.Job
	techs []schedule.Technician
	gen   uint64

	timer   *time.Timer
	pending bool

	history []RunInfo

	// Alert IDs of the last published pass, for change detection.
	lastAlertIDs []string

	trigger chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
}

func New(cfg Config, log *slog.Logger, bus eventbus.Bus) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.withDefaults()
	return &Service{
		log:     log,
		bus:     bus,
		now:     time.Now,
		cfg:     cfg,
		limiter: newLimiter(cfg.RatePerMinute),
		trigger: make(chan struct{}, 1),
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = defaultRatePerMin
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
}

// Enabled reports the current config flag. (Thread-safe; Apply() may run concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.RatePerMinute != s.cfg.RatePerMinute {
		s.limiter = newLimiter(cfg.RatePerMinute)
	}
	s.cfg = cfg
	if len(s.history) > cfg.HistorySize {
		s.history = s.history[len(s.history)-cfg.HistorySize:]
	}
}

func (s *Service) Start(ctx context.Context) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.worker(s.stopCh, s.done)
	s.log.Info("service started", slog.Duration("debounce", s.cfg.Debounce), slog.Int("rate_per_minute", s.cfg.RatePerMinute))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh := s.stopCh
	done := s.done
	s.stopCh = nil
	s.done = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	select {
	case <-done:
	case <-ctx.Done():
		// worker exits in background
	}
}

// Submit replaces the current snapshot and arms the debounce timer.
// Each call supersedes the previous one; the pass runs once the inputs
// stay quiet for the configured debounce.
func (s *Service) Submit(jobs []schedule.Job, techs []schedule.Technician) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append([]schedule.Job(nil), jobs...)
	s.techs = append([]schedule.Technician(nil), techs...)
	s.gen++
	gen := s.gen

	if s.stopCh == nil || !s.cfg.Enabled {
		return gen
	}
	s.pending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.Debounce, func() {
		select {
		case s.trigger <- struct{}{}:
		default:
		}
	})
	return gen
}

// DetectNow runs a pass synchronously on the current snapshot, bypassing
// the debounce (still rate-guarded). Used by the sweep trigger and the
// one-shot CLI modes.
func (s *Service) DetectNow(ctx context.Context) (Result, error) {
	s.mu.Lock()
	limiter := s.limiter
	s.mu.Unlock()
	if err := limiter.Wait(ctx); err != nil {
		return Result{}, err
	}
	res, _ := s.runPass()
	return res, nil
}

// Snapshot returns the run history and debounce state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]RunInfo, len(s.history))
	copy(runs, s.history)
	return Snapshot{
		Enabled:    s.cfg.Enabled,
		Generation: s.gen,
		Pending:    s.pending,
		Runs:       runs,
	}
}

func (s *Service) worker(stopCh, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stopCh:
			return
		case <-s.trigger:
		}

		s.mu.Lock()
		limiter := s.limiter
		s.mu.Unlock()

		// Block on the rate guard, but stay responsive to Stop.
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-stopCh:
				cancel()
			case <-ctx.Done():
			}
		}()
		err := limiter.Wait(ctx)
		cancel()
		if err != nil {
			return
		}

		res, stale := s.runPass()
		if stale {
			// A newer submission re-armed the timer; its pass will publish.
			continue
		}
		s.log.Debug("detection pass",
			slog.Uint64("generation", res.Generation),
			slog.Int("jobs", res.Jobs),
			slog.Int("conflicts", len(res.Conflicts)),
			slog.Int("alerts", len(res.Alerts)),
			slog.Duration("took", res.Took))
	}
}

// runPass snapshots the inputs, detects, and publishes unless a newer
// generation arrived while the pass ran.
func (s *Service) runPass() (Result, bool) {
	s.mu.Lock()
	jobs := s.jobs
	techs := s.techs
	gen := s.gen
	s.pending = false
	histSize := s.cfg.HistorySize
	s.mu.Unlock()

	started := s.now()
	conflicts := conflict.Detect(jobs, techs, started)
	alerts := alert.Project(jobs, conflicts, started)
	alert.SortBySeverity(alerts)
	took := s.now().Sub(started)

	res := Result{
		Generation: gen,
		Jobs:       len(jobs),
		Conflicts:  conflicts,
		Alerts:     alerts,
		StartedAt:  started,
		Took:       took,
	}

	ids := make([]string, len(alerts))
	for i, a := range alerts {
		ids[i] = a.ID
	}

	s.mu.Lock()
	stale := s.gen != gen
	changed := false
	if !stale {
		s.history = append(s.history, RunInfo{
			Generation: gen,
			StartedAt:  started,
			Took:       took,
			Jobs:       len(jobs),
			Conflicts:  len(conflicts),
			Alerts:     len(alerts),
		})
		if len(s.history) > histSize {
			s.history = s.history[len(s.history)-histSize:]
		}
		changed = !slices.Equal(ids, s.lastAlertIDs)
		s.lastAlertIDs = ids
	}
	s.mu.Unlock()

	if stale {
		return res, true
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.TypeDetectCompleted,
			Time: started,
			Data: res,
		})
		if changed {
			s.bus.Publish(eventbus.Event{
				Type: eventbus.TypeAlertsUpdated,
				Time: started,
				Data: alerts,
			})
		}
	}
	return res, false
}
