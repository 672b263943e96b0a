// Package sweep periodically re-runs conflict detection from store
// state, so the alert set stays current even when nothing is submitting
// fresh job lists.
package sweep

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fieldops/internal/eventbus"
	"fieldops/internal/schedule"
	"fieldops/internal/storage"
)

type Config struct {
	Enabled  bool
	Schedule string
	// Timezone only selects when the sweep fires; date math in the
	// scheduling core stays zone-naive.
	Timezone string
}

// Detector is the slice of the detection service the sweep feeds.
type Detector interface {
	Submit(jobs []schedule.Job, techs []schedule.Technician) uint64
}

type Service struct {
	log *slog.Logger
	bus eventbus.Bus

	store    storage.Store
	detector Detector

	parser cron.Parser

	mu     sync.Mutex
	cfg    Config
	c      *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
	done   chan struct{}
}

func New(cfg Config, store storage.Store, detector Detector, log *slog.Logger, bus eventbus.Bus) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		log:      log,
		bus:      bus,
		store:    store,
		detector: detector,
		cfg:      cfg,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Enabled reports the current config flag. (Thread-safe; Apply() may run concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

// Apply swaps the config; schedule or timezone changes restart the trigger.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	changed := s.cfg.Schedule != cfg.Schedule ||
		strings.TrimSpace(s.cfg.Timezone) != strings.TrimSpace(cfg.Timezone) ||
		s.cfg.Enabled != cfg.Enabled
	s.cfg = cfg
	running := s.c != nil || s.ticker != nil
	s.mu.Unlock()

	if changed && running {
		s.Stop(context.Background())
		s.Start(context.Background())
	}
}

func (s *Service) Start(ctx context.Context) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || s.ticker != nil {
		return
	}
	if !s.cfg.Enabled {
		return
	}
	if s.store == nil || s.detector == nil {
		s.log.Warn("sweep enabled without store/detector; skipping start")
		return
	}

	spec, err := ParseSchedule(s.cfg.Schedule)
	if err != nil {
		s.log.Error("invalid sweep schedule", slog.String("schedule", s.cfg.Schedule), slog.Any("err", err))
		return
	}

	switch spec.Kind {
	case SpecCron:
		loc := s.loadLocationLocked()
		c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
		if _, err := c.AddFunc(spec.Cron, s.fire); err != nil {
			s.log.Error("invalid cron expression", slog.String("cron", spec.Cron), slog.Any("err", err))
			return
		}
		c.Start()
		s.c = c
		s.log.Info("service started", slog.String("cron", spec.Cron), slog.String("tz", loc.String()))
	case SpecInterval:
		ticker := time.NewTicker(spec.Every)
		stopCh := make(chan struct{})
		done := make(chan struct{})
		s.ticker = ticker
		s.stopCh = stopCh
		s.done = done
		go func() {
			defer close(done)
			for {
				select {
				case <-stopCh:
					return
				case <-ticker.C:
					s.fire()
				}
			}
		}()
		s.log.Info("service started", slog.Duration("every", spec.Every))
	}
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	ticker := s.ticker
	stopCh := s.stopCh
	done := s.done
	s.c = nil
	s.ticker = nil
	s.stopCh = nil
	s.done = nil
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			// best-effort
		}
	}
	if ticker != nil {
		ticker.Stop()
		close(stopCh)
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
}

// RunOnce loads store state and feeds the detector. Exposed for the
// one-shot CLI mode; the cron/ticker trigger calls the same path.
func (s *Service) RunOnce(ctx context.Context) (jobs int, techs int, err error) {
	js, err := s.store.ListJobs(ctx)
	if err != nil {
		return 0, 0, err
	}
	ts, err := s.store.ListTechnicians(ctx)
	if err != nil {
		return 0, 0, err
	}
	s.detector.Submit(js, ts)

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.TypeSweepCompleted,
			Time: time.Now(),
			Data: SweepInfo{Jobs: len(js), Technicians: len(ts)},
		})
	}
	return len(js), len(ts), nil
}

// SweepInfo is the payload published on sweep.completed.
type SweepInfo struct {
	Jobs        int `json:"jobs"`
	Technicians int `json:"technicians"`
}

func (s *Service) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	jobs, techs, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Warn("sweep failed", slog.Any("err", err))
		return
	}
	s.log.Debug("sweep completed", slog.Int("jobs", jobs), slog.Int("technicians", techs))
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, using local", slog.String("tz", tz), slog.Any("err", err))
		return time.Local
	}
	return loc
}
