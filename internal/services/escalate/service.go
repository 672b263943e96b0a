// Package escalate forwards high-severity alerts to an external sink.
//
// It subscribes to detection results on the bus, filters by a minimum
// severity, suppresses repeats within a dedup window and pushes the rest
// out (Telegram in production, a fake in tests). Send failures are
// logged and dropped; escalation is never load-bearing.
package escalate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fieldops/internal/eventbus"
	"fieldops/internal/schedule"
	"fieldops/internal/schedule/alert"
	"fieldops/internal/services/detect"
)

type Config struct {
	Enabled     bool
	MinSeverity schedule.Severity
	DedupWindow time.Duration
	RatePerSec  int
}

func (c Config) withDefaults() Config {
	if c.DedupWindow <= 0 {
		c.DedupWindow = 24 * time.Hour
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 3
	}
	return c
}

// Sink delivers one formatted alert message.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// DedupStore is the slice of the storage layer used for cross-restart
// suppression. A nil store falls back to an in-memory map.
type DedupStore interface {
	PutDedup(ctx context.Context, key string, until time.Time) error
	GetDedup(ctx context.Context, key string) (time.Time, bool, error)
}

type Service struct {
	log  *slog.Logger
	bus  eventbus.Bus
	sink Sink

	store DedupStore

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	// In-memory dedup fallback: key -> suppress until.
	dmu   sync.Mutex
	dedup map[string]time.Time

	cancelSub func()
	done      chan struct{}
}

func New(cfg Config, sink Sink, store DedupStore, log *slog.Logger, bus eventbus.Bus) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.withDefaults()
	return &Service{
		log:     log,
		bus:     bus,
		sink:    sink,
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		dedup:   map[string]time.Time{},
	}
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
	if cfg.RatePerSec != s.cfg.RatePerSec {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelSub != nil {
		return
	}
	if s.bus == nil || s.sink == nil {
		return
	}
	ch, cancel := s.bus.Subscribe(64)
	s.cancelSub = cancel
	done := make(chan struct{})
	s.done = done
	go s.loop(ch, done)
	s.log.Info("service started", slog.String("min_severity", s.cfg.MinSeverity.String()), slog.Duration("dedup_window", s.cfg.DedupWindow))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel := s.cancelSub
	done := s.done
	s.cancelSub = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Service) loop(ch <-chan eventbus.Event, done chan struct{}) {
	defer close(done)
	for e := range ch {
		if e.Type != eventbus.TypeDetectCompleted {
			continue
		}
		res, ok := e.Data.(detect.Result)
		if !ok {
			continue
		}
		s.Escalate(context.Background(), res.Alerts)
	}
}

// Escalate filters, dedups and sends the given alerts. Exposed so the
// one-shot CLI mode can push without a running bus loop.
func (s *Service) Escalate(ctx context.Context, alerts []alert.Alert) {
	s.mu.Lock()
	cfg := s.cfg
	limiter := s.limiter
	s.mu.Unlock()

	if !cfg.Enabled || s.sink == nil {
		return
	}

	for _, a := range alerts {
		if a.Severity < cfg.MinSeverity {
			continue
		}
		ok, err := s.allow(ctx, "alert:"+a.ID, cfg.DedupWindow)
		if err != nil {
			s.log.Warn("dedup check failed", slog.String("alert", a.ID), slog.Any("err", err))
		}
		if !ok {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.sink.Send(ctx, Format(a)); err != nil {
			s.log.Warn("escalation send failed", slog.String("alert", a.ID), slog.Any("err", err))
			continue
		}
		s.log.Debug("alert escalated", slog.String("alert", a.ID), slog.String("severity", a.Severity.String()))
	}
}

// allow records the key and reports whether it was not already
// suppressed. Store errors degrade to the in-memory map.
func (s *Service) allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	now := time.Now()
	until := now.Add(window)

	if s.store != nil {
		prev, found, err := s.store.GetDedup(ctx, key)
		if err == nil {
			if found && now.Before(prev) {
				return false, nil
			}
			return true, s.store.PutDedup(ctx, key, until)
		}
		// fall through to memory on error
		return s.memAllow(key, now, until), err
	}

	return s.memAllow(key, now, until), nil
}

func (s *Service) memAllow(key string, now, until time.Time) bool {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	if prev, ok := s.dedup[key]; ok && now.Before(prev) {
		return false
	}
	s.dedup[key] = until
	for k, t := range s.dedup {
		if !now.Before(t) {
			delete(s.dedup, k)
		}
	}
	return true
}

// Format renders one alert as a chat message with a severity prefix.
func Format(a alert.Alert) string {
	return fmt.Sprintf("%s[%s] %s", severityPrefix(a.Severity), a.Kind, a.Message)
}

func severityPrefix(sev schedule.Severity) string {
	switch {
	case sev >= schedule.SeverityCritical:
		return "🚨 "
	case sev >= schedule.SeverityHigh:
		return "⚠️ "
	default:
		return "ℹ️ "
	}
}
