// Package app wires the configuration manager, logging service, event
// bus, storage and the domain services into one lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fieldops/internal/config"
	"fieldops/internal/eventbus"
	"fieldops/internal/runtime/supervisor"
	"fieldops/internal/services/detect"
	"fieldops/internal/services/escalate"
	"fieldops/internal/services/sweep"
	"fieldops/internal/storage"
	"fieldops/internal/transport/telegram"
	"fieldops/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	detect   *detect.Service
	sweep    *sweep.Service
	escalate *escalate.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	detCfg, err := mapDetectorConfig(cfg)
	if err != nil {
		return nil, err
	}
	// Domain services take the stdlib slog surface, bridged to the same
	// sinks the rest of the app logs to.
	slogRoot := logSvc.Slog()
	detectSvc := detect.New(detCfg, slogRoot.With(slog.String("comp", "detect")), bus)

	sweepSvc := sweep.New(mapSweepConfig(cfg), store, detectSvc, slogRoot.With(slog.String("comp", "sweep")), bus)

	escCfg, err := mapEscalationConfig(cfg)
	if err != nil {
		return nil, err
	}
	var sink escalate.Sink
	if escCfg.Enabled {
		s, err := telegram.New(telegram.Config{
			Token:  cfg.Escalation.Telegram.Token,
			ChatID: cfg.Escalation.Telegram.ChatID,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, fmt.Errorf("escalation sink: %w", err)
		}
		sink = s
	}
	escSvc := escalate.New(escCfg, sink, store, slogRoot.With(slog.String("comp", "escalate")), bus)

	return &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		detect:   detectSvc,
		sweep:    sweepSvc,
		escalate: escSvc,
	}, nil
}

func (a *App) Config() *config.Config       { return a.cfgm.Get() }
func (a *App) Detector() *detect.Service    { return a.detect }
func (a *App) Sweeper() *sweep.Service      { return a.sweep }
func (a *App) Store() storage.Store         { return a.store }
func (a *App) Escalator() *escalate.Service { return a.escalate }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		return Validate(cfg)
	})

	if a.detect.Enabled() {
		a.detect.Start(a.sup.Context())
	}
	if a.sweep.Enabled() {
		a.sweep.Start(a.sup.Context())
	}
	if a.escalate.Enabled() {
		a.escalate.Start(a.sup.Context())
	}

	// Debug-level event trace (components subscribe themselves for real work).
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// Hot-reload fanout.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections := config.ChangedSections(lastApplied, newCfg)
				lastApplied = newCfg
				a.applyReload(c, newCfg, sections)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) applyReload(ctx context.Context, cfg *config.Config, sections []string) {
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}

	for _, s := range sections {
		if s == "storage" {
			a.log.Warn("storage config changed; restart required for changes to take effect")
			break
		}
	}

	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	// Detector (live)
	prevDet := a.detect.Enabled()
	if detCfg, err := mapDetectorConfig(cfg); err != nil {
		a.log.Warn("invalid detector config; keeping previous", logx.Any("err", err))
	} else {
		a.detect.Apply(detCfg)
		switch {
		case prevDet && !detCfg.Enabled:
			a.log.Info("detector disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.detect.Stop(stopCtx)
			cancel()
		case !prevDet && detCfg.Enabled:
			a.log.Info("detector enabled via config")
			a.detect.Start(ctx)
		}
	}

	// Sweep (live; Apply restarts the trigger on schedule/tz change)
	prevSweep := a.sweep.Enabled()
	a.sweep.Apply(mapSweepConfig(cfg))
	switch {
	case prevSweep && !a.sweep.Enabled():
		a.log.Info("sweep disabled via config")
	case !prevSweep && a.sweep.Enabled():
		a.log.Info("sweep enabled via config")
		a.sweep.Start(ctx)
	}

	// Escalation thresholds and rates apply live; changing the Telegram
	// target requires a restart (the sink is constructed once).
	if escCfg, err := mapEscalationConfig(cfg); err != nil {
		a.log.Warn("invalid escalation config; keeping previous", logx.Any("err", err))
	} else {
		a.escalate.Apply(escCfg)
	}

	a.log.Info("config reloaded", logx.String("changed", strings.Join(sections, ",")))
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Bound each shutdown step so one component can't stall the stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
		start := time.Now()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Any("err", err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("sweep", 2*time.Second, func(c context.Context) error { a.sweep.Stop(c); return nil })
	step("escalate", 2*time.Second, func(c context.Context) error { a.escalate.Stop(c); return nil })
	step("detect", 2*time.Second, func(c context.Context) error { a.detect.Stop(c); return nil })
	step("storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
