package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fieldops/internal/eventbus"
	"fieldops/internal/schedule"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		duration time.Duration
	}{
		{name: "cron", raw: "0 7 * * *", kind: SpecCron},
		{name: "descriptor", raw: "@hourly", kind: SpecCron},
		{name: "cron every", raw: "@every 30m", kind: SpecCron},
		{name: "duration", raw: "10m", kind: SpecInterval, duration: 10 * time.Minute},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, duration: 90 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "01:75", "0s"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q) should fail", raw)
		}
	}
}

type fakeStore struct {
	jobs  []schedule.Job
	techs []schedule.Technician
	err   error
}

func (f *fakeStore) ListJobs(context.Context) ([]schedule.Job, error) { return f.jobs, f.err }
func (f *fakeStore) ListTechnicians(context.Context) ([]schedule.Technician, error) {
	return f.techs, f.err
}
func (f *fakeStore) UpsertJobs(context.Context, []schedule.Job) error  { return nil }
func (f *fakeStore) PutDedup(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) GetDedup(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (f *fakeStore) Close() error { return nil }

type fakeDetector struct {
	mu      sync.Mutex
	submits int
	lastN   int
}

func (f *fakeDetector) Submit(jobs []schedule.Job, _ []schedule.Technician) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.lastN = len(jobs)
	return uint64(f.submits)
}

func (f *fakeDetector) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits, f.lastN
}

func TestRunOnceFeedsDetectorAndPublishes(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		jobs:  []schedule.Job{{ID: "j1"}, {ID: "j2"}},
		techs: []schedule.Technician{{ID: "t1"}},
	}
	det := &fakeDetector{}
	bus := eventbus.New()
	ch, cancel := bus.Subscribe(4)
	defer cancel()

	s := New(Config{Enabled: true, Schedule: "1h"}, store, det, nil, bus)
	jobs, techs, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if jobs != 2 || techs != 1 {
		t.Fatalf("counts = %d/%d", jobs, techs)
	}
	if n, last := det.counts(); n != 1 || last != 2 {
		t.Fatalf("detector submits=%d lastN=%d", n, last)
	}

	select {
	case e := <-ch:
		if e.Type != eventbus.TypeSweepCompleted {
			t.Fatalf("event type = %q", e.Type)
		}
		info := e.Data.(SweepInfo)
		if info.Jobs != 2 || info.Technicians != 1 {
			t.Fatalf("info = %+v", info)
		}
	case <-time.After(time.Second):
		t.Fatal("no sweep event")
	}
}

func TestRunOnceStoreErrorPropagates(t *testing.T) {
	t.Parallel()

	store := &fakeStore{err: errors.New("disk gone")}
	s := New(Config{Enabled: true, Schedule: "1h"}, store, &fakeDetector{}, nil, nil)
	if _, _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("store error should propagate")
	}
}

func TestIntervalTriggerFires(t *testing.T) {
	t.Parallel()

	store := &fakeStore{jobs: []schedule.Job{{ID: "j1"}}}
	det := &fakeDetector{}
	s := New(Config{Enabled: true, Schedule: "20ms"}, store, det, nil, nil)

	s.Start(context.Background())
	defer s.Stop(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := det.counts(); n >= 2 {
			return
		}
		if time.Now().After(deadline) {
			n, _ := det.counts()
			t.Fatalf("ticker fired %d times, want >= 2", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	t.Parallel()

	det := &fakeDetector{}
	s := New(Config{Enabled: false, Schedule: "10ms"}, &fakeStore{}, det, nil, nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	time.Sleep(50 * time.Millisecond)
	if n, _ := det.counts(); n != 0 {
		t.Fatalf("disabled sweep fired %d times", n)
	}
}
