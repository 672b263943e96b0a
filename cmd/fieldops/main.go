package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fieldops/internal/app"
	"fieldops/internal/schedule"
	"fieldops/internal/schedule/recurrence"
	"fieldops/internal/schedule/series"
	"fieldops/internal/services/escalate"
	"fieldops/pkg/systemd"
)

func main() {
	var (
		cfgPath = flag.String("config", "./config.json", "path to config file (json or yaml)")
		mode    = flag.String("mode", "run", "run | check | preview | materialize")

		// preview / materialize
		patternKind = flag.String("pattern", "weekly", "recurrence pattern: daily | weekly | monthly | custom")
		start       = flag.String("start", "", "series start date (YYYY-MM-DD)")
		end         = flag.String("end", "", "optional end date (YYYY-MM-DD, inclusive)")
		interval    = flag.Int("interval", 1, "cadence multiplier (every N days/weeks/months)")
		days        = flag.String("days", "", "weekly: comma-separated weekdays (mon,wed,fri)")
		dayOfMonth  = flag.Int("day-of-month", 0, "monthly: pinned day (0 = start date's day)")
		maxOcc      = flag.Int("max", 0, "optional max occurrences")
		hardCap     = flag.Int("cap", 100, "safety cap for unbounded patterns")

		// materialize
		seriesID  = flag.String("series", "", "series id (materialize)")
		customer  = flag.String("customer", "", "customer name (materialize)")
		tech      = flag.String("technician", "", "technician id (materialize)")
		location  = flag.String("location", "", "location id (materialize)")
		startTime = flag.String("start-time", "", "job start time HH:MM (materialize)")
		endTime   = flag.String("end-time", "", "job end time HH:MM (materialize)")
		priority  = flag.String("priority", "medium", "job priority (materialize)")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "run":
		os.Exit(runDaemon(ctx, *cfgPath))
	case "check":
		os.Exit(runCheck(ctx, *cfgPath))
	case "preview":
		p, err := buildPattern(*patternKind, *start, *end, *interval, *days, *dayOfMonth, *maxOcc)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(2)
		}
		runPreview(p, *hardCap)
	case "materialize":
		p, err := buildPattern(*patternKind, *start, *end, *interval, *days, *dayOfMonth, *maxOcc)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(2)
		}
		tpl := series.Template{
			CustomerName: *customer,
			StartTime:    *startTime,
			EndTime:      *endTime,
			TechnicianID: *tech,
			LocationID:   *location,
			Priority:     schedule.ParsePriority(*priority),
		}
		os.Exit(runMaterialize(ctx, *cfgPath, *seriesID, p, tpl, *hardCap))
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
}

func runDaemon(ctx context.Context, cfgPath string) int {
	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		return 1
	}
	systemd.NotifyReady()
	go systemd.WatchdogLoop(ctx)

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	systemd.NotifyStopping()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Stop(stopCtx)

	if err := a.Err(); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	return 0
}

func runCheck(ctx context.Context, cfgPath string) int {
	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(stopCtx)
	}()

	store := a.Store()
	if store == nil {
		fmt.Fprintln(os.Stderr, "fatal: storage is not configured")
		return 1
	}
	jobs, err := store.ListJobs(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	techs, err := store.ListTechnicians(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}

	det := a.Detector()
	det.Submit(jobs, techs)
	res, err := det.DetectNow(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}

	fmt.Printf("jobs: %d  technicians: %d  conflicts: %d  alerts: %d\n",
		len(jobs), len(techs), len(res.Conflicts), len(res.Alerts))
	for _, c := range res.Conflicts {
		fmt.Printf("  [%s] %s: %s\n", c.Severity, c.Type, c.Description)
	}
	for _, al := range res.Alerts {
		fmt.Println(" ", escalate.Format(al))
	}
	if len(res.Conflicts) > 0 {
		return 1
	}
	return 0
}

func runPreview(p recurrence.Pattern, hardCap int) {
	total, bounded := recurrence.EstimateTotal(p)
	if bounded {
		fmt.Printf("estimated occurrences: %d\n", total)
	} else {
		fmt.Printf("unbounded pattern; previewing first %d\n", hardCap)
	}
	for _, d := range recurrence.Generate(p, hardCap) {
		fmt.Printf("  %s (%s)\n", d, strings.ToLower(d.Weekday().String()[:3]))
	}
}

func runMaterialize(ctx context.Context, cfgPath, seriesID string, p recurrence.Pattern, tpl series.Template, hardCap int) int {
	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(stopCtx)
	}()

	store := a.Store()
	if store == nil {
		fmt.Fprintln(os.Stderr, "fatal: storage is not configured")
		return 1
	}
	if c := a.Config().Recurrence.HardCap; c > 0 {
		hardCap = c
	}

	jobs, err := series.Materialize(ctx, store, seriesID, p, tpl, hardCap)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	fmt.Printf("materialized %d jobs for series %s\n", len(jobs), seriesID)
	for _, j := range jobs {
		fmt.Printf("  %s on %s\n", j.ID, j.Date)
	}
	return 0
}

func buildPattern(kind, start, end string, interval int, days string, dayOfMonth, maxOcc int) (recurrence.Pattern, error) {
	if strings.TrimSpace(start) == "" {
		return nil, fmt.Errorf("-start is required")
	}
	startDate, err := schedule.ParseDate(start)
	if err != nil {
		return nil, err
	}
	b := recurrence.Bounds{Start: startDate, Interval: interval, MaxOccurrences: maxOcc}
	if strings.TrimSpace(end) != "" {
		endDate, err := schedule.ParseDate(end)
		if err != nil {
			return nil, err
		}
		b.End = &endDate
	}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "daily":
		return recurrence.Daily{Bounds: b}, nil
	case "custom":
		return recurrence.Custom{Bounds: b}, nil
	case "monthly":
		return recurrence.Monthly{Bounds: b, DayOfMonth: dayOfMonth}, nil
	case "weekly":
		wd, err := parseWeekdays(days)
		if err != nil {
			return nil, err
		}
		return recurrence.Weekly{Bounds: b, Days: wd}, nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", kind)
	}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if len(p) > 3 {
			p = p[:3]
		}
		wd, ok := weekdayNames[p]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", p)
		}
		out = append(out, wd)
	}
	return out, nil
}
