package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fieldops/internal/schedule"
	"fieldops/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "fieldops.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestFileStoreNormalizesRawJobShapes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	prefix := filepath.Join(dir, "fieldops")

	// Mixed shapes: numeric ids, nested location, customer object,
	// flat fallbacks, and one row with no id at all.
	raw := `[
	  {"id": 101, "customer": {"name": "Acme Plumbing"}, "scheduled_date": "2025-03-10",
	   "start_time": "09:00", "end_time": "11:00",
	   "technician_id": 7, "location": {"id": 42}, "status": "Scheduled", "priority": "HIGH"},
	  {"id": "j2", "customer_name": "Beta Corp", "scheduled_date": "2025-03-10",
	   "location_id": "loc-9", "status": "assigned"},
	  {"id": "j3", "customer": {"display_name": "Display Only"}, "scheduled_date": "not-a-date",
	   "status": "weird-status"},
	  {"customer_name": "No Id"}
	]`
	if err := os.WriteFile(prefix+".jobs.json", []byte(raw), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st, err := Open(Config{Driver: "file", Path: prefix + ".db"}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	jobs, err := st.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 3 (id-less row dropped)", len(jobs))
	}

	j := jobs[0]
	if j.ID != "101" || j.CustomerName != "Acme Plumbing" {
		t.Fatalf("numeric id job = %+v", j)
	}
	if j.TechnicianID != "7" || j.LocationID != "42" {
		t.Fatalf("flex refs: tech=%q loc=%q", j.TechnicianID, j.LocationID)
	}
	if j.Status != schedule.StatusScheduled || j.Priority != schedule.PriorityHigh {
		t.Fatalf("case-folded enums: status=%v priority=%v", j.Status, j.Priority)
	}
	if got := j.Date.String(); got != "2025-03-10" {
		t.Fatalf("date = %q", got)
	}

	if jobs[1].LocationID != "loc-9" {
		t.Fatalf("flat location_id fallback = %q", jobs[1].LocationID)
	}
	if jobs[2].CustomerName != "Display Only" {
		t.Fatalf("display_name fallback = %q", jobs[2].CustomerName)
	}
	if !jobs[2].Date.IsZero() {
		t.Fatalf("bad date should normalize to zero, got %v", jobs[2].Date)
	}
	if jobs[2].Status != schedule.StatusUnknown {
		t.Fatalf("unknown status = %v", jobs[2].Status)
	}
}

func TestFileStoreListTechnicians(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	prefix := filepath.Join(dir, "fieldops")
	raw := `[
	  {"id": 1, "first_name": "Jane", "last_name": "Doe"},
	  {"id": "t2", "firstName": "Sam", "lastName": "Li"},
	  {"first_name": "Ghost"}
	]`
	if err := os.WriteFile(prefix+".technicians.json", []byte(raw), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st, err := Open(Config{Driver: "file", Path: prefix + ".db"}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	techs, err := st.ListTechnicians(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(techs) != 2 {
		t.Fatalf("technicians = %d, want 2", len(techs))
	}
	if techs[0].DisplayName() != "Jane Doe" {
		t.Fatalf("name = %q", techs[0].DisplayName())
	}
	if techs[1].FirstName != "Sam" || techs[1].LastName != "Li" {
		t.Fatalf("camelCase fallback = %+v", techs[1])
	}
}

func TestFileStoreUpsertJobsMergesByID(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	first := []schedule.Job{
		{ID: "j1", CustomerName: "Acme", Date: schedule.Date{Year: 2025, Month: 3, Day: 10}, Status: schedule.StatusScheduled},
		{ID: "j2", CustomerName: "Beta", Status: schedule.StatusAssigned},
	}
	if err := st.UpsertJobs(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Replace j2, add j3.
	second := []schedule.Job{
		{ID: "j2", CustomerName: "Beta Renamed", Status: schedule.StatusCompleted},
		{ID: "j3", CustomerName: "Gamma"},
	}
	if err := st.UpsertJobs(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	jobs, err := st.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(jobs))
	}
	byID := map[string]schedule.Job{}
	for _, j := range jobs {
		byID[j.ID] = j
	}
	if byID["j2"].CustomerName != "Beta Renamed" || byID["j2"].Status != schedule.StatusCompleted {
		t.Fatalf("j2 not replaced: %+v", byID["j2"])
	}
	if byID["j1"].Date.String() != "2025-03-10" {
		t.Fatalf("j1 date lost: %+v", byID["j1"])
	}

	if err := st.UpsertJobs(ctx, []schedule.Job{{CustomerName: "no id"}}); err == nil {
		t.Fatal("upsert without id should fail")
	}
}

func TestFileStoreUpsertOutputReloadable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fieldops.db")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := st.UpsertJobs(ctx, []schedule.Job{{ID: "j1", CustomerName: "Acme", StartTime: "09:00", EndTime: "10:00"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	_ = st.Close()

	// The written document must be valid JSON in the flat raw shape.
	b, err := os.ReadFile(filepath.Join(dir, "fieldops.jobs.json"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(b, &rows); err != nil {
		t.Fatalf("written file not valid JSON array: %v", err)
	}

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	jobs, err := st2.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 || jobs[0].StartTime != "09:00" {
		t.Fatalf("roundtrip = %+v", jobs)
	}
}

func TestFileStoreDedupSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fieldops.db")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	until := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	if err := st.PutDedup(ctx, "alert:conflict-j1", until); err != nil {
		t.Fatalf("put: %v", err)
	}
	expired := time.Now().Add(-time.Hour)
	if err := st.PutDedup(ctx, "alert:old", expired); err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = st.Close()

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()

	got, ok, err := st2.GetDedup(ctx, "alert:conflict-j1")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if !got.Equal(until) {
		t.Fatalf("until = %v, want %v", got, until)
	}
	if _, ok, _ := st2.GetDedup(ctx, "alert:old"); ok {
		t.Fatal("expired key should be pruned on reopen")
	}
}

func TestOpenDisabledDriver(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Driver: ""}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if st != nil {
		t.Fatalf("disabled driver should yield nil store, got %T", st)
	}
}
