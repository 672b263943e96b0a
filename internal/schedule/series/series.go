// Package series materializes a recurring-series definition into concrete
// job rows: recurrence occurrences become one job per date, written
// through the store with deterministic per-occurrence ids so repeated
// materialization is idempotent.
package series

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fieldops/internal/schedule"
	"fieldops/internal/schedule/recurrence"
)

// JobWriter is the slice of the store the materializer needs.
type JobWriter interface {
	UpsertJobs(ctx context.Context, jobs []schedule.Job) error
}

// Template carries the per-occurrence job fields; ID and Date are
// assigned by the materializer.
type Template struct {
	CustomerName string
	StartTime    string
	EndTime      string
	TechnicianID string
	LocationID   string
	Priority     schedule.Priority
}

// Expand turns the pattern's occurrences into jobs without writing them.
// Job ids are "<seriesID>-<date>", so the same series and pattern always
// produce the same rows.
func Expand(seriesID string, p recurrence.Pattern, tpl Template, hardCap int) ([]schedule.Job, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return nil, errors.New("series id is required")
	}
	dates := recurrence.Generate(p, hardCap)
	jobs := make([]schedule.Job, 0, len(dates))
	for _, d := range dates {
		jobs = append(jobs, schedule.Job{
			ID:           fmt.Sprintf("%s-%s", seriesID, d),
			CustomerName: tpl.CustomerName,
			Date:         d,
			StartTime:    tpl.StartTime,
			EndTime:      tpl.EndTime,
			TechnicianID: tpl.TechnicianID,
			LocationID:   tpl.LocationID,
			Status:       schedule.StatusScheduled,
			Priority:     tpl.Priority,
		})
	}
	return jobs, nil
}

// Materialize expands the pattern and upserts the jobs. Re-running with
// the same inputs overwrites the same rows instead of duplicating them.
func Materialize(ctx context.Context, w JobWriter, seriesID string, p recurrence.Pattern, tpl Template, hardCap int) ([]schedule.Job, error) {
	if w == nil {
		return nil, errors.New("job writer is required")
	}
	jobs, err := Expand(seriesID, p, tpl, hardCap)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	if err := w.UpsertJobs(ctx, jobs); err != nil {
		return nil, fmt.Errorf("materialize %s: %w", seriesID, err)
	}
	return jobs, nil
}
