package conflict

import (
	"fmt"
	"time"

	"fieldops/internal/schedule"
	"fieldops/internal/schedule/interval"
)

// eligible is a job that survived the window filter, with its parsed
// window cached so the pairwise passes don't reparse clock strings.
type eligible struct {
	job schedule.Job
	win interval.Window
}

// Detect runs the three detection passes over jobs and returns every
// pairwise conflict. It is deterministic given the same inputs, modulo
// DetectedAt (stamped from the injected now).
//
// Jobs missing a scheduled date or either clock bound are silently
// excluded from all passes. Jobs without a technician or location are
// excluded only from the corresponding pass.
//
// Cost is O(n²) in the filtered job count. That is fine for a single
// day/window worth of jobs (tens to low hundreds); callers feeding much
// larger windows should pre-partition by date or move to a sort-and-sweep.
func Detect(jobs []schedule.Job, techs []schedule.Technician, now time.Time) []Conflict {
	els := filter(jobs)

	var out []Conflict
	out = append(out, timeOverlapPass(els, now)...)
	out = append(out, technicianPass(els, techs, now)...)
	out = append(out, locationPass(els, now)...)
	return out
}

func filter(jobs []schedule.Job) []eligible {
	els := make([]eligible, 0, len(jobs))
	for _, j := range jobs {
		if j.ID == "" {
			continue
		}
		if w, ok := interval.JobWindow(j); ok {
			els = append(els, eligible{job: j, win: w})
		}
	}
	return els
}

// timeOverlapPass flags any two jobs sharing a slot on the same date,
// regardless of technician or location: a general "too much happening at
// once" signal.
func timeOverlapPass(els []eligible, now time.Time) []Conflict {
	var out []Conflict
	for i := 0; i < len(els); i++ {
		for j := i + 1; j < len(els); j++ {
			a, b := els[i], els[j]
			if !a.win.Overlaps(b.win) {
				continue
			}
			out = append(out, Conflict{
				ID:       NewID(TimeOverlap, a.job.ID, b.job.ID),
				Type:     TimeOverlap,
				Severity: TimeOverlap.Severity(),
				JobIDs:   pair(a.job.ID, b.job.ID),
				Description: fmt.Sprintf("Jobs for %s and %s overlap on %s (%s-%s vs %s-%s)",
					a.job.CustomerLabel(), b.job.CustomerLabel(), a.win.Date,
					interval.FormatClock(a.win.StartMin), interval.FormatClock(a.win.EndMin),
					interval.FormatClock(b.win.StartMin), interval.FormatClock(b.win.EndMin)),
				DetectedAt: now,
			})
		}
	}
	return out
}

// technicianPass runs the pairwise overlap test within each technician's
// jobs only. It does not defer to the time pass: the same physical
// collision may surface under both types and consumers render them
// independently.
func technicianPass(els []eligible, techs []schedule.Technician, now time.Time) []Conflict {
	groups, order := groupBy(els, func(j schedule.Job) string { return j.TechnicianID })

	var out []Conflict
	for _, techID := range order {
		g := groups[techID]
		name := schedule.TechnicianName(techs, techID)
		for i := 0; i < len(g); i++ {
			for j := i + 1; j < len(g); j++ {
				a, b := g[i], g[j]
				if !a.win.Overlaps(b.win) {
					continue
				}
				out = append(out, Conflict{
					ID:       NewID(TechnicianDoubleBooking, a.job.ID, b.job.ID),
					Type:     TechnicianDoubleBooking,
					Severity: TechnicianDoubleBooking.Severity(),
					JobIDs:   pair(a.job.ID, b.job.ID),
					Description: fmt.Sprintf("Technician %s is double-booked on %s: %s (%s-%s) and %s (%s-%s)",
						name, a.win.Date,
						a.job.CustomerLabel(), interval.FormatClock(a.win.StartMin), interval.FormatClock(a.win.EndMin),
						b.job.CustomerLabel(), interval.FormatClock(b.win.StartMin), interval.FormatClock(b.win.EndMin)),
					DetectedAt: now,
				})
			}
		}
	}
	return out
}

// locationPass runs the pairwise overlap test within each location's jobs.
func locationPass(els []eligible, now time.Time) []Conflict {
	groups, order := groupBy(els, func(j schedule.Job) string { return j.LocationID })

	var out []Conflict
	for _, locID := range order {
		g := groups[locID]
		for i := 0; i < len(g); i++ {
			for j := i + 1; j < len(g); j++ {
				a, b := g[i], g[j]
				if !a.win.Overlaps(b.win) {
					continue
				}
				out = append(out, Conflict{
					ID:       NewID(LocationConflict, a.job.ID, b.job.ID),
					Type:     LocationConflict,
					Severity: LocationConflict.Severity(),
					JobIDs:   pair(a.job.ID, b.job.ID),
					Description: fmt.Sprintf("Jobs for %s and %s share location %s on %s",
						a.job.CustomerLabel(), b.job.CustomerLabel(), locID, a.win.Date),
					DetectedAt: now,
				})
			}
		}
	}
	return out
}

// groupBy preserves input order both within groups and across group keys,
// keeping the output deterministic without a sort.
func groupBy(els []eligible, key func(schedule.Job) string) (map[string][]eligible, []string) {
	groups := map[string][]eligible{}
	var order []string
	for _, e := range els {
		k := key(e.job)
		if k == "" {
			continue
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}
	return groups, order
}

func pair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
