package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"fieldops/internal/schedule"
	"fieldops/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 500}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) ListJobs(ctx context.Context) ([]schedule.Job, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_name, scheduled_date, start_time, end_time,
		        technician_id, location_id, status, priority
		 FROM jobs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Job
	for rows.Next() {
		var j schedule.Job
		var status, priority string
		var date, start, end, tech, loc sql.NullString
		if err := rows.Scan(&j.ID, &j.CustomerName, &date, &start, &end, &tech, &loc, &status, &priority); err != nil {
			return nil, err
		}
		if date.Valid {
			if d, err := schedule.ParseDate(date.String); err == nil {
				j.Date = d
			}
		}
		j.StartTime = start.String
		j.EndTime = end.String
		j.TechnicianID = tech.String
		j.LocationID = loc.String
		j.Status = schedule.ParseStatus(status)
		j.Priority = schedule.ParsePriority(priority)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListTechnicians(ctx context.Context) ([]schedule.Technician, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, first_name, last_name FROM technicians ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Technician
	for rows.Next() {
		var t schedule.Technician
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpsertJobs(ctx context.Context, jobs []schedule.Job) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if len(jobs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, j := range jobs {
		if strings.TrimSpace(j.ID) == "" {
			return errors.New("upsert: job id is required")
		}
		var date any
		if !j.Date.IsZero() {
			date = j.Date.String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO jobs(id, customer_name, scheduled_date, start_time, end_time,
			                  technician_id, location_id, status, priority)
			 VALUES(?,?,?,?,?,?,?,?,?)
			 ON CONFLICT(id) DO UPDATE SET
			   customer_name=excluded.customer_name,
			   scheduled_date=excluded.scheduled_date,
			   start_time=excluded.start_time,
			   end_time=excluded.end_time,
			   technician_id=excluded.technician_id,
			   location_id=excluded.location_id,
			   status=excluded.status,
			   priority=excluded.priority`,
			j.ID, j.CustomerName, date, nullStr(j.StartTime), nullStr(j.EndTime),
			nullStr(j.TechnicianID), nullStr(j.LocationID), j.Status.String(), j.Priority.String(),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) PutDedup(ctx context.Context, key string, until time.Time) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if key == "" {
		return nil
	}
	ms := until.UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dedup(key, until) VALUES(?,?)
		 ON CONFLICT(key) DO UPDATE SET until=excluded.until`,
		key, ms,
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_ = s.pruneExpired(pctx)
		cancel()
	}
	return err
}

func (s *sqliteStore) GetDedup(ctx context.Context, key string) (time.Time, bool, error) {
	if s == nil || s.db == nil {
		return time.Time{}, false, ErrDisabled
	}
	if key == "" {
		return time.Time{}, false, nil
	}
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT until FROM dedup WHERE key = ?`, key).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func (s *sqliteStore) pruneExpired(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `DELETE FROM dedup WHERE until < ?`, now)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
