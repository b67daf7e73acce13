package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/milestone/pkg/core"
)

const runColumns = `id, job, main_table, mode, dialect, status, batch_id, empty_batch, started_at, completed_at, error`

// CreateRun records a run in the running state.
func (s *SQLiteStore) CreateRun(nr NewRun) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	run := &Run{
		ID:        generateID(),
		Job:       nr.Job,
		Main:      nr.Main,
		Mode:      nr.Mode,
		Dialect:   nr.Dialect,
		Status:    RunStatusRunning,
		StartedAt: s.clock.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("job", run.Job))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, job, main_table, mode, dialect, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Job, run.Main, run.Mode, run.Dialect, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the outcome and statistics of a run.
func (s *SQLiteStore) CompleteRun(id string, out Outcome) (err error) {
	if s.db == nil {
		return ErrNotOpened
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var batchID, errMsg any
	if out.BatchID != 0 {
		batchID = out.BatchID
	}
	if out.Error != "" {
		errMsg = out.Error
	}
	res, err := tx.Exec(
		`UPDATE runs SET status = ?, batch_id = ?, empty_batch = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(out.Status), batchID, out.EmptyBatch, s.clock.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	for i, rg := range out.Ranges {
		var lower, upper any
		if rg.Range != nil {
			lower, upper = rg.Range.Lower, rg.Range.Upper
		}
		for _, name := range core.AllStatistics {
			v, ok := rg.Statistics[name]
			if !ok {
				continue
			}
			if _, err = tx.Exec(
				`INSERT INTO run_statistics (run_id, range_index, lower_bound, upper_bound, statistic, value) VALUES (?, ?, ?, ?, ?, ?)`,
				id, i, lower, upper, string(name), v,
			); err != nil {
				return fmt.Errorf("failed to record statistics: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID, with its statistics.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if err := s.loadRanges(run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. An empty job lists
// runs of every job.
func (s *SQLiteStore) ListRuns(job string, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs WHERE ? = '' OR job = ? ORDER BY started_at DESC, id LIMIT ?`,
		job, job, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, run := range runs {
		if err := s.loadRanges(run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var (
		status      string
		batchID     sql.NullInt64
		completedAt sql.NullTime
		errMsg      sql.NullString
	)
	err := row.Scan(&run.ID, &run.Job, &run.Main, &run.Mode, &run.Dialect, &status,
		&batchID, &run.EmptyBatch, &run.StartedAt, &completedAt, &errMsg)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if batchID.Valid {
		run.BatchID = &batchID.Int64
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

func (s *SQLiteStore) loadRanges(run *Run) error {
	rows, err := s.db.Query(
		`SELECT range_index, lower_bound, upper_bound, statistic, value FROM run_statistics WHERE run_id = ?`,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load statistics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byIndex := make(map[int]*RangeStats)
	for rows.Next() {
		var (
			idx          int
			lower, upper sql.NullInt64
			name         string
			value        int64
		)
		if err := rows.Scan(&idx, &lower, &upper, &name, &value); err != nil {
			return fmt.Errorf("failed to scan statistics: %w", err)
		}
		rg, ok := byIndex[idx]
		if !ok {
			rg = &RangeStats{Statistics: make(map[core.StatisticName]int64)}
			if lower.Valid && upper.Valid {
				rg.Range = &core.DataSplitRange{Lower: lower.Int64, Upper: upper.Int64}
			}
			byIndex[idx] = rg
		}
		rg.Statistics[core.StatisticName(name)] = value
	}
	if err := rows.Err(); err != nil {
		return err
	}

	indexes := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	run.Ranges = make([]RangeStats, 0, len(indexes))
	for _, idx := range indexes {
		run.Ranges = append(run.Ranges, *byIndex[idx])
	}
	return nil
}
