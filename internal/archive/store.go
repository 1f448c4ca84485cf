// Package archive keeps every decision the engine has produced, including
// the ones evicted from its bounded in-memory list.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/auto-decide/internal/db"
	"github.com/ziadkadry99/auto-decide/internal/decision"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ListFilter controls which decisions are returned by List.
type ListFilter struct {
	Status decision.Status
	Type   decision.Type
	Since  time.Time
	Limit  int
	Offset int
}

// Stats aggregates the whole archive.
type Stats struct {
	Total             int                     `json:"total"`
	ByStatus          map[decision.Status]int `json:"by_status"`
	ByType            map[decision.Type]int   `json:"by_type"`
	AverageConfidence float64                 `json:"average_confidence"`
	AverageRisk       float64                 `json:"average_risk"`
	SuccessRate       float64                 `json:"success_rate"`
}

// Store persists decision snapshots.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record upserts the latest snapshot of d. It satisfies engine.Recorder.
func (s *Store) Record(ctx context.Context, d decision.Decision) error {
	deps, err := json.Marshal(nonNil(d.Dependencies))
	if err != nil {
		return fmt.Errorf("marshalling dependencies: %w", err)
	}
	execLog, err := json.Marshal(d.ExecutionLog)
	if err != nil {
		return fmt.Errorf("marshalling execution log: %w", err)
	}
	if d.ExecutionLog == nil {
		execLog = []byte("[]")
	}

	autoExecute := 0
	if d.AutoExecute {
		autoExecute = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, type, priority, description, confidence, risk_level, impact,
			estimated_time, status, auto_execute, dependencies, execution_log, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			execution_log = excluded.execution_log,
			updated_at = datetime('now')`,
		d.ID, string(d.Type), string(d.Priority), d.Description,
		d.Confidence, d.RiskLevel, d.Impact, d.EstimatedTime,
		string(d.Status), autoExecute, string(deps), string(execLog),
		d.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upserting decision %s: %w", d.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, type, priority, description, confidence, risk_level, impact,
	estimated_time, status, auto_execute, dependencies, execution_log, created_at FROM decisions`

// GetByID retrieves a single archived decision.
func (s *Store) GetByID(ctx context.Context, id string) (*decision.Decision, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	return scanInto(row)
}

// List returns archived decisions matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]decision.Decision, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(filter.Type))
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	query := selectColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var result []decision.Decision
	for rows.Next() {
		d, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// Stats summarises every archived decision. SuccessRate is completed over
// all finished executions, as a percentage.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		ByStatus: make(map[decision.Status]int),
		ByType:   make(map[decision.Type]int),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(confidence), 0), COALESCE(AVG(risk_level), 0)
		FROM decisions`).Scan(&st.Total, &st.AverageConfidence, &st.AverageRisk)
	if err != nil {
		return nil, fmt.Errorf("aggregating decisions: %w", err)
	}

	if err := s.countBy(ctx, "status", func(k string, n int) { st.ByStatus[decision.Status(k)] = n }); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "type", func(k string, n int) { st.ByType[decision.Type(k)] = n }); err != nil {
		return nil, err
	}

	completed := st.ByStatus[decision.StatusCompleted]
	if finished := completed + st.ByStatus[decision.StatusFailed]; finished > 0 {
		st.SuccessRate = float64(completed) / float64(finished) * 100
	}
	return st, nil
}

// DeleteBefore removes decisions created before the given time.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM decisions WHERE created_at < ?",
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old decisions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) countBy(ctx context.Context, column string, set func(string, int)) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM decisions GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("counting decisions by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning %s count: %w", column, err)
		}
		set(key, n)
	}
	return rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*decision.Decision, error) {
	var (
		d                          decision.Decision
		typ, priority, status      string
		autoExecute                int
		depsJSON, logJSON, created string
	)

	err := sc.Scan(&d.ID, &typ, &priority, &d.Description, &d.Confidence, &d.RiskLevel,
		&d.Impact, &d.EstimatedTime, &status, &autoExecute, &depsJSON, &logJSON, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("decision not found: %w", err)
		}
		return nil, err
	}

	d.Type = decision.Type(typ)
	d.Priority = decision.Priority(priority)
	d.Status = decision.Status(status)
	d.AutoExecute = autoExecute != 0

	if t, parseErr := time.Parse(timeLayout, created); parseErr == nil {
		d.Timestamp = t
	}
	if err := json.Unmarshal([]byte(depsJSON), &d.Dependencies); err != nil {
		d.Dependencies = []string{}
	}
	if err := json.Unmarshal([]byte(logJSON), &d.ExecutionLog); err != nil {
		d.ExecutionLog = []decision.LogEntry{}
	}

	return &d, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
