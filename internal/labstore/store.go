// Package labstore persists graded submissions, one table per lab.
package labstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/labworks/labgrade/internal/answers"
	"github.com/labworks/labgrade/internal/grading"
)

// SQLStore writes one row per graded submission into lab_<id>. Tables are
// created on first use with CREATE TABLE IF NOT EXISTS, so concurrent
// first-submissions for the same lab are safe without coordination.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// Save ensures the lab's table exists and appends the submission. Answer text
// is stored as submitted except for the invisible code points, which are
// stripped the same way the normalizer strips them.
func (s *SQLStore) Save(ctx context.Context, spec answers.Spec, studentID string, fields map[string]string, res grading.Result) error {
	keys := spec.Answers.Keys()
	if err := s.ensureTable(ctx, spec); err != nil {
		return fmt.Errorf("ensure table: %w", err)
	}

	cols := make([]string, 0, len(keys)+4)
	args := make([]any, 0, len(keys)+4)
	cols = append(cols, "student_id")
	args = append(args, grading.StripInvisible(studentID))
	for _, key := range keys {
		cols = append(cols, ident(key))
		args = append(args, grading.StripInvisible(fields[key]))
	}
	cols = append(cols, "total_questions", "correct_answers", "percentage")
	args = append(args, res.Total, res.Correct, res.Percentage)

	ph := make([]string, len(cols))
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName(string(spec.ID)), strings.Join(cols, ", "), strings.Join(ph, ", "))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *SQLStore) ensureTable(ctx context.Context, spec answers.Spec) error {
	var idCol, tsCol string
	switch s.driver {
	case "postgres":
		idCol = "id BIGSERIAL PRIMARY KEY"
		tsCol = "created_at TIMESTAMPTZ DEFAULT now()"
	default:
		idCol = "id INTEGER PRIMARY KEY AUTOINCREMENT"
		tsCol = "created_at DATETIME DEFAULT CURRENT_TIMESTAMP"
	}

	cols := []string{idCol, "student_id TEXT"}
	for _, key := range spec.Answers.Keys() {
		cols = append(cols, ident(key)+" TEXT")
	}
	cols = append(cols,
		"total_questions INTEGER",
		"correct_answers INTEGER",
		"percentage REAL",
		tsCol,
	)
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		tableName(string(spec.ID)), strings.Join(cols, ", "))
	_, err := s.db.ExecContext(ctx, q)
	return err
}

// AverageMark is the mean stored percentage across the given labs for one
// student. Labs without a table yet (nobody submitted) are skipped.
func (s *SQLStore) AverageMark(ctx context.Context, studentID string, labIDs []string) (float64, bool) {
	sum, n := 0.0, 0
	for _, labID := range labIDs {
		q := fmt.Sprintf("SELECT AVG(percentage) FROM %s WHERE student_id=$1", tableName(labID))
		var avg sql.NullFloat64
		if err := s.db.QueryRowContext(ctx, q, studentID).Scan(&avg); err != nil {
			// Table missing or unreadable; statistics stay best-effort.
			continue
		}
		if avg.Valid {
			sum += avg.Float64
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// tableName derives the per-lab table, e.g. lab id 1 -> lab_1. The lab_
// prefix keeps the name valid even for purely numeric ids.
func tableName(labID string) string {
	return "lab_" + sanitize(labID)
}

// sanitize reduces config-sourced names to SQL identifier characters. Answer
// keys and lab ids end up in DDL, so they never reach the database verbatim.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func ident(name string) string {
	out := sanitize(name)
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "f_" + out
	}
	return out
}
