package search

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"engram/internal/catalog"
	"engram/pkg/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Repo struct {
	DB *sql.DB
}

type Query struct {
	Q      string // substring of subject id or display name
	Branch string // optional exact branch filter
	Limit  int
	Offset int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Replace swaps the whole index for refs in one transaction. Refs that
// repeat a (branch, semester, subject) key keep the first occurrence.
func (r *Repo) Replace(ctx context.Context, refs []models.SubjectRef) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM subjects`); err != nil {
		return fmt.Errorf("clear subjects: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO subjects (branch, semester, semester_no, subject, name, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ref := range refs {
		subject := strings.TrimSpace(ref.Subject)
		if subject == "" {
			continue
		}
		sem := catalog.NormalizeSemester(ref.Semester)
		no := catalog.SemesterNumber(sem)
		if no == 0 {
			no = math.MaxInt32
		}
		name := ref.Name
		if name == "" {
			name = subject
		}
		if _, err = stmt.ExecContext(ctx, strings.ToUpper(ref.Branch), sem, no, subject, name, string(ref.Source)); err != nil {
			return fmt.Errorf("insert subject: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (r *Repo) Count(ctx context.Context, q Query) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q Query) ([]models.SubjectRef, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.SubjectRef, 0, normalizeLimit(q.Limit))
	for rows.Next() {
		var (
			ref    models.SubjectRef
			source string
		)
		if err := rows.Scan(&ref.Branch, &ref.Semester, &ref.Subject, &ref.Name, &source); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		ref.Source = models.Source(source)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return DefaultLimit
	}
	return limit
}

// buildListSQL builds either COUNT(*) or the ordered page query.
func buildListSQL(q Query, countOnly bool) (string, []any) {
	sqlStr := `SELECT branch, semester, subject, name, source FROM subjects`
	if countOnly {
		sqlStr = `SELECT COUNT(*) FROM subjects`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "(LOWER(subject) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
		args = append(args, pattern, pattern)
	}
	if b := strings.TrimSpace(q.Branch); b != "" {
		where = append(where, "branch = ?")
		args = append(args, strings.ToUpper(b))
	}

	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY branch ASC, semester_no ASC, semester ASC, subject ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, normalizeLimit(q.Limit), offset)
	}

	return sqlStr, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
