package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/types"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translateError maps driver errors onto the internal error sentinels
func translateError(err error, entity string, details map[string]any) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ierr.WithError(err).
				WithHintf("%s already exists", entity).
				WithReportableDetails(withConstraint(details, pqErr)).
				Mark(ierr.ErrAlreadyExists)
		case pqForeignKeyViolation:
			return ierr.WithError(err).
				WithHintf("%s is referenced by other records", entity).
				WithReportableDetails(withConstraint(details, pqErr)).
				Mark(ierr.ErrInvalidOperation)
		}
	}

	return ierr.WithError(err).
		WithHintf("Failed to query %s", entity).
		Mark(ierr.ErrDatabase)
}

func withConstraint(details map[string]any, pqErr *pq.Error) map[string]any {
	out := make(map[string]any, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	if pqErr.Constraint != "" {
		out["constraint"] = pqErr.Constraint
	}
	return out
}

func notFound(entity string, details map[string]any) error {
	return ierr.NewErrorf("%s not found", entity).
		WithHintf("%s not found", entity).
		WithReportableDetails(details).
		Mark(ierr.ErrNotFound)
}

// whereBuilder collects AND-ed conditions written with ? placeholders.
// Queries are rebound to the driver's placeholder style before execution.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// paging appends LIMIT and OFFSET for the filter to query
func paging(query string, args []interface{}, filter *types.QueryFilter) (string, []interface{}) {
	if !filter.IsUnlimited() {
		query += " LIMIT ?"
		args = append(args, filter.GetLimit())
	}
	if offset := filter.GetOffset(); offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

func likePattern(search string) string {
	return fmt.Sprintf("%%%s%%", strings.TrimSpace(search))
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
