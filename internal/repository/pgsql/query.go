package pgsql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
)

// where accumulates AND-ed conditions with numbered placeholders. Each
// condition uses a single %d verb for its placeholder index.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends ORDER BY / LIMIT / OFFSET. The sort column is checked against
// allowed so user input never reaches the statement text.
func (w *where) page(filter types.BaseFilter, sort, order string, allowed ...string) string {
	col := "created_at"
	for _, a := range allowed {
		if a == sort {
			col = a
		}
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}

	out := fmt.Sprintf(" ORDER BY %s %s", col, dir)
	if filter == nil || filter.IsUnlimited() {
		return out
	}
	w.args = append(w.args, filter.GetLimit())
	out += fmt.Sprintf(" LIMIT $%d", len(w.args))
	w.args = append(w.args, filter.GetOffset())
	out += fmt.Sprintf(" OFFSET $%d", len(w.args))
	return out
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode JSON column").
			Mark(ierr.ErrInternal)
	}
	return b, nil
}

func unmarshalJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to decode JSON column").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// wrapErr maps storage errors onto the error kinds the API layer knows
func wrapErr(err error, entity string, details map[string]any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	if postgres.IsUniqueViolation(err) {
		return ierr.WithError(err).
			WithHintf("%s already exists", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithHintf("Failed to access %s", entity).
		WithReportableDetails(details).
		Mark(ierr.ErrDatabase)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
