// Package sqlxrepos implements the repositories on postgres with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
)

const uniqueViolation = "23505"

// NewDB wraps an open postgres handle for the repositories.
func NewDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, "postgres")
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps psql unique violations to core.ErrConflict
func trapUniqueErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return core.ErrConflict
	}
	return errors.Wrap(err, msg)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// orderBy renders an ORDER BY clause from the allowed orderings, always ending with tieBreakers.
func orderBy(ordering []core.DBOrdering, fields []string, tieBreakers ...core.DBOrdering) string {
	ordering = append(core.AllowedOrderings(ordering, fields), tieBreakers...)
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// where accumulates AND-ed conditions with `?` placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
