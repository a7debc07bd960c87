package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core"
)

const (
	uniqueViolation = "23505"
	// connectionException is the class of the errors raised when the connection to the server is lost.
	connectionException = "08"
)

// dbErr annotates err with msg. Errors telling the database is gone become core shutdown errors.
func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isConnectionLost(err) {
		return errors.Wrap(core.NewShutdownError("database connection lost: "+err.Error()), msg)
	}
	return errors.Wrap(err, msg)
}

func isConnectionLost(err error) bool {
	switch cause := errors.Cause(err).(type) {
	case *pq.Error:
		switch cause.Code {
		case "57P01", "57P02", "57P03": // admin_shutdown, crash_shutdown, cannot_connect_now
			return true
		}
		return cause.Code.Class() == connectionException
	case *net.OpError:
		return true
	default:
		return cause == driver.ErrBadConn || cause == sql.ErrConnDone
	}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return dbErr(err, msg)
}

func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}

// withTx runs fn in a transaction, rolled back if fn fails.
func withTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return dbErr(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return dbErr(tx.Commit(), "committing transaction")
}

// whereClause accumulates AND-ed conditions with positional params.
type whereClause struct {
	conds []string
	args  []interface{}
}

// add appends a condition; each "?" in cond is bound to the next arg.
func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	s := " WHERE (" + w.conds[0] + ")"
	for _, c := range w.conds[1:] {
		s += " AND (" + c + ")"
	}
	return s
}

// query renders the full statement with postgres bindvars.
func (w *whereClause) query(head, tail string) string {
	return sqlx.Rebind(sqlx.DOLLAR, head+w.String()+tail)
}

// validIDs drops the ids that are not UUIDs; postgres rejects them instead of matching nothing.
func validIDs(ids ...string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	return valid
}

func isValidID(id string) bool {
	return len(validIDs(id)) == 1
}
