package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Dump renders the full wrap chain of err including driver-level
// detail for postgres errors. Intended for logs only, never for
// response bodies.
func Dump(err error) string {
	if err == nil {
		return "<nil>"
	}

	var b strings.Builder
	depth := 0
	for current := err; current != nil; current = stdErrors.Unwrap(current) {
		if depth > 0 {
			b.WriteString(" <- ")
		}
		b.WriteString(fmt.Sprintf("[%d] %T: %s", depth, current, current.Error()))

		var pgErr *pgconn.PgError
		if stdErrors.As(current, &pgErr) && error(pgErr) == current {
			b.WriteString(fmt.Sprintf(
				" (code=%s constraint=%s table=%s detail=%s)",
				pgErr.Code, pgErr.ConstraintName, pgErr.TableName, pgErr.Detail,
			))
		}
		var pqErr *pq.Error
		if stdErrors.As(current, &pqErr) && error(pqErr) == current {
			b.WriteString(fmt.Sprintf(
				" (code=%s constraint=%s table=%s detail=%s)",
				pqErr.Code, pqErr.Constraint, pqErr.Table, pqErr.Detail,
			))
		}
		depth++
	}
	return b.String()
}
