package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	driverPostgres = "postgres"
	driverMySQL    = "mysql"
)

// ErrDuplicate reports a unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

// insertReturningID runs an INSERT written with ? placeholders and returns the generated key.
// Postgres has no LastInsertId, so the key comes back through RETURNING instead.
func insertReturningID(ctx context.Context, ext sqlx.ExtContext, query, idColumn string, args ...any) (int64, error) {
	if ext.DriverName() == driverPostgres {
		var id int64
		if err := ext.QueryRowxContext(ctx, ext.Rebind(query+" RETURNING "+idColumn), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// yearMonthExpr formats a date column as YYYY-MM in the active dialect.
func yearMonthExpr(driver, column string) string {
	if driver == driverMySQL {
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m')", column)
	}
	return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
