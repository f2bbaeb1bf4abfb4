// Package repository implements persistence on MySQL with database/sql.
// Repositories report missing rows and blocked writes with the booking
// error kinds so handlers can translate them without knowing about SQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-booking/internal/booking"
)

// ErrNotFound is returned when a looked up row does not exist.
var ErrNotFound = booking.ErrNotFound

// ErrConflict is returned when a delete or update cannot be performed
// because other rows still reference the target.  Handlers translate it
// into an HTTP 409 response.
var ErrConflict = booking.ErrConflict

// ErrEmailExists is returned when registering an email already in use.
var ErrEmailExists = errors.New("email already exists")

// MySQL server error numbers this package maps.
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlRowIsReferenced2 = 1217
)

// notFound turns sql.ErrNoRows into ErrNotFound naming what was missing.
func notFound(err error, what string, id uint64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}

func mysqlCode(err error) uint16 {
	var merr *mysql.MySQLError
	if errors.As(err, &merr) {
		return merr.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlCode(err) == mysqlDuplicateEntry }

func isReferenced(err error) bool {
	code := mysqlCode(err)
	return code == mysqlRowIsReferenced || code == mysqlRowIsReferenced2
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
