// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios with
// errors.Is.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they may not touch.  Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write collides with existing state, such
// as importing an event guid twice in one document.  Handlers translate
// this into 409.
var ErrConflict = errors.New("conflict")

var (
	ErrConferenceNotFound = errors.New("conference not found")
	ErrVenueNotFound      = errors.New("venue not found")
	ErrEventNotFound      = errors.New("event not found")
)

// queryer is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside an import transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// maxInArgs caps the ids bound into one IN list.  SQLite refuses more
// than 32766 variables per statement and MySQL more than 65535.
var maxInArgs = 500

// chunkIDs splits ids into consecutive slices of at most maxInArgs.
func chunkIDs(ids []uint64) [][]uint64 {
	var out [][]uint64
	for len(ids) > maxInArgs {
		out = append(out, ids[:maxInArgs])
		ids = ids[maxInArgs:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// isDuplicate reports whether err is a unique key violation on MySQL
// (error 1062) or SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
