// Package database is the relational store used by endpoints and the setup
// tool. Callers see it as an opaque row store with execute and iterate
// operations; Pool is the Postgres implementation.
package database

import (
	"context"
	"errors"
	"iter"
)

// ErrNoRows is returned by FetchOne when the query produced no row.
var ErrNoRows = errors.New("no rows in result set")

// DB executes statements and iterates query results.
type DB interface {
	// Execute runs a statement and returns the number of affected rows.
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	// Iterate streams rows lazily. Iteration stops at the first error,
	// which is yielded together with a nil row.
	Iterate(ctx context.Context, query string, args ...any) iter.Seq2[Row, error]
	// Fetch collects all rows of a query.
	Fetch(ctx context.Context, query string, args ...any) ([]Row, error)
	// Transaction runs fn inside a transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx DB) error) error
}

// FetchOne returns the first row of a query or ErrNoRows.
func FetchOne(ctx context.Context, db DB, query string, args ...any) (Row, error) {
	for row, err := range db.Iterate(ctx, query, args...) {
		if err != nil {
			return nil, err
		}
		return row, nil
	}
	return nil, ErrNoRows
}
