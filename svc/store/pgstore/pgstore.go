// Package pgstore implements the repositories on Postgres through pgx.
// Conditional writes are single UPDATE statements whose WHERE clause
// carries the precondition; an empty result is resolved into the matching
// domain error with a follow-up read.
package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *pgxpool.Pool the stores use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

type Store struct {
	db DB
}

func New(db DB) *Store {
	if db == nil {
		panic("pgstore: nil db")
	}
	return &Store{db: db}
}

func (s *Store) Organizations() *Organizations { return &Organizations{db: s.db} }
func (s *Store) Plans() *Plans                 { return &Plans{db: s.db} }
func (s *Store) Payments() *Payments           { return &Payments{db: s.db} }
func (s *Store) Notifications() *Notifications { return &Notifications{db: s.db} }
func (s *Store) Usage() *Usage                 { return &Usage{db: s.db} }

type scanner interface {
	Scan(dest ...any) error
}

// collect scans every row with scan.
func collect[T any](rows pgx.Rows, scan func(scanner) (*T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
