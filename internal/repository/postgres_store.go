package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore bundles the Postgres repositories over one pool, or over one
// transaction when created by WithinTx.
type PostgresStore struct {
	db            *sql.DB // nil when bound to a transaction
	buildings     *PostgresBuildingsRepository
	activities    *PostgresActivitiesRepository
	organizations *PostgresOrganizationsRepository
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store whose calls each commit on their own.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	s := newPostgresStore(db)
	s.db = db
	return s
}

func newPostgresStore(q DBTX) *PostgresStore {
	return &PostgresStore{
		buildings:     NewPostgresBuildingsRepository(q),
		activities:    NewPostgresActivitiesRepository(q),
		organizations: NewPostgresOrganizationsRepository(q),
	}
}

func (s *PostgresStore) Buildings() BuildingsRepository         { return s.buildings }
func (s *PostgresStore) Activities() ActivitiesRepository       { return s.activities }
func (s *PostgresStore) Organizations() OrganizationsRepository { return s.organizations }

// WithinTx begins a transaction, runs fn and commits; any error or panic rolls back.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newPostgresStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Reset truncates all directory tables and restarts their id sequences.
func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.organizations.q.ExecContext(ctx,
		`TRUNCATE organization_activities, organizations, activities, buildings RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to reset tables: %w", err)
	}
	return nil
}

// Ping checks the pool; inside a transaction it is a no-op.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}
