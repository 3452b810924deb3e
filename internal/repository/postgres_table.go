package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DBTX is the statement surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// table is the explicit field-to-column descriptor of one entity.
// columns is the select list in scan order and always starts with "id".
type table[T any] struct {
	name       string
	columns    []string
	filterable map[string]bool
	writable   map[string]bool
	scan       func(rowScanner) (*T, error)
}

func (t *table[T]) selectList() string {
	return strings.Join(t.columns, ", ")
}

func (t *table[T]) checkFilter(field string) error {
	if !t.filterable[field] {
		return unknownField(t.name, field)
	}
	return nil
}

// sortedColumns validates data against the writable set and returns its keys in a stable order.
func (t *table[T]) sortedColumns(data Values) ([]string, error) {
	cols := make([]string, 0, len(data))
	for col := range data {
		if !t.writable[col] {
			return nil, unknownField(t.name, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

// PostgresRepository implements Repository[T] on database/sql + lib/pq.
type PostgresRepository[T any] struct {
	q DBTX
	t *table[T]
}

var _ Repository[struct{}] = (*PostgresRepository[struct{}])(nil)

func newPostgresRepository[T any](q DBTX, t *table[T]) *PostgresRepository[T] {
	return &PostgresRepository[T]{q: q, t: t}
}

// FindAll returns every row ordered by id.
func (r *PostgresRepository[T]) FindAll(ctx context.Context) ([]*T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, r.t.selectList(), r.t.name)
	return r.queryRows(ctx, query)
}

// FindOneWithFilter fetches at most two rows so a non-unique match can be reported.
func (r *PostgresRepository[T]) FindOneWithFilter(ctx context.Context, f Filter) (*T, error) {
	where, args, err := r.equalityClause(f)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY id LIMIT 2`, r.t.selectList(), r.t.name, where)
	items, err := r.queryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return items[0], nil
	default:
		return nil, fmt.Errorf("%w: %s.%s", ErrMultipleRows, r.t.name, f.Field)
	}
}

// FindAllWithFilter returns all rows matching f, ordered by id.
func (r *PostgresRepository[T]) FindAllWithFilter(ctx context.Context, f Filter) ([]*T, error) {
	where, args, err := r.equalityClause(f)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY id`, r.t.selectList(), r.t.name, where)
	return r.queryRows(ctx, query, args...)
}

// FindAllWithFilterIn returns rows whose field is in values, ordered by id.
func (r *PostgresRepository[T]) FindAllWithFilterIn(ctx context.Context, field string, values []any) ([]*T, error) {
	if err := r.t.checkFilter(field); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []*T{}, nil
	}
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s IN (%s) ORDER BY id`,
		r.t.selectList(), r.t.name, field, strings.Join(placeholders, ", "))
	return r.queryRows(ctx, query, values...)
}

// AddOne inserts a row and returns the generated id.
func (r *PostgresRepository[T]) AddOne(ctx context.Context, data Values) (int64, error) {
	cols, err := r.t.sortedColumns(data)
	if err != nil {
		return 0, err
	}

	var query string
	args := make([]any, 0, len(cols))
	if len(cols) == 0 {
		query = fmt.Sprintf(`INSERT INTO %s DEFAULT VALUES RETURNING id`, r.t.name)
	} else {
		placeholders := make([]string, len(cols))
		for i, col := range cols {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, data[col])
		}
		query = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
			r.t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	}

	var id int64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", r.t.name, translateError(r.t.name, err))
	}
	return id, nil
}

// UpdateOne updates the row in a single statement; no row means ErrNotFound.
// With empty data it only checks that the row exists.
func (r *PostgresRepository[T]) UpdateOne(ctx context.Context, id int64, data Values) (int64, error) {
	cols, err := r.t.sortedColumns(data)
	if err != nil {
		return 0, err
	}

	var query string
	args := make([]any, 0, len(cols)+1)
	if len(cols) == 0 {
		query = fmt.Sprintf(`SELECT id FROM %s WHERE id = $1`, r.t.name)
		args = append(args, id)
	} else {
		sets := make([]string, len(cols))
		for i, col := range cols {
			sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
			args = append(args, data[col])
		}
		args = append(args, id)
		query = fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING id`,
			r.t.name, strings.Join(sets, ", "), len(args))
	}

	var updated int64
	err = r.q.QueryRowContext(ctx, query, args...).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s id=%d", ErrNotFound, r.t.name, id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", r.t.name, translateError(r.t.name, err))
	}
	return updated, nil
}

// DeleteOne deletes the row in a single statement; zero affected rows means ErrNotFound.
func (r *PostgresRepository[T]) DeleteOne(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.t.name)
	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", r.t.name, translateError(r.t.name, err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s id=%d", ErrNotFound, r.t.name, id)
	}
	return nil
}

// AddRelation inserts one join row; every join column must be given.
func (r *PostgresRepository[T]) AddRelation(ctx context.Context, join JoinTable, keys Values) error {
	if len(keys) != len(join.Columns) {
		return fmt.Errorf("%s needs %s", join.Name, strings.Join(join.Columns, ", "))
	}
	args := make([]any, 0, len(join.Columns))
	placeholders := make([]string, 0, len(join.Columns))
	for i, col := range join.Columns {
		v, ok := keys[col]
		if !ok {
			return unknownField(join.Name, col)
		}
		args = append(args, v)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		join.Name, strings.Join(join.Columns, ", "), strings.Join(placeholders, ", "))
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", join.Name, translateError(join.Name, err))
	}
	return nil
}

// DeleteRelations deletes every join row whose f.Field equals f.Value.
func (r *PostgresRepository[T]) DeleteRelations(ctx context.Context, join JoinTable, f Filter) (int64, error) {
	if !join.hasColumn(f.Field) {
		return 0, unknownField(join.Name, f.Field)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, join.Name, f.Field)
	result, err := r.q.ExecContext(ctx, query, f.Value)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", join.Name, translateError(join.Name, err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// equalityClause renders "field = $1", or "field IS NULL" for a nil value.
func (r *PostgresRepository[T]) equalityClause(f Filter) (string, []any, error) {
	if err := r.t.checkFilter(f.Field); err != nil {
		return "", nil, err
	}
	if isNil(f.Value) {
		return f.Field + " IS NULL", nil, nil
	}
	return f.Field + " = $1", []any{f.Value}, nil
}

func (r *PostgresRepository[T]) queryRows(ctx context.Context, query string, args ...any) ([]*T, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.t.name, err)
	}
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		item, err := r.t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.t.name, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", r.t.name, err)
	}
	return items, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	if p, ok := v.(*int64); ok {
		return p == nil
	}
	return false
}
