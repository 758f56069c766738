package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"devbook/internal/common"
)

// Fields is a column patch applied by Update.
type Fields map[string]interface{}

// Filter restricts FindAll to rows whose columns equal the given values.
type Filter map[string]interface{}

// Store is the typed record store every resource is served from.
type Store[T any] interface {
	Create(ctx context.Context, rec *T) (*T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindAll(ctx context.Context, filter Filter) ([]T, error)
	Update(ctx context.Context, id string, fields Fields) (*T, error)
	Delete(ctx context.Context, id string) error
	// Owner returns the value of column for the record with the given id.
	Owner(ctx context.Context, id, column string) (string, error)
}

// Table describes how a record type maps onto a table. Fields must return
// pointers to the record's fields in the same order as Columns.
type Table[T any] struct {
	Name       string
	Columns    []string
	Insertable []string
	Mutable    []string
	Filterable []string
	OrderBy    string
	Fields     func(*T) []interface{}
}

func (t Table[T]) selectList() string {
	return strings.Join(t.Columns, ", ")
}

func (t Table[T]) index(column string) int {
	return slices.Index(t.Columns, column)
}

// HasColumn reports whether column belongs to the table.
func (t Table[T]) HasColumn(column string) bool {
	return t.index(column) >= 0
}

// Field returns the pointer to column's field within rec, or nil.
func (t Table[T]) Field(rec *T, column string) interface{} {
	i := t.index(column)
	if i < 0 {
		return nil
	}
	return t.Fields(rec)[i]
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// conn returns tx when the caller runs inside a transaction.
func conn(db *sql.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}

type pgStore[T any] struct {
	db    *sql.DB
	table Table[T]
}

func NewStore[T any](db *sql.DB, table Table[T]) Store[T] {
	return newPgStore(db, table)
}

func newPgStore[T any](db *sql.DB, table Table[T]) *pgStore[T] {
	return &pgStore[T]{db: db, table: table}
}

func (s *pgStore[T]) op(name string) string {
	return "pgStore[" + s.table.Name + "]." + name
}

func (s *pgStore[T]) Create(ctx context.Context, rec *T) (*T, error) {
	ptrs := s.table.Fields(rec)
	placeholders := make([]string, len(s.table.Insertable))
	args := make([]interface{}, len(s.table.Insertable))
	for i, col := range s.table.Insertable {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = reflect.ValueOf(ptrs[s.table.index(col)]).Elem().Interface()
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.table.Name, strings.Join(s.table.Insertable, ", "), strings.Join(placeholders, ", "), s.table.selectList())

	out := new(T)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(s.table.Fields(out)...); err != nil {
		return nil, dbError(s.op("Create"), err)
	}
	return out, nil
}

func (s *pgStore[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return s.findOne(ctx, nil, s.op("FindByID"), "id", id, false)
}

func (s *pgStore[T]) findOne(ctx context.Context, tx *sql.Tx, op, column string, value interface{}, forUpdate bool) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", s.table.selectList(), s.table.Name, column)
	if forUpdate {
		query += " FOR UPDATE"
	}
	out := new(T)
	if err := conn(s.db, tx).QueryRowContext(ctx, query, value).Scan(s.table.Fields(out)...); err != nil {
		return nil, dbError(op, err)
	}
	return out, nil
}

func (s *pgStore[T]) FindAll(ctx context.Context, filter Filter) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", s.table.selectList(), s.table.Name)

	var args []interface{}
	if len(filter) > 0 {
		conds := make([]string, 0, len(filter))
		for _, col := range sortedKeys(filter) {
			if !slices.Contains(s.table.Filterable, col) {
				return nil, fmt.Errorf("%s: cannot filter on %q: %w", s.op("FindAll"), col, common.ErrBadRequest)
			}
			args = append(args, filter[col])
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + s.orderBy()

	return s.queryAll(ctx, s.op("FindAll"), query, args...)
}

func (s *pgStore[T]) queryAll(ctx context.Context, op, query string, args ...interface{}) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(op, err)
	}
	defer rows.Close()

	records := make([]T, 0)
	for rows.Next() {
		var rec T
		if err := rows.Scan(s.table.Fields(&rec)...); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(op, err)
	}
	return records, nil
}

func (s *pgStore[T]) orderBy() string {
	if s.table.OrderBy != "" {
		return s.table.OrderBy
	}
	return "created_at DESC"
}

func (s *pgStore[T]) Update(ctx context.Context, id string, fields Fields) (*T, error) {
	if len(fields) == 0 {
		return s.FindByID(ctx, id)
	}

	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for _, col := range sortedKeys(fields) {
		if !slices.Contains(s.table.Mutable, col) {
			return nil, fmt.Errorf("%s: column %q is not mutable: %w", s.op("Update"), col, common.ErrBadRequest)
		}
		args = append(args, fields[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		s.table.Name, strings.Join(sets, ", "), len(args), s.table.selectList())

	out := new(T)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(s.table.Fields(out)...); err != nil {
		return nil, dbError(s.op("Update"), err)
	}
	return out, nil
}

func (s *pgStore[T]) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table.Name), id)
	if err != nil {
		return dbError(s.op("Delete"), err)
	}
	return requireAffected(s.op("Delete"), res)
}

func (s *pgStore[T]) Owner(ctx context.Context, id, column string) (string, error) {
	if !s.table.HasColumn(column) {
		return "", fmt.Errorf("%s: unknown column %q: %w", s.op("Owner"), column, common.ErrBadRequest)
	}
	var owner string
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", column, s.table.Name)
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&owner); err != nil {
		return "", dbError(s.op("Owner"), err)
	}
	return owner, nil
}

func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return nil
}

// dbError wraps err with op and tags it with the matching domain sentinel.
func dbError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w: %w", op, common.ErrConflict, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w: %w", op, common.ErrNotFound, err)
		case "22P02": // invalid_text_representation, e.g. a malformed uuid
			return fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
