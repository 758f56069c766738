// Package repotest provides in-memory repositories for service and handler tests.
package repotest

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"devbook/internal/common"
	"devbook/internal/domain/repository"
)

// MemoryStore is a repository.Store backed by a map. Unique lists column
// groups that must be unique across records.
type MemoryStore[T any] struct {
	mu      sync.Mutex
	table   repository.Table[T]
	records map[string]*T
	order   []string
	Unique  [][]string
	Now     func() time.Time
}

func NewMemoryStore[T any](table repository.Table[T], unique ...[]string) *MemoryStore[T] {
	return &MemoryStore[T]{
		table:   table,
		records: make(map[string]*T),
		Unique:  unique,
		Now:     time.Now,
	}
}

func (m *MemoryStore[T]) Create(_ context.Context, rec *T) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(rec)
}

func (m *MemoryStore[T]) insertLocked(rec *T) (*T, error) {
	out := new(T)
	for _, col := range m.table.Insertable {
		assign(m.table.Field(out, col), reflect.ValueOf(m.table.Field(rec, col)).Elem().Interface())
	}
	id := uuid.NewString()
	assign(m.table.Field(out, "id"), id)
	now := m.Now()
	if m.table.HasColumn("created_at") {
		assign(m.table.Field(out, "created_at"), now)
	}
	if m.table.HasColumn("updated_at") {
		assign(m.table.Field(out, "updated_at"), now)
	}
	if m.table.HasColumn("role") && value(m.table.Field(out, "role")) == "" {
		assign(m.table.Field(out, "role"), "USER")
	}

	if err := m.checkUniqueLocked(out, ""); err != nil {
		return nil, err
	}
	m.records[id] = out
	m.order = append(m.order, id)
	cp := *out
	return &cp, nil
}

func (m *MemoryStore[T]) checkUniqueLocked(rec *T, skipID string) error {
	for _, group := range m.Unique {
		for id, other := range m.records {
			if id == skipID {
				continue
			}
			same := true
			for _, col := range group {
				if value(m.table.Field(rec, col)) != value(m.table.Field(other, col)) {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("memory[%s]: duplicate %v: %w", m.table.Name, group, common.ErrConflict)
			}
		}
	}
	return nil
}

func (m *MemoryStore[T]) FindByID(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("memory[%s].FindByID: %w", m.table.Name, common.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore[T]) FindAll(_ context.Context, filter repository.Filter) ([]T, error) {
	out := make([]T, 0)
	m.Each(func(rec *T) {
		for col, want := range filter {
			if value(m.table.Field(rec, col)) != fmt.Sprint(want) {
				return
			}
		}
		out = append(out, *rec)
	})
	return out, nil
}

func (m *MemoryStore[T]) Update(_ context.Context, id string, fields repository.Fields) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("memory[%s].Update: %w", m.table.Name, common.ErrNotFound)
	}
	next := *rec
	for col, v := range fields {
		if !slices.Contains(m.table.Mutable, col) {
			return nil, fmt.Errorf("memory[%s].Update: column %q is not mutable: %w", m.table.Name, col, common.ErrBadRequest)
		}
		assign(m.table.Field(&next, col), v)
	}
	if err := m.checkUniqueLocked(&next, id); err != nil {
		return nil, err
	}
	*rec = next
	cp := next
	return &cp, nil
}

func (m *MemoryStore[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("memory[%s].Delete: %w", m.table.Name, common.ErrNotFound)
	}
	m.deleteLocked(id)
	return nil
}

func (m *MemoryStore[T]) deleteLocked(id string) {
	delete(m.records, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
}

func (m *MemoryStore[T]) Owner(_ context.Context, id, column string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return "", fmt.Errorf("memory[%s].Owner: %w", m.table.Name, common.ErrNotFound)
	}
	if !m.table.HasColumn(column) {
		return "", fmt.Errorf("memory[%s].Owner: unknown column %q: %w", m.table.Name, column, common.ErrBadRequest)
	}
	return value(m.table.Field(rec, column)), nil
}

// Each calls fn for every record in insertion order. fn may mutate the record.
func (m *MemoryStore[T]) Each(fn func(*T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		fn(m.records[id])
	}
}

// DeleteWhere removes the records matching pred and returns how many were removed.
func (m *MemoryStore[T]) DeleteWhere(pred func(*T) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range slices.Clone(m.order) {
		if pred(m.records[id]) {
			m.deleteLocked(id)
			n++
		}
	}
	return n
}

func (m *MemoryStore[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Put stores rec as is, keyed by its id.
func (m *MemoryStore[T]) Put(rec T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := value(m.table.Field(&rec, "id"))
	if _, ok := m.records[id]; !ok {
		m.order = append(m.order, id)
	}
	m.records[id] = &rec
}

// assign sets *ptr to v, converting between T and *T as needed.
func assign(ptr interface{}, v interface{}) {
	dst := reflect.ValueOf(ptr).Elem()
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return
	}
	src := reflect.ValueOf(v)
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case dst.Kind() == reflect.Pointer && src.Type().AssignableTo(dst.Type().Elem()):
		p := reflect.New(dst.Type().Elem())
		p.Elem().Set(src)
		dst.Set(p)
	case src.Kind() == reflect.Pointer && src.Type().Elem().AssignableTo(dst.Type()):
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
		} else {
			dst.Set(src.Elem())
		}
	default:
		panic(fmt.Sprintf("repotest: cannot assign %T to %s", v, dst.Type()))
	}
}

// value renders the field at ptr as a string, dereferencing pointers.
func value(ptr interface{}) string {
	v := reflect.ValueOf(ptr).Elem()
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	return fmt.Sprint(v.Interface())
}
