// Package repository provides table-backed data access for the domain entities.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/cna-billing/internal/db"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = db.ErrNotFound

// ErrAlreadyConverted is returned when converting an estimate that was already approved.
var ErrAlreadyConverted = errors.New("estimate has already been converted to invoice")

// DefaultPerPage is the list page size used by the controllers.
const DefaultPerPage = 15

// Schema describes the table behind a repository.
type Schema struct {
	Table      string
	Fillable   []string // columns accepted by Create/Update; anything else is dropped
	Hidden     []string // columns never selected by generic reads
	Searchable []string
	Preload    []string
	Timestamps bool
}

// Page is one page of records plus the counters the pager needs.
type Page[T any] struct {
	Data        []T   `json:"data"`
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	From        int   `json:"from"`
	To          int   `json:"to"`
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool { return p.CurrentPage < p.LastPage }

// Repository implements the generic CRUD operations for one table.
type Repository[T any] struct {
	g      *db.Gateway
	schema Schema
	now    func() time.Time
}

// New builds a repository for the table described by s.
func New[T any](g *db.Gateway, s Schema) *Repository[T] {
	return &Repository[T]{g: g, schema: s, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock replaces the time source; used by tests.
func (r *Repository[T]) SetClock(now func() time.Time) { r.now = now }

// Gateway returns the gateway the repository runs on.
func (r *Repository[T]) Gateway() *db.Gateway { return r.g }

// Schema returns the table description.
func (r *Repository[T]) Schema() Schema { return r.schema }

// Find returns the record with the given id or ErrNotFound.
func (r *Repository[T]) Find(ctx context.Context, id string) (*T, error) {
	return r.FindBy(ctx, "id", id)
}

// FindBy returns the first record whose field equals value or ErrNotFound.
func (r *Repository[T]) FindBy(ctx context.Context, field string, value any) (*T, error) {
	var out T
	err := r.g.First(ctx, r.schema.Table, &out, db.Query{
		Where:   db.Filter{field: value},
		Omit:    r.schema.Hidden,
		Preload: r.schema.Preload,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// All returns records newest first.
func (r *Repository[T]) All(ctx context.Context, limit, offset int) ([]T, error) {
	var out []T
	err := r.g.Select(ctx, r.schema.Table, &out, r.query(db.Query{Limit: limit, Offset: offset}))
	return out, err
}

// Create inserts the fillable subset of fields and returns the new id.
func (r *Repository[T]) Create(ctx context.Context, fields db.Fields) (string, error) {
	row := r.fillable(fields)
	if r.schema.Timestamps {
		now := r.now()
		row["created_at"] = now
		row["updated_at"] = now
	}
	return r.g.Insert(ctx, r.schema.Table, row)
}

// Update writes the fillable subset of fields and reports whether a row was changed.
func (r *Repository[T]) Update(ctx context.Context, id string, fields db.Fields) (bool, error) {
	row := r.fillable(fields)
	if len(row) == 0 {
		return false, nil
	}
	if r.schema.Timestamps {
		row["updated_at"] = r.now()
	}
	n, err := r.g.Update(ctx, r.schema.Table, row, db.Filter{"id": id})
	return n > 0, err
}

// Delete removes the record and reports whether it existed.
func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.g.Delete(ctx, r.schema.Table, db.Filter{"id": id})
	return n > 0, err
}

// Count returns the number of records.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.g.Count(ctx, r.schema.Table, nil)
}

// Search returns records where any of fields contains term, case-insensitively.
// An empty fields list searches the schema's searchable columns.
func (r *Repository[T]) Search(ctx context.Context, term string, fields ...string) ([]T, error) {
	if len(fields) == 0 {
		fields = r.schema.Searchable
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("repository.Search: %s has no searchable columns", r.schema.Table)
	}
	var out []T
	err := r.g.Select(ctx, r.schema.Table, &out, r.query(db.Query{Search: &db.Search{Term: term, Columns: fields}}))
	return out, err
}

// Paginate returns the requested page, newest first. Out-of-range input is clamped.
func (r *Repository[T]) Paginate(ctx context.Context, page, perPage int) (Page[T], error) {
	return r.paginate(ctx, db.Query{}, page, perPage)
}

// Exists reports whether a record other than excludeID has field equal to value.
func (r *Repository[T]) Exists(ctx context.Context, field string, value any, excludeID string) (bool, error) {
	q := db.Query{Where: db.Filter{field: value}}
	if excludeID != "" {
		q.Not = db.Filter{"id": excludeID}
	}
	n, err := r.g.CountQuery(ctx, r.schema.Table, q)
	return n > 0, err
}

func (r *Repository[T]) paginate(ctx context.Context, q db.Query, page, perPage int) (Page[T], error) {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}
	total, err := r.g.CountQuery(ctx, r.schema.Table, q)
	if err != nil {
		return Page[T]{}, err
	}
	q.Limit = perPage
	q.Offset = (page - 1) * perPage
	var data []T
	if err := r.g.Select(ctx, r.schema.Table, &data, r.query(q)); err != nil {
		return Page[T]{}, err
	}
	return newPage(data, total, page, perPage), nil
}

func (r *Repository[T]) query(q db.Query) db.Query {
	if q.Order == "" {
		q.Order = "created_at desc"
	}
	q.Omit = r.schema.Hidden
	q.Preload = r.schema.Preload
	return q
}

func (r *Repository[T]) fillable(fields db.Fields) db.Fields {
	out := make(db.Fields, len(fields))
	for _, col := range r.schema.Fillable {
		if v, ok := fields[col]; ok {
			out[col] = v
		}
	}
	return out
}

func newPage[T any](data []T, total int64, page, perPage int) Page[T] {
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last < 1 {
		last = 1
	}
	p := Page[T]{Data: data, Total: total, PerPage: perPage, CurrentPage: page, LastPage: last}
	if len(data) > 0 {
		p.From = (page-1)*perPage + 1
		p.To = p.From + len(data) - 1
	}
	return p
}

func newID() string { return uuid.NewString() }

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
