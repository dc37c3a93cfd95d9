package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sentinel errors returned by the gateway.
var (
	ErrQueryFailed       = errors.New("query failed")
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

var (
	identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	orderRe = regexp.MustCompile(`^[a-z_][a-z0-9_.]*( (?i:asc|desc))?$`)
)

// Fields are column values for an insert or update.
type Fields map[string]any

// Filter is an equality filter; keys are column names.
type Filter map[string]any

// Search is a case-insensitive substring match OR-ed across columns.
type Search struct {
	Term    string
	Columns []string
}

// Query describes a fixed, parameterized SELECT against one table.
type Query struct {
	Where   Filter
	Not     Filter
	Search  *Search
	Preload []string
	Order   string
	Limit   int
	Offset  int
	Omit    []string
	Lock    bool
}

// Gateway executes parameterized statements and scopes transactions.
// Identifiers are checked against a strict pattern; values are always bound.
type Gateway struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewGateway wraps an open gorm connection.
func NewGateway(db *gorm.DB, log *slog.Logger) *Gateway {
	return &Gateway{db: db, log: log}
}

// Conn returns the underlying connection bound to ctx, for domain queries
// that need joins or aggregates.
func (g *Gateway) Conn(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

// Insert writes one row and returns its id. A UUID is assigned when fields has no "id".
func (g *Gateway) Insert(ctx context.Context, table string, fields Fields) (string, error) {
	const op = "db.Insert"
	if err := checkIdents(table, keys(fields)...); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	id, _ := fields["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	row := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		row[k] = v
	}
	row["id"] = id
	if err := g.db.WithContext(ctx).Table(table).Create(row).Error; err != nil {
		return "", g.fail(op, table, err)
	}
	return id, nil
}

// Update sets fields on the rows matching filter and returns the number of rows affected.
func (g *Gateway) Update(ctx context.Context, table string, fields Fields, filter Filter) (int64, error) {
	const op = "db.Update"
	if len(filter) == 0 {
		return 0, fmt.Errorf("%s: empty filter", op)
	}
	if err := checkIdents(table, append(keys(fields), keys(filter)...)...); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(fields) == 0 {
		return 0, nil
	}
	res := g.db.WithContext(ctx).Table(table).Where(map[string]any(filter)).Updates(map[string]any(fields))
	if res.Error != nil {
		return 0, g.fail(op, table, res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes the rows matching filter and returns the number of rows affected.
func (g *Gateway) Delete(ctx context.Context, table string, filter Filter) (int64, error) {
	const op = "db.Delete"
	if len(filter) == 0 {
		return 0, fmt.Errorf("%s: empty filter", op)
	}
	if err := checkIdents(table, keys(filter)...); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	res := g.db.WithContext(ctx).Table(table).Where(map[string]any(filter)).Delete(map[string]any{})
	if res.Error != nil {
		return 0, g.fail(op, table, res.Error)
	}
	return res.RowsAffected, nil
}

// Select loads every row matching q into dest (a pointer to a slice).
func (g *Gateway) Select(ctx context.Context, table string, dest any, q Query) error {
	const op = "db.Select"
	tx, err := g.build(ctx, table, q)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Find(dest).Error; err != nil {
		return g.fail(op, table, err)
	}
	return nil
}

// First loads the first row matching q into dest, or returns ErrNotFound.
func (g *Gateway) First(ctx context.Context, table string, dest any, q Query) error {
	const op = "db.First"
	q.Limit = 1
	tx, err := g.build(ctx, table, q)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Take(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return g.fail(op, table, err)
	}
	return nil
}

// Count returns the number of rows matching filter.
func (g *Gateway) Count(ctx context.Context, table string, filter Filter) (int64, error) {
	return g.CountQuery(ctx, table, Query{Where: filter})
}

// CountQuery returns the number of rows matching the filters and search of q.
func (g *Gateway) CountQuery(ctx context.Context, table string, q Query) (int64, error) {
	const op = "db.Count"
	tx, err := g.build(ctx, table, Query{Where: q.Where, Not: q.Not, Search: q.Search})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, g.fail(op, table, err)
	}
	return n, nil
}

// Transaction runs fn inside BEGIN/COMMIT. Any error returned by fn rolls everything back.
func (g *Gateway) Transaction(ctx context.Context, fn func(tx *Gateway) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gateway{db: tx, log: g.log})
	})
}

func (g *Gateway) build(ctx context.Context, table string, q Query) (*gorm.DB, error) {
	cols := append(append(keys(q.Where), keys(q.Not)...), q.Omit...)
	if q.Search != nil {
		cols = append(cols, q.Search.Columns...)
	}
	if err := checkIdents(table, cols...); err != nil {
		return nil, err
	}
	tx := g.db.WithContext(ctx).Table(table)
	if len(q.Where) > 0 {
		tx = tx.Where(map[string]any(q.Where))
	}
	if len(q.Not) > 0 {
		tx = tx.Not(map[string]any(q.Not))
	}
	if q.Search != nil && len(q.Search.Columns) > 0 {
		tx = tx.Where(LikeAny(q.Search.Term, q.Search.Columns...))
	}
	if q.Order != "" {
		if !orderRe.MatchString(q.Order) {
			return nil, fmt.Errorf("%w: order %q", ErrInvalidIdentifier, q.Order)
		}
		tx = tx.Order(q.Order)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if len(q.Omit) > 0 {
		tx = tx.Omit(q.Omit...)
	}
	for _, rel := range q.Preload {
		tx = tx.Preload(rel)
	}
	if q.Lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx, nil
}

func (g *Gateway) fail(op, table string, err error) error {
	if g.log != nil {
		g.log.Error("query failed", slog.String("op", op), slog.String("table", table), sl.Err(err))
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w: %w: %w", op, ErrQueryFailed, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrQueryFailed, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikeAny builds LOWER(col) LIKE LOWER(?) OR-ed across columns. Columns may be qualified ("clients.email").
// % and _ in term match literally.
func LikeAny(term string, columns ...string) clause.Expression {
	like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	exprs := make([]clause.Expression, 0, len(columns))
	for _, c := range columns {
		col := clause.Column{Name: c}
		if tbl, name, ok := strings.Cut(c, "."); ok {
			col = clause.Column{Table: tbl, Name: name}
		}
		exprs = append(exprs, clause.Expr{SQL: `LOWER(?) LIKE ? ESCAPE '\'`, Vars: []any{col, like}})
	}
	return clause.Or(exprs...)
}

// ValidIdent reports whether name is safe to use as a table or column name.
func ValidIdent(name string) bool {
	if tbl, col, ok := strings.Cut(name, "."); ok {
		return identRe.MatchString(tbl) && identRe.MatchString(col)
	}
	return identRe.MatchString(name)
}

func checkIdents(table string, cols ...string) error {
	if !identRe.MatchString(table) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}
	for _, c := range cols {
		if !ValidIdent(c) {
			return fmt.Errorf("%w: column %q", ErrInvalidIdentifier, c)
		}
	}
	return nil
}

func keys[M ~map[string]any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
