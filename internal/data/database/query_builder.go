// Package database builds parameterized list queries with sanitized
// identifiers.
package database

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType is a comparison operator.
type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	LessThan           ConditionType = "<"
	GreaterThanOrEqual ConditionType = ">="
	In                 ConditionType = "IN"
	IsNull             ConditionType = "IS NULL"

	unset = -1
)

// Condition is one WHERE predicate. Conditions are joined with AND.
type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

// WhereCond creates a condition on field.
func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// ListQueryOptions describes a SELECT against one table.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    []string
	OrderDir   string
	Limit      int
	Offset     int
}

// ListQueryOption mutates ListQueryOptions.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions applies opts to a query on table.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{Table: table, Limit: unset, Offset: unset}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

// WithCondition adds a condition.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithOrderBy sets the ordering columns and a shared direction.
func WithOrderBy(direction string, columns ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = columns
		o.OrderDir = direction
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly turns the query into SELECT COUNT(*).
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// BuildListQuery renders options into SQL and positional arguments.
// Ordering, limit and offset are ignored for count queries.
func BuildListQuery(o *ListQueryOptions) (string, []any) {
	if o == nil {
		return "", nil
	}

	var q strings.Builder
	switch {
	case o.CountOnly:
		q.WriteString("SELECT COUNT(*)")
	case len(o.Columns) == 0:
		q.WriteString("SELECT *")
	default:
		cols := make([]string, len(o.Columns))
		for i, c := range o.Columns {
			cols[i] = ident(c)
		}
		q.WriteString("SELECT " + strings.Join(cols, ", "))
	}
	q.WriteString(" FROM " + ident(o.Table))

	where, args := buildWhere(o.Conditions)
	if where != "" {
		q.WriteString(" WHERE " + where)
	}
	if o.CountOnly {
		return q.String(), args
	}

	if len(o.OrderBy) > 0 {
		dir := strings.ToUpper(o.OrderDir)
		if dir != "ASC" && dir != "DESC" {
			dir = "ASC"
		}
		parts := make([]string, len(o.OrderBy))
		for i, c := range o.OrderBy {
			parts[i] = ident(c) + " " + dir
		}
		q.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if o.Limit != unset {
		args = append(args, o.Limit)
		fmt.Fprintf(&q, " LIMIT $%d", len(args))
	}
	if o.Offset != unset {
		args = append(args, o.Offset)
		fmt.Fprintf(&q, " OFFSET $%d", len(args))
	}
	return q.String(), args
}

func buildWhere(conds []Condition) (string, []any) {
	parts := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		if c.Field == "" {
			continue
		}
		field := ident(c.Field)
		switch c.Type {
		case IsNull:
			parts = append(parts, field+" IS NULL")
		case In:
			rv := reflect.ValueOf(c.Value)
			if rv.Kind() != reflect.Slice || rv.Len() == 0 {
				continue
			}
			ph := make([]string, rv.Len())
			for i := range rv.Len() {
				args = append(args, rv.Index(i).Interface())
				ph[i] = fmt.Sprintf("$%d", len(args))
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", field, strings.Join(ph, ", ")))
		case Equal, NotEqual, LessThan, GreaterThanOrEqual:
			args = append(args, c.Value)
			parts = append(parts, fmt.Sprintf("%s %s $%d", field, c.Type, len(args)))
		}
	}
	return strings.Join(parts, " AND "), args
}
