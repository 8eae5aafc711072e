// Package querybuilder assembles BigQuery Standard SQL predicates with named
// parameter bindings. User-supplied values never appear as literals in the
// generated text; every scalar and array rides in a Param resolved by the
// warehouse client at execution time.
package querybuilder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Param is a named query parameter bound at execution time. Value may be a
// scalar or a slice; slices bind as BigQuery array parameters.
type Param struct {
	Name  string
	Value any
}

type Condition interface {
	appendSQL(buf *strings.Builder, params *[]Param, argIndex *int)
}

type inCondition struct {
	column string
	values []string
}

// In matches column membership in values via IN UNNEST over an array
// parameter. An empty value set never matches.
func In(column string, values []string) Condition {
	return inCondition{column: column, values: values}
}

func (c inCondition) appendSQL(buf *strings.Builder, params *[]Param, argIndex *int) {
	if len(c.values) == 0 {
		buf.WriteString("FALSE")
		return
	}
	buf.WriteString(c.column)
	buf.WriteString(" IN UNNEST(")
	buf.WriteString(bind(params, argIndex, append([]string(nil), c.values...)))
	buf.WriteString(")")
}

type inInt64Condition struct {
	column string
	values []int64
}

func InInt64(column string, values []int64) Condition {
	return inInt64Condition{column: column, values: values}
}

func (c inInt64Condition) appendSQL(buf *strings.Builder, params *[]Param, argIndex *int) {
	if len(c.values) == 0 {
		buf.WriteString("FALSE")
		return
	}
	buf.WriteString(c.column)
	buf.WriteString(" IN UNNEST(")
	buf.WriteString(bind(params, argIndex, append([]int64(nil), c.values...)))
	buf.WriteString(")")
}

type isNullCondition struct {
	column string
}

func IsNull(column string) Condition {
	return isNullCondition{column: column}
}

func (c isNullCondition) appendSQL(buf *strings.Builder, _ *[]Param, _ *int) {
	buf.WriteString(c.column)
	buf.WriteString(" IS NULL")
}

type isNotNullCondition struct {
	column string
}

func IsNotNull(column string) Condition {
	return isNotNullCondition{column: column}
}

func (c isNotNullCondition) appendSQL(buf *strings.Builder, _ *[]Param, _ *int) {
	buf.WriteString(c.column)
	buf.WriteString(" IS NOT NULL")
}

type regexContainsCondition struct {
	column  string
	pattern string
}

// RegexContains matches column text against a RE2 pattern bound as a
// parameter. Callers escape any user-supplied fragments with QuoteTag before
// composing the pattern.
func RegexContains(column, pattern string) Condition {
	return regexContainsCondition{column: column, pattern: pattern}
}

func (c regexContainsCondition) appendSQL(buf *strings.Builder, params *[]Param, argIndex *int) {
	buf.WriteString("REGEXP_CONTAINS(")
	buf.WriteString(c.column)
	buf.WriteString(", ")
	buf.WriteString(bind(params, argIndex, c.pattern))
	buf.WriteString(")")
}

type exprCondition struct {
	expr string
	args []any
}

// Expr embeds a raw SQL expression, rewriting each '?' to the next named
// placeholder.
func Expr(expr string, args ...any) Condition {
	return exprCondition{expr: expr, args: args}
}

func (c exprCondition) appendSQL(buf *strings.Builder, params *[]Param, argIndex *int) {
	buf.WriteString(rewritePlaceholders(c.expr, c.args, params, argIndex))
}

// Fragment renders conditions joined by AND into a standalone boolean
// expression, appending bindings to params. With no conditions it renders
// TRUE, the pass-through predicate.
func Fragment(conditions []Condition, params *[]Param, argIndex *int) string {
	if len(conditions) == 0 {
		return "TRUE"
	}
	var buf strings.Builder
	for i, c := range conditions {
		if i > 0 {
			buf.WriteString(" AND ")
		}
		c.appendSQL(&buf, params, argIndex)
	}
	return buf.String()
}

// SelectBuilder assembles a read-only statement over the canonical virtual
// relations. CTEs registered with With are emitted in registration order.
type SelectBuilder struct {
	ctes     []cte
	columns  []string
	table    string
	where    []Condition
	groupBy  []string
	orderBy  []string
	limit    any
	startIdx int
}

type cte struct {
	name string
	sql  string
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...), startIdx: 1}
}

func (b *SelectBuilder) With(name, sql string) *SelectBuilder {
	b.ctes = append(b.ctes, cte{name: name, sql: sql})
	return b
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) GroupBy(parts ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, parts...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

// Limit binds the row cap as a parameter.
func (b *SelectBuilder) Limit(limit int64) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []Param, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var buf strings.Builder
	if len(b.ctes) > 0 {
		buf.WriteString("WITH ")
		for i, c := range b.ctes {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(c.name)
			buf.WriteString(" AS (")
			buf.WriteString(c.sql)
			buf.WriteString(")")
		}
		buf.WriteString(" ")
	}

	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(b.columns, ", "))
	buf.WriteString(" FROM ")
	buf.WriteString(b.table)

	params := make([]Param, 0, len(b.where)+1)
	argIndex := 1
	if len(b.where) > 0 {
		buf.WriteString(" WHERE ")
		buf.WriteString(Fragment(b.where, &params, &argIndex))
	}
	if len(b.groupBy) > 0 {
		buf.WriteString(" GROUP BY ")
		buf.WriteString(strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		buf.WriteString(" ORDER BY ")
		buf.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit != nil {
		buf.WriteString(" LIMIT ")
		buf.WriteString(bind(&params, &argIndex, b.limit))
	}

	return buf.String(), params, nil
}

// Bind appends a binding outside of condition rendering, for clauses like
// LIMIT that carry parameters but are not predicates.
func Bind(params *[]Param, argIndex *int, value any) string {
	return bind(params, argIndex, value)
}

func bind(params *[]Param, argIndex *int, value any) string {
	name := "p" + strconv.Itoa(*argIndex)
	*params = append(*params, Param{Name: name, Value: value})
	*argIndex = *argIndex + 1
	return "@" + name
}

func rewritePlaceholders(expr string, exprArgs []any, params *[]Param, argIndex *int) string {
	if len(exprArgs) == 0 {
		return expr
	}

	var out strings.Builder
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' {
			if next >= len(exprArgs) {
				out.WriteByte('?')
				continue
			}
			out.WriteString(bind(params, argIndex, exprArgs[next]))
			next++
			continue
		}
		out.WriteByte(expr[i])
	}
	return out.String()
}

// QuoteTag escapes a user-supplied tag for literal matching inside an RE2
// pattern. Tag values can carry regex metacharacters.
func QuoteTag(tag string) string {
	return regexp.QuoteMeta(tag)
}
