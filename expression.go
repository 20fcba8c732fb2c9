package wikisearch

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Operator represents comparison operators.
type Operator string

const (
	// OpEq represents equality operator.
	OpEq Operator = "eq"
	// OpNe represents not-equal operator.
	OpNe Operator = "ne"
	// OpGt represents greater-than operator.
	OpGt Operator = "gt"
	// OpGte represents greater-than-or-equal operator.
	OpGte Operator = "gte"
	// OpLt represents less-than operator.
	OpLt Operator = "lt"
	// OpLte represents less-than-or-equal operator.
	OpLte Operator = "lte"
	// OpExists represents field existence check.
	OpExists Operator = "exists"
)

// Expression represents a composable filter expression.
// All Expressions are SearchOptions, but not all SearchOptions are Expressions.
type Expression interface {
	SearchOption
	// expr is a marker method to distinguish expressions from other options.
	expr()
}

// baseExpr provides the expr marker method and filter registration for all
// expression types.
type baseExpr struct{}

func (baseExpr) expr() {}

func addFilter(cfg *SearchConfig, e Expression) {
	cfg.Filters = append(cfg.Filters, e)
}

// CompareExpr compares a document field against a value. OpExists ignores
// Value.
type CompareExpr struct {
	baseExpr
	Field string
	Op    Operator
	Value interface{}
}

// Apply implements the SearchOption interface for CompareExpr.
func (c CompareExpr) Apply(cfg *SearchConfig) { addFilter(cfg, c) }

// RangeExpr matches values between Min and Max, both inclusive. A nil bound is
// open.
type RangeExpr struct {
	baseExpr
	Field string
	Min   interface{}
	Max   interface{}
}

// Apply implements the SearchOption interface for RangeExpr.
func (r RangeExpr) Apply(cfg *SearchConfig) { addFilter(cfg, r) }

// AndExpr matches when every inner expression matches.
type AndExpr struct {
	baseExpr
	Exprs []Expression
}

// Apply implements the SearchOption interface for AndExpr.
func (a AndExpr) Apply(cfg *SearchConfig) { addFilter(cfg, a) }

// OrExpr matches when any inner expression matches.
type OrExpr struct {
	baseExpr
	Exprs []Expression
}

// Apply implements the SearchOption interface for OrExpr.
func (o OrExpr) Apply(cfg *SearchConfig) { addFilter(cfg, o) }

// NotExpr negates Inner.
type NotExpr struct {
	baseExpr
	Inner Expression
}

// Apply implements the SearchOption interface for NotExpr.
func (n NotExpr) Apply(cfg *SearchConfig) { addFilter(cfg, n) }

func compare(field string, op Operator, value interface{}) Expression {
	return CompareExpr{Field: field, Op: op, Value: value}
}

// Eq creates an equality comparison expression.
func Eq(field string, value interface{}) Expression { return compare(field, OpEq, value) }

// Ne creates a not-equal comparison expression.
func Ne(field string, value interface{}) Expression { return compare(field, OpNe, value) }

// Gt creates a greater-than comparison expression.
func Gt(field string, value interface{}) Expression { return compare(field, OpGt, value) }

// Gte creates a greater-than-or-equal comparison expression.
func Gte(field string, value interface{}) Expression { return compare(field, OpGte, value) }

// Lt creates a less-than comparison expression.
func Lt(field string, value interface{}) Expression { return compare(field, OpLt, value) }

// Lte creates a less-than-or-equal comparison expression.
func Lte(field string, value interface{}) Expression { return compare(field, OpLte, value) }

// Exists creates a field existence check expression.
func Exists(field string) Expression { return compare(field, OpExists, nil) }

// Range creates a range comparison expression.
func Range(field string, min, max interface{}) Expression {
	return RangeExpr{Field: field, Min: min, Max: max}
}

// And creates an AND expression combining multiple expressions.
func And(exprs ...Expression) Expression { return AndExpr{Exprs: exprs} }

// Or creates an OR expression combining multiple expressions.
func Or(exprs ...Expression) Expression { return OrExpr{Exprs: exprs} }

// Not creates a NOT expression negating the given expression.
func Not(expr Expression) Expression { return NotExpr{Inner: expr} }

// FilterBy converts an API filter_by object into expressions. A list value
// matches any of its elements; anything else is an equality test. Fields are
// emitted in sorted order so the result is deterministic.
func FilterBy(filters map[string]interface{}) ([]Expression, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	exprs := make([]Expression, 0, len(fields))
	for _, field := range fields {
		if field == "" {
			return nil, errors.Wrap(ErrInvalidExpression, "empty filter field")
		}
		switch v := filters[field].(type) {
		case []interface{}:
			if len(v) == 0 {
				return nil, errors.Wrapf(ErrInvalidExpression, "empty value list for %q", field)
			}
			alts := make([]Expression, 0, len(v))
			for _, item := range v {
				alts = append(alts, Eq(field, item))
			}
			exprs = append(exprs, Or(alts...))
		case []string:
			if len(v) == 0 {
				return nil, errors.Wrapf(ErrInvalidExpression, "empty value list for %q", field)
			}
			alts := make([]Expression, 0, len(v))
			for _, item := range v {
				alts = append(alts, Eq(field, item))
			}
			exprs = append(exprs, Or(alts...))
		default:
			exprs = append(exprs, Eq(field, v))
		}
	}
	return exprs, nil
}
