package inmemory

import (
	"fmt"

	"github.com/letmevibethatforyou/wikisearch"
)

// matchesFilters checks if a document matches all the filter expressions.
func (s *Searcher) matchesFilters(doc Document, filters []wikisearch.Expression) bool {
	for _, filter := range filters {
		if !s.evaluateExpression(doc, filter) {
			return false
		}
	}
	return true
}

// evaluateExpression evaluates a single expression against a document.
func (s *Searcher) evaluateExpression(doc Document, expr wikisearch.Expression) bool {
	switch e := expr.(type) {
	case wikisearch.AndExpr:
		for _, inner := range e.Exprs {
			if !s.evaluateExpression(doc, inner) {
				return false
			}
		}
		return true
	case wikisearch.OrExpr:
		for _, inner := range e.Exprs {
			if s.evaluateExpression(doc, inner) {
				return true
			}
		}
		return false
	case wikisearch.NotExpr:
		return !s.evaluateExpression(doc, e.Inner)
	case wikisearch.CompareExpr:
		return s.evaluateCompare(doc, e)
	case wikisearch.RangeExpr:
		return s.evaluateRange(doc, e)
	default:
		// Unknown expression type, return true to not filter out
		return true
	}
}

// evaluateCompare evaluates a field comparison. A missing field only matches
// equality with nil and inequality with anything else.
func (s *Searcher) evaluateCompare(doc Document, expr wikisearch.CompareExpr) bool {
	docValue, exists := doc.Fields[expr.Field]

	switch expr.Op {
	case wikisearch.OpExists:
		return exists
	case wikisearch.OpEq:
		if !exists {
			return expr.Value == nil
		}
		return s.compareEqual(docValue, expr.Value)
	case wikisearch.OpNe:
		if !exists {
			return expr.Value != nil
		}
		return !s.compareEqual(docValue, expr.Value)
	}

	if !exists {
		return false
	}
	cmp := s.compareValues(docValue, expr.Value)
	switch expr.Op {
	case wikisearch.OpGt:
		return cmp > 0
	case wikisearch.OpGte:
		return cmp >= 0
	case wikisearch.OpLt:
		return cmp < 0
	case wikisearch.OpLte:
		return cmp <= 0
	default:
		return false
	}
}

// evaluateRange evaluates a range expression.
func (s *Searcher) evaluateRange(doc Document, expr wikisearch.RangeExpr) bool {
	docValue, exists := doc.Fields[expr.Field]
	if !exists {
		return false
	}

	if expr.Min != nil && s.compareValues(docValue, expr.Min) < 0 {
		return false
	}

	if expr.Max != nil && s.compareValues(docValue, expr.Max) > 0 {
		return false
	}

	return true
}

// compareEqual checks if two values are equal.
func (s *Searcher) compareEqual(v1, v2 interface{}) bool {
	if v1 == nil || v2 == nil {
		return v1 == v2
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			return f1 == f2
		}
	}

	return fmt.Sprintf("%v", v1) == fmt.Sprintf("%v", v2)
}

// toFloat64 attempts to convert a value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
