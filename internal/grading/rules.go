package grading

import (
	"math"
	"strconv"

	"github.com/labworks/labgrade/internal/answers"
)

// LookupFunc resolves another submitted field's raw text. Dependent rules use
// it instead of reaching into ambient request state.
type LookupFunc func(key string) (string, bool)

type ruleFunc func(r answers.Rule, v float64, lookup LookupFunc) bool

// ruleFuncs routes by rule type. An unknown type rejects, it never errors:
// one bad rule must not abort grading of the remaining answers.
var ruleFuncs = map[string]ruleFunc{
	answers.TypeNumeric:         numericRule,
	answers.TypeMultipleNumeric: multipleNumericRule,
	answers.TypeExact:           exactRule,
	answers.TypeComparison:      comparisonRule,
	answers.TypeRange:           rangeRule,
	answers.TypeDependent:       dependentRule,
}

// Evaluate decides pass/fail for one normalized answer value against its
// rule. Malformed rules (missing required config fields, unknown types or
// operators) evaluate to false.
func Evaluate(r answers.Rule, value float64, lookup LookupFunc) bool {
	fn, ok := ruleFuncs[r.Type]
	if !ok {
		return false
	}
	return fn(r, value, lookup)
}

// round5 rounds to 5 decimal places through the decimal text form. Tolerance
// boundaries must not flip with the platform's binary representation, so the
// diff is rounded the way a human would round the printed number.
func round5(x float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 5, 64), 64)
	if err != nil {
		return x
	}
	return v
}

func withinLimit(value, correct, limit float64) bool {
	return round5(math.Abs(value-correct)) <= limit
}

func numericRule(r answers.Rule, v float64, _ LookupFunc) bool {
	if r.CorrectAnswer == nil || r.Limit == nil {
		return false
	}
	return withinLimit(v, *r.CorrectAnswer, *r.Limit)
}

func multipleNumericRule(r answers.Rule, v float64, _ LookupFunc) bool {
	for _, c := range r.CorrectAnswers {
		if c.Value == nil || c.Limit == nil {
			continue
		}
		if withinLimit(v, *c.Value, *c.Limit) {
			return true
		}
	}
	return false
}

// exactRule keeps the strict float equality of the original behavior; see
// DESIGN.md for why it is not an epsilon comparison.
func exactRule(r answers.Rule, v float64, _ LookupFunc) bool {
	if r.CorrectAnswer == nil {
		return false
	}
	return v == *r.CorrectAnswer
}

func comparisonRule(r answers.Rule, v float64, _ LookupFunc) bool {
	if r.Value == nil {
		return false
	}
	switch r.Operator {
	case ">":
		return v > *r.Value
	case "<":
		return v < *r.Value
	case ">=":
		return v >= *r.Value
	case "<=":
		return v <= *r.Value
	default:
		return false
	}
}

func rangeRule(r answers.Rule, v float64, _ LookupFunc) bool {
	if r.Min == nil || r.Max == nil {
		return false
	}
	return v >= *r.Min && v <= *r.Max
}

func dependentRule(r answers.Rule, v float64, lookup LookupFunc) bool {
	if r.Value == nil || r.Limit == nil || r.DependsOn == "" || lookup == nil {
		return false
	}
	raw, ok := lookup(r.DependsOn)
	if !ok {
		return false
	}
	dep, ok := NormalizeNumber(raw)
	if !ok {
		return false
	}
	var expected float64
	switch r.Operation {
	case answers.OpAdd:
		expected = dep + *r.Value
	case answers.OpSubtract:
		expected = dep - *r.Value
	case answers.OpMultiply:
		expected = dep * *r.Value
	case answers.OpDivide:
		if *r.Value == 0 {
			return false
		}
		expected = dep / *r.Value
	default:
		return false
	}
	return withinLimit(v, expected, *r.Limit)
}
