package ruleexpr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// EvalError reports an expression that could not be evaluated against a row
// (type mismatch, non-boolean filter, bad LIKE pattern).
type EvalError struct {
	Message string
}

func (e *EvalError) Error() string {
	return "evaluation error: " + e.Message
}

func evalErrorf(format string, args ...interface{}) error {
	return &EvalError{Message: fmt.Sprintf(format, args...)}
}

// value is the runtime value of a sub-expression. SQL null propagates as
// isNull; a comparison against null is false.
type value struct {
	isBool bool
	b      bool
	isNum  bool
	num    float64
	isStr  bool
	str    string
	isNull bool
}

func boolValue(b bool) value   { return value{isBool: true, b: b} }
func numValue(f float64) value { return value{isNum: true, num: f} }
func strValue(s string) value  { return value{isStr: true, str: s} }
func nullValue() value         { return value{isNull: true} }

// Evaluate evaluates a parsed filter against one row binding. The row maps
// canonical qualified column names to Go values (string, int64, float64, or
// nil for SQL null).
func Evaluate(expr Expr, row map[string]interface{}) (bool, error) {
	v, err := eval(expr, row)
	if err != nil {
		return false, err
	}
	return toBool(v)
}

// EvaluateString parses and evaluates in one step.
func EvaluateString(input string, row map[string]interface{}) (bool, error) {
	expr, err := Parse(input)
	if err != nil {
		return false, err
	}
	return Evaluate(expr, row)
}

func eval(expr Expr, row map[string]interface{}) (value, error) {
	switch e := expr.(type) {
	case *TrueExpr:
		return boolValue(true), nil

	case *NumberLit:
		return numValue(e.Value), nil

	case *StringLit:
		return strValue(e.Value), nil

	case *ColumnRef:
		bound, ok := row[e.Name]
		if !ok || bound == nil {
			return nullValue(), nil
		}
		switch v := bound.(type) {
		case string:
			return strValue(v), nil
		case int64:
			return numValue(float64(v)), nil
		case int:
			return numValue(float64(v)), nil
		case float64:
			return numValue(v), nil
		default:
			return value{}, evalErrorf("column %s bound to unsupported type %T", e.Name, bound)
		}

	case *CompareExpr:
		left, err := eval(e.Left, row)
		if err != nil {
			return value{}, err
		}
		right, err := eval(e.Right, row)
		if err != nil {
			return value{}, err
		}
		result, err := compare(e.Op, left, right)
		if err != nil {
			return value{}, err
		}
		return boolValue(result), nil

	case *LogicalExpr:
		left, err := eval(e.Left, row)
		if err != nil {
			return value{}, err
		}
		lb, err := toBool(left)
		if err != nil {
			return value{}, err
		}
		if e.Op == "AND" && !lb {
			return boolValue(false), nil
		}
		if e.Op == "OR" && lb {
			return boolValue(true), nil
		}
		right, err := eval(e.Right, row)
		if err != nil {
			return value{}, err
		}
		rb, err := toBool(right)
		if err != nil {
			return value{}, err
		}
		return boolValue(rb), nil

	case *NotExpr:
		operand, err := eval(e.Operand, row)
		if err != nil {
			return value{}, err
		}
		b, err := toBool(operand)
		if err != nil {
			return value{}, err
		}
		return boolValue(!b), nil

	case *InExpr:
		operand, err := eval(e.Operand, row)
		if err != nil {
			return value{}, err
		}
		if operand.isNull {
			return boolValue(false), nil
		}
		found := false
		for _, item := range e.List {
			iv, err := eval(item, row)
			if err != nil {
				return value{}, err
			}
			eq, err := compare("=", operand, iv)
			if err != nil {
				return value{}, err
			}
			if eq {
				found = true
				break
			}
		}
		if e.Negated {
			found = !found
		}
		return boolValue(found), nil

	case *LikeExpr:
		operand, err := eval(e.Operand, row)
		if err != nil {
			return value{}, err
		}
		pattern, err := eval(e.Pattern, row)
		if err != nil {
			return value{}, err
		}
		if operand.isNull || pattern.isNull {
			return boolValue(false), nil
		}
		if !pattern.isStr {
			return value{}, evalErrorf("LIKE pattern must be a string")
		}
		matched, err := likeMatch(asString(operand), pattern.str)
		if err != nil {
			return value{}, err
		}
		if e.Negated {
			matched = !matched
		}
		return boolValue(matched), nil

	default:
		return value{}, evalErrorf("unsupported expression node %T", expr)
	}
}

// toBool coerces a value to boolean. Numbers follow SQL truthiness
// (non-zero is true); strings are rejected to keep filters honest.
func toBool(v value) (bool, error) {
	switch {
	case v.isBool:
		return v.b, nil
	case v.isNum:
		return v.num != 0, nil
	case v.isNull:
		return false, nil
	default:
		return false, evalErrorf("expression does not evaluate to a boolean")
	}
}

// compare applies a comparison operator. When both sides are numeric (or
// one side is a string holding a number) the comparison is numeric;
// otherwise it is an exact string comparison.
func compare(op string, left, right value) (bool, error) {
	if left.isNull || right.isNull {
		return false, nil
	}
	if left.isBool || right.isBool {
		return false, evalErrorf("cannot compare boolean sub-expression with %s", op)
	}

	lnum, lok := asNumber(left)
	rnum, rok := asNumber(right)
	if lok && rok {
		return compareNumbers(op, lnum, rnum), nil
	}

	return compareStrings(op, asString(left), asString(right)), nil
}

func compareNumbers(op string, l, r float64) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func compareStrings(op string, l, r string) bool {
	cmp := strings.Compare(l, r)
	switch op {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

func asNumber(v value) (float64, bool) {
	if v.isNum {
		return v.num, true
	}
	if v.isStr {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func asString(v value) string {
	if v.isStr {
		return v.str
	}
	if v.isNum {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return ""
}

// likeMatch implements SQL LIKE: % matches any run, _ matches one
// character, matching is case-insensitive for ASCII as in SQLite.
func likeMatch(s, pattern string) (bool, error) {
	var sb strings.Builder
	sb.WriteString("(?i)^")
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false, evalErrorf("bad LIKE pattern %q", pattern)
	}
	return re.MatchString(s), nil
}
