package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/petrijr/stepgraph/pkg/api"
)

// evalCondition compares config "field" against config "value" with config
// "operator" and picks the branch: "onTrue" (or the static next) when
// matched, "onFalse" otherwise.
func evalCondition(wc *api.Context, step api.Step) api.ConditionResult {
	field, fieldSet := step.ConfigValue("field")
	left, leftSet := resolveField(wc, field, fieldSet)
	right, rightSet := step.ConfigValue("value")

	res := api.ConditionResult{
		Matched: compare(step.ConfigString("operator"), left, leftSet, right, rightSet),
	}
	if res.Matched {
		res.Next = step.ConfigString("onTrue")
		if res.Next == "" {
			res.Next = step.Next
		}
	} else {
		res.Next = step.ConfigString("onFalse")
	}
	return res
}

// resolveField turns the condition's field into the left-hand value.
//
// A "$"-prefixed field is a context lookup: the key as written, then without
// the prefix. When neither exists and the key has dots, the part before the
// first dot is looked up and the rest is applied as a gjson path to its JSON
// form, so "$lastResult.user.id" reads into a previous result. Any other
// field is a literal.
func resolveField(wc *api.Context, field any, set bool) (any, bool) {
	name, ok := field.(string)
	if !ok || !strings.HasPrefix(name, "$") {
		return field, set
	}
	if v, ok := lookup(wc, name); ok {
		return v, true
	}

	head, path, found := strings.Cut(name, ".")
	if !found || path == "" {
		return nil, false
	}
	base, ok := lookup(wc, head)
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(base)
	if err != nil {
		return nil, false
	}
	r := gjson.GetBytes(data, path)
	if !r.Exists() {
		return nil, false
	}
	return r.Value(), true
}

func lookup(wc *api.Context, key string) (any, bool) {
	if v, ok := wc.Get(key); ok {
		return v, true
	}
	return wc.Get(strings.TrimPrefix(key, "$"))
}

func compare(op string, left any, leftSet bool, right any, rightSet bool) bool {
	switch op {
	case "equals", "==", "===":
		return strictEqual(left, leftSet, right, rightSet)
	case "notEquals", "!=", "!==":
		return !strictEqual(left, leftSet, right, rightSet)
	case "gt", ">":
		return toNumber(left, leftSet) > toNumber(right, rightSet)
	case "lt", "<":
		return toNumber(left, leftSet) < toNumber(right, rightSet)
	case "gte", ">=":
		return toNumber(left, leftSet) >= toNumber(right, rightSet)
	case "lte", "<=":
		return toNumber(left, leftSet) <= toNumber(right, rightSet)
	case "contains":
		return strings.Contains(toString(left, leftSet), toString(right, rightSet))
	case "exists":
		return leftSet && left != nil
	case "truthy":
		return truthy(left, leftSet)
	case "falsy":
		return !truthy(left, leftSet)
	default:
		return strictEqual(left, leftSet, right, rightSet)
	}
}

// strictEqual compares without type coercion, except that all numeric kinds
// compare by value (1 equals 1.0, which is what decoded JSON needs). An unset
// side only equals another unset side.
func strictEqual(a any, aSet bool, b any, bSet bool) bool {
	if !aSet || !bSet {
		return aSet == bSet
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := numeric(a); ok {
		bn, ok := numeric(b)
		return ok && an == bn
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}

// numeric returns v as float64 if it has a numeric kind.
func numeric(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// toNumber coerces v for numeric comparison. Values that have no numeric
// reading become NaN, which makes every ordering comparison false.
func toNumber(v any, set bool) float64 {
	if !set {
		return math.NaN()
	}
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		return parseNumber(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	}
	if f, ok := numeric(v); ok {
		return f
	}
	return math.NaN()
}

// parseNumber reads a string operand: decimal notation, 0x/0o/0b integer
// literals and signed "Infinity". Blank strings are 0. Spellings that only
// strconv accepts ("inf", "nan", hex floats, digit separators) are NaN.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			digits := s[2:]
			if strings.ContainsRune(digits, '_') {
				return math.NaN()
			}
			n, err := strconv.ParseUint(digits, base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}

	if strings.IndexFunc(s, func(r rune) bool {
		return !strings.ContainsRune("0123456789.eE+-", r)
	}) >= 0 {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

// toString coerces v for substring tests. Lists join their elements with
// commas; maps and structs use their JSON form.
func toString(v any, set bool) string {
	if !set || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	}
	if f, ok := numeric(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if items, ok := toList(v); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = toString(item, true)
		}
		return strings.Join(parts, ",")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func truthy(v any, set bool) bool {
	if !set || v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := numeric(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}
