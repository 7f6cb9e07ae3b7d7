package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/petrijr/stepgraph/pkg/api"
)

func TestCompareOperators(t *testing.T) {
	cases := []struct {
		name  string
		op    string
		left  any
		right any
		want  bool
	}{
		{"equals same int", "equals", 1, 1, true},
		{"equals int and float", "==", 1, 1.0, true},
		{"equals is strict on type", "equals", "1", 1, false},
		{"equals strings", "===", "a", "a", true},
		{"equals bools", "equals", true, true, true},
		{"equals nil", "equals", nil, nil, true},
		{"equals nil and zero", "equals", nil, 0, false},
		{"equals slices", "equals", []any{1, "a"}, []any{1, "a"}, true},
		{"notEquals", "notEquals", "a", "b", true},
		{"notEquals strict", "!=", "1", 1, true},
		{"gt", "gt", 15, 10, true},
		{"gt false", ">", 5, 10, false},
		{"gt numeric strings", "gt", "15", "10", true},
		{"gt NaN", "gt", "abc", 10, false},
		{"lt NaN", "lt", "abc", 10, false},
		{"lt", "<", 2, 3, true},
		{"gte equal", "gte", 3, 3.0, true},
		{"lte", "<=", 3, 2, false},
		{"gt bool coerces", "gt", true, 0, true},
		{"gt nil is zero", "gt", 1, nil, true},
		{"contains substring", "contains", "hello world", "lo w", true},
		{"contains number", "contains", 12345, 234, true},
		{"contains list", "contains", []any{"a", "b"}, "b", true},
		{"contains missing", "contains", "abc", "z", false},
		{"truthy string", "truthy", "x", nil, true},
		{"truthy empty string", "truthy", "", nil, false},
		{"truthy zero", "truthy", 0, nil, false},
		{"truthy empty list", "truthy", []any{}, nil, true},
		{"falsy nil", "falsy", nil, nil, true},
		{"falsy false", "falsy", false, nil, true},
		{"exists nil", "exists", nil, nil, false},
		{"exists zero", "exists", 0, nil, true},
		{"unknown operator is equality", "matches", "a", "a", true},
		{"empty operator is equality", "", 2, 3, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := compare(tc.op, tc.left, true, tc.right, true)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompareUnsetValues(t *testing.T) {
	assert.False(t, compare("exists", nil, false, nil, false))
	assert.False(t, compare("equals", nil, false, nil, true), "unset differs from nil")
	assert.True(t, compare("equals", nil, false, nil, false))
	assert.False(t, compare("gte", nil, false, 0, true), "unset coerces to NaN")
	assert.True(t, compare("falsy", nil, false, nil, false))
}

func TestToNumber(t *testing.T) {
	assert.Equal(t, 0.0, toNumber("  ", true))
	assert.Equal(t, 2.5, toNumber(" 2.5 ", true))
	assert.Equal(t, 7.0, toNumber(uint8(7), true))
	assert.True(t, math.IsNaN(toNumber(map[string]any{}, true)))
	assert.True(t, math.IsNaN(toNumber(nil, false)))

	cases := []struct {
		in   string
		want float64
	}{
		{"0x10", 16},
		{"0o17", 15},
		{"0b101", 5},
		{"1e3", 1000},
		{".5", 0.5},
		{"-2", -2},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{"1e999", math.Inf(1)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, toNumber(tc.in, true), tc.in)
	}

	for _, in := range []string{"inf", "nan", "NaN", "0x1p3", "1_000", "-0x10", "0x", "12px", "1e"} {
		assert.True(t, math.IsNaN(toNumber(in, true)), in)
	}
}

func TestResolveField(t *testing.T) {
	wc := api.NewContext(map[string]any{
		"plain":  "p",
		"$score": 9,
		"order":  map[string]any{"lines": []any{map[string]any{"sku": "A-1"}}},
	}, nil)
	wc.SetLastResult(map[string]any{"x": 1, "user": map[string]any{"id": "u-7"}})

	cases := []struct {
		name   string
		field  any
		want   any
		wantOK bool
	}{
		{"prefixed key", "$score", 9, true},
		{"unprefixed fallback", "$plain", "p", true},
		{"reserved key", "$lastResult", map[string]any{"x": 1, "user": map[string]any{"id": "u-7"}}, true},
		{"path into last result", "$lastResult.user.id", "u-7", true},
		{"path into list", "$order.lines.0.sku", "A-1", true},
		{"missing path", "$lastResult.nope", nil, false},
		{"missing key", "$ghost", nil, false},
		{"literal string", "plain", "plain", true},
		{"literal number", 42, 42, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := resolveField(wc, tc.field, true)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvalConditionBranches(t *testing.T) {
	wc := api.NewContext(map[string]any{"n": 3}, nil)
	step := api.Step{
		ID:   "c",
		Kind: api.KindCondition,
		Next: "static",
		Config: map[string]any{
			"field":    "$n",
			"operator": "lt",
			"value":    5,
			"onFalse":  "big",
		},
	}

	assert.Equal(t, api.ConditionResult{Matched: true, Next: "static"}, evalCondition(wc, step))

	step.Config["onTrue"] = "small"
	assert.Equal(t, api.ConditionResult{Matched: true, Next: "small"}, evalCondition(wc, step))

	step.Config["value"] = 2
	assert.Equal(t, api.ConditionResult{Matched: false, Next: "big"}, evalCondition(wc, step))
}
