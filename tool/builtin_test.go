package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculator(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{expr: "123 * 456", want: "56088"},
		{expr: "2 + 3 * 4", want: "14"},
		{expr: "(2 + 3) * 4", want: "20"},
		{expr: "10 / 4", want: "2.5"},
		{expr: "-5 + 3", want: "-2"},
		{expr: "2 * (3 + (4 - 1))", want: "12"},
		{expr: "0.1 + 0.2", want: "0.30000000000000004"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Calculator(context.Background(), map[string]any{"expression": tt.expr})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculatorErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "empty", expr: "   "},
		{name: "invalid character", expr: "2 + x"},
		{name: "division by zero", expr: "1 / 0"},
		{name: "unbalanced parens", expr: "(1 + 2"},
		{name: "trailing operator", expr: "1 +"},
		{name: "letters blocked", expr: "__import__"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculator(context.Background(), map[string]any{"expression": tt.expr})
			assert.Error(t, err)
		})
	}
}

func TestWeatherDeterministic(t *testing.T) {
	first, err := Weather(context.Background(), map[string]any{"location": "Berlin"})
	require.NoError(t, err)
	second, err := Weather(context.Background(), map[string]any{"location": "berlin"})
	require.NoError(t, err)

	a := first.(map[string]any)
	b := second.(map[string]any)
	assert.Equal(t, a["temperature"], b["temperature"], "same location must yield the same weather")
	assert.Equal(t, a["condition"], b["condition"])
}

func TestWeatherUnits(t *testing.T) {
	c, err := Weather(context.Background(), map[string]any{"location": "Oslo", "units": "celsius"})
	require.NoError(t, err)
	f, err := Weather(context.Background(), map[string]any{"location": "Oslo", "units": "fahrenheit"})
	require.NoError(t, err)

	tc := c.(map[string]any)["temperature"].(int)
	tf := f.(map[string]any)["temperature"].(int)
	assert.Equal(t, tc*9/5+32, tf)

	_, err = Weather(context.Background(), map[string]any{"location": "Oslo", "units": "kelvin"})
	assert.Error(t, err)
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	assert.True(t, r.Has("calculator"))
	assert.True(t, r.Has("get_weather"))

	assert.Error(t, RegisterBuiltins(r), "double registration must fail")
}
