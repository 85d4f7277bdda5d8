package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoDescriptor() Descriptor {
	return Descriptor{
		Name:        "echo",
		Description: "Echo the input back.",
		Params: []Param{
			{Name: "text", Type: "string", Required: true},
			{Name: "repeat", Type: "integer"},
		},
	}
}

func echoExec(_ context.Context, args map[string]any) (any, error) {
	return args["text"], nil
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoDescriptor(), echoExec))

	err := r.Register(echoDescriptor(), echoExec)
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "echo", dup.Name)
}

func TestRegistryRegisterInvalid(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(Descriptor{}, echoExec))
	assert.Error(t, r.Register(Descriptor{Name: "x"}, nil))
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "zeta", Description: "z"}, echoExec))
	require.NoError(t, r.Register(Descriptor{Name: "alpha", Description: "a"}, echoExec))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)
}

func TestRegistryInvoke(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoDescriptor(), echoExec))

	res, err := r.Invoke(context.Background(), "echo", map[string]any{"text": "hi"}, PermissionContext{})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "hi", res.Payload)
}

func TestRegistryInvokeUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Invoke(context.Background(), "nope", nil, PermissionContext{})
	var unknown *UnknownError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Name)
}

func TestRegistryInvokePermissionDenied(t *testing.T) {
	r := NewRegistry()
	desc := echoDescriptor()
	desc.Permission = LevelAdmin
	require.NoError(t, r.Register(desc, echoExec))

	_, err := r.Invoke(context.Background(), "echo", map[string]any{"text": "hi"}, PermissionContext{Level: LevelUser})
	var perm *PermissionError
	require.True(t, errors.As(err, &perm))
	assert.Equal(t, LevelAdmin, perm.Required)
	assert.Equal(t, LevelUser, perm.Got)
}

func TestRegistryInvokeArgumentValidation(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoDescriptor(), echoExec))

	tests := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{name: "missing required", args: map[string]any{}, field: "text"},
		{name: "undeclared param", args: map[string]any{"text": "hi", "bogus": 1}, field: "bogus"},
		{name: "wrong type", args: map[string]any{"text": 42}, field: "text"},
		{name: "fractional integer", args: map[string]any{"text": "hi", "repeat": 1.5}, field: "repeat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Invoke(context.Background(), "echo", tt.args, PermissionContext{})
			var argErr *ArgumentError
			require.True(t, errors.As(err, &argErr))
			assert.Equal(t, tt.field, argErr.Field)
		})
	}
}

func TestRegistryInvokeIntegerAcceptsWholeFloat(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoDescriptor(), echoExec))

	res, err := r.Invoke(context.Background(), "echo", map[string]any{"text": "hi", "repeat": 3.0}, PermissionContext{})
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestRegistryInvokeExecutorFailure(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "boom", Description: "always fails"}, func(context.Context, map[string]any) (any, error) {
		return nil, fmt.Errorf("backend unreachable")
	}))

	res, err := r.Invoke(context.Background(), "boom", nil, PermissionContext{})
	require.NoError(t, err, "executor failures are results, not registry errors")
	assert.False(t, res.OK)
	assert.Contains(t, res.Err, "backend unreachable")
}

func TestRegistryInvokeRecoversPanic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Name: "panic", Description: "panics"}, func(context.Context, map[string]any) (any, error) {
		panic("boom")
	}))

	res, err := r.Invoke(context.Background(), "panic", nil, PermissionContext{})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Err, "panicked")
}
