package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredError_Error(t *testing.T) {
	err := NewSizeMismatch("load_vectors", "/data/emb.bin", "33 bytes is not a multiple of 8")
	assert.Equal(t, "[size_mismatch] load_vectors /data/emb.bin: 33 bytes is not a multiple of 8", err.Error())

	cause := errors.New("no such file or directory")
	wrapped := WrapOpen(cause, "load_ids", "/data/ids.bin")
	assert.Contains(t, wrapped.Error(), "[open] load_ids /data/ids.bin: cannot open file")
	assert.Contains(t, wrapped.Error(), "no such file or directory")
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestStructuredError_WithContext(t *testing.T) {
	err := NewSizeMismatch("load_paired", "", "count mismatch")
	err = err.WithContext("vectors", 4).WithContext("ids", 3)

	assert.Equal(t, 4, err.Context["vectors"])
	assert.Equal(t, 3, err.Context["ids"])
}

func TestErrorsIsMatchesType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"open", WrapOpen(errors.New("x"), "op", "p"), ErrOpen},
		{"stat", WrapStat(errors.New("x"), "op", "p"), ErrStat},
		{"size", NewSizeMismatch("op", "p", "m"), ErrSizeMismatch},
		{"map", WrapMap(errors.New("x"), "op", "p"), ErrMap},
		{"index load", WrapIndexLoad(errors.New("x"), "op", "p"), ErrIndexLoad},
		{"index", WrapIndex(errors.New("x"), "op", "m"), ErrIndex},
		{"invalid", NewInvalidArgument("op", "m"), ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)

			outer := fmt.Errorf("build run: %w", tt.err)
			assert.ErrorIs(t, outer, tt.sentinel)
		})
	}

	assert.NotErrorIs(t, NewSizeMismatch("op", "p", "m"), ErrOpen)
}

func TestTypeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", WrapMap(errors.New("ENOMEM"), "map_records", "/x"))
	assert.Equal(t, ErrorTypeMap, TypeOf(err))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeOpen, "op", "p", "msg"))
}

func TestStackTraceCapture(t *testing.T) {
	err := NewInvalidArgument("test", "message")
	assert.Greater(t, len(err.Stack), 0)
}
