package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *EngineError
		want string
	}{
		{name: "exit code", err: &EngineError{Op: "Ollama run", Status: 2}, want: "Ollama run failed: 2"},
		{name: "http status", err: &EngineError{Op: "Ollama generate", Status: 500, Err: errors.New("non-2xx status: 500")}, want: "Ollama generate failed: 500"},
		{name: "cause only", err: &EngineError{Op: "Ollama run", Err: errors.New("executable file not found")}, want: "Ollama run failed: executable file not found"},
		{name: "bare", err: &EngineError{Op: "Ollama run"}, want: "Ollama run failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestEngineErrorMatching(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("page 2: %w", &EngineError{Op: "Ollama generate", Err: cause})

	assert.ErrorIs(t, err, ErrEngine)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTransform)

	var engErr *EngineError
	assert.ErrorAs(t, err, &engErr)
	assert.Equal(t, "Ollama generate", engErr.Op)
}

func TestTransformError(t *testing.T) {
	err := &TransformError{Path: "/tmp/p.png", Err: errors.New("unknown format")}
	assert.Equal(t, "image transform failed for /tmp/p.png: unknown format", err.Error())
	assert.ErrorIs(t, err, ErrTransform)
	assert.NotErrorIs(t, err, ErrEngine)
}

func TestAppErrorCodes(t *testing.T) {
	err := fmt.Errorf("run: %w", DecompositionError("rasterize pdf", ErrNoPages))
	assert.True(t, IsCode(err, CodeDecomposition))
	assert.False(t, IsCode(err, CodeSetup))
	assert.ErrorIs(t, err, ErrNoPages)
	assert.Equal(t, "run: DECOMPOSITION_ERROR: rasterize pdf: document has no pages", err.Error())

	assert.Equal(t, "SETUP_ERROR: model missing", SetupError("model missing", nil).Error())
	assert.False(t, IsCode(errors.New("plain"), CodeSetup))
}
