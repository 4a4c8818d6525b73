// internal/logging/context_test.go
package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestJobID(t *testing.T) {
	ctx := WithJobID(context.Background(), "job-123")
	assert.Equal(t, "job-123", JobIDFromContext(ctx))
	assert.Empty(t, JobIDFromContext(context.Background()))
}

func TestStepID(t *testing.T) {
	ctx := WithStepID(context.Background(), "step_7")
	assert.Equal(t, "step_7", StepIDFromContext(ctx))
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-abc")
	assert.Equal(t, "req-abc", RequestIDFromContext(ctx))
}

func TestWithJobID_PanicsOnInvalid(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"spaces", "job 123"},
		{"path traversal", "../etc"},
		{"too long", strings.Repeat("a", maxIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() {
				WithJobID(context.Background(), tt.id)
			})
		})
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	ctx = WithJobID(ctx, "job-1")
	ctx = WithStepID(ctx, "step-1")
	ctx = WithRequestID(ctx, "req-1")

	fields := ContextFields(ctx)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "job.id")
	assert.Contains(t, keys, "step.id")
	assert.Contains(t, keys, "request.id")
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestWithLogger_FromContext(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)

	got := FromContext(ctx)
	require.Same(t, tl.Logger, got)

	got.Info(ctx, "via context")
	tl.AssertLogged(t, zapcore.InfoLevel, "via context")
}

func TestFromContext_Missing(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	// Nop logger should not panic.
	logger.Info(context.Background(), "dropped")
}
