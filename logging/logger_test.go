package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/dumppipe/core"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestRunContext(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	ctx := WithRun(context.Background(), id)
	assert.Equal(t, id, RunID(ctx))
	assert.Empty(t, RunID(context.Background()))
}

func TestWarningsCarryRunID(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup("warn", "json", &buf)

	ctx := WithRun(context.Background(), "run-42")
	FromContext(ctx).Info("dropped below level")
	Warnings(ctx, []core.Warning{{Stage: core.StageTags, Ref: "resource 3", Message: `unresolved chunk "nav"`}})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, `unresolved chunk "nav"`, entry["msg"])
	assert.Equal(t, "run-42", entry["run_id"])
	assert.Equal(t, "tags", entry["stage"])
	assert.Equal(t, "resource 3", entry["ref"])
}
