package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, Level("warn", "debug"))
	assert.Equal(t, zapcore.DebugLevel, Level("", "debug"))
	assert.Equal(t, zapcore.InfoLevel, Level("", "release"))
	assert.Equal(t, zapcore.InfoLevel, Level("verbose", "release"))
}

func TestScopedLoggers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := Log
	Log = zap.New(core)
	t.Cleanup(func() { Log = prev })

	ForJob("job-1", "content-1").Warn("distribution to node failed", zap.String("nodeId", "node-1"))
	ForNode("node-2").Info("local content updated")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"jobId": "job-1", "contentId": "content-1", "nodeId": "node-1"}, entries[0].ContextMap())
	assert.Equal(t, "node-2", entries[1].ContextMap()["nodeId"])
}
