package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/contactbook/core/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New(config.LoggerConfig{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = New(config.LoggerConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.log")
	l, err := New(config.LoggerConfig{Level: "debug", Format: "console", Output: "file", Filename: path})
	require.NoError(t, err)

	l.Infow("hello")
	assert.FileExists(t, path)
}

func TestLogStoreOperation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).WithComponent("store")

	l.LogStoreOperation("save", "contacts.json", 2, 1.5, nil)
	l.LogStoreOperation("load", "contacts.json", 0, 0.1, errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "save", entries[0].ContextMap()["op"])
	assert.Equal(t, "store", entries[0].ContextMap()["component"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core)).WithRequestID("abc").WithError(errors.New("bad"))

	l.Infow("handled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, "bad", fields["error"])
}
