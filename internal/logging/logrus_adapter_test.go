package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeLines parses JSON log output, one entry per line.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogrus_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{" warn ", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"loud", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, NewLogrus(tt.level, "text").GetLevel())
		})
	}
}

func TestNewLogrus_Formats(t *testing.T) {
	_, isJSON := NewLogrus("info", "JSON").Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	_, isText := NewLogrus("info", "text").Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	_, fallback := NewLogrus("info", "xml").Formatter.(*logrus.TextFormatter)
	assert.True(t, fallback)
}

func TestLogrusAdapter_RunScopedJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusAdapterWithOutput("info", "json", &buf)

	run := logger.WithField(FieldRunID, "run-1")
	msg := run.WithFields(F(FieldMessageID, "abc@example.com"))
	msg.Info("Payment registered", F(FieldAmount, 960), F(FieldPlace, "A&B 羽田空港"))
	msg.WithError(errors.New("status 500")).Error("Payment submission failed")
	run.Info("Run finished", F(FieldProcessed, 1))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)

	assert.Equal(t, "Payment registered", entries[0]["msg"])
	assert.Equal(t, "run-1", entries[0][FieldRunID])
	assert.Equal(t, "abc@example.com", entries[0][FieldMessageID])
	assert.Equal(t, float64(960), entries[0][FieldAmount])
	assert.Equal(t, "A&B 羽田空港", entries[0][FieldPlace])
	assert.Contains(t, buf.String(), `"place":"A&B 羽田空港"`)

	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "status 500", entries[1][FieldError])

	assert.Equal(t, "run-1", entries[2][FieldRunID])
	_, leaked := entries[2][FieldMessageID]
	assert.False(t, leaked, "child fields must not leak into the parent")
}

func TestLogrusAdapter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusAdapterWithOutput("warn", "text", &buf)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("Message lacks amount or merchant", F(FieldMessageID, "m1"))
	logger.Error("Ledger update failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "message_id=m1")
	assert.Contains(t, out, "level=error")
}

func TestNewLogrusAdapterFromLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	NewLogrusAdapterFromLogger(base).Info("Ledger loaded", F(FieldCount, 3))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(3), entries[0][FieldCount])

	assert.NotNil(t, NewLogrusAdapterFromLogger(nil))
}

func TestConvertFields(t *testing.T) {
	fields := convertFields([]Field{F(FieldGenreID, 10501), F(FieldCategoryID, 105), F(FieldGenreID, 10502)})
	assert.Equal(t, logrus.Fields{FieldGenreID: 10502, FieldCategoryID: 105}, fields)
	assert.Empty(t, convertFields(nil))
}

func TestFieldConstants(t *testing.T) {
	assert.Equal(t, "message_id", FieldMessageID)
	assert.Equal(t, "merchant", FieldMerchant)
	assert.Equal(t, "genre_id", FieldGenreID)
	assert.Equal(t, "category_id", FieldCategoryID)
	assert.Equal(t, "run_id", FieldRunID)
	assert.Equal(t, "error", FieldError)
}

func TestNop(t *testing.T) {
	logger := Nop()
	require.NotNil(t, logger)
	assert.NotPanics(t, func() {
		logger.WithError(errors.New("ignored")).Error("nothing is written")
	})
}

func TestMockLogger_SharesEntriesWithChildren(t *testing.T) {
	root := &MockLogger{}
	child := root.WithField(FieldMessageID, "m1")
	child.WithError(errors.New("boom")).Warn("submission failed")
	root.Info("run finished")

	entries := root.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, []Field{{Key: FieldMessageID, Value: "m1"}}, entries[0].Fields)
	assert.EqualError(t, entries[0].Error, "boom")
	assert.True(t, root.HasEntry("INFO", "run finished"))
	assert.Len(t, root.GetEntriesByLevel("WARN"), 1)

	root.Clear()
	assert.Empty(t, root.GetEntries())
}

func TestMockLogger_Fatalf(t *testing.T) {
	m := &MockLogger{}
	m.Fatalf("config %s", "missing")
	assert.True(t, m.HasEntry("FATAL", "config missing"))
}

func TestLogrusAdapter_ImplementsInterface(t *testing.T) {
	var _ Logger = (*LogrusAdapter)(nil)
}
