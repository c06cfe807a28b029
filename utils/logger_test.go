package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerSendsErrorsToErrorWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	l := newLogger(levelSplitWriter{out: &out, err: &errOut}, "debug")

	l.Info("[ingest] %d candidate(s)", 2)
	l.Warn("slow")
	l.Debug("detail")
	l.Error("[ingest] Failed to parse %s", "https://site.example/123456")

	assert.Contains(t, out.String(), "2 candidate(s)")
	assert.Contains(t, out.String(), "slow")
	assert.Contains(t, out.String(), "detail")
	assert.NotContains(t, out.String(), "Failed to parse")
	assert.Contains(t, errOut.String(), "Failed to parse https://site.example/123456")
	assert.NotContains(t, errOut.String(), "candidate")
}

func TestLoggerLevelAndFields(t *testing.T) {
	var out, errOut bytes.Buffer
	l := newLogger(levelSplitWriter{out: &out, err: &errOut}, "warn").With("run_id", "abc")

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"run_id":"abc"`)
}
