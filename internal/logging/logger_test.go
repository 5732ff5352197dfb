package logging

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	ctx := WithRequestID(context.Background(), "rid-42")
	New(ctx).LogError("claim", errors.New("boom"))

	assert.Contains(t, buf.String(), "[error] request_id=rid-42 operation=claim error=boom")
}

func TestLoggerWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	New(context.Background()).LogInfof("refresh", "projects=%d", 3)

	assert.Contains(t, buf.String(), "request_id=unknown operation=refresh projects=3")
}

func TestSetLevelFiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		_ = SetLevel("info")
	})

	require.NoError(t, SetLevel("warn"))
	l := New(context.Background())
	l.LogInfof("refresh", "hidden")
	l.LogWarnf("refresh", "shown")
	l.LogError("refresh", errors.New("always"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[warn]")
	assert.Contains(t, out, "[error]")

	assert.Error(t, SetLevel("verbose"))
}

func TestDebugNeedsDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		_ = SetLevel("info")
	})

	New(context.Background()).LogDebugf("verify", "first")
	require.NoError(t, SetLevel("DEBUG"))
	New(context.Background()).LogDebugf("verify", "second")

	assert.NotContains(t, buf.String(), "first")
	assert.Contains(t, buf.String(), "[debug] request_id=unknown operation=verify second")
}
