package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroLogger_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("development", buf)

	log.Info("search fulfilled", Field{Key: "session_id", Value: "42"})

	output := buf.String()
	assert.Contains(t, output, "search fulfilled")
	assert.Contains(t, output, `"session_id":"42"`)
	assert.Contains(t, output, `"level":"info"`)
}

func TestZeroLogger_DebugShownInDev(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("development", buf)

	log.Debug("debug-test")

	assert.Contains(t, buf.String(), "debug-test")
}

func TestZeroLogger_DebugHiddenInProduction(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("production", buf)

	log.Debug("debug-hidden")

	assert.Empty(t, buf.String())
}

func TestZeroLogger_ProductionDoesNotAffectOtherLoggers(t *testing.T) {
	prod := &bytes.Buffer{}
	dev := &bytes.Buffer{}
	_ = NewWithWriter("production", prod)
	log := NewWithWriter("development", dev)

	log.Debug("still-visible")

	assert.Contains(t, dev.String(), "still-visible")
}

func TestZeroLogger_TypedFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("development", buf)

	log.Warn("pricing rejected",
		Field{Key: "status", Value: 409},
		Field{Key: "err", Value: errors.New("offer gone")},
		Field{Key: "took", Value: 1500 * time.Millisecond},
		Field{Key: "retry", Value: false},
	)

	output := buf.String()
	assert.Contains(t, output, `"level":"warn"`)
	assert.Contains(t, output, `"status":409`)
	assert.Contains(t, output, `"err":"offer gone"`)
	assert.Contains(t, output, `"retry":false`)
}

func TestZeroLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("development", buf).With(Field{Key: "component", Value: "multidate"})

	log.Error("fan-out failed")

	output := buf.String()
	assert.Contains(t, output, `"level":"error"`)
	assert.Contains(t, output, `"component":"multidate"`)
}
