package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/friender/internal/config"
)

func initBuffered(t *testing.T, c Config) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	c.Output = &buf
	prev := L()
	Init(c)
	t.Cleanup(func() { global.Store(prev) })
	return &buf
}

func TestTextFormat(t *testing.T) {
	buf := initBuffered(t, Config{Level: "debug", Format: FormatText, Component: "test"})
	Info("hello friender", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "hello friender")
	assert.Contains(t, out, "component=test")
	assert.Contains(t, out, "key=value")
}

func TestJSONFormat(t *testing.T) {
	buf := initBuffered(t, Config{Level: "info", Format: FormatJSON, Component: "json_test"})
	Info("json log", "foo", "bar")

	out := buf.String()
	assert.Contains(t, out, `"msg":"json log"`)
	assert.Contains(t, out, `"component":"json_test"`)
	assert.Contains(t, out, `"foo":"bar"`)
}

func TestLevelFilter(t *testing.T) {
	buf := initBuffered(t, Config{Level: "error", Format: FormatText})
	Warn("should not appear")
	Error("should appear")

	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestChildLoggers(t *testing.T) {
	buf := initBuffered(t, Config{Level: "debug", Format: FormatText})
	With("req_id", "123").Info("processing request")
	ForComponent("metrics").Debug("scrape")

	assert.Contains(t, buf.String(), "req_id=123")
	assert.Contains(t, buf.String(), "component=metrics")
}

func TestFromAppConfig(t *testing.T) {
	c := &config.Config{}
	c.Log.Level = "debug"
	c.Log.Format = "JSON"
	c.Log.Component = "cfg_test"
	c.Log.Source = true

	lc := FromAppConfig(c)
	assert.Equal(t, FormatJSON, lc.Format)

	var buf bytes.Buffer
	lc.Output = &buf
	New(lc).Debug("cfg-based log")

	out := buf.String()
	assert.Contains(t, out, `"msg":"cfg-based log"`)
	assert.Contains(t, out, `"component":"cfg_test"`)
	assert.Contains(t, out, `"source"`)
}

func TestFromNilConfig(t *testing.T) {
	assert.Equal(t, Config{Level: "info", Format: FormatText}, FromAppConfig(nil))
}
