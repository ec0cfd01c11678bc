package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, pterm.LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, pterm.LogLevelWarn, ParseLevel(" warning "))
	assert.Equal(t, pterm.LogLevelError, ParseLevel("err"))
	assert.Equal(t, pterm.LogLevelInfo, ParseLevel(""))
	assert.Equal(t, pterm.LogLevelInfo, ParseLevel("nonsense"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", "json")

	l.Info("hidden", "case", "IBD_0000")
	assert.Empty(t, buf.String())

	l.Warn("shown", "case", "IBD_0001")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "IBD_0001")
}

func TestErrIgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", "json")

	l.Err(nil, "nothing")
	assert.Empty(t, buf.String())

	l.Err(errors.New("boom"), "decode failed", "case", "x")
	assert.Contains(t, buf.String(), "boom")
}

func TestNopDiscards(t *testing.T) {
	Nop().Info("anything", "k", "v")
}
