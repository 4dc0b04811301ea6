package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugfRespectsSetDebug(t *testing.T) {
	var buf bytes.Buffer
	DebugLogger.SetOutput(&buf)
	defer DebugLogger.SetOutput(nil)

	SetDebug(false)
	Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetDebug(true)
	defer SetDebug(false)
	Debugf("shown %d", 2)
	assert.True(t, strings.Contains(buf.String(), "shown 2"))
}

func TestSuppressOutput(t *testing.T) {
	SuppressOutput(true)
	defer SuppressOutput(false)
	Infof("swallowed")
}
