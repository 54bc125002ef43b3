package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModesTable(t *testing.T) {
	var buf bytes.Buffer
	modes(&buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 6)
	assert.Contains(t, lines[1], "2400A")
	assert.Contains(t, lines[1], "48000")
	assert.Contains(t, lines[5], "700D")
}
