package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogfDefaultsToStdlib(t *testing.T) {
	require.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("pipeline %s idle", "fus_test") })
}

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	Logf("dropped %d samples", 3)
	Logf("pipeline %s reset", "fus_abc")

	require.Len(t, lines, 2)
	assert.Equal(t, "dropped 3 samples", lines[0])
	assert.Equal(t, "pipeline fus_abc reset", lines[1])
}

func TestSetLoggerNilMutes(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	SetLogger(nil)

	assert.NotPanics(t, func() { Logf("should go nowhere") })
	assert.False(t, called, "muted logger must not reach the previous sink")
}
