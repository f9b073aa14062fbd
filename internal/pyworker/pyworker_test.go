package pyworker

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameThenReadFrameRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	req := request{Code: "print(1)", Stdin: "in"}
	require.NoError(t, writeFrame(&buf, req))

	var got request
	require.NoError(t, readFrame(&buf, &got))
	assert.Equal(t, req, got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	var got response
	err := readFrame(&buf, &got)
	assert.Error(t, err)
}

func TestReadFrameErrorsOnTruncatedInput(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 5})
	buf.WriteString("ab")
	var got response
	err := readFrame(&buf, &got)
	assert.Error(t, err)
}

func TestNewWorkerSetsFields(t *testing.T) {
	w := New("python3", "/opt/driver.py")
	assert.Equal(t, "python3", w.Interpreter)
	assert.Equal(t, "/opt/driver.py", w.ScriptPath)
}

func TestLimitsZeroWallTimeoutDefaultsApply(t *testing.T) {
	l := Limits{}
	assert.Equal(t, time.Duration(0), l.WallTimeout)
}
