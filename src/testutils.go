package direwolf

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run command with os.Stdout going to a pipe and return what it printed.
// The pipe is drained while command runs so chatty tools can't block.
func CaptureOutput(t *testing.T, command func()) string {
	t.Helper()

	var oldStdout = os.Stdout
	defer func() {
		os.Stdout = oldStdout
	}()

	var r, w, pipeErr = os.Pipe()
	require.NoError(t, pipeErr)
	os.Stdout = w

	var output bytes.Buffer
	var done = make(chan error, 1)
	go func() {
		var _, err = io.Copy(&output, r)
		done <- err
	}()

	command()

	w.Close() //nolint:gosec
	os.Stdout = oldStdout

	require.NoError(t, <-done)
	r.Close() //nolint:gosec

	return output.String()
}

func AssertOutputContains(t *testing.T, command func(), expectedOutputContains string) {
	t.Helper()

	assert.Contains(t, CaptureOutput(t, command), expectedOutputContains)
}
