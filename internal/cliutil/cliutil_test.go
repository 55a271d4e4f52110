package cliutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetl-go/beetl/internal/bioerr"
	"github.com/beetl-go/beetl/internal/cliutil"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, cliutil.ExitCode(nil))
	assert.Equal(t, 1, cliutil.ExitCode(bioerr.E(bioerr.BadConfig, "bad flag")))
	assert.Equal(t, 1, cliutil.ExitCode(bioerr.E(bioerr.Conflict, "conflicting flags")))
	assert.Equal(t, 2, cliutil.ExitCode(bioerr.E(bioerr.IoError, "write failed")))
	assert.Equal(t, 2, cliutil.ExitCode(bioerr.E(bioerr.CorruptBwt, "bad run")))
}

func TestOpenOutputDashIsStdoutAndDoesNotClose(t *testing.T) {
	w, err := cliutil.OpenOutput(context.Background(), "-")
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
