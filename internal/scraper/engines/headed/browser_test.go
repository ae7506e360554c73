package headed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
)

func TestSystemChromePathPrefersEnv(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	t.Setenv("CHROME_BIN", bin)
	assert.Equal(t, bin, systemChromePath())
}

func TestCloseWithoutLaunch(t *testing.T) {
	e := New(config.Default(), nil, logging.NewNopLogger())
	assert.NoError(t, e.Close())
}
