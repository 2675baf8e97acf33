package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	opts, err := Load(filepath.Join(t.TempDir(), "nonexistent.options"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPortNumber, opts.PortNumber)
	assert.Equal(t, DefaultServerName, opts.ServerName)
}

func TestLoadParsesKnownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drise.options")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nport_number = 9000\nserver_name = renderhost\nunknown_key = 1\n"), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, opts.PortNumber)
	assert.Equal(t, "renderhost", opts.ServerName)
}

func TestLoadManifestParsesJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	content := `
server_name: farm1
port_number: 41337
jobs:
  - scene: a.rsc
    width: 640
    height: 480
    output: a_out
    tile:
      gx: 32
      gy: 32
  - scene: b.rsc
    width: 320
    height: 240
    output: b_out
    frames: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Jobs, 2)
	assert.False(t, m.Jobs[0].IsAnimation())
	assert.True(t, m.Jobs[1].IsAnimation())
	assert.Equal(t, uint32(10), m.Jobs[1].Frames)
}
