package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
listen: ":9000"
backend: bolt
dataPath: /var/lib/jsonmeta
logLevel: debug
`)
	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", config.Listen)
	assert.Equal(t, "bolt", config.Backend)
	assert.Equal(t, "/var/lib/jsonmeta", config.DataPath)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, Default().MinimumFreeGB, config.MinimumFreeGB)

	id, err := config.Program()
	require.NoError(t, err)
	assert.True(t, id.Equals(address.ProgramID))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown backend": "backend: sqlite\n",
		"bad log level":   "logLevel: loud\n",
		"bad program id":  "programID: not-base58!\n",
		"negative space":  "minimumFreeGB: -1\n",
		"unknown field":   "listn: \":1\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	want := Default()
	want.Backend = "memory"
	want.AuthToken = "secret"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
