package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParse(t *testing.T) {
	p := writeConfig(t, `{
		"server_url": "https://dav.example.com/files",
		"request_threads": 3,
		"server_auth": {"username": "u", "password": "p"}
	}`)
	c, err := Parse(p)
	require.NoError(t, err)
	assert.Equal(t, "https://dav.example.com/files", c.ServerURL)
	assert.Equal(t, 3, c.RequestThreads)
	require.NotNil(t, c.ServerAuth)
	assert.Equal(t, "u", c.ServerAuth.Username)
	// defaults survive a partial config
	assert.Equal(t, 600, c.LockTimeoutSecs)
	assert.True(t, c.EnableAttrCache)
}

func TestParseMissingServerURL(t *testing.T) {
	p := writeConfig(t, `{"request_threads": 3}`)
	_, err := Parse(p)
	assert.Error(t, err)
}
