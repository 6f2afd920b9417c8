package client

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskAPIKey(t *testing.T) {
	key := "mkb_" + strings.Repeat("0123456789abcdef", 4)
	masked := maskAPIKey(key)
	assert.Equal(t, "mkb_012...cdef", masked)
	assert.NotContains(t, masked[7:len(masked)-4], key[7:len(key)-4])
}

func TestMaskAPIKey_Short(t *testing.T) {
	assert.Equal(t, "***", maskAPIKey("short"))
	assert.Equal(t, "***", maskAPIKey(""))
}

func TestRunAuthLogin_RejectsBadFormat(t *testing.T) {
	err := runAuthLogin("not-a-key", "http://localhost:8080")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key format")
}

func TestRunAuthLogin_SavesConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "medkb")
	withConfigPath(t, configDir, filepath.Join(configDir, "config.json"))

	key := "mkb_" + strings.Repeat("0123456789abcdef", 4)
	require.NoError(t, runAuthLogin(key, "http://localhost:8080"))

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, key, config.APIKey)
	assert.Equal(t, "http://localhost:8080", config.APIURL)
}

func TestRunAuthLogout_ClearsConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "medkb")
	withConfigPath(t, configDir, filepath.Join(configDir, "config.json"))

	key := "mkb_" + strings.Repeat("0123456789abcdef", 4)
	require.NoError(t, runAuthLogin(key, "http://localhost:8080"))
	require.NoError(t, runAuthLogout())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}
