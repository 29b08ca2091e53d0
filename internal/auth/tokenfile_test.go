package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadToken_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(TokenEnvVar, "")

	file := filepath.Join(dir, "explicit-token")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0600))
	require.NoError(t, SaveToken(DefaultTokenPath(), "from-default"))

	token, err := LoadToken("flag-token", file)
	require.NoError(t, err)
	assert.Equal(t, "flag-token", token)

	t.Setenv(TokenEnvVar, "from-env")
	token, err = LoadToken("", file)
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)

	t.Setenv(TokenEnvVar, "")
	token, err = LoadToken("", file)
	require.NoError(t, err)
	assert.Equal(t, "from-file", token)

	token, err = LoadToken("", filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, "from-default", token)
}

func TestLoadToken_None(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(TokenEnvVar, "")

	_, err := LoadToken("", "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSaveToken_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	require.NoError(t, SaveToken(path, "abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
