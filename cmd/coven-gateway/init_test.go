// ABOUTME: Tests for the init command's generated config
// ABOUTME: Feeds scripted answers and loads the result back

package main

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/config"
)

func TestRunInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "coven-chat.yaml")
	answers := strings.Join([]string{
		path,
		"127.0.0.1:6001",
		"", // base URL default follows the address
		"pebble",
		filepath.Join(t.TempDir(), "chat"),
		"2h",
		"debug",
		"json",
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, runInit(bufio.NewReader(strings.NewReader(answers)), &out))
	assert.Contains(t, out.String(), "Config written to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:6001/api", cfg.Server.BaseURL)
	assert.Equal(t, "127.0.0.1:6001", cfg.Dev.Addr)
	assert.Equal(t, "pebble", cfg.Dev.Store)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "2h0m0s", cfg.Dev.TokenTTL.String())
	assert.NoError(t, cfg.ValidateDev())
}

func TestRunInit_EOFKeepsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runInit(bufio.NewReader(strings.NewReader("")), &out))

	cfg, err := config.Load("coven-chat.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Dev.Addr, cfg.Dev.Addr)
	assert.Equal(t, config.Default().Dev.TokenTTL, cfg.Dev.TokenTTL)
}
