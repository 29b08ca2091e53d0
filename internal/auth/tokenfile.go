// ABOUTME: Locates the bearer token for CLI clients
// ABOUTME: Checks an env var, then an explicit file, then ~/.config/<app>/token

package auth

import (
	"os"
	"path/filepath"
	"strings"
)

// TokenEnvVar is consulted before any token file.
const TokenEnvVar = "COVEN_CHAT_TOKEN"

// DefaultTokenPath returns $XDG_CONFIG_HOME/coven-chat/token, falling back to
// ~/.config/coven-chat/token. Returns "" when no home directory is known.
func DefaultTokenPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "coven-chat", "token")
}

// LoadToken returns the first non-empty token from: explicit, the
// COVEN_CHAT_TOKEN env var, path, DefaultTokenPath(). Returns ErrNoToken
// when none is found.
func LoadToken(explicit, path string) (string, error) {
	if token := strings.TrimSpace(explicit); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(os.Getenv(TokenEnvVar)); token != "" {
		return token, nil
	}

	for _, p := range []string{path, DefaultTokenPath()} {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	}
	return "", ErrNoToken
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0600)
}
