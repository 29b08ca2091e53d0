// ABOUTME: init command: writes a config file interactively
// ABOUTME: Generates a random JWT secret for the dev server

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/2389/coven-chat/internal/config"
)

// initFile mirrors the config sections init asks about.
type initFile struct {
	Server struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Dev struct {
		Addr         string `yaml:"addr"`
		Store        string `yaml:"store"`
		DatabasePath string `yaml:"database_path"`
		JWTSecret    string `yaml:"jwt_secret"`
		TokenTTL     string `yaml:"token_ttl"`
	} `yaml:"dev"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
		},
	}
}

func runInit(reader *bufio.Reader, out io.Writer) error {
	fmt.Fprintln(out, "coven-chat configuration setup")
	fmt.Fprintln(out, "==============================")
	fmt.Fprintln(out)

	defaults := config.Default()

	outputFile := prompt(reader, out, "Config file path", "coven-chat.yaml")
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := strings.ToLower(prompt(reader, out, "File exists. Overwrite?", "no"))
		if overwrite != "yes" && overwrite != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var f initFile

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	f.Dev.Addr = prompt(reader, out, "Listen address", defaults.Dev.Addr)
	f.Server.BaseURL = prompt(reader, out, "API base URL", "http://"+f.Dev.Addr+"/api")

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	f.Dev.Store = prompt(reader, out, "Store backend (sqlite/pebble)", defaults.Dev.Store)
	f.Dev.DatabasePath = prompt(reader, out, "Database path", defaults.Dev.DatabasePath)
	f.Dev.TokenTTL = prompt(reader, out, "Token lifetime", defaults.Dev.TokenTTL.String())

	secret, err := generateSecret()
	if err != nil {
		return err
	}
	f.Dev.JWTSecret = secret

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	f.Logging.Level = prompt(reader, out, "Log level (debug/info/warn/error)", defaults.Logging.Level)
	f.Logging.Format = prompt(reader, out, "Log format (text/json)", defaults.Logging.Format)

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	data = append([]byte("# coven-chat configuration\n# Generated by coven-gateway init\n\n"), data...)

	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	// The file holds the signing secret.
	if err := os.WriteFile(outputFile, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintf(out, "  coven-gateway serve --seed -c %s\n", outputFile)

	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
