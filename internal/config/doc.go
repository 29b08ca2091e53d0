// Package config handles configuration loading for coven-chat.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Anything a file leaves out keeps the value from Default.
//
// # Configuration File
//
// Locate checks, in order:
//
//  1. Path from COVEN_CHAT_CONFIG environment variable
//  2. ./coven-chat.yaml, ./coven-chat.yml, ./coven-chat.toml
//  3. ~/.config/coven-chat/config.yaml or config.toml
//
// Files ending in .toml are decoded with BurntSushi/toml, everything else
// with yaml.v3.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  token: "${COVEN_CHAT_TOKEN}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	http:
//	  timeout: "15s"
//	realtime:
//	  handshake_timeout: "10s"
//	  reconnect_delay: "3s"
//	  dedupe_ttl: "10m"
//
// # Configuration Sections
//
// Server endpoints:
//
//	server:
//	  base_url: "http://localhost:5001/api"
//	  socket_url: "ws://localhost:5001/api/socket"  # derived when empty
//
// Session token:
//
//	auth:
//	  token: ""                 # wins over token_file
//	  token_file: "~/.config/coven-chat/token"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Terminal client:
//
//	ui:
//	  color: true
//	  html_out: "chat.html"   # /html writes here by default
//
// Dev server:
//
//	dev:
//	  addr: "localhost:5001"
//	  database_path: "coven-chat.db"
//	  jwt_secret: "${COVEN_CHAT_JWT_SECRET}"   # at least 32 bytes
//	  token_ttl: "168h"
//
// # Usage
//
//	cfg := config.Default()
//	if path := config.Locate(); path != "" {
//	    cfg, err = config.Load(path)
//	}
package config
