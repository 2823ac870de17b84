// Package config handles configuration loading for the vehicle-market
// session client.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. Defaults are complete enough that the client runs with no
// config file at all, pointed at a local agent service.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	server:
//	  auth_token: "${VMARKET_AUTH_TOKEN}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	connection:
//	  reconnect_delay: "3s"
//	  max_reconnect_delay: "48s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  base_url: "http://localhost:8000"  # Synchronous API
//	  ws_url: ""                         # Derived from base_url when empty
//	  auth_token: "${VMARKET_AUTH_TOKEN}"
//
// Reconnection timing:
//
//	connection:
//	  reconnect_delay: "3s"
//	  max_reconnect_delay: "48s"
//
// Transcript:
//
//	transcript:
//	  enabled: false
//	  path: "vmarket-transcript.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - At least one of base_url / ws_url is set
//   - Transcript path is set when the transcript is enabled
//   - Duration format validity
//   - Logging format values
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
