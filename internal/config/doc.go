// Package config handles configuration loading for nurtab-store.
//
// Configuration is loaded from YAML files with environment variable
// expansion (${VAR_NAME} syntax). A missing file yields the defaults.
//
// Sections:
//
//	database:
//	  path: "${HOME}/.local/share/nurtab/nurtab.db"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
