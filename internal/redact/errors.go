// Package redact strips secrets from document text before it is embedded,
// using the Gitleaks rule set.
package redact

import "errors"

var (
	// ErrInvalidRegex indicates an allowlist pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates the allowlist file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")
)
