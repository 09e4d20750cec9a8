package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Duration is a time.Duration that decodes from text such as "500ms" or
// "1m30s". A bare integer is read as seconds, which is what most people
// type into an environment variable.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	parsed, err := time.ParseDuration(s)
	if err != nil {
		secs, convErr := strconv.ParseInt(s, 10, 64)
		if convErr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		parsed = time.Duration(secs) * time.Second
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", s)
	}

	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Duration converts back to time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Secret holds a credential such as an embeddings API key. Every printing
// or encoding path yields a placeholder; only Value returns the real text.
type Secret string

const secretPlaceholder = "[REDACTED]"

func (s Secret) String() string {
	if !s.IsSet() {
		return ""
	}
	return secretPlaceholder
}

func (s Secret) GoString() string {
	return "config.Secret(" + secretPlaceholder + ")"
}

// Value returns the unredacted secret.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool { return s != "" }

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
