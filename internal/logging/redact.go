package logging

import (
	"fmt"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"go.uber.org/zap"
)

// Secret logs only the length of a configured secret, or "" when unset.
func Secret(key string, val config.Secret) zap.Field {
	if !val.IsSet() {
		return zap.String(key, "")
	}
	return RedactedString(key, val.Value())
}

// RedactedString logs "[REDACTED:<len>]" in place of val.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, fmt.Sprintf("[REDACTED:%d]", len(val)))
}
