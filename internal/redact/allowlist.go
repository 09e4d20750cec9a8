package redact

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Allowlist holds content patterns that are never redacted.
type Allowlist struct {
	Regexes   []string
	StopWords []string
}

// LoadAllowlist reads an allowlist file in the .gitleaks.toml layout:
//
//	[allowlist]
//	regexes = ['''example-[0-9]+''']
//	stopwords = ["dummy"]
//
// An empty path or a missing file yields an empty allowlist.
func LoadAllowlist(path string) (*Allowlist, error) {
	if path == "" {
		return &Allowlist{}, nil
	}

	var file struct {
		Allowlist struct {
			Regexes   []string `toml:"regexes"`
			StopWords []string `toml:"stopwords"`
		} `toml:"allowlist"`
	}

	if _, err := toml.DecodeFile(path, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	for _, pattern := range file.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: '%s' in %s: %v", ErrInvalidRegex, pattern, path, err)
		}
	}

	return &Allowlist{
		Regexes:   file.Allowlist.Regexes,
		StopWords: file.Allowlist.StopWords,
	}, nil
}
