package config

import (
	"bytes"

	"github.com/BurntSushi/toml"
)

// tomlParser implements koanf.Parser for TOML config files.
type tomlParser struct{}

// TOMLParser returns a koanf parser backed by BurntSushi/toml.
func TOMLParser() *tomlParser {
	return &tomlParser{}
}

// Unmarshal parses TOML bytes into a nested map.
func (p *tomlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if _, err := toml.Decode(string(b), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal encodes a nested map as TOML.
func (p *tomlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
