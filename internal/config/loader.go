package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable LoadWithFile reads.
const EnvPrefix = "MEMVEC_"

const maxConfigFileSize = 1 << 20

// systemConfigDir is the only location outside the user's config dir that
// config files may be read from.
const systemConfigDir = "/etc/memvec"

// LoadWithFile layers, lowest first: Default(), the config file, then
// MEMVEC_* environment variables. configPath defaults to
// ~/.config/memvec/config.yaml; a .toml extension selects the TOML parser.
//
// A missing file is fine. A present one must sit under ~/.config/memvec/ or
// /etc/memvec/, be mode 0600 or 0400, and be at most 1MB.
//
// Environment keys split once after the prefix, so the section name comes
// first and the rest is the field:
//
//	MEMVEC_SERVER_PORT         -> server.port
//	MEMVEC_STORE_DEFAULT_TOP_K -> store.default_top_k
//	MEMVEC_EMBEDDINGS_API_KEY  -> embeddings.api_key
func LoadWithFile(configPath string) (*Config, error) {
	if configPath == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}
	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	k := koanf.New(".")

	content, err := readConfigFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := k.Load(rawbytes.Provider(content), parserFor(configPath)); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for _, p := range []*string{&cfg.Store.Path, &cfg.Store.SecretsAllowlist, &cfg.Embeddings.CacheDir} {
		*p = ExpandPath(*p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// readConfigFile checks mode and size on the open descriptor, so the file
// that is checked is the file that is read.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOMLParser()
	}
	return yaml.Parser()
}

// envKey maps MEMVEC_SECTION_FIELD_NAME to section.field_name.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if section, field, ok := strings.Cut(key, "_"); ok {
		return section + "." + field
	}
	return key
}

// DefaultConfigDir is ~/.config/memvec.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "memvec"), nil
}

// EnsureConfigDir creates DefaultConfigDir with mode 0700.
func EnsureConfigDir() error {
	dir, err := DefaultConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// ExpandPath resolves a leading "~" against the home directory. Other paths,
// and all paths when the home directory is unknown, come back unchanged.
func ExpandPath(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// validateConfigPath rejects paths outside the allowed directories after
// resolving symlinks. Paths that do not exist yet are checked as written.
func validateConfigPath(path string) error {
	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	userDir, err := DefaultConfigDir()
	if err != nil {
		return err
	}
	for _, dir := range []string{userDir, systemConfigDir} {
		if rel, err := filepath.Rel(dir, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return errors.New("config file must be in ~/.config/memvec/ or /etc/memvec/")
}

func validateConfigFileProperties(info fs.FileInfo) error {
	if perm := info.Mode().Perm(); runtime.GOOS != "windows" && perm != 0o600 && perm != 0o400 {
		return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
