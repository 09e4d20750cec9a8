package redact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubRedactor(findings []Finding, err error) *Redactor {
	return &Redactor{
		allowlist: &Allowlist{},
		detect: func(string, *Allowlist) ([]Finding, error) {
			return findings, err
		},
	}
}

func TestRedact_ReplacesFindings(t *testing.T) {
	r := stubRedactor([]Finding{
		{RuleID: "generic-api-key", Line: 1, Match: "abc123"},
		{RuleID: "github-pat", Line: 2, Match: "ghp_abc123xyz"},
	}, nil)

	result, err := r.Redact("key=abc123\ntoken=ghp_abc123xyz")
	require.NoError(t, err)

	assert.True(t, result.Redacted())
	assert.Equal(t, "key=[REDACTED:generic-api-key]\ntoken=[REDACTED:github-pat]", result.Content)
	assert.Len(t, result.Findings, 2)
}

func TestRedact_NoFindings(t *testing.T) {
	r := stubRedactor(nil, nil)

	result, err := r.Redact("nothing to see")
	require.NoError(t, err)
	assert.False(t, result.Redacted())
	assert.Equal(t, "nothing to see", result.Content)
}

func TestRedact_EmptyContentSkipsDetection(t *testing.T) {
	r := stubRedactor(nil, errors.New("should not run"))

	result, err := r.Redact("")
	require.NoError(t, err)
	assert.Empty(t, result.Content)
}

func TestRedact_DetectError(t *testing.T) {
	r := stubRedactor(nil, errors.New("boom"))

	_, err := r.Redact("content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detecting secrets")
}

func TestRedact_Gitleaks(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	content := `const key = "sk-proj-abcdefghijklmnopqrstuvwxyz1234567890123456"`
	result, err := r.Redact(content)
	require.NoError(t, err)

	if !result.Redacted() {
		t.Skip("gitleaks did not flag the sample key")
	}
	assert.NotContains(t, result.Content, "sk-proj-abcdefghijklmnopqrstuvwxyz")
	assert.Contains(t, result.Content, "[REDACTED:")
}

func TestRedact_GitleaksCleanContent(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	content := "cats purr when they are content"
	result, err := r.Redact(content)
	require.NoError(t, err)
	assert.Equal(t, content, result.Content)
}

func TestLoadAllowlist(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path", func(t *testing.T) {
		a, err := LoadAllowlist("")
		require.NoError(t, err)
		assert.Empty(t, a.Regexes)
	})

	t.Run("missing file", func(t *testing.T) {
		a, err := LoadAllowlist(filepath.Join(dir, "missing.toml"))
		require.NoError(t, err)
		assert.Empty(t, a.Regexes)
	})

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "allow.toml")
		require.NoError(t, os.WriteFile(path, []byte("[allowlist]\nregexes = ['''example-[0-9]+''']\nstopwords = [\"dummy\"]\n"), 0o600))

		a, err := LoadAllowlist(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"example-[0-9]+"}, a.Regexes)
		assert.Equal(t, []string{"dummy"}, a.StopWords)

		_, err = New(path)
		require.NoError(t, err)
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.toml")
		require.NoError(t, os.WriteFile(path, []byte("[allowlist\n"), 0o600))

		_, err := LoadAllowlist(path)
		assert.ErrorIs(t, err, ErrInvalidTOML)
	})

	t.Run("invalid regex", func(t *testing.T) {
		path := filepath.Join(dir, "regex.toml")
		require.NoError(t, os.WriteFile(path, []byte("[allowlist]\nregexes = ['''[unclosed''']\n"), 0o600))

		_, err := LoadAllowlist(path)
		assert.ErrorIs(t, err, ErrInvalidRegex)

		_, err = New(path)
		assert.ErrorIs(t, err, ErrInvalidRegex)
	})
}
