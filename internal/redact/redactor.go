package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding is one detected secret.
type Finding struct {
	RuleID string
	Line   int
	Match  string
}

// Result is redacted content plus what was removed.
type Result struct {
	Content  string
	Findings []Finding
}

// Redacted reports whether anything was replaced.
func (r Result) Redacted() bool {
	return len(r.Findings) > 0
}

// Redactor replaces secrets with [REDACTED:<rule-id>] markers.
type Redactor struct {
	allowlist *Allowlist
	detect    func(content string, allowlist *Allowlist) ([]Finding, error)
}

// New creates a Redactor. allowlistPath may be empty.
func New(allowlistPath string) (*Redactor, error) {
	allowlist, err := LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, fmt.Errorf("loading allowlist: %w", err)
	}
	return &Redactor{allowlist: allowlist, detect: gitleaksDetect}, nil
}

// Redact scans content and replaces every detected secret.
func (r *Redactor) Redact(content string) (Result, error) {
	if content == "" {
		return Result{Content: content}, nil
	}

	findings, err := r.detect(content, r.allowlist)
	if err != nil {
		return Result{}, fmt.Errorf("detecting secrets: %w", err)
	}
	if len(findings) == 0 {
		return Result{Content: content}, nil
	}

	return Result{Content: replaceFindings(content, findings), Findings: findings}, nil
}

// replaceFindings replaces longer matches first so a secret that contains
// another is not split by the shorter one's marker.
func replaceFindings(content string, findings []Finding) string {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Match) > len(sorted[j].Match)
	})

	for _, f := range sorted {
		if f.Match == "" {
			continue
		}
		content = strings.ReplaceAll(content, f.Match, "[REDACTED:"+f.RuleID+"]")
	}
	return content
}

// gitleaksDetect runs the default Gitleaks rule set. A detector keeps its
// findings, so each call builds a fresh one.
func gitleaksDetect(content string, allowlist *Allowlist) ([]Finding, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, err
	}
	if allowlist != nil && (len(allowlist.Regexes) > 0 || len(allowlist.StopWords) > 0) {
		applyAllowlist(&detector.Config, allowlist)
	}

	leaks := detector.DetectString(content)
	findings := make([]Finding, 0, len(leaks))
	for _, f := range leaks {
		findings = append(findings, Finding{
			RuleID: f.RuleID,
			Line:   f.StartLine,
			Match:  f.Secret,
		})
	}
	return findings, nil
}

// applyAllowlist assumes patterns were validated by LoadAllowlist.
func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) {
	global := &gitleaksConfig.Allowlist{
		Description: "memvec allowlist",
		StopWords:   allowlist.StopWords,
	}
	for _, pattern := range allowlist.Regexes {
		global.Regexes = append(global.Regexes, (*gitleaksRegexp.Regexp)(regexp.MustCompile(pattern)))
	}
	cfg.Allowlists = append(cfg.Allowlists, global)
}
