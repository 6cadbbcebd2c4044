// Package github reads documents addressed as github://owner/repo/path[@ref]
// through an authenticated gh CLI.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

const scheme = "github://"

// Location is a parsed github:// URL.
type Location struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// ContentsPath returns the REST API path of the file's contents.
func (l Location) ContentsPath() string {
	p := fmt.Sprintf("repos/%s/%s/contents/%s", l.Owner, l.Repo, l.Path)
	if l.Ref != "" {
		p += "?ref=" + l.Ref
	}
	return p
}

// Runner executes an external command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Source fetches file contents with "gh api".
type Source struct {
	run    Runner
	logger *slog.Logger
}

// NewSource creates a Source. A nil run executes the real gh binary.
func NewSource(run Runner, logger *slog.Logger) *Source {
	if run == nil {
		run = execRunner
	}
	return &Source{run: run, logger: logger.With("component", "github_source")}
}

// IsURL reports whether s uses the github:// scheme.
func IsURL(s string) bool {
	return strings.HasPrefix(s, scheme)
}

// ParseURL splits github://owner/repo/path/to/file[@ref].
func ParseURL(u string) (Location, error) {
	if !IsURL(u) {
		return Location{}, fmt.Errorf("invalid GitHub URL format: %s", u)
	}
	rest := strings.TrimPrefix(u, scheme)
	var loc Location
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest, loc.Ref = rest[:at], rest[at+1:]
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Location{}, fmt.Errorf("invalid GitHub URL format: expected github://owner/repo/path/to/file")
	}
	loc.Owner, loc.Repo, loc.Path = parts[0], parts[1], parts[2]
	return loc, nil
}

// Fetch returns the decoded contents of the file at u.
func (s *Source) Fetch(ctx context.Context, u string) ([]byte, error) {
	loc, err := ParseURL(u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fetching file from GitHub", slog.String("url", u))

	out, err := s.run(ctx, "gh", "api", loc.ContentsPath(), "--jq", ".content")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	// The contents API wraps base64 at 60 columns.
	encoded := strings.Join(strings.Fields(string(out)), "")
	if encoded == "" {
		return nil, fmt.Errorf("empty response from GitHub for %s", u)
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 content: %w", err)
	}
	return content, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s command failed: %s", name, msg)
		}
		return nil, fmt.Errorf("%s command failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}
