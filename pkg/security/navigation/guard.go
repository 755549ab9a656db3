// Package navigation restricts where the execution engine may navigate.
// Rules are glob patterns matched against the normalized host and path of a
// candidate URL. Deny patterns take precedence over allow patterns, and an
// empty allow list permits everything not explicitly denied.
package navigation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// ErrNavigationBlocked is returned when a URL matches the deny rules or
// falls outside a non-empty allow list.
var ErrNavigationBlocked = errors.New("navigation blocked by policy")

// Rules is the uncompiled pattern configuration.
type Rules struct {
	// Allow lists glob patterns a URL must match when non-empty.
	Allow []string `yaml:"allow"`

	// Deny lists glob patterns that always block, regardless of Allow.
	Deny []string `yaml:"deny"`
}

// Guard checks candidate navigation URLs against compiled rules.
type Guard struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewGuard compiles the rules into a guard. Invalid patterns are rejected up
// front so a broken policy fails at startup rather than mid-run.
func NewGuard(rules Rules) (*Guard, error) {
	g := &Guard{}
	for _, pattern := range rules.Allow {
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allow pattern %q: %w", pattern, err)
		}
		g.allowed = append(g.allowed, compiled)
	}
	for _, pattern := range rules.Deny {
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", pattern, err)
		}
		g.denied = append(g.denied, compiled)
	}
	return g, nil
}

// AllowAll returns a guard with no rules, which permits every URL.
func AllowAll() *Guard {
	return &Guard{}
}

// Check returns nil when navigation to rawURL is permitted, or an error
// wrapping ErrNavigationBlocked when it is not. Unparseable URLs are blocked.
func (g *Guard) Check(rawURL string) error {
	target, err := normalize(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNavigationBlocked, err)
	}

	// Denied patterns take precedence.
	for _, pattern := range g.denied {
		if pattern.Match(target) {
			return fmt.Errorf("%w: %s matches a deny rule", ErrNavigationBlocked, target)
		}
	}

	if len(g.allowed) == 0 {
		return nil
	}
	for _, pattern := range g.allowed {
		if pattern.Match(target) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s matches no allow rule", ErrNavigationBlocked, target)
}

// normalize reduces a URL to the lowercase "host/path" form patterns are
// written against, so "HTTPS://WWW.Example.com/A/" and
// "https://www.example.com/a" match the same rules.
func normalize(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("unparseable URL %q", rawURL)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	target := strings.ToLower(parsed.Hostname())
	path := strings.TrimSuffix(parsed.EscapedPath(), "/")
	if path != "" {
		target += strings.ToLower(path)
	}
	return target, nil
}
