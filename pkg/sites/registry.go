// Package sites maps well-known site names to canonical URLs so instructions
// like "open youtube" resolve without a model round-trip. The registry is an
// open mapping: callers extend it programmatically or from a YAML file
// instead of editing lookup code.
package sites

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SiteEntry describes one resolvable site.
type SiteEntry struct {
	// Name is the logical reference users and plans may use. Lookups are
	// case-insensitive.
	Name string `yaml:"name"`

	// URL is the canonical address used verbatim when navigating.
	URL string `yaml:"url"`

	// DefaultAction is an optional free-text hint for the planner, such
	// as the site's search box and button selectors.
	DefaultAction string `yaml:"default_action,omitempty"`
}

// Registry resolves logical site names. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]SiteEntry
}

// New returns a registry preloaded with the builtin site table.
func New() *Registry {
	r := &Registry{entries: make(map[string]SiteEntry, len(builtins))}
	for _, entry := range builtins {
		r.entries[normalize(entry.Name)] = entry
	}
	return r
}

// NewEmpty returns a registry with no entries.
func NewEmpty() *Registry {
	return &Registry{entries: make(map[string]SiteEntry)}
}

// Resolve looks up ref case-insensitively, ignoring surrounding whitespace.
// It is a pure lookup: resolving the same ref twice yields the same result,
// and an unknown ref reports absence rather than an error.
func (r *Registry) Resolve(ref string) (SiteEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[normalize(ref)]
	return entry, ok
}

// Register adds or replaces an entry. Later registrations win on name
// collision, letting user files override builtins.
func (r *Registry) Register(entry SiteEntry) error {
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("site entry has no name")
	}
	if strings.TrimSpace(entry.URL) == "" {
		return fmt.Errorf("site entry %q has no url", entry.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalize(entry.Name)] = entry
	return nil
}

// siteFile is the YAML shape of a user extension file.
type siteFile struct {
	Sites []SiteEntry `yaml:"sites"`
}

// LoadFile merges entries from a YAML file into the registry.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading sites file: %w", err)
	}
	var file siteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing sites file %s: %w", path, err)
	}
	for _, entry := range file.Sites {
		if err := r.Register(entry); err != nil {
			return fmt.Errorf("sites file %s: %w", path, err)
		}
	}
	return nil
}

// Entries returns a name-sorted snapshot of every registered site.
func (r *Registry) Entries() []SiteEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SiteEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered sites.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var builtins = []SiteEntry{
	{Name: "google", URL: "https://www.google.com", DefaultAction: "search box: textarea[name=q]"},
	{Name: "youtube", URL: "https://www.youtube.com", DefaultAction: "search box: input#search, search button: button#search-icon-legacy"},
	{Name: "wikipedia", URL: "https://www.wikipedia.org", DefaultAction: "search box: input#searchInput"},
	{Name: "amazon", URL: "https://www.amazon.com", DefaultAction: "search box: input#twotabsearchtextbox"},
	{Name: "facebook", URL: "https://www.facebook.com"},
	{Name: "twitter", URL: "https://www.twitter.com"},
	{Name: "x", URL: "https://www.x.com"},
	{Name: "github", URL: "https://www.github.com"},
	{Name: "linkedin", URL: "https://www.linkedin.com"},
	{Name: "reddit", URL: "https://www.reddit.com", DefaultAction: "search box: input#search-input"},
	{Name: "bbc news", URL: "https://www.bbc.com/news"},
	{Name: "cnn", URL: "https://www.cnn.com"},
	{Name: "nytimes", URL: "https://www.nytimes.com"},
	{Name: "openai", URL: "https://www.openai.com"},
	{Name: "hugging face", URL: "https://huggingface.co"},
}
