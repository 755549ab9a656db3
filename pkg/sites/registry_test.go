package sites

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveCaseInsensitive(t *testing.T) {
	r := New()

	tests := []struct {
		ref     string
		wantURL string
		wantOK  bool
	}{
		{ref: "google", wantURL: "https://www.google.com", wantOK: true},
		{ref: "Google", wantURL: "https://www.google.com", wantOK: true},
		{ref: "GooGLe", wantURL: "https://www.google.com", wantOK: true},
		{ref: "  youtube  ", wantURL: "https://www.youtube.com", wantOK: true},
		{ref: "bbc news", wantURL: "https://www.bbc.com/news", wantOK: true},
		{ref: "non existent", wantOK: false},
		{ref: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			entry, ok := r.Resolve(tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v", tt.ref, ok, tt.wantOK)
			}
			if ok && entry.URL != tt.wantURL {
				t.Errorf("Resolve(%q) URL = %q, want %q", tt.ref, entry.URL, tt.wantURL)
			}
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := New()
	first, ok1 := r.Resolve("github")
	second, ok2 := r.Resolve("github")
	if !ok1 || !ok2 {
		t.Fatal("Resolve(github) not found")
	}
	if first != second {
		t.Errorf("repeated Resolve returned different entries: %+v vs %+v", first, second)
	}
}

func TestRegisterOverridesBuiltin(t *testing.T) {
	r := New()
	if err := r.Register(SiteEntry{Name: "GitHub", URL: "https://github.example.internal"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	entry, ok := r.Resolve("github")
	if !ok {
		t.Fatal("Resolve(github) not found after override")
	}
	if entry.URL != "https://github.example.internal" {
		t.Errorf("URL = %q, want override", entry.URL)
	}
}

func TestRegisterRejectsIncompleteEntries(t *testing.T) {
	r := NewEmpty()
	if err := r.Register(SiteEntry{URL: "https://example.com"}); err == nil {
		t.Error("Register without name succeeded")
	}
	if err := r.Register(SiteEntry{Name: "example"}); err == nil {
		t.Error("Register without url succeeded")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.yaml")
	content := `sites:
  - name: internal wiki
    url: https://wiki.corp.example.com
    default_action: "search box: input#q"
  - name: google
    url: https://google.example.internal
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	r := New()
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	wiki, ok := r.Resolve("Internal Wiki")
	if !ok {
		t.Fatal("Resolve(Internal Wiki) not found")
	}
	if wiki.DefaultAction != "search box: input#q" {
		t.Errorf("DefaultAction = %q", wiki.DefaultAction)
	}

	google, _ := r.Resolve("google")
	if google.URL != "https://google.example.internal" {
		t.Errorf("file entry did not override builtin, URL = %q", google.URL)
	}
}

func TestLoadFileErrors(t *testing.T) {
	r := New()
	if err := r.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) = nil, want error")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("sites: {not a list}"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if err := r.LoadFile(bad); err == nil {
		t.Error("LoadFile(bad yaml) = nil, want error")
	}
}

func TestEntriesSorted(t *testing.T) {
	r := New()
	entries := r.Entries()
	if len(entries) != r.Len() {
		t.Fatalf("Entries() len = %d, want %d", len(entries), r.Len())
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Name > entries[i].Name {
			t.Fatalf("Entries() not sorted: %q before %q", entries[i-1].Name, entries[i].Name)
		}
	}
}
