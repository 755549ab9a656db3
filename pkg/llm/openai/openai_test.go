package openai

import "testing"

func TestNewGeneratorRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewGenerator(""); err == nil {
		t.Fatal("NewGenerator with no key succeeded")
	}
}

func TestNewGeneratorDefaults(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	g, err := NewGenerator("sk-test")
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if g.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", g.Model(), DefaultModel)
	}
	if g.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", g.BaseURL(), DefaultBaseURL)
	}
}

func TestNewGeneratorOptions(t *testing.T) {
	g, err := NewGenerator("sk-test",
		WithModel("gpt-4o-mini"),
		WithBaseURL("http://localhost:8080/v1"),
		WithTemperature(0),
		WithMaxTokens(256),
	)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if g.Model() != "gpt-4o-mini" {
		t.Errorf("Model() = %q", g.Model())
	}
	if g.BaseURL() != "http://localhost:8080/v1" {
		t.Errorf("BaseURL() = %q", g.BaseURL())
	}
	if g.maxTokens != 256 {
		t.Errorf("maxTokens = %d, want 256", g.maxTokens)
	}
}

func TestNewGeneratorBaseURLEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1")
	g, err := NewGenerator("sk-test")
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if g.BaseURL() != "https://proxy.example.com/v1" {
		t.Errorf("BaseURL() = %q, want env fallback", g.BaseURL())
	}
}

func TestKeyEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	g, err := NewGenerator("")
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if g.apiKey != "sk-from-env" {
		t.Errorf("apiKey = %q, want env value", g.apiKey)
	}
}
