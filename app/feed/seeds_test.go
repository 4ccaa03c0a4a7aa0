package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSeedListLoad(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "feeds.yml")

	content := `
feeds:
  - url: "https://example.com/feed.xml"
    name: "Example"
  - url: "  https://other.example.com/rss  "
  - url: ""
    name: "Missing URL"
  - url: "ftp://example.com/feed"
  - url: "https://example.com/feed.xml"
    name: "Duplicate"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	seeds := NewSeedList(path)
	if err := seeds.Run(); err != nil {
		t.Fatal(err)
	}

	if seeds.GetSeedCount() != 2 {
		t.Fatalf("Expected 2 seeds, got %d", seeds.GetSeedCount())
	}

	got := seeds.GetSeeds()
	if got[0].URL != "https://example.com/feed.xml" || got[0].Name != "Example" {
		t.Errorf("Expected first seed Example, got %+v", got[0])
	}
	if got[1].URL != "https://other.example.com/rss" {
		t.Errorf("Expected trimmed URL, got '%s'", got[1].URL)
	}
}

func TestSeedListMissingFile(t *testing.T) {
	seeds := NewSeedList(filepath.Join(t.TempDir(), "missing.yml"))
	if err := seeds.Run(); err != nil {
		t.Errorf("Expected no error for missing file, got %v", err)
	}
	if seeds.GetSeedCount() != 0 {
		t.Errorf("Expected 0 seeds, got %d", seeds.GetSeedCount())
	}
}

func TestSeedListInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yml")
	if err := os.WriteFile(path, []byte("feeds: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewSeedList(path).Run(); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestIsFeedURL(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/feed": true,
		"http://example.com":       true,
		"example.com/feed":         false,
		"ftp://example.com":        false,
		"https://":                 false,
		"":                         false,
	}

	for input, want := range tests {
		if got := IsFeedURL(input); got != want {
			t.Errorf("IsFeedURL(%q): expected %v, got %v", input, want, got)
		}
	}
}
