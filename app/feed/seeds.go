package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Seed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type seedFile struct {
	Feeds []Seed `yaml:"feeds"`
}

// SeedList holds the feed sources declared in a YAML file
type SeedList struct {
	path  string
	seeds []Seed
	mu    sync.RWMutex
}

func NewSeedList(path string) *SeedList {
	return &SeedList{path: path}
}

// Run loads the file. A missing file is an empty list. Invalid entries are
// logged and left out.
func (sl *SeedList) Run() error {
	data, err := os.ReadFile(sl.path)
	if os.IsNotExist(err) {
		slog.Debug("Seed file not found", "path", sl.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	seen := make(map[string]bool, len(file.Feeds))
	seeds := make([]Seed, 0, len(file.Feeds))
	for i, seed := range file.Feeds {
		seed.URL = strings.TrimSpace(seed.URL)
		seed.Name = strings.TrimSpace(seed.Name)

		if err := validateSeed(seed); err != nil {
			slog.Warn("Invalid seed entry, skipping", "path", sl.path, "index", i, "error", err)
			continue
		}
		if seen[seed.URL] {
			slog.Warn("Duplicate seed entry, skipping", "path", sl.path, "url", seed.URL)
			continue
		}
		seen[seed.URL] = true

		seeds = append(seeds, seed)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.seeds = seeds

	slog.Debug("Seed file loaded", "path", sl.path, "count", len(seeds))

	return nil
}

func (sl *SeedList) GetSeeds() []Seed {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	seedsCopy := make([]Seed, len(sl.seeds))
	copy(seedsCopy, sl.seeds)
	return seedsCopy
}

func (sl *SeedList) GetSeedCount() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return len(sl.seeds)
}

func validateSeed(seed Seed) error {
	if seed.URL == "" {
		return fmt.Errorf("feed URL is required")
	}
	if !IsFeedURL(seed.URL) {
		return fmt.Errorf("feed URL must be an absolute http(s) URL: %s", seed.URL)
	}
	return nil
}

// IsFeedURL reports whether s is an absolute http or https URL with a host
func IsFeedURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
