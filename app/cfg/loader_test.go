package cfg

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "DB_DRIVER", "FETCH_TIMEOUT", "SCHEDULER_INTERVAL", "RETENTION_DAYS")

	cfg, err := Load([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected config, got nil")
	}

	if cfg.Command != "serve" {
		t.Errorf("Expected default command 'serve', got '%s'", cfg.Command)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("Expected driver 'sqlite', got '%s'", cfg.DBDriver)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("Expected fetch timeout 30s, got %v", cfg.FetchTimeout)
	}
	if cfg.SchedulerInterval != 900*time.Second {
		t.Errorf("Expected scheduler interval 900s, got %v", cfg.SchedulerInterval)
	}
	if cfg.RetentionDays != 30 {
		t.Errorf("Expected retention 30 days, got %d", cfg.RetentionDays)
	}
}

func TestLoadFeedsAddCommand(t *testing.T) {
	cfg, err := Load([]string{"feeds", "add", "--name", "Example", "https://example.com/feed.xml"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Command != "feeds add" {
		t.Errorf("Expected command 'feeds add', got '%s'", cfg.Command)
	}
	if cfg.FeedsAdd.URL != "https://example.com/feed.xml" {
		t.Errorf("Expected URL argument, got '%s'", cfg.FeedsAdd.URL)
	}
	if cfg.FeedsAdd.Name != "Example" {
		t.Errorf("Expected name 'Example', got '%s'", cfg.FeedsAdd.Name)
	}
}

func TestLoadFeedsRemoveCommand(t *testing.T) {
	cfg, err := Load([]string{"feeds", "remove", "42"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Command != "feeds remove" {
		t.Errorf("Expected command 'feeds remove', got '%s'", cfg.Command)
	}
	if cfg.FeedID != 42 {
		t.Errorf("Expected feed ID 42, got %d", cfg.FeedID)
	}
}

func TestLoadKafkaBrokersFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")

	cfg, err := Load([]string{"run-cycle"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 {
		t.Fatalf("Expected 2 brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("Expected trimmed broker, got '%s'", cfg.KafkaBrokers[1])
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero fetch timeout", []string{"--fetch-timeout", "0"}},
		{"negative retention", []string{"--retention-days", "-1"}},
		{"zero workers", []string{"--worker-count", "0"}},
		{"unknown driver", []string{"--db-driver", "mysql"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.args); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}
