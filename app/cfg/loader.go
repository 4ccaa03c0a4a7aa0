package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" choice:"sqlite" choice:"postgres" description:"Database driver"`
	DBDSN    string `long:"db-dsn" env:"DB_DSN" default:"curator.db" description:"Database file path (sqlite) or connection string (postgres)"`

	// Application configuration
	FeedsFile         string  `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yml" description:"YAML file with feed sources to register on startup"`
	Port              string  `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string  `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://curator.example.com)"`
	APIAccessKey      string  `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	WorkerCount       int     `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval int     `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"900" description:"Ingestion cycle interval in seconds"`
	FetchTimeout      int     `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-feed fetch timeout in seconds"`
	RetentionDays     int     `long:"retention-days" env:"RETENTION_DAYS" default:"30" description:"Days to keep approved items (0 disables purging)"`
	AutoSuggest       bool    `long:"auto-suggest" env:"AUTO_SUGGEST" description:"Request AI suggestions for new items after each cycle"`
	RateLimit         float64 `long:"rate-limit" env:"RATE_LIMIT" default:"5" description:"API requests per second per client"`
	RateBurst         int     `long:"rate-burst" env:"RATE_BURST" default:"10" description:"API request burst per client"`

	// Collaborators
	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for conditional fetch validators (optional)"`
	KafkaBrokers   string `long:"kafka-brokers" env:"KAFKA_BROKERS" description:"Comma separated Kafka brokers for ingestion events (optional)"`
	KafkaTopic     string `long:"kafka-topic" env:"KAFKA_TOPIC" default:"feed-items" description:"Kafka topic for ingestion events"`
	OpenAIAPIKey   string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key for suggestions (optional)"`
	OpenAIModel    string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI chat model"`
	TelegramToken  string `long:"telegram-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token"`
	TelegramChatID string `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat or channel ID"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Curator/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type serveCommand struct{}

type runCycleCommand struct{}

type migrateCommand struct{}

type feedsCommand struct {
	List   struct{} `command:"list" description:"List registered feed sources"`
	Add    feedsAddCommand    `command:"add" description:"Validate and register a feed source"`
	Remove feedsRemoveCommand `command:"remove" description:"Remove a feed source by ID"`
}

type feedsAddCommand struct {
	Name string `long:"name" description:"Display name (defaults to the URL)"`
	Args struct {
		URL string `positional-arg-name:"url" required:"yes"`
	} `positional-args:"yes"`
}

type feedsRemoveCommand struct {
	Args struct {
		ID int64 `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes"`
}

// Load parses args (without the program name) and environment variables.
// It returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg
	var feeds feedsCommand

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	commands := []struct {
		name, short string
		data        interface{}
	}{
		{"serve", "Run the scheduler and the curation API (default)", &serveCommand{}},
		{"run-cycle", "Run a single ingestion cycle and exit", &runCycleCommand{}},
		{"migrate", "Apply database migrations and exit", &migrateCommand{}},
		{"feeds", "Manage feed sources", &feeds},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.short, c.data); err != nil {
			return nil, fmt.Errorf("failed to register command %s: %w", c.name, err)
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:          raw.DBDriver,
		DBDSN:             raw.DBDSN,
		FeedsFile:         raw.FeedsFile,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		APIAccessKey:      raw.APIAccessKey,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: time.Duration(raw.SchedulerInterval) * time.Second,
		FetchTimeout:      time.Duration(raw.FetchTimeout) * time.Second,
		RetentionDays:     raw.RetentionDays,
		AutoSuggest:       raw.AutoSuggest,
		RateLimit:         raw.RateLimit,
		RateBurst:         raw.RateBurst,
		RedisAddr:         raw.RedisAddr,
		KafkaBrokers:      splitList(raw.KafkaBrokers),
		KafkaTopic:        raw.KafkaTopic,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		OpenAIModel:       raw.OpenAIModel,
		TelegramToken:     raw.TelegramToken,
		TelegramChatID:    raw.TelegramChatID,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
		Command:           activeCommand(parser.Active),
		FeedsAdd: FeedsAddArgs{
			URL:  feeds.Add.Args.URL,
			Name: feeds.Add.Name,
		},
		FeedID: feeds.Remove.Args.ID,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	positive := map[string]time.Duration{
		"scheduler interval": cfg.SchedulerInterval,
		"fetch timeout":      cfg.FetchTimeout,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if cfg.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if cfg.RetentionDays < 0 {
		return fmt.Errorf("retention days must be non-negative")
	}
	return nil
}

func activeCommand(cmd *flags.Command) string {
	if cmd == nil {
		return "serve"
	}
	names := []string{}
	for c := cmd; c != nil; c = c.Active {
		names = append(names, c.Name)
	}
	return strings.Join(names, " ")
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
