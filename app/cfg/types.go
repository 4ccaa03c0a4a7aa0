package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBDriver string
	DBDSN    string

	// Application configuration
	FeedsFile         string
	Port              string
	BaseUrl           string
	APIAccessKey      string
	WorkerCount       int
	SchedulerInterval time.Duration
	FetchTimeout      time.Duration
	RetentionDays     int
	AutoSuggest       bool
	RateLimit         float64
	RateBurst         int

	// Collaborators
	RedisAddr      string
	KafkaBrokers   []string
	KafkaTopic     string
	OpenAIAPIKey   string
	OpenAIModel    string
	TelegramToken  string
	TelegramChatID string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string

	// Command selected on the command line, e.g. "serve" or "feeds add"
	Command  string
	FeedsAdd FeedsAddArgs
	FeedID   int64
}

type FeedsAddArgs struct {
	URL  string
	Name string
}
