package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains the settings shared by every pipeline stage: the artifact
// data directory and the optional run-event emission target. An empty broker
// list disables event emission.
type Common struct {
	DataDir      string
	KafkaBrokers []string
	EventsTopic  string
}

// Elastic holds the knowledge-base connection parameters shared by the
// publisher and the read API.
type Elastic struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Retriever configures the source-query stage.
type Retriever struct {
	Common
	SubscriptionsFile string
	APIKey            string
	APIBaseURL        string
	Lookback          time.Duration
	MaxPerChannel     int
	RequestTimeout    time.Duration
}

// Filter configures the ledger dedup stage.
type Filter struct {
	Common
	GistID         string
	GistToken      string
	GistAPIBase    string
	LedgerFile     string
	Exclusions     []string
	RequestTimeout time.Duration
}

// Normalizer configures the LLM normalization stage.
type Normalizer struct {
	Common
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	RequestTimeout time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	Concurrency    int
}

// Publisher configures the knowledge-base upsert stage.
type Publisher struct {
	Common
	Elastic
	MaxAttempts    int
	BackoffBase    time.Duration
	RequestTimeout time.Duration
}

// API describes HTTP-layer configuration for the read side.
type API struct {
	Elastic
	BindAddr    string
	DefaultPage int
	MaxPage     int
}

// Retention configures the artifact cleanup loop.
type Retention struct {
	DataDir  string
	Interval time.Duration
	MaxAge   time.Duration
}

func loadCommon() Common {
	return Common{
		DataDir:      getEnv("PIPELINE_DATA_DIR", "data"),
		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		EventsTopic:  getEnv("KAFKA_EVENTS_TOPIC", "pipeline_events"),
	}
}

func loadElastic() Elastic {
	return Elastic{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "published_content"),
	}
}

// LoadRetriever builds a Retriever config from environment variables.
func LoadRetriever() (*Retriever, error) {
	c := &Retriever{
		Common:            loadCommon(),
		SubscriptionsFile: getEnv("SUBSCRIPTIONS_FILE", "subscriptions.yaml"),
		APIKey:            getEnv("YOUTUBE_API_KEY", ""),
		APIBaseURL:        getEnv("YOUTUBE_API_BASE", "https://www.googleapis.com/youtube/v3"),
		Lookback:          getDuration("RETRIEVER_LOOKBACK", "24h"),
		MaxPerChannel:     getInt("RETRIEVER_MAX_PER_CHANNEL", 5),
		RequestTimeout:    getDuration("RETRIEVER_TIMEOUT", "15s"),
	}

	if c.APIKey == "" {
		return nil, fmt.Errorf("YOUTUBE_API_KEY is required")
	}
	if c.Lookback <= 0 {
		return nil, fmt.Errorf("RETRIEVER_LOOKBACK must be positive")
	}
	if c.MaxPerChannel <= 0 {
		return nil, fmt.Errorf("RETRIEVER_MAX_PER_CHANNEL must be positive")
	}

	return c, nil
}

// LoadFilter builds a Filter config from environment variables.
func LoadFilter() (*Filter, error) {
	c := &Filter{
		Common:         loadCommon(),
		GistID:         getEnv("LEDGER_GIST_ID", ""),
		GistToken:      getEnv("LEDGER_GIST_TOKEN", ""),
		GistAPIBase:    getEnv("LEDGER_GIST_API", "https://api.github.com"),
		LedgerFile:     getEnv("LEDGER_GIST_FILE", "seen.json"),
		Exclusions:     splitAndTrim(getEnv("FILTER_EXCLUDED_IDS", "")),
		RequestTimeout: getDuration("FILTER_TIMEOUT", "10s"),
	}

	if c.GistID == "" {
		return nil, fmt.Errorf("LEDGER_GIST_ID is required")
	}
	if c.LedgerFile == "" {
		return nil, fmt.Errorf("LEDGER_GIST_FILE cannot be empty")
	}

	return c, nil
}

// LoadNormalizer builds a Normalizer config from environment variables.
func LoadNormalizer() (*Normalizer, error) {
	c := &Normalizer{
		Common:         loadCommon(),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_API_BASE", "https://api.openai.com/v1/chat/completions"),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		RequestTimeout: getDuration("NORMALIZER_TIMEOUT", "60s"),
		MaxAttempts:    getInt("NORMALIZER_MAX_ATTEMPTS", 4),
		BackoffBase:    getDuration("NORMALIZER_BACKOFF_BASE", "1s"),
		BackoffMax:     getDuration("NORMALIZER_BACKOFF_MAX", "30s"),
		Concurrency:    getInt("NORMALIZER_CONCURRENCY", 4),
	}

	if c.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	if c.MaxAttempts <= 0 {
		return nil, fmt.Errorf("NORMALIZER_MAX_ATTEMPTS must be positive")
	}
	if c.Concurrency <= 0 {
		return nil, fmt.Errorf("NORMALIZER_CONCURRENCY must be positive")
	}
	if c.BackoffBase <= 0 || c.BackoffMax < c.BackoffBase {
		return nil, fmt.Errorf("normalizer backoff window is invalid")
	}

	return c, nil
}

// LoadPublisher builds a Publisher config from environment variables.
func LoadPublisher() (*Publisher, error) {
	c := &Publisher{
		Common:         loadCommon(),
		Elastic:        loadElastic(),
		MaxAttempts:    getInt("PUBLISHER_MAX_ATTEMPTS", 4),
		BackoffBase:    getDuration("PUBLISHER_BACKOFF_BASE", "1s"),
		RequestTimeout: getDuration("PUBLISHER_TIMEOUT", "10s"),
	}

	if c.MaxAttempts <= 0 {
		return nil, fmt.Errorf("PUBLISHER_MAX_ATTEMPTS must be positive")
	}
	if c.BackoffBase <= 0 {
		return nil, fmt.Errorf("PUBLISHER_BACKOFF_BASE must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Elastic:     loadElastic(),
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		DataDir:  getEnv("PIPELINE_DATA_DIR", "data"),
		Interval: getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:   getDuration("RETENTION_MAX_AGE", "720h"),
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
