package types

import "time"

// HTTPConfig holds shared HTTP settings used by source adapters.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout for a single request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-survey/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retry attempts on 429, 5xx and timeouts (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SearchConfig holds settings for the aggregation pipeline.
type SearchConfig struct {
	// MaxResultsLimit is the largest max_results a query may request (default 500).
	MaxResultsLimit int `json:"max_results_limit" yaml:"max_results_limit" mapstructure:"max_results_limit"`

	// PageCap is the maximum number of pages fetched per source and query
	// fragment (default 4).
	PageCap int `json:"page_cap" yaml:"page_cap" mapstructure:"page_cap"`

	// PageSize is the requested page size; zero derives it from max_results.
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// OverfetchFactor multiplies max_results to decide when a source has
	// fetched enough to survive filtering (default 3).
	OverfetchFactor int `json:"overfetch_factor" yaml:"overfetch_factor" mapstructure:"overfetch_factor"`

	// FetchTimeout bounds each adapter Fetch call (default 30s).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout" mapstructure:"fetch_timeout"`

	// MaxQueryCombinations caps the expansion of keyword groups (default 16).
	MaxQueryCombinations int `json:"max_query_combinations" yaml:"max_query_combinations" mapstructure:"max_query_combinations"`

	// DefaultSources is used when a parsed query names no sources.
	DefaultSources []string `json:"default_sources" yaml:"default_sources" mapstructure:"default_sources"`

	// MaxSources caps the number of enabled sources per query (default 3).
	MaxSources int `json:"max_sources" yaml:"max_sources" mapstructure:"max_sources"`
}

// SourcesConfig holds per-backend credentials and rate limits.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// SemanticScholarRPS is the request rate for Semantic Scholar (default 0.5
	// without a key, 1 with one).
	SemanticScholarRPS float64 `json:"semantic_scholar_rps" yaml:"semantic_scholar_rps" mapstructure:"semantic_scholar_rps"`

	// OpenAlexEmail is sent as mailto for OpenAlex polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// CrossrefMailto is sent as mailto for the Crossref polite pool.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty" mapstructure:"crossref_mailto"`

	// RPS is the request rate for the other backends (default 1).
	RPS float64 `json:"rps" yaml:"rps" mapstructure:"rps"`
}

// ParseErrorPolicy decides what happens when intent parsing fails.
type ParseErrorPolicy string

const (
	// PolicyFail fails the task.
	PolicyFail ParseErrorPolicy = "fail"
	// PolicyFallback searches the raw text as a single keyword group.
	PolicyFallback ParseErrorPolicy = "fallback"
)

// IntentConfig holds settings for the intent-parsing collaborator.
type IntentConfig struct {
	OnParseError ParseErrorPolicy `json:"on_parse_error" yaml:"on_parse_error" mapstructure:"on_parse_error"`
}

// TaskConfig holds settings for the async task store.
type TaskConfig struct {
	// TTL is how long a task is kept after it reaches a terminal status.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// SweepInterval is how often expired tasks are removed.
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// LogConfig selects log level and format ("text" or "json").
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// VenueConfig extends the built-in venue synonym table. Keys are canonical
// venue names, values are alternative spellings.
type VenueConfig struct {
	Synonyms map[string][]string `json:"synonyms,omitempty" yaml:"synonyms,omitempty" mapstructure:"synonyms"`
}

// Config groups all settings.
type Config struct {
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	Sources SourcesConfig `json:"sources" yaml:"sources" mapstructure:"sources"`
	Intent  IntentConfig  `json:"intent" yaml:"intent" mapstructure:"intent"`
	Tasks   TaskConfig    `json:"tasks" yaml:"tasks" mapstructure:"tasks"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Venues  VenueConfig   `json:"venues" yaml:"venues" mapstructure:"venues"`
}

// PrimarySource is the source every query must include.
const PrimarySource = "s2"

// KnownSources lists the source ids with a built-in adapter.
var KnownSources = []string{"s2", "openalex", "arxiv", "crossref"}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			MaxResultsLimit:      500,
			PageCap:              4,
			OverfetchFactor:      3,
			FetchTimeout:         30 * time.Second,
			MaxQueryCombinations: 16,
			DefaultSources:       []string{PrimarySource},
			MaxSources:           3,
		},
		Sources: SourcesConfig{
			HTTPConfig: HTTPConfig{
				Timeout:    25 * time.Second,
				UserAgent:  "paper-survey/0.1",
				MaxRetries: 5,
			},
			SemanticScholarRPS: 0.5,
			RPS:                1,
		},
		Intent: IntentConfig{OnParseError: PolicyFail},
		Tasks: TaskConfig{
			TTL:           30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: "127.0.0.1:8000"},
	}
}
