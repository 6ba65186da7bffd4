// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deck-engine/0.1"). Per prd002-research R5.2.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CompletionConfig holds shared settings for stages that call the
// completion service. Per prd001-prompt-enhancement R3.1.
type CompletionConfig struct {
	// Model is the completion model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the completion API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint, for proxies and tests.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// SearchConfig holds settings for the web search collaborator.
// Per prd002-research R2.3, R5.1-R5.4.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of results per query (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// BraveAPIKey authenticates against the Brave Search API.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty"`
}

// ResearchConfig holds settings for the research stage.
// Per prd002-research R1.4, R3.2.
type ResearchConfig struct {
	// InterQueryDelay is the delay between consecutive search queries,
	// respecting upstream rate limits (default 1s).
	InterQueryDelay time.Duration `json:"inter_query_delay" yaml:"inter_query_delay"`

	// MaxExtractionResults caps how many prioritized results are handed to
	// the extraction prompt (default 15).
	MaxExtractionResults int `json:"max_extraction_results" yaml:"max_extraction_results"`
}

// GenerationConfig holds settings for the background generation job
// controller. Per prd004-generation-jobs R3.1-R3.3.
type GenerationConfig struct {
	// MaxConcurrentJobs caps detached generation jobs running at once
	// (default 4).
	MaxConcurrentJobs int `json:"max_concurrent_jobs" yaml:"max_concurrent_jobs"`

	// SlideConcurrency caps concurrent slide expansions within one job
	// (default 3).
	SlideConcurrency int `json:"slide_concurrency" yaml:"slide_concurrency"`
}

// StoreConfig selects and configures the record store backend.
// Per prd006-record-store R1.1.
type StoreConfig struct {
	// Backend selects the store: "sqlite" or "memory".
	Backend string `json:"backend" yaml:"backend"`

	// Path is the SQLite database file path (e.g. "data/deck-engine.db").
	Path string `json:"path" yaml:"path"`
}

// ServerConfig holds settings for the HTTP daemon.
// Per prd007-http-api R1.1, prd005-status-channel R3.1.
type ServerConfig struct {
	// Bind is the listen address (default "127.0.0.1").
	Bind string `json:"bind" yaml:"bind"`

	// Port is the listen port (default 8080).
	Port int `json:"port" yaml:"port"`

	// StatusInterval is how often the status channel re-reads a
	// presentation and pushes it (default 2s).
	StatusInterval time.Duration `json:"status_interval" yaml:"status_interval"`
}

// EngineConfig groups all component configurations for the daemon and CLI.
type EngineConfig struct {
	Completion CompletionConfig `json:"completion" yaml:"completion"`
	Search     SearchConfig     `json:"search" yaml:"search"`
	Research   ResearchConfig   `json:"research" yaml:"research"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}
