// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/deck-engine/internal/secrets"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const defaultUserAgent = "deck-engine/0.1"

func init() {
	viper.SetDefault("completion.model", "gpt-4o-mini")
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.timeout", 30*time.Second)
	viper.SetDefault("research.inter_query_delay", time.Second)
	viper.SetDefault("research.max_extraction_results", 15)
	viper.SetDefault("generation.max_concurrent_jobs", 4)
	viper.SetDefault("generation.slide_concurrency", 3)
	viper.SetDefault("store.backend", "sqlite")
	viper.SetDefault("store.path", "data/deck-engine.db")
	viper.SetDefault("server.bind", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.status_interval", 2*time.Second)
}

// engineConfig assembles the full configuration from viper and the
// loaded secrets. Config file values win over secrets.
func engineConfig() types.EngineConfig {
	return types.EngineConfig{
		Completion: types.CompletionConfig{
			Model:   viper.GetString("completion.model"),
			APIKey:  secrets.Value(loadedSecrets, secrets.KeyOpenAI, viper.GetString("completion.api_key")),
			BaseURL: viper.GetString("completion.base_url"),
		},
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: defaultUserAgent,
			},
			MaxResults:  viper.GetInt("search.max_results"),
			BraveAPIKey: secrets.Value(loadedSecrets, secrets.KeyBrave, viper.GetString("search.brave_api_key")),
		},
		Research: types.ResearchConfig{
			InterQueryDelay:      viper.GetDuration("research.inter_query_delay"),
			MaxExtractionResults: viper.GetInt("research.max_extraction_results"),
		},
		Generation: types.GenerationConfig{
			MaxConcurrentJobs: viper.GetInt("generation.max_concurrent_jobs"),
			SlideConcurrency:  viper.GetInt("generation.slide_concurrency"),
		},
		Store: types.StoreConfig{
			Backend: viper.GetString("store.backend"),
			Path:    viper.GetString("store.path"),
		},
		Server: types.ServerConfig{
			Bind:           viper.GetString("server.bind"),
			Port:           viper.GetInt("server.port"),
			StatusInterval: viper.GetDuration("server.status_interval"),
		},
	}
}
