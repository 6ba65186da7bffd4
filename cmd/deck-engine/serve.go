// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/internal/generation"
	"github.com/pdiddy/deck-engine/internal/pipeline"
	"github.com/pdiddy/deck-engine/internal/search"
	"github.com/pdiddy/deck-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP daemon",
	Long: `Serve hosts the engine's HTTP surface: outline streaming, generation
triggers, draft and presentation records, and the per-presentation SSE status
channel. Runs until SIGINT/SIGTERM, then drains in-flight generation jobs.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("bind", "", "listen address (default from config)")
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
	serveCmd.Flags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
		cfg.Server.Bind = bind
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	client, err := completion.NewOpenAI(cfg.Completion)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	brave := &search.BraveBackend{
		Client: &http.Client{Timeout: cfg.Search.Timeout},
		APIKey: cfg.Search.BraveAPIKey,
	}

	h := &server.Handlers{
		Store: st,
		Controller: &generation.Controller{
			Store: st,
			Expander: &generation.CompletionExpander{
				Client:      client,
				Concurrency: cfg.Generation.SlideConcurrency,
			},
			Config: cfg.Generation,
			Log:    log,
		},
		Pipeline: &pipeline.Pipeline{
			Completion: client,
			Search:     brave,
			Store:      st,
			Research:   cfg.Research,
			SearchCfg:  cfg.Search,
			Log:        log,
		},
		Config: cfg.Server,
		Log:    log,
	}

	return server.Run(server.NewServer(h), h)
}
