// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/internal/research"
	"github.com/pdiddy/deck-engine/internal/search"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <topic>",
	Short: "Run web research for a topic",
	Long: `Research plans search queries for the topic, runs them against the Brave
Search API, and extracts findings and frameworks from the results. Consulted
domains are reported on stderr as the queries run; the bundle is printed as
YAML on stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()

	client, err := completion.NewOpenAI(cfg.Completion)
	if err != nil {
		return err
	}
	log, err := newLogger(false)
	if err != nil {
		return err
	}
	defer log.Sync()

	r := &research.Researcher{
		Completion: client,
		Search: &search.BraveBackend{
			Client: &http.Client{Timeout: cfg.Search.Timeout},
			APIKey: cfg.Search.BraveAPIKey,
		},
		Config:    cfg.Research,
		SearchCfg: cfg.Search,
		Log:       log,
		OnQuery: func(q string) {
			fmt.Fprintf(os.Stderr, "searching: %s\n", q)
		},
		OnSource: func(res types.SearchResult) {
			fmt.Fprintf(os.Stderr, "  source: %s\n", search.Domain(res.URL))
		},
	}

	bundle, err := r.Research(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(bundle)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, string(out))
	return nil
}
