// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/internal/deckfile"
	"github.com/pdiddy/deck-engine/internal/pipeline"
	"github.com/pdiddy/deck-engine/internal/search"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <prompt>",
	Short: "Run the outline pipeline for a prompt",
	Long: `Outline runs the full pipeline locally: enhancement, optional research,
and streamed outline drafting. Pipeline events are printed to stderr as JSON
lines while the stream runs; the finished outline is written as YAML to stdout
or to --output. The draft is persisted in the configured store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOutline,
}

func init() {
	outlineCmd.Flags().Bool("research", false, "run web research before drafting")
	outlineCmd.Flags().String("output", "", "write the outline YAML to this file instead of stdout")
	outlineCmd.Flags().Bool("events", false, "print pipeline events to stderr as JSON lines")

	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()

	client, err := completion.NewOpenAI(cfg.Completion)
	if err != nil {
		return err
	}
	st, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()
	log, err := newLogger(false)
	if err != nil {
		return err
	}
	defer log.Sync()

	p := &pipeline.Pipeline{
		Completion: client,
		Search: &search.BraveBackend{
			Client: &http.Client{Timeout: cfg.Search.Timeout},
			APIKey: cfg.Search.BraveAPIKey,
		},
		Store:     st,
		Research:  cfg.Research,
		SearchCfg: cfg.Search,
		Log:       log,
	}

	doResearch, _ := cmd.Flags().GetBool("research")
	showEvents, _ := cmd.Flags().GetBool("events")
	owner, _ := rootCmd.PersistentFlags().GetString("owner")

	enc := json.NewEncoder(os.Stderr)
	sink := func(ev types.StreamEvent) {
		if showEvents {
			enc.Encode(ev)
			return
		}
		// Default progress output: one line per completed slide.
		if ev.Type == types.EventSlideComplete && ev.Parsed != nil {
			fmt.Fprintf(os.Stderr, "slide %d: %s\n", ev.Index, ev.Parsed.Title)
		}
	}

	out, err := p.Run(cmd.Context(), pipeline.RunInput{
		Prompt:   strings.Join(args, " "),
		OwnerID:  owner,
		Research: doResearch,
	}, sink)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "draft %s created with %d slides (%d tokens)\n",
		out.Draft.ID, len(out.Outline.Slides), out.Usage.Total)

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		return deckfile.SaveOutline(path, &out.Outline)
	}
	data, err := yaml.Marshal(out.Outline)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, string(data))
	return nil
}
