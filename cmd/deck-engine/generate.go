// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/deckfile"
	"github.com/pdiddy/deck-engine/internal/status"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate <draft-id>",
	Short: "Trigger slide generation against a running daemon",
	Long: `Generate asks a running deck-engine daemon to expand a draft's outline
into full slides. The trigger returns immediately with the new presentation id;
with --watch the command subscribes to the daemon's status channel and follows
the job to its terminal status.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("server", "http://127.0.0.1:8080", "daemon base URL")
	generateCmd.Flags().String("outline", "", "outline YAML file to generate from instead of the draft's stored outline")
	generateCmd.Flags().String("citation-style", "", "citation style for slide content")
	generateCmd.Flags().String("theme", "", "deck theme stored on the presentation")
	generateCmd.Flags().Bool("watch", false, "follow the job on the status channel until it finishes")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	base, _ := cmd.Flags().GetString("server")
	style, _ := cmd.Flags().GetString("citation-style")
	theme, _ := cmd.Flags().GetString("theme")
	owner, _ := rootCmd.PersistentFlags().GetString("owner")

	payload := map[string]any{
		"draftId":       args[0],
		"ownerId":       owner,
		"citationStyle": style,
		"theme":         theme,
	}
	if path, _ := cmd.Flags().GetString("outline"); path != "" {
		outline, err := deckfile.LoadOutline(path)
		if err != nil {
			return err
		}
		payload["outline"] = outline
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
		base+"/api/generations", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var e struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("trigger refused (%s): %s", resp.Status, e.Message)
	}

	var trigger struct {
		PresentationID string `json:"presentationId"`
		Status         string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&trigger); err != nil {
		return fmt.Errorf("decoding trigger response: %w", err)
	}
	fmt.Fprintf(os.Stdout, "presentation %s: %s\n", trigger.PresentationID, trigger.Status)

	if watch, _ := cmd.Flags().GetBool("watch"); !watch {
		return nil
	}

	c := &status.Client{BaseURL: base, Owner: owner}
	sub := c.Subscribe(cmd.Context(), trigger.PresentationID)
	var last types.Presentation
	for p := range sub.Updates {
		last = p
		fmt.Fprintf(os.Stderr, "status: %s (version %d)\n", p.Status, p.Version)
	}

	switch last.Status {
	case types.StatusCompleted:
		fmt.Fprintf(os.Stdout, "completed: %d slides, %d tokens\n", len(last.Slides), last.TokenUsage.Total)
		return nil
	case types.StatusFailed:
		return fmt.Errorf("generation failed: %s", last.ErrorMessage)
	default:
		return fmt.Errorf("status channel ended while the job was still %s", last.Status)
	}
}
