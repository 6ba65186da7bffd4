// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/internal/enhance"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance <prompt>",
	Short: "Validate and enhance a topic prompt",
	Long: `Enhance runs the prompt enhancement stage on its own: the prompt is
validated and rewritten into a fuller topic description, or rejected with a
reason and suggestions. The result is printed as YAML.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnhance,
}

func init() {
	rootCmd.AddCommand(enhanceCmd)
}

func runEnhance(cmd *cobra.Command, args []string) error {
	client, err := completion.NewOpenAI(engineConfig().Completion)
	if err != nil {
		return err
	}

	result, err := enhance.Enhance(cmd.Context(), client, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, string(out))

	if !result.IsValid {
		return fmt.Errorf("prompt rejected")
	}
	return nil
}
