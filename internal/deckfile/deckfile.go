// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deckfile reads and writes outline YAML files so outlines can
// move between the CLI, the editor, and a running daemon.
// Implements: prd003-outline-streaming (R5);
//
//	docs/ARCHITECTURE § Pipeline Interface.
package deckfile

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// LoadOutline reads an outline YAML file and validates it.
func LoadOutline(path string) (*types.Outline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outline: %w", err)
	}
	var outline types.Outline
	if err := yaml.Unmarshal(data, &outline); err != nil {
		return nil, fmt.Errorf("parsing outline: %w", err)
	}
	if err := Validate(&outline); err != nil {
		return nil, err
	}
	return &outline, nil
}

// SaveOutline writes the outline as YAML.
func SaveOutline(path string, outline *types.Outline) error {
	data, err := yaml.Marshal(outline)
	if err != nil {
		return fmt.Errorf("marshaling outline: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks an outline for use as generation input: at least one
// slide, non-empty titles, and gap-free ascending indexes.
func Validate(outline *types.Outline) error {
	if len(outline.Slides) == 0 {
		return fmt.Errorf("outline has no slides")
	}
	for i, s := range outline.Slides {
		if strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("slide %d has an empty title", i)
		}
		if s.Index != i {
			return fmt.Errorf("slide %d has index %d, want gap-free ascending indexes", i, s.Index)
		}
	}
	return nil
}
