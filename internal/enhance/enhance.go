// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enhance validates and rewrites raw topic prompts through the
// completion service.
// Implements: prd001-prompt-enhancement (R1-R4);
//
//	docs/ARCHITECTURE § Prompt Enhancement.
package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const (
	// minPromptLen and maxPromptLen bound prompts accepted without a
	// completion call (R1.2).
	minPromptLen = 3
	maxPromptLen = 1000

	// rejectionSentinel prefixes a free-text rejection line. Kept as a
	// compatibility fallback for models that ignore the JSON instruction.
	rejectionSentinel = "REJECTED:"

	// suggestionsMarker separates the rejection reason from the
	// bracket-numbered suggestion list.
	suggestionsMarker = "Suggestions:"

	// maxSuggestions caps how many alternatives a rejection carries.
	maxSuggestions = 2
)

// suggestionSplit matches the (1)/(2) markers delimiting suggestions.
var suggestionSplit = regexp.MustCompile(`\(\d\)`)

const systemPrompt = `You validate and improve presentation topics. Respond with a single JSON object and nothing else:
  {"valid": true, "text": "<improved topic prompt>"}
or
  {"valid": false, "reason": "<why the topic cannot work>", "suggestions": ["<alternative 1>", "<alternative 2>"]}
An improved prompt names the audience, the angle, and the desired takeaway in one or two sentences. Reject topics that are gibberish, unsafe, or too vague to research. Offer at most two suggestions.`

// structuredResponse is the JSON tagged union the model is asked for (R2.1).
type structuredResponse struct {
	Valid       bool     `json:"valid"`
	Text        string   `json:"text"`
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions"`
}

// Enhance validates raw and asks the completion service to improve it.
// Prompts outside the length bounds are rejected locally without any
// external call (R1.2). Completion errors propagate as a stage failure;
// the single retry lives inside the completion client (R3.2).
func Enhance(ctx context.Context, client completion.Client, raw string) (types.EnhancementResult, error) {
	trimmed := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(trimmed); n < minPromptLen {
		return types.EnhancementResult{
			Warnings: []string{fmt.Sprintf("prompt too short: %d characters, need at least %d", n, minPromptLen)},
		}, nil
	} else if n > maxPromptLen {
		return types.EnhancementResult{
			Warnings: []string{fmt.Sprintf("prompt too long: %d characters, limit is %d", n, maxPromptLen)},
		}, nil
	}

	res, err := client.Complete(ctx, systemPrompt, trimmed)
	if err != nil {
		return types.EnhancementResult{}, fmt.Errorf("enhancement: %w", err)
	}

	return parseResponse(res.Text), nil
}

// parseResponse interprets the model's reply: the structured JSON form
// first, then the legacy sentinel convention, then plain enhanced text.
func parseResponse(text string) types.EnhancementResult {
	trimmed := strings.TrimSpace(text)

	var sr structuredResponse
	if err := json.Unmarshal([]byte(trimmed), &sr); err == nil && (sr.Valid && sr.Text != "" || !sr.Valid && sr.Reason != "") {
		if sr.Valid {
			return types.EnhancementResult{IsValid: true, EnhancedText: strings.TrimSpace(sr.Text)}
		}
		warnings := []string{strings.TrimSpace(sr.Reason)}
		for _, s := range sr.Suggestions {
			if len(warnings) > maxSuggestions {
				break
			}
			if s = strings.TrimSpace(s); s != "" {
				warnings = append(warnings, s)
			}
		}
		return types.EnhancementResult{Warnings: warnings}
	}

	if strings.HasPrefix(trimmed, rejectionSentinel) {
		return parseRejection(trimmed)
	}

	return types.EnhancementResult{IsValid: true, EnhancedText: trimmed}
}

// parseRejection extracts the reason and suggestions from a sentinel-form
// rejection: text before the marker is the reason, text after is split on
// the (digit) pattern, trimmed, quote-stripped, empties dropped, at most
// two kept (R2.3).
func parseRejection(text string) types.EnhancementResult {
	body := strings.TrimSpace(strings.TrimPrefix(text, rejectionSentinel))

	reason := body
	var suggestionText string
	if i := strings.Index(body, suggestionsMarker); i >= 0 {
		reason = strings.TrimSpace(body[:i])
		suggestionText = body[i+len(suggestionsMarker):]
	}

	warnings := make([]string, 0, 1+maxSuggestions)
	if reason != "" {
		warnings = append(warnings, reason)
	}
	var kept int
	for _, part := range suggestionSplit.Split(suggestionText, -1) {
		if kept == maxSuggestions {
			break
		}
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"'`)
		part = strings.TrimSpace(part)
		if part != "" {
			warnings = append(warnings, part)
			kept++
		}
	}
	if len(warnings) == 0 {
		warnings = append(warnings, "prompt rejected")
	}

	return types.EnhancementResult{Warnings: warnings}
}
