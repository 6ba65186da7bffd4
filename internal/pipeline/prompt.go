// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the outline generation stages: prompt
// enhancement, optional web research, and streamed outline drafting.
// prompt.go holds the outline drafting instructions.
// Implements: prd003-outline-streaming (R1-R3);
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

// outlineSystem instructs the model to emit the markdown convention the
// incremental parser consumes: one slide per "---"-separated block, a
// "## " heading, and "- " bullets.
const outlineSystem = `You are drafting a presentation outline.

Produce 6 to 10 slides in exactly this markdown form, with slides separated
by a line containing only three dashes:

## Slide Title
- first bullet
- second bullet
---
## Next Slide Title
- bullet

Rules:
  - Every slide starts with a "## " heading line.
  - Bullets are single lines starting with "- ".
  - 2 to 4 bullets per slide.
  - No text outside this structure: no preamble, no closing remarks.`

// researchPreamble introduces extracted findings when research ran.
const researchPreamble = "Ground the outline in this research where relevant:\n"
