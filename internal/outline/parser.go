// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outline incrementally parses a streamed markdown-like outline
// into discrete slides. Chunk boundaries are arbitrary, so the parser
// buffers input and only acts on confirmed slide separators.
// Implements: prd003-outline-streaming (R1-R3);
//
//	docs/ARCHITECTURE § Outline Streaming.
package outline

import (
	"strings"

	"github.com/pdiddy/deck-engine/pkg/types"
)

const (
	// headingMarker introduces a slide title line.
	headingMarker = "## "

	// bulletMarker introduces a bullet line.
	bulletMarker = "- "

	// separator is the token whose whole-line occurrence ends a slide.
	separator = "---"
)

// Emitter receives parser output. ContentChunk fires once per fed chunk,
// unconditionally and before any boundary handling; SlideComplete fires
// once per recognized slide, in stream order.
type Emitter interface {
	ContentChunk(chunk string)
	SlideComplete(slide types.OutlineSlide)
}

// Parser turns a live chunk stream into slides. The buffer and index are
// exclusive to one generation run; Parser is not safe for concurrent use.
type Parser struct {
	emitter    Emitter
	buf        strings.Builder
	slideIndex int
}

// NewParser returns a Parser that reports to emitter.
func NewParser(emitter Emitter) *Parser {
	return &Parser{emitter: emitter}
}

// SlideCount returns how many slides have been emitted so far.
func (p *Parser) SlideCount() int { return p.slideIndex }

// Feed appends one chunk, forwards it raw, and emits every slide whose
// terminating separator is now confirmed. A separator that sits at the
// very end of the buffer without a trailing newline is ambiguous, since
// the next chunk could extend the line, so it is deferred rather than
// consumed (R2.3).
func (p *Parser) Feed(chunk string) {
	p.emitter.ContentChunk(chunk)
	p.buf.WriteString(chunk)

	b := p.buf.String()
	for {
		start, end, ok := confirmedBoundary(b)
		if !ok {
			break
		}
		p.emitFragment(b[:start])
		b = b[end:]
	}
	p.buf.Reset()
	p.buf.WriteString(b)
}

// Flush parses whatever remains in the buffer as the final slide, which by
// definition has no trailing separator (R2.4). A separator left dangling
// at the buffer tail is resolved as a boundary first.
func (p *Parser) Flush() {
	b := p.buf.String()
	p.buf.Reset()

	for {
		start, end, ok := confirmedBoundary(b)
		if !ok {
			break
		}
		p.emitFragment(b[:start])
		b = b[end:]
	}

	// End of stream: a separator exactly at the tail is no longer
	// ambiguous.
	if start, ok := tailSeparator(b); ok {
		p.emitFragment(b[:start])
		return
	}

	p.emitFragment(b)
}

// emitFragment parses one separator-delimited fragment and emits it when a
// title line is present. Titleless fragments are dropped, which absorbs a
// leading stray separator (R2.5).
func (p *Parser) emitFragment(fragment string) {
	if strings.TrimSpace(fragment) == "" {
		return
	}
	title, bullets, ok := parseSlideMarkdown(fragment)
	if !ok {
		return
	}
	slide := types.OutlineSlide{
		Index:   p.slideIndex,
		Title:   title,
		Bullets: bullets,
	}
	p.slideIndex++
	p.emitter.SlideComplete(slide)
}

// confirmedBoundary locates the first separator occupying a whole line and
// followed by a newline. It returns the byte range [start, end) covering
// the separator line including its trailing newline. A separator at the
// buffer tail with no newline yet is not confirmed.
func confirmedBoundary(b string) (start, end int, ok bool) {
	from := 0
	for {
		i := strings.Index(b[from:], separator)
		if i < 0 {
			return 0, 0, false
		}
		i += from

		atLineStart := i == 0 || b[i-1] == '\n'
		after := i + len(separator)
		if atLineStart && after < len(b) && b[after] == '\n' {
			return i, after + 1, true
		}
		from = i + 1
	}
}

// tailSeparator reports whether b ends with a separator occupying the
// final line, returning the separator's start offset.
func tailSeparator(b string) (int, bool) {
	if !strings.HasSuffix(b, separator) {
		return 0, false
	}
	start := len(b) - len(separator)
	if start == 0 || b[start-1] == '\n' {
		return start, true
	}
	return 0, false
}

// parseSlideMarkdown extracts a title and bullets from one slide fragment.
// The first heading-marked line is the title; list-marked lines are
// bullets with the marker stripped and empties discarded. An unmarked
// non-empty line after at least one bullet continues the previous bullet's
// text, appended without a separating space (R3.3).
func parseSlideMarkdown(fragment string) (title string, bullets []string, ok bool) {
	for _, line := range strings.Split(fragment, "\n") {
		// Strip leading whitespace only, so an empty bullet line ("- ")
		// still matches the list marker and is discarded rather than
		// mistaken for prose.
		stripped := strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(stripped, headingMarker):
			if title == "" {
				title = strings.TrimSpace(strings.TrimPrefix(stripped, headingMarker))
			}
		case strings.HasPrefix(stripped, bulletMarker):
			bullet := strings.TrimSpace(strings.TrimPrefix(stripped, bulletMarker))
			if bullet != "" {
				bullets = append(bullets, bullet)
			}
		default:
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && len(bullets) > 0 {
				// Soft-wrap continuation of the previous bullet.
				bullets[len(bullets)-1] += trimmed
			}
		}
	}
	if title == "" {
		return "", nil, false
	}
	return title, bullets, true
}
