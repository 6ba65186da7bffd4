// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries web search APIs and returns uniform results.
// Implements: prd002-research (R2);
//
//	docs/ARCHITECTURE § Search Service.
package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// Backend searches a single web search API. Each backend implements this
// interface per the Strategy pattern so the research stage and tests can
// swap providers (R2.2).
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.SearchResult, error)
}

// Domain extracts the host component of rawURL with any "www." prefix
// stripped. It returns "" for unparseable URLs (R4.2).
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// FaviconURL returns a best-effort favicon address for a domain.
func FaviconURL(domain string) string {
	if domain == "" {
		return ""
	}
	return "https://" + domain + "/favicon.ico"
}
