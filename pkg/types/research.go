// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// EnhancementResult is the outcome of validating and enhancing a raw topic
// prompt. Produced once per prompt; never persisted standalone.
// Per prd001-prompt-enhancement R1.1.
type EnhancementResult struct {
	// IsValid reports whether the prompt was accepted.
	IsValid bool `json:"is_valid" yaml:"is_valid"`

	// EnhancedText is the rewritten prompt when IsValid is true.
	EnhancedText string `json:"enhanced_text,omitempty" yaml:"enhanced_text,omitempty"`

	// Warnings carries the rejection reason and improvement suggestions
	// when IsValid is false.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Source attributes a research finding or framework to a web result.
// Per prd002-research R4.1.
type Source struct {
	// Title is the web result's title.
	Title string `json:"title" yaml:"title"`

	// URL is the web result's address.
	URL string `json:"url" yaml:"url"`

	// Domain is the URL's host with any "www." prefix stripped.
	Domain string `json:"domain" yaml:"domain"`

	// Date is the publication date string when the backend reports one.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`
}

// ResearchFinding is a statistic or fact extracted from search results.
type ResearchFinding struct {
	// StatText is the headline statistic or claim.
	StatText string `json:"stat_text" yaml:"stat_text"`

	// Context explains where the statistic applies.
	Context string `json:"context" yaml:"context"`

	// Source attributes the finding to a search result.
	Source Source `json:"source" yaml:"source"`
}

// Framework is a named analytical model relevant to the topic.
type Framework struct {
	// Name is the framework's name (e.g. "AARRR funnel").
	Name string `json:"name" yaml:"name"`

	// Description summarizes the framework in one or two sentences.
	Description string `json:"description" yaml:"description"`

	// Source attributes the framework to a search result.
	Source Source `json:"source" yaml:"source"`
}

// ResearchBundle collects everything the research stage produced for a topic.
type ResearchBundle struct {
	// Topic is the enhanced prompt the research ran against.
	Topic string `json:"topic" yaml:"topic"`

	// Findings are extracted statistics and facts.
	Findings []ResearchFinding `json:"findings" yaml:"findings"`

	// Frameworks are extracted analytical models.
	Frameworks []Framework `json:"frameworks" yaml:"frameworks"`
}

// SearchResult is one web search hit as returned by a search backend.
// Per prd002-research R2.1.
type SearchResult struct {
	// Title is the result's title.
	Title string `json:"title" yaml:"title"`

	// URL is the result's address.
	URL string `json:"url" yaml:"url"`

	// Snippet is the backend's text excerpt for the result.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Date is the publication date string, if the backend reports one.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	// Source names the backend that produced the result.
	Source string `json:"source" yaml:"source"`
}
