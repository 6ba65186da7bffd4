// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research turns an enhanced topic prompt into a bundle of
// findings and frameworks backed by web search results.
// prompt.go holds the completion instructions for query planning and
// extraction.
// Implements: prd002-research (R1, R3);
//
//	docs/ARCHITECTURE § Research.
package research

// queryPlanSystem instructs the model to diversify a complex topic into
// search queries. The reply must be a bare JSON array so the parser can
// reject anything else and fall back to a single query.
const queryPlanSystem = `You are a research assistant planning web searches for a presentation topic.

Given the topic, produce exactly 3 diversified search queries that together
cover: (1) current statistics and data, (2) expert analysis or frameworks,
(3) recent developments or trends.

Respond with a JSON array of 3 strings and nothing else. Example:
["query one", "query two", "query three"]`

// extractionSystem instructs the model to distill findings and frameworks
// from numbered search results. Items are attributed to results by list
// position, so the reply is asked to follow the result order.
const extractionSystem = `You are a research analyst distilling web search results for a presentation.

You are given a numbered list of search results (title, URL, snippet).
Extract:
  - 5 to 10 findings: concrete statistics or factual claims useful on a slide.
  - 2 to 4 frameworks: named analytical models or methodologies relevant to the topic.

List findings and frameworks in the order of the results they come from.

Respond with JSON and nothing else, in this shape:
{
  "findings": [{"stat_text": "...", "context": "..."}],
  "frameworks": [{"name": "...", "description": "..."}]
}`
