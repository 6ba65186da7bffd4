// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/internal/search"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const (
	// simpleQueryMaxWords is the threshold below which a topic runs as a
	// single query instead of being diversified (R1.2).
	simpleQueryMaxWords = 20

	// planQueryCount is how many queries a diversified plan must hold; a
	// reply with any other length falls back to the verbatim topic.
	planQueryCount = 3

	defaultInterQueryDelay      = time.Second
	defaultMaxExtractionResults = 15
)

// reputableDomains are prioritized ahead of other results during ranking.
// Matching is by domain suffix so subdomains qualify.
var reputableDomains = []string{
	"wikipedia.org",
	"nature.com",
	"reuters.com",
	"nytimes.com",
	"economist.com",
	"hbr.org",
	"mckinsey.com",
	"gartner.com",
	"pewresearch.org",
	"statista.com",
	"who.int",
	"worldbank.org",
	"oecd.org",
}

// Researcher runs the research stage: plan queries, search, rank, extract.
type Researcher struct {
	Completion completion.Client
	Search     search.Backend
	Config     types.ResearchConfig
	SearchCfg  types.SearchConfig
	Log        *zap.Logger

	// OnQuery, when set, is called with each query just before it runs.
	// Used for progress reporting.
	OnQuery func(string)

	// OnSource, when set, is called once per deduplicated search result
	// as it joins the working set. Used for progress reporting.
	OnSource func(types.SearchResult)
}

func (r *Researcher) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// Research produces a bundle of findings and frameworks for topic. Query
// failures are tolerated while at least one query returns results; an
// empty union or an unparseable extraction reply fails the stage.
func (r *Researcher) Research(ctx context.Context, topic string) (types.ResearchBundle, error) {
	queries := r.PlanQueries(ctx, topic)

	results, err := r.runQueries(ctx, queries)
	if err != nil {
		return types.ResearchBundle{}, err
	}

	results = Prioritize(results)

	limit := r.Config.MaxExtractionResults
	if limit <= 0 {
		limit = defaultMaxExtractionResults
	}
	if len(results) > limit {
		results = results[:limit]
	}

	bundle, err := r.extract(ctx, topic, results)
	if err != nil {
		return types.ResearchBundle{}, err
	}
	bundle.Topic = topic
	return bundle, nil
}

// PlanQueries decides how to search for topic. Short single-clause
// topics run verbatim; anything longer is diversified into 3 queries by
// the completion backend, falling back to the verbatim topic when the
// reply does not parse (R1.2, R1.3).
func (r *Researcher) PlanQueries(ctx context.Context, topic string) []string {
	if len(strings.Fields(topic)) <= simpleQueryMaxWords && !strings.Contains(topic, ",") {
		return []string{topic}
	}

	res, err := r.Completion.Complete(ctx, queryPlanSystem, topic)
	if err != nil {
		r.logger().Warn("query planning failed, using topic verbatim", zap.Error(err))
		return []string{topic}
	}

	var queries []string
	if err := json.Unmarshal([]byte(extractJSON(res.Text)), &queries); err != nil || len(queries) != planQueryCount {
		r.logger().Warn("query plan reply did not parse as exactly three queries, using topic verbatim",
			zap.String("reply", res.Text))
		return []string{topic}
	}
	return queries
}

// runQueries executes the plan sequentially with the configured delay
// between queries, deduplicating by URL. Individual query failures are
// logged and skipped; only an empty union is fatal (R2.3, R2.4).
func (r *Researcher) runQueries(ctx context.Context, queries []string) ([]types.SearchResult, error) {
	delay := r.Config.InterQueryDelay
	if delay <= 0 {
		delay = defaultInterQueryDelay
	}

	seen := make(map[string]bool)
	var results []types.SearchResult
	var failed int

	for i, q := range queries {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("research: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		if r.OnQuery != nil {
			r.OnQuery(q)
		}
		hits, err := r.Search.Search(ctx, q, r.SearchCfg)
		if err != nil {
			failed++
			r.logger().Warn("search query failed",
				zap.String("query", q), zap.Error(err))
			continue
		}
		for _, h := range hits {
			if h.URL == "" || seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			results = append(results, h)
			if r.OnSource != nil {
				r.OnSource(h)
			}
		}
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("research: no search results were found for the topic (%d of %d queries failed)",
			failed, len(queries))
	}
	return results, nil
}

// Prioritize moves results from reputable domains to the front. The
// partition is stable: relative order within each group is preserved.
func Prioritize(results []types.SearchResult) []types.SearchResult {
	var reputable, rest []types.SearchResult
	for _, res := range results {
		if isReputable(search.Domain(res.URL)) {
			reputable = append(reputable, res)
		} else {
			rest = append(rest, res)
		}
	}
	return append(reputable, rest...)
}

func isReputable(domain string) bool {
	for _, d := range reputableDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// extractedFinding and extractedFramework mirror the extraction reply
// shape.
type extractedFinding struct {
	StatText string `json:"stat_text"`
	Context  string `json:"context"`
}

type extractedFramework struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type extractionReply struct {
	Findings   []extractedFinding   `json:"findings"`
	Frameworks []extractedFramework `json:"frameworks"`
}

// extract asks the completion backend to distill findings and frameworks
// from the ranked results, attributing each item positionally to the
// result at the same index. A reply that does not parse as JSON fails
// the stage (R3.3).
func (r *Researcher) extract(ctx context.Context, topic string, results []types.SearchResult) (types.ResearchBundle, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n\nSearch results:\n", topic)
	for i, res := range results {
		fmt.Fprintf(&sb, "[%d] %s\n    %s\n    %s\n", i, res.Title, res.URL, res.Snippet)
	}

	res, err := r.Completion.Complete(ctx, extractionSystem, sb.String())
	if err != nil {
		return types.ResearchBundle{}, fmt.Errorf("research: %w", err)
	}

	var reply extractionReply
	if err := json.Unmarshal([]byte(extractJSON(res.Text)), &reply); err != nil {
		return types.ResearchBundle{}, fmt.Errorf("research: parsing extraction reply: %w", err)
	}

	bundle := types.ResearchBundle{}
	for i, f := range reply.Findings {
		bundle.Findings = append(bundle.Findings, types.ResearchFinding{
			StatText: f.StatText,
			Context:  f.Context,
			Source:   sourceAt(results, i),
		})
	}
	for i, f := range reply.Frameworks {
		bundle.Frameworks = append(bundle.Frameworks, types.Framework{
			Name:        f.Name,
			Description: f.Description,
			Source:      sourceAt(results, i),
		})
	}
	return bundle, nil
}

// sourceAt attributes the i-th extracted item to the i-th ranked result,
// clamping past the end of the list to the first result rather than
// dropping the item (R4.3). The model may reorder or merge findings
// relative to the input, so this attribution is best-effort.
func sourceAt(results []types.SearchResult, idx int) types.Source {
	if idx < 0 || idx >= len(results) {
		idx = 0
	}
	res := results[idx]
	return types.Source{
		Title:  res.Title,
		URL:    res.URL,
		Domain: search.Domain(res.URL),
		Date:   res.Date,
	}
}

// extractJSON trims a markdown code fence if the model wrapped its reply
// in one.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
