// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// searchStub returns scripted results or errors keyed by query.
type searchStub struct {
	results map[string][]types.SearchResult
	errs    map[string]error
	queries []string
}

func (s *searchStub) Name() string { return "stub" }

func (s *searchStub) Search(_ context.Context, query string, _ types.SearchConfig) ([]types.SearchResult, error) {
	s.queries = append(s.queries, query)
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	return s.results[query], nil
}

func testConfig() types.ResearchConfig {
	return types.ResearchConfig{InterQueryDelay: time.Millisecond, MaxExtractionResults: 15}
}

func result(title, url string) types.SearchResult {
	return types.SearchResult{Title: title, URL: url, Snippet: title + " snippet", Source: "stub"}
}

const extractionJSON = `{
	"findings": [
		{"stat_text": "Adoption grew 40%", "context": "enterprise segment"},
		{"stat_text": "Costs fell by half", "context": "since 2024"},
		{"stat_text": "Installers doubled", "context": "residential"}
	],
	"frameworks": [
		{"name": "Diffusion of Innovations", "description": "Adoption curve model."}
	]
}`

func TestPlanQueriesSimpleTopic(t *testing.T) {
	mock := &completion.Mock{}
	r := &Researcher{Completion: mock, Config: testConfig()}

	queries := r.PlanQueries(context.Background(), "electric vehicle adoption in Norway")
	if len(queries) != 1 || queries[0] != "electric vehicle adoption in Norway" {
		t.Errorf("PlanQueries = %v, want the topic verbatim", queries)
	}
	if len(mock.Calls) != 0 {
		t.Errorf("simple topic made %d completion calls, want 0", len(mock.Calls))
	}
}

func TestPlanQueriesComplexTopic(t *testing.T) {
	topic := "the global rollout of heat pumps, including subsidies, supply chains, and installer shortages"

	tests := []struct {
		name  string
		reply string
		err   error
		want  []string
	}{
		{
			name:  "parsed plan",
			reply: `["heat pump subsidies 2026", "heat pump supply chain", "heat pump installer shortage"]`,
			want:  []string{"heat pump subsidies 2026", "heat pump supply chain", "heat pump installer shortage"},
		},
		{
			name:  "fenced plan",
			reply: "```json\n[\"a\", \"b\", \"c\"]\n```",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "unparseable reply falls back",
			reply: "Here are some queries you could try:",
			want:  []string{topic},
		},
		{
			name:  "too few queries falls back",
			reply: `["only one"]`,
			want:  []string{topic},
		},
		{
			name:  "too many queries falls back",
			reply: `["a", "b", "c", "d", "e"]`,
			want:  []string{topic},
		},
		{
			name: "completion error falls back",
			err:  errors.New("backend down"),
			want: []string{topic},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &completion.Mock{
				Responses: []completion.Result{{Text: tt.reply}},
				Errs:      []error{tt.err},
			}
			r := &Researcher{Completion: mock, Config: testConfig()}

			got := r.PlanQueries(context.Background(), topic)
			if len(got) != len(tt.want) {
				t.Fatalf("PlanQueries = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("query %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResearchToleratesPartialQueryFailure(t *testing.T) {
	topic := strings.Repeat("word ", 21) + "extra" // forces the 3-query plan

	stub := &searchStub{
		results: map[string][]types.SearchResult{
			"q2": {result("Only survivor", "https://example.com/a"), result("Second", "https://example.com/b")},
		},
		errs: map[string]error{
			"q1": errors.New("rate limited"),
			"q3": errors.New("timeout"),
		},
	}
	mock := &completion.Mock{Responses: []completion.Result{
		{Text: `["q1", "q2", "q3"]`},
		{Text: extractionJSON},
	}}

	r := &Researcher{Completion: mock, Search: stub, Config: testConfig()}
	bundle, err := r.Research(context.Background(), topic)
	if err != nil {
		t.Fatalf("Research with one surviving query: %v", err)
	}
	if len(stub.queries) != 3 {
		t.Errorf("ran %d queries, want all 3 attempted", len(stub.queries))
	}
	if len(bundle.Findings) != 3 {
		t.Fatalf("got %d findings, want 3", len(bundle.Findings))
	}
	// Finding i is attributed to result i; the third finding has no
	// matching result and clamps to the first.
	wantSources := []string{"https://example.com/a", "https://example.com/b", "https://example.com/a"}
	for i, want := range wantSources {
		if got := bundle.Findings[i].Source.URL; got != want {
			t.Errorf("finding %d source = %q, want %q", i, got, want)
		}
	}
	if len(bundle.Frameworks) != 1 || bundle.Frameworks[0].Source.URL != "https://example.com/a" {
		t.Errorf("framework attribution = %+v, want the first result", bundle.Frameworks)
	}
}

func TestExtractionAttributesPositionally(t *testing.T) {
	stub := &searchStub{results: map[string][]types.SearchResult{
		"topic": {result("First", "https://example.com/0"), result("Second", "https://example.com/1")},
	}}
	mock := &completion.Mock{Responses: []completion.Result{
		{Text: `{
			"findings": [
				{"stat_text": "one", "context": "c"},
				{"stat_text": "two", "context": "c"}
			],
			"frameworks": [{"name": "F", "description": "d"}]
		}`},
	}}

	r := &Researcher{Completion: mock, Search: stub, Config: testConfig()}
	bundle, err := r.Research(context.Background(), "topic")
	if err != nil {
		t.Fatalf("Research: %v", err)
	}

	if got := bundle.Findings[0].Source.URL; got != "https://example.com/0" {
		t.Errorf("finding 0 attributed to %q, want positional result 0", got)
	}
	if got := bundle.Findings[1].Source.URL; got != "https://example.com/1" {
		t.Errorf("finding 1 attributed to %q, want positional result 1", got)
	}
	if got := bundle.Frameworks[0].Source.URL; got != "https://example.com/0" {
		t.Errorf("framework 0 attributed to %q, want positional result 0", got)
	}
}

func TestResearchFailsWhenAllQueriesFail(t *testing.T) {
	stub := &searchStub{errs: map[string]error{
		"short topic": errors.New("unreachable"),
	}}
	mock := &completion.Mock{}

	r := &Researcher{Completion: mock, Search: stub, Config: testConfig()}
	_, err := r.Research(context.Background(), "short topic")
	if err == nil {
		t.Fatal("Research succeeded with zero results")
	}
	if !strings.Contains(err.Error(), "no search results") {
		t.Errorf("error = %v, want a user-facing no-results message", err)
	}
	if len(mock.Calls) != 0 {
		t.Error("extraction ran despite an empty result union")
	}
}

func TestResearchFailsOnUnparseableExtraction(t *testing.T) {
	stub := &searchStub{results: map[string][]types.SearchResult{
		"topic": {result("A", "https://example.com/a")},
	}}
	mock := &completion.Mock{Responses: []completion.Result{
		{Text: "I could not find anything structured."},
	}}

	r := &Researcher{Completion: mock, Search: stub, Config: testConfig()}
	_, err := r.Research(context.Background(), "topic")
	if err == nil {
		t.Fatal("Research succeeded with an unparseable extraction reply")
	}
	if !strings.Contains(err.Error(), "research:") {
		t.Errorf("error = %v, want the stage prefix", err)
	}
}

func TestResearchDeduplicatesAndReportsSources(t *testing.T) {
	topic := strings.Repeat("w ", 25)

	dup := result("Duplicate", "https://example.com/dup")
	stub := &searchStub{
		results: map[string][]types.SearchResult{
			"q1": {dup, result("A", "https://example.com/a")},
			"q2": {dup, result("B", "https://example.com/b")},
		},
	}
	mock := &completion.Mock{Responses: []completion.Result{
		{Text: `["q1", "q2", "q3"]`},
		{Text: `{"findings": [{"stat_text": "s", "context": "c"}], "frameworks": []}`},
	}}

	var seen []string
	r := &Researcher{
		Completion: mock,
		Search:     stub,
		Config:     testConfig(),
		OnSource:   func(res types.SearchResult) { seen = append(seen, res.URL) },
	}
	if _, err := r.Research(context.Background(), topic); err != nil {
		t.Fatalf("Research: %v", err)
	}

	want := []string{"https://example.com/dup", "https://example.com/a", "https://example.com/b"}
	if len(seen) != len(want) {
		t.Fatalf("OnSource saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("source %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestPrioritizeStablePartition(t *testing.T) {
	in := []types.SearchResult{
		result("blog post", "https://randoblog.io/1"),
		result("wiki", "https://en.wikipedia.org/wiki/X"),
		result("forum", "https://forum.example.com/2"),
		result("reuters", "https://www.reuters.com/article"),
	}

	got := Prioritize(in)
	want := []string{
		"https://en.wikipedia.org/wiki/X",
		"https://www.reuters.com/article",
		"https://randoblog.io/1",
		"https://forum.example.com/2",
	}
	for i := range want {
		if got[i].URL != want[i] {
			t.Errorf("position %d = %q, want %q", i, got[i].URL, want[i])
		}
	}
}

func TestResearchCapsExtractionInput(t *testing.T) {
	var results []types.SearchResult
	for i := 0; i < 30; i++ {
		results = append(results, result(fmt.Sprintf("R%d", i), fmt.Sprintf("https://example.com/%d", i)))
	}
	stub := &searchStub{results: map[string][]types.SearchResult{"topic": results}}
	mock := &completion.Mock{Responses: []completion.Result{
		{Text: `{"findings": [], "frameworks": []}`},
	}}

	cfg := testConfig()
	cfg.MaxExtractionResults = 15
	r := &Researcher{Completion: mock, Search: stub, Config: cfg}
	if _, err := r.Research(context.Background(), "topic"); err != nil {
		t.Fatalf("Research: %v", err)
	}

	prompt := mock.Calls[0][1]
	if !strings.Contains(prompt, "[14]") {
		t.Error("extraction prompt missing result 14")
	}
	if strings.Contains(prompt, "[15]") {
		t.Error("extraction prompt includes results past the cap")
	}
}
