package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hmkim/marketbrief/config"
	"github.com/hmkim/marketbrief/internal/logging"
	"github.com/hmkim/marketbrief/internal/resilience"
)

// NoEvidenceNotice is embedded in the prompt when no query produced
// anything, so the model knows it is working without search context.
const NoEvidenceNotice = "(no search capability available for this run; analyze from market data only)"

type searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

type excerpter interface {
	Excerpt(ctx context.Context, url string) (string, error)
}

// Gatherer runs the evidence queries concurrently and concatenates the
// formatted snippets in input order. A failing query degrades to a
// placeholder line; the gather operation itself never fails.
type Gatherer struct {
	search     searcher
	excerpt    excerpter
	breaker    *resilience.CircuitBreaker
	retry      *resilience.RetryConfig
	timeout    time.Duration
	maxResults int
}

func NewGatherer(cfg *config.Config, breaker *resilience.CircuitBreaker) *Gatherer {
	return &Gatherer{
		search:  NewTavilyClient(cfg),
		excerpt: NewPageExcerpter(),
		breaker: breaker,
		retry: &resilience.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  1 * time.Second,
			MaxDelay:   10 * time.Second,
			Multiplier: 2.0,
			// rate limits and transient network failures only; a plain
			// 4xx means the query itself is bad and retrying cannot help
			RetryIf: resilience.IsRetryable,
		},
		timeout:    time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
		maxResults: 3,
	}
}

// Gather returns one formatted text block per query, joined in the same
// order as the input queries for prompt determinism.
func (g *Gatherer) Gather(ctx context.Context, queries []string) string {
	if len(queries) == 0 || g.search == nil {
		return NoEvidenceNotice
	}

	blocks := make([]string, len(queries))
	succeeded := make([]bool, len(queries))

	grp, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		grp.Go(func() error {
			results, err := g.searchOne(gctx, query)
			if err != nil {
				logging.Log.WithField("query", query).Warnf("evidence query failed: %v", err)
				blocks[i] = fmt.Sprintf("Query: %s\n  (no results: search failed for this query)", query)
				return nil
			}
			blocks[i] = g.formatBlock(gctx, query, results)
			succeeded[i] = true
			return nil
		})
	}
	// workers only ever return nil; a per-query failure degrades instead
	_ = grp.Wait()

	gotAny := false
	for _, ok := range succeeded {
		gotAny = gotAny || ok
	}
	if !gotAny {
		return NoEvidenceNotice
	}
	return strings.Join(blocks, "\n\n")
}

func (g *Gatherer) searchOne(ctx context.Context, query string) ([]Result, error) {
	var results []Result
	err := resilience.WithRetry(ctx, g.retry, func(ctx context.Context) error {
		return g.breaker.Execute(ctx, func(ctx context.Context) error {
			return resilience.WithTimeout(ctx, g.timeout, "search:"+query, func(ctx context.Context) error {
				r, err := g.search.Search(ctx, query, g.maxResults)
				if err != nil {
					return err
				}
				results = r
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for %q", query)
	}
	return results, nil
}

func (g *Gatherer) formatBlock(ctx context.Context, query string, results []Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s", query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s: %s", i+1, r.Title, r.Snippet)
	}

	if g.excerpt != nil && len(results) > 0 && results[0].URL != "" {
		if excerpt, err := g.excerpt.Excerpt(ctx, results[0].URL); err == nil {
			fmt.Fprintf(&b, "\nTop source excerpt: %s", excerpt)
		}
	}
	return b.String()
}
