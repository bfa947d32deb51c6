// Package checker runs check cycles: for every registered link it fetches the
// page, diffs its text against the previous snapshot, stores the new snapshot
// and check, trims history and asks for a summary.
package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdusco/linkwatch/internal"
	"github.com/abdusco/linkwatch/internal/diff"
	"github.com/abdusco/linkwatch/internal/extract"
	"github.com/abdusco/linkwatch/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type LinkLister interface {
	ListAll(ctx context.Context) ([]*internal.Link, error)
}

type SnapshotStore interface {
	Latest(ctx context.Context, linkID int64) (*internal.Snapshot, error)
	Save(ctx context.Context, linkID int64, content string, keep int) (*internal.Snapshot, int, error)
}

type CheckStore interface {
	Create(ctx context.Context, linkID int64, diff string) (*internal.Check, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, checkID int64) (string, error)
}

type Checker struct {
	links      LinkLister
	snapshots  SnapshotStore
	checks     CheckStore
	fetcher    PageFetcher
	summarizer Summarizer

	// mu serializes cycles so snapshot writes and trims of two cycles never
	// interleave.
	mu sync.Mutex
}

func New(links LinkLister, snapshots SnapshotStore, checks CheckStore, fetcher PageFetcher, summarizer Summarizer) *Checker {
	return &Checker{
		links:      links,
		snapshots:  snapshots,
		checks:     checks,
		fetcher:    fetcher,
		summarizer: summarizer,
	}
}

// Run performs one cycle over all links, one link at a time. It fails only
// when the registry cannot be read or is empty; per-link failures are
// reported in the corresponding result. A started cycle is not cancelled
// with ctx.
func (c *Checker) Run(ctx context.Context) ([]internal.CheckResult, error) {
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	defer func() { metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	links, err := c.links.ListAll(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	if len(links) == 0 {
		metrics.CyclesTotal.WithLabelValues("empty").Inc()
		return nil, internal.ErrNoLinks
	}

	log.Info().Int("links", len(links)).Msg("check cycle started")

	results := make([]internal.CheckResult, 0, len(links))
	for _, link := range links {
		result, err := c.checkLink(ctx, link)
		if err != nil {
			log.Error().Err(err).Int64("link_id", link.ID).Str("url", link.URL).Msg("link check failed")
			metrics.LinksChecked.WithLabelValues("failed").Inc()
			result = internal.CheckResult{
				URL:   link.URL,
				Tag:   link.Tag,
				Error: lo.ToPtr(err.Error()),
			}
		}
		results = append(results, result)
	}

	failed := lo.CountBy(results, func(r internal.CheckResult) bool { return r.Failed() })
	changed := lo.CountBy(results, func(r internal.CheckResult) bool { return r.Changed })
	log.Info().
		Int("links", len(results)).
		Int("changed", changed).
		Int("failed", failed).
		Dur("took", time.Since(start)).
		Msg("check cycle finished")
	metrics.CyclesTotal.WithLabelValues("ok").Inc()

	return results, nil
}

func (c *Checker) checkLink(ctx context.Context, link *internal.Link) (internal.CheckResult, error) {
	body, err := c.fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return internal.CheckResult{}, err
	}

	text, err := extract.Text(body)
	if err != nil {
		return internal.CheckResult{}, err
	}

	prev, err := c.snapshots.Latest(ctx, link.ID)
	if err != nil {
		return internal.CheckResult{}, err
	}

	diffText := diff.Baseline
	changed := false
	outcome := "baseline"
	if prev != nil {
		d := diff.Compare(prev.Content, text)
		diffText, changed = d.Text, d.Changed
		outcome = lo.Ternary(changed, "changed", "unchanged")
	}

	if _, _, err := c.snapshots.Save(ctx, link.ID, text, internal.SnapshotRetention); err != nil {
		return internal.CheckResult{}, err
	}

	check, err := c.checks.Create(ctx, link.ID, diffText)
	if err != nil {
		return internal.CheckResult{}, err
	}

	summary, err := c.summarizer.Summarize(ctx, check.ID)
	if err != nil {
		log.Warn().Err(err).Int64("check_id", check.ID).Msg("summary skipped")
		summary = ""
	}

	metrics.LinksChecked.WithLabelValues(outcome).Inc()
	log.Debug().Int64("link_id", link.ID).Str("url", link.URL).Bool("changed", changed).Msg("link checked")

	return internal.CheckResult{
		URL:     link.URL,
		Tag:     link.Tag,
		Changed: changed,
		Diff:    diffText,
		Summary: summary,
	}, nil
}
