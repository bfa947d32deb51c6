// Package summarizer turns a stored check diff into a short natural-language
// synopsis. Upstream failures never surface as errors; they degrade to a
// placeholder summary instead.
package summarizer

import (
	"context"
	"errors"

	"github.com/abdusco/linkwatch/internal"
	"github.com/abdusco/linkwatch/internal/diff"
	"github.com/abdusco/linkwatch/internal/llm"
	"github.com/abdusco/linkwatch/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	instruction = "Summarize website changes in 2-3 bullet points. Cite short phrases from the diff."
	maxTokens   = 200

	// UnavailablePrefix starts every degraded summary.
	UnavailablePrefix = "AI summary unavailable"

	unavailable    = UnavailablePrefix + "."
	noSummary      = "No summary generated."
	defaultAPIHint = "quota exceeded"
	emptyDiff      = "No changes detected"
)

type CheckStore interface {
	Get(ctx context.Context, id int64) (*internal.Check, error)
	SetSummary(ctx context.Context, id int64, summary string) error
}

type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int64) (string, error)
}

type Summarizer struct {
	checks CheckStore
	llm    Completer
}

func New(checks CheckStore, llm Completer) *Summarizer {
	return &Summarizer{checks: checks, llm: llm}
}

// Summarize loads a check and returns a summary of its diff. Only a missing
// check or a failing store produce an error.
func (s *Summarizer) Summarize(ctx context.Context, checkID int64) (string, error) {
	check, err := s.checks.Get(ctx, checkID)
	if err != nil {
		return "", err
	}

	text := check.Diff
	if text == "" {
		text = emptyDiff
	}
	if diff.IsSentinel(text) {
		metrics.Summaries.WithLabelValues("sentinel").Inc()
		return text, nil
	}

	summary, err := s.llm.Complete(ctx, instruction, text, maxTokens)
	if err != nil {
		metrics.Summaries.WithLabelValues("degraded").Inc()
		return degraded(checkID, err), nil
	}
	if summary == "" {
		summary = noSummary
	}

	if err := s.checks.SetSummary(ctx, checkID, summary); err != nil {
		log.Error().Err(err).Int64("check_id", checkID).Msg("failed to persist summary")
	}

	metrics.Summaries.WithLabelValues("generated").Inc()
	return summary, nil
}

func degraded(checkID int64, err error) string {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		log.Warn().Err(err).Int64("check_id", checkID).Int("status", apiErr.StatusCode).Msg("summarizer rejected request")
		msg := apiErr.Message
		if msg == "" {
			msg = defaultAPIHint
		}
		return UnavailablePrefix + ": " + msg
	}

	log.Warn().Err(err).Int64("check_id", checkID).Msg("summarizer unreachable")
	return unavailable
}
