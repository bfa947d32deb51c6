package summarizer

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/abdusco/linkwatch/internal"
	"github.com/abdusco/linkwatch/internal/diff"
	"github.com/abdusco/linkwatch/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecks struct {
	checks map[int64]*internal.Check
}

func (f *fakeChecks) Get(_ context.Context, id int64) (*internal.Check, error) {
	c, ok := f.checks[id]
	if !ok {
		return nil, internal.ErrCheckNotFound
	}
	return c, nil
}

func (f *fakeChecks) SetSummary(_ context.Context, id int64, summary string) error {
	c, ok := f.checks[id]
	if !ok {
		return internal.ErrCheckNotFound
	}
	c.Summary = &summary
	return nil
}

type fakeLLM struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeLLM) Complete(_ context.Context, _, prompt string, _ int64) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func newFixture(diffText string, model *fakeLLM) (*Summarizer, *fakeChecks) {
	store := &fakeChecks{checks: map[int64]*internal.Check{
		1: {ID: 1, LinkID: 1, Diff: diffText},
	}}
	return New(store, model), store
}

func TestSummarize_Generated(t *testing.T) {
	model := &fakeLLM{reply: "- Added \"Pro plan\""}
	s, store := newFixture("+ Pro plan", model)

	summary, err := s.Summarize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "- Added \"Pro plan\"", summary)
	assert.Equal(t, "+ Pro plan", model.prompt)

	require.NotNil(t, store.checks[1].Summary)
	assert.Equal(t, summary, *store.checks[1].Summary)
}

func TestSummarize_SentinelSkipsModel(t *testing.T) {
	for _, sentinel := range []string{diff.Baseline, diff.NoChanges} {
		model := &fakeLLM{reply: "should not be used"}
		s, store := newFixture(sentinel, model)

		summary, err := s.Summarize(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, sentinel, summary)
		assert.Zero(t, model.calls)
		assert.Nil(t, store.checks[1].Summary)
	}
}

func TestSummarize_NotFound(t *testing.T) {
	s, _ := newFixture("+ x", &fakeLLM{})

	_, err := s.Summarize(context.Background(), 42)
	assert.ErrorIs(t, err, internal.ErrCheckNotFound)
}

func TestSummarize_UpstreamError(t *testing.T) {
	model := &fakeLLM{err: &llm.APIError{StatusCode: http.StatusTooManyRequests, Message: "credit balance too low"}}
	s, store := newFixture("+ x", model)

	summary, err := s.Summarize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "AI summary unavailable: credit balance too low", summary)
	assert.Nil(t, store.checks[1].Summary)
}

func TestSummarize_UpstreamErrorWithoutMessage(t *testing.T) {
	s, _ := newFixture("+ x", &fakeLLM{err: &llm.APIError{StatusCode: http.StatusForbidden}})

	summary, err := s.Summarize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "AI summary unavailable: quota exceeded", summary)
}

func TestSummarize_TransportError(t *testing.T) {
	s, _ := newFixture("+ x", &fakeLLM{err: errors.New("dial tcp: connection refused")})

	summary, err := s.Summarize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "AI summary unavailable.", summary)
	assert.True(t, len(summary) >= len(UnavailablePrefix))
}

func TestSummarize_EmptyReply(t *testing.T) {
	s, store := newFixture("- gone", &fakeLLM{reply: ""})

	summary, err := s.Summarize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "No summary generated.", summary)
	assert.Equal(t, "No summary generated.", *store.checks[1].Summary)
}
