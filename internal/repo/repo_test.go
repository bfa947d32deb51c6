package repo

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/abdusco/linkwatch/internal"
	"github.com/abdusco/linkwatch/internal/db"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Init(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestLinksRepo_AddMany(t *testing.T) {
	ctx := context.Background()
	links := NewLinksRepo(setupTestDB(t))

	added, err := links.AddMany(ctx, []string{"https://a.example", "https://b.example"}, lo.ToPtr("news"))
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.NotZero(t, added[0].ID)
	assert.Equal(t, "news", *added[1].Tag)

	all, err := links.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "https://b.example", all[0].URL, "newest first")
}

func TestLinksRepo_AddMany_SkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	links := NewLinksRepo(setupTestDB(t))

	_, err := links.AddMany(ctx, []string{"https://a.example"}, nil)
	require.NoError(t, err)

	added, err := links.AddMany(ctx, []string{"https://a.example", "https://c.example"}, nil)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "https://c.example", added[0].URL)

	count, err := links.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestLinksRepo_AddMany_RejectsOverCap(t *testing.T) {
	ctx := context.Background()
	links := NewLinksRepo(setupTestDB(t))

	_, err := links.AddMany(ctx, []string{"https://a.example", "https://b.example"}, nil)
	require.NoError(t, err)

	urls := make([]string, internal.MaxLinks-1)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example", i)
	}

	added, err := links.AddMany(ctx, urls, nil)
	require.ErrorIs(t, err, internal.ErrTooManyLinks)
	assert.Empty(t, added)

	count, err := links.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "nothing from the rejected request is inserted")
}

func TestLinksRepo_Delete_Cascades(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	links := NewLinksRepo(conn)
	snapshots := NewSnapshotsRepo(conn)
	checks := NewChecksRepo(conn)

	added, err := links.AddMany(ctx, []string{"https://a.example"}, nil)
	require.NoError(t, err)
	linkID := added[0].ID

	_, _, err = snapshots.Save(ctx, linkID, "hello", internal.SnapshotRetention)
	require.NoError(t, err)
	_, err = checks.Create(ctx, linkID, "First snapshot — baseline saved.")
	require.NoError(t, err)

	require.NoError(t, links.Delete(ctx, linkID))

	snaps, err := snapshots.ListForLink(ctx, linkID)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	history, err := checks.ListForLink(ctx, linkID, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = links.Get(ctx, linkID)
	assert.ErrorIs(t, err, internal.ErrLinkNotFound)

	assert.ErrorIs(t, links.Delete(ctx, linkID), internal.ErrLinkNotFound)
}

func TestSnapshotsRepo_SaveKeepsNewest(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	links := NewLinksRepo(conn)
	snapshots := NewSnapshotsRepo(conn)

	added, err := links.AddMany(ctx, []string{"https://a.example"}, nil)
	require.NoError(t, err)
	linkID := added[0].ID

	latest, err := snapshots.Latest(ctx, linkID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := range 8 {
		snap, deleted, err := snapshots.Save(ctx, linkID, fmt.Sprintf("content %d", i), internal.SnapshotRetention)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("content %d", i), snap.Content)
		assert.Equal(t, min(1, max(0, i+1-internal.SnapshotRetention)), deleted)
	}

	latest, err = snapshots.Latest(ctx, linkID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "content 7", latest.Content)

	remaining, err := snapshots.ListForLink(ctx, linkID)
	require.NoError(t, err)
	contents := lo.Map(remaining, func(s *internal.Snapshot, _ int) string { return s.Content })
	assert.Equal(t, []string{"content 7", "content 6", "content 5", "content 4", "content 3"}, contents)
}

func TestSnapshotsRepo_Save_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	snapshots := NewSnapshotsRepo(setupTestDB(t))

	_, _, err := snapshots.Save(ctx, 12345, "orphan", internal.SnapshotRetention)
	require.Error(t, err, "foreign key rejects unknown link")

	remaining, err := snapshots.ListForLink(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestChecksRepo_SetSummary(t *testing.T) {
	ctx := context.Background()
	conn := setupTestDB(t)
	links := NewLinksRepo(conn)
	checks := NewChecksRepo(conn)

	added, err := links.AddMany(ctx, []string{"https://a.example"}, nil)
	require.NoError(t, err)

	check, err := checks.Create(ctx, added[0].ID, "+ new")
	require.NoError(t, err)
	assert.Nil(t, check.Summary)

	require.NoError(t, checks.SetSummary(ctx, check.ID, "- something new"))

	got, err := checks.Get(ctx, check.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "- something new", *got.Summary)

	_, err = checks.Get(ctx, check.ID+100)
	assert.ErrorIs(t, err, internal.ErrCheckNotFound)
	assert.ErrorIs(t, checks.SetSummary(ctx, check.ID+100, "x"), internal.ErrCheckNotFound)
}
