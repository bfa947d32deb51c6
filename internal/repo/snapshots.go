package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abdusco/linkwatch/internal"
	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type snapshotRow struct {
	ID        int64  `db:"id" goqu:"skipinsert,skipupdate"`
	LinkID    int64  `db:"link_id"`
	Content   string `db:"content"`
	CreatedAt Date   `db:"created_at" goqu:"skipupdate"`
}

type SnapshotsRepo struct {
	db *sql.DB
}

func NewSnapshotsRepo(db *sql.DB) *SnapshotsRepo {
	return &SnapshotsRepo{db: db}
}

func (r *SnapshotsRepo) newest(linkID int64) *goqu.SelectDataset {
	return goqu.New(dialect, r.db).From("snapshots").
		Where(goqu.Ex{"link_id": linkID}).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
}

// Latest returns the most recent snapshot of a link, or nil if it has none.
func (r *SnapshotsRepo) Latest(ctx context.Context, linkID int64) (*internal.Snapshot, error) {
	query := r.newest(linkID).Select("id", "link_id", "content", "created_at").Limit(1)

	var row snapshotRow
	found, err := query.ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest snapshot: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.toDomain(), nil
}

// Save stores a new snapshot for a link and deletes every snapshot beyond
// the newest keep rows, in one transaction. It returns the snapshot and the
// number of rows removed.
func (r *SnapshotsRepo) Save(ctx context.Context, linkID int64, content string, keep int) (*internal.Snapshot, int, error) {
	tx, err := goqu.New(dialect, r.db).BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	row := snapshotRow{LinkID: linkID, Content: content, CreatedAt: Now()}
	var deleted int
	err = tx.Wrap(func() error {
		res, err := tx.Insert("snapshots").
			Cols("link_id", "content", "created_at").
			Vals([]any{row.LinkID, row.Content, row.CreatedAt}).
			Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		if row.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		deleted, err = trim(ctx, tx, linkID, keep)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	log.Debug().
		Int64("link_id", linkID).
		Int64("id", row.ID).
		Int("length", len(content)).
		Int("trimmed", deleted).
		Msg("snapshot saved")
	return row.toDomain(), deleted, nil
}

// ListForLink returns the snapshots of a link, newest first.
func (r *SnapshotsRepo) ListForLink(ctx context.Context, linkID int64) ([]*internal.Snapshot, error) {
	var rows []snapshotRow
	err := r.newest(linkID).Select("id", "link_id", "content", "created_at").ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, err
	}

	return lo.Map(rows, func(row snapshotRow, _ int) *internal.Snapshot {
		return row.toDomain()
	}), nil
}

// trim deletes every snapshot of a link beyond the newest keep rows.
func trim(ctx context.Context, tx *goqu.TxDatabase, linkID int64, keep int) (int, error) {
	var ids []int64
	err := tx.From("snapshots").
		Where(goqu.Ex{"link_id": linkID}).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Select("id").
		ScanValsContext(ctx, &ids)
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(ids) <= keep {
		return 0, nil
	}

	stale := ids[keep:]
	_, err = tx.Delete("snapshots").
		Where(goqu.C("id").In(stale)).
		Executor().ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return len(stale), nil
}

func (r *snapshotRow) toDomain() *internal.Snapshot {
	return &internal.Snapshot{
		ID:        r.ID,
		LinkID:    r.LinkID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt.Time(),
	}
}
