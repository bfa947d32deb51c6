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

type checkRow struct {
	ID        int64   `db:"id" goqu:"skipinsert,skipupdate"`
	LinkID    int64   `db:"link_id"`
	Diff      string  `db:"diff"`
	Summary   *string `db:"summary"`
	CreatedAt Date    `db:"created_at" goqu:"skipupdate"`
}

type ChecksRepo struct {
	db *sql.DB
}

func NewChecksRepo(db *sql.DB) *ChecksRepo {
	return &ChecksRepo{db: db}
}

func (r *ChecksRepo) Create(ctx context.Context, linkID int64, diff string) (*internal.Check, error) {
	executor := goqu.New(dialect, r.db)

	row := checkRow{LinkID: linkID, Diff: diff, CreatedAt: Now()}
	res, err := executor.Insert("checks").
		Cols("link_id", "diff", "created_at").
		Vals([]any{row.LinkID, row.Diff, row.CreatedAt}).
		Executor().ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to insert check: %w", err)
	}

	row.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}

	log.Debug().Int64("link_id", linkID).Int64("id", row.ID).Msg("check recorded")
	return row.toDomain(), nil
}

func (r *ChecksRepo) Get(ctx context.Context, id int64) (*internal.Check, error) {
	query := goqu.New(dialect, r.db).From("checks").
		Where(goqu.Ex{"id": id}).
		Select("id", "link_id", "diff", "summary", "created_at")

	var row checkRow
	found, err := query.ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch check: %w", err)
	}
	if !found {
		return nil, internal.ErrCheckNotFound
	}

	return row.toDomain(), nil
}

func (r *ChecksRepo) SetSummary(ctx context.Context, id int64, summary string) error {
	res, err := goqu.New(dialect, r.db).Update("checks").
		Set(goqu.Record{"summary": summary}).
		Where(goqu.Ex{"id": id}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update check summary: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return internal.ErrCheckNotFound
	}
	return nil
}

// ListForLink returns up to limit checks of a link, newest first.
func (r *ChecksRepo) ListForLink(ctx context.Context, linkID int64, limit uint) ([]*internal.Check, error) {
	query := goqu.New(dialect, r.db).From("checks").
		Where(goqu.Ex{"link_id": linkID}).
		Select("id", "link_id", "diff", "summary", "created_at").
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(limit)

	var rows []checkRow
	if err := query.ScanStructsContext(ctx, &rows); err != nil {
		return nil, err
	}

	return lo.Map(rows, func(row checkRow, _ int) *internal.Check {
		return row.toDomain()
	}), nil
}

func (r *checkRow) toDomain() *internal.Check {
	return &internal.Check{
		ID:        r.ID,
		LinkID:    r.LinkID,
		Diff:      r.Diff,
		Summary:   r.Summary,
		CreatedAt: r.CreatedAt.Time(),
	}
}
