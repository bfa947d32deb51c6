package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abdusco/linkwatch/internal"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"
)

const dialect = "sqlite3"

type linkRow struct {
	ID        int64   `db:"id" goqu:"skipinsert,skipupdate"`
	URL       string  `db:"url"`
	Tag       *string `db:"tag"`
	CreatedAt Date    `db:"created_at" goqu:"skipupdate"`
}

type LinksRepo struct {
	db *sql.DB
}

func NewLinksRepo(db *sql.DB) *LinksRepo {
	return &LinksRepo{db: db}
}

// ListAll returns every link, newest first.
func (r *LinksRepo) ListAll(ctx context.Context) ([]*internal.Link, error) {
	executor := goqu.New(dialect, r.db)

	query := executor.From("links").Select(
		"id", "url", "tag", "created_at",
	).Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())

	var rows []linkRow
	if err := query.ScanStructsContext(ctx, &rows); err != nil {
		return nil, err
	}

	links := make([]*internal.Link, len(rows))
	for i := range rows {
		links[i] = rows[i].toDomain()
	}

	return links, nil
}

func (r *LinksRepo) Count(ctx context.Context) (int64, error) {
	return goqu.New(dialect, r.db).From("links").CountContext(ctx)
}

func (r *LinksRepo) Get(ctx context.Context, id int64) (*internal.Link, error) {
	executor := goqu.New(dialect, r.db)

	query := executor.From("links").Where(goqu.Ex{"id": id}).Select(
		"id", "url", "tag", "created_at",
	)

	var row linkRow
	found, err := query.ScanStructContext(ctx, &row)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to fetch link")
		return nil, err
	}
	if !found {
		return nil, internal.ErrLinkNotFound
	}

	return row.toDomain(), nil
}

// AddMany inserts the given URLs under a shared tag. The whole request is
// rejected when it would push the registry past internal.MaxLinks. URLs that
// are already registered are skipped; only inserted links are returned.
func (r *LinksRepo) AddMany(ctx context.Context, urls []string, tag *string) ([]*internal.Link, error) {
	tx, err := goqu.New(dialect, r.db).BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var added []*internal.Link
	err = tx.Wrap(func() error {
		count, err := tx.From("links").CountContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to count links: %w", err)
		}
		if int(count)+len(urls) > internal.MaxLinks {
			return internal.ErrTooManyLinks
		}

		for _, url := range urls {
			exists, err := tx.From("links").Where(goqu.Ex{"url": url}).CountContext(ctx)
			if err != nil {
				return fmt.Errorf("failed to look up link: %w", err)
			}
			if exists > 0 {
				log.Debug().Str("url", url).Msg("link already registered, skipping")
				continue
			}

			row := linkRow{URL: url, Tag: tag, CreatedAt: Now()}
			res, err := tx.Insert("links").
				Cols("url", "tag", "created_at").
				Vals([]any{row.URL, nullable(row.Tag), row.CreatedAt}).
				Executor().ExecContext(ctx)
			if err != nil {
				return fmt.Errorf("failed to insert link: %w", err)
			}
			row.ID, err = res.LastInsertId()
			if err != nil {
				return err
			}
			added = append(added, row.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("requested", len(urls)).Int("added", len(added)).Msg("links added")
	return added, nil
}

// Delete removes a link together with its checks and snapshots.
func (r *LinksRepo) Delete(ctx context.Context, id int64) error {
	tx, err := goqu.New(dialect, r.db).BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = tx.Wrap(func() error {
		if _, err := tx.Delete("checks").Where(goqu.Ex{"link_id": id}).Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to delete checks: %w", err)
		}
		if _, err := tx.Delete("snapshots").Where(goqu.Ex{"link_id": id}).Executor().ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to delete snapshots: %w", err)
		}

		res, err := tx.Delete("links").Where(goqu.Ex{"id": id}).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete link: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return internal.ErrLinkNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int64("id", id).Msg("link deleted")
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (r *linkRow) toDomain() *internal.Link {
	return &internal.Link{
		ID:        r.ID,
		URL:       r.URL,
		Tag:       r.Tag,
		CreatedAt: r.CreatedAt.Time(),
	}
}
