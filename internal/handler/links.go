package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abdusco/linkwatch/internal"
	"github.com/abdusco/linkwatch/internal/fetcher"
	"github.com/abdusco/linkwatch/internal/repo"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const checkHistoryLimit = 20

type LinkHandler struct {
	linksRepo     *repo.LinksRepo
	checksRepo    *repo.ChecksRepo
	snapshotsRepo *repo.SnapshotsRepo
}

func NewLinkHandler(linksRepo *repo.LinksRepo, checksRepo *repo.ChecksRepo, snapshotsRepo *repo.SnapshotsRepo) *LinkHandler {
	return &LinkHandler{
		linksRepo:     linksRepo,
		checksRepo:    checksRepo,
		snapshotsRepo: snapshotsRepo,
	}
}

// URLList accepts either a single string or an array of strings.
type URLList []string

func (l *URLList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*l = URLList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("urls must be a string or an array of strings")
	}
	*l = many
	return nil
}

type AddLinksRequest struct {
	URLs URLList `json:"urls"`
	Tag  *string `json:"tag"`
}

// Normalize trims input, drops blank and repeated URLs and blank tags.
func (r *AddLinksRequest) Normalize() {
	urls := lo.Map(r.URLs, func(u string, _ int) string { return strings.TrimSpace(u) })
	r.URLs = lo.Uniq(lo.Compact(urls))

	if r.Tag != nil {
		tag := strings.TrimSpace(*r.Tag)
		r.Tag = lo.EmptyableToPtr(tag)
	}
}

func (r *AddLinksRequest) Validate() error {
	if len(r.URLs) == 0 {
		return internal.ErrURLRequired
	}
	if len(r.URLs) > internal.MaxLinks {
		return internal.ErrTooManyLinks
	}

	invalid := lo.Reject(r.URLs, func(u string, _ int) bool {
		return fetcher.IsWebURL(u)
	})
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", internal.ErrInvalidURL, strings.Join(invalid, ", "))
	}
	return nil
}

type LinkResponse struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Tag       *string   `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}

type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

type CheckResponse struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	Diff      string    `json:"diff"`
	Summary   *string   `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

type ListChecksResponse struct {
	Checks []CheckResponse `json:"checks"`
}

type SnapshotResponse struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ListSnapshotsResponse struct {
	Snapshots []SnapshotResponse `json:"snapshots"`
}

func toLinkResponses(links []*internal.Link) []LinkResponse {
	return lo.Map(links, func(link *internal.Link, _ int) LinkResponse {
		return LinkResponse{
			ID:        link.ID,
			URL:       link.URL,
			Tag:       link.Tag,
			CreatedAt: link.CreatedAt,
		}
	})
}

func (h *LinkHandler) ListLinks(c echo.Context) error {
	ctx := c.Request().Context()
	links, err := h.linksRepo.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list links")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, ListLinksResponse{Links: toLinkResponses(links)})
}

func (h *LinkHandler) AddLinks(c echo.Context) error {
	ctx := c.Request().Context()

	var req AddLinksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	links, err := h.linksRepo.AddMany(ctx, req.URLs, req.Tag)
	if err != nil {
		if errors.Is(err, internal.ErrTooManyLinks) {
			return validationError(err)
		}
		log.Error().Err(err).Strs("urls", req.URLs).Msg("failed to add links")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, ListLinksResponse{Links: toLinkResponses(links)})
}

func (h *LinkHandler) DeleteLink(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := linkIDParam(c)
	if err != nil {
		return err
	}

	if err := h.linksRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, internal.ErrLinkNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "link not found")
		}
		log.Error().Err(err).Int64("id", id).Msg("failed to delete link")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *LinkHandler) ListChecks(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := linkIDParam(c)
	if err != nil {
		return err
	}

	if err := h.requireLink(c, id); err != nil {
		return err
	}

	checks, err := h.checksRepo.ListForLink(ctx, id, checkHistoryLimit)
	if err != nil {
		log.Error().Err(err).Int64("link_id", id).Msg("failed to list checks")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := lo.Map(checks, func(check *internal.Check, _ int) CheckResponse {
		return CheckResponse{
			ID:        check.ID,
			LinkID:    check.LinkID,
			Diff:      check.Diff,
			Summary:   check.Summary,
			CreatedAt: check.CreatedAt,
		}
	})

	return c.JSON(http.StatusOK, ListChecksResponse{Checks: resp})
}

// ListSnapshots returns the retained snapshots of a link, newest first.
func (h *LinkHandler) ListSnapshots(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := linkIDParam(c)
	if err != nil {
		return err
	}

	if err := h.requireLink(c, id); err != nil {
		return err
	}

	snapshots, err := h.snapshotsRepo.ListForLink(ctx, id)
	if err != nil {
		log.Error().Err(err).Int64("link_id", id).Msg("failed to list snapshots")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := lo.Map(snapshots, func(s *internal.Snapshot, _ int) SnapshotResponse {
		return SnapshotResponse{
			ID:        s.ID,
			Content:   s.Content,
			CreatedAt: s.CreatedAt,
		}
	})

	return c.JSON(http.StatusOK, ListSnapshotsResponse{Snapshots: resp})
}

func (h *LinkHandler) requireLink(c echo.Context, id int64) error {
	if _, err := h.linksRepo.Get(c.Request().Context(), id); err != nil {
		if errors.Is(err, internal.ErrLinkNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "link not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return nil
}

// linkIDParam reads the link id from the path or the ?id= query parameter.
func linkIDParam(c echo.Context) (int64, error) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.QueryParam("id")
	}
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "ID required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid ID")
	}
	return id, nil
}

func validationError(err error) error {
	switch {
	case errors.Is(err, internal.ErrURLRequired):
		return echo.NewHTTPError(http.StatusBadRequest, "URL is required")
	case errors.Is(err, internal.ErrTooManyLinks):
		return echo.NewHTTPError(http.StatusBadRequest, "Maximum 8 links allowed.")
	case errors.Is(err, internal.ErrInvalidURL):
		invalid := strings.TrimPrefix(err.Error(), internal.ErrInvalidURL.Error()+": ")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid URLs: "+invalid)
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
