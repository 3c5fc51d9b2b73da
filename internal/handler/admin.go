package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/conference-companion/internal/feed"
    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/repository"
)

// importTimeout bounds an import or refresh; both write a whole
// conference in one transaction.
const importTimeout = 60 * time.Second

// CacheEvicter drops cached responses for a conference after its data
// changed.
type CacheEvicter interface {
    EvictConference(ctx context.Context, conferenceID uint64) (int, error)
}

// AdminHandler serves the maintenance endpoints: importing feeds and
// clearing cached conferences.
type AdminHandler struct {
    Conferences *repository.ConferenceRepo
    Importer    *feed.Importer
    Fetcher     *feed.Fetcher
    Cache       CacheEvicter // optional
    MaxBody     int64
}

func NewAdminHandler(conferences *repository.ConferenceRepo, importer *feed.Importer, fetcher *feed.Fetcher, cache CacheEvicter, maxBody int64) *AdminHandler {
    if conferences == nil || importer == nil || fetcher == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    if maxBody <= 0 {
        maxBody = 8 << 20
    }
    return &AdminHandler{Conferences: conferences, Importer: importer, Fetcher: fetcher, Cache: cache, MaxBody: maxBody}
}

type cachedReq struct {
    Cached *bool `json:"cached"`
}

// Import reads a conference document from the request body and stores it.
func (h *AdminHandler) Import(c echo.Context) error {
    body := http.MaxBytesReader(c.Response(), c.Request().Body, h.MaxBody)
    doc, err := feed.Decode(body)
    if err != nil {
        return writeError(c, err, "decode document failed")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), importTimeout)
    defer cancel()

    sum, err := h.Importer.Import(ctx, doc, "upload")
    if err != nil {
        return writeError(c, err, "import failed")
    }
    h.evict(ctx, sum.ConferenceID)
    status := http.StatusOK
    if sum.Created {
        status = http.StatusCreated
    }
    return c.JSON(status, sum)
}

// Refresh re-downloads a conference from its stored feed URL.
func (h *AdminHandler) Refresh(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conference id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), importTimeout)
    defer cancel()

    sum, err := h.Importer.Refresh(ctx, h.Fetcher, id)
    if err != nil {
        return writeError(c, err, "refresh failed")
    }
    h.evict(ctx, sum.ConferenceID)
    return c.JSON(http.StatusOK, sum)
}

// SetCached sets the cached flag of a conference from {"cached": bool}.
func (h *AdminHandler) SetCached(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conference id"})
    }
    var req cachedReq
    if err := c.Bind(&req); err != nil || req.Cached == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "cached required"})
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := h.Conferences.SetCached(ctx, id, *req.Cached); err != nil {
        return writeError(c, err, "update conference failed")
    }
    h.evict(ctx, id)
    return c.NoContent(http.StatusNoContent)
}

// Clear deletes everything imported for a conference.  The conference row
// stays so it can be refreshed later.
func (h *AdminHandler) Clear(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conference id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), importTimeout)
    defer cancel()

    if err := h.Conferences.Clear(ctx, id); err != nil {
        return writeError(c, err, "clear conference failed")
    }
    h.evict(ctx, id)
    return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) evict(ctx context.Context, conferenceID uint64) {
    if h.Cache == nil {
        return
    }
    if _, err := h.Cache.EvictConference(ctx, conferenceID); err != nil {
        logging.Ctx(ctx).Warn().Err(err).Uint64("conference_id", conferenceID).Msg("cache eviction failed")
    }
}
