package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/conference-companion/internal/config"
    "github.com/iliyamo/conference-companion/internal/geo"
    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/model"
    "github.com/iliyamo/conference-companion/internal/repository"
)

// maxNext caps ?n= on the "next events" endpoint.
const maxNext = 50

// ConferenceHandler serves the public, anonymous views of cached
// conferences.  Responses carry no per-user flags so they can be shared
// through the response cache.
type ConferenceHandler struct {
    Conferences *repository.ConferenceRepo
    EventRepo   *repository.EventRepo
    Catalog     *repository.CatalogRepo
    Venues      *repository.VenueRepo
    Map         config.MapConfig
    Now         func() time.Time
}

// NewConferenceHandler wires the handler and panics if a repository is missing.
func NewConferenceHandler(conferences *repository.ConferenceRepo, events *repository.EventRepo, catalog *repository.CatalogRepo, venues *repository.VenueRepo, mapCfg config.MapConfig) *ConferenceHandler {
    if conferences == nil || events == nil || catalog == nil || venues == nil {
        panic("nil repository passed to NewConferenceHandler")
    }
    return &ConferenceHandler{
        Conferences: conferences,
        EventRepo:   events,
        Catalog:     catalog,
        Venues:      venues,
        Map:         mapCfg,
        Now:         time.Now,
    }
}

// conference resolves :id, writing the error response itself when the
// conference cannot be served.  ok is false when a response was written.
func (h *ConferenceHandler) conference(ctx context.Context, c echo.Context) (*model.Conference, bool, error) {
    id, ok := parseID(c, "id")
    if !ok {
        return nil, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conference id"})
    }
    conf, err := h.Conferences.GetByID(ctx, id)
    if err != nil {
        return nil, false, writeError(c, err, "load conference failed")
    }
    return conf, true, nil
}

// List returns every cached conference.
func (h *ConferenceHandler) List(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    items, err := h.Conferences.List(ctx)
    if err != nil {
        return writeError(c, err, "list conferences failed")
    }
    if items == nil {
        items = []*model.Conference{}
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one conference.
func (h *ConferenceHandler) Get(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    conf, ok, err := h.conference(ctx, c)
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, conf)
}

// Events returns the schedule, optionally narrowed with
// ?track=1,2&language=en,de.
func (h *ConferenceHandler) Events(c echo.Context) error {
    trackIDs, ok := parseIDList(c.QueryParam("track"))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid track list"})
    }
    filter := repository.ScheduleFilter{TrackIDs: trackIDs, Languages: splitList(c.QueryParam("language"))}

    ctx, cancel := requestCtx(c)
    defer cancel()

    conf, ok, err := h.conference(ctx, c)
    if !ok {
        return err
    }
    events, err := h.EventRepo.Schedule(ctx, conf.ID, 0, filter)
    if err != nil {
        return writeError(c, err, "load schedule failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// Next returns the events that have not ended yet.  ?n= sets how many
// (default 2); ?at= (RFC 3339) replaces the current time.
func (h *ConferenceHandler) Next(c echo.Context) error {
    n := repository.DefaultNextCount
    if raw := c.QueryParam("n"); raw != "" {
        v, err := strconv.Atoi(raw)
        if err != nil || v < 1 || v > maxNext {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "n must be between 1 and 50"})
        }
        n = v
    }
    now := h.Now()
    if raw := c.QueryParam("at"); raw != "" {
        t, err := time.Parse(time.RFC3339, raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "at must be RFC 3339"})
        }
        now = t
    } else {
        // Depends on the clock, so shared caches must not keep it.
        c.Response().Header().Set("Cache-Control", "no-store")
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    conf, ok, err := h.conference(ctx, c)
    if !ok {
        return err
    }
    events, err := h.EventRepo.Next(ctx, conf.ID, 0, now, n)
    if err != nil {
        return writeError(c, err, "load next events failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// Event returns one event with its speakers.
func (h *ConferenceHandler) Event(c echo.Context) error {
    eventID, ok := parseID(c, "event_id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    conf, ok, err := h.conference(ctx, c)
    if !ok {
        return err
    }
    ev, err := h.EventRepo.Get(ctx, conf.ID, 0, eventID)
    if err != nil {
        return writeError(c, err, "load event failed")
    }
    return c.JSON(http.StatusOK, ev)
}

// Search matches ?q= against titles, abstracts and speaker names.
func (h *ConferenceHandler) Search(c echo.Context) error {
    q := strings.TrimSpace(c.QueryParam("q"))
    if q == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "q required"})
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    conf, ok, err := h.conference(ctx, c)
    if !ok {
        return err
    }
    ids, err := h.EventRepo.Search(ctx, conf.ID, q)
    if err != nil {
        return writeError(c, err, "search failed")
    }
    events, err := h.EventRepo.ByIDs(ctx, conf.ID, 0, ids)
    if err != nil {
        return writeError(c, err, "search failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"query": q, "items": events})
}

// Languages lists the distinct event languages.
func (h *ConferenceHandler) Languages(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    conf, ok, err := h.conference(ctx, c)
    if !ok {
        return err
    }
    langs, err := h.EventRepo.Languages(ctx, conf.ID)
    if err != nil {
        return writeError(c, err, "load languages failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"items": langs})
}

// Tracks lists the tracks that have at least one event.
func (h *ConferenceHandler) Tracks(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    conf, ok, err := h.conference(ctx, c)
    if !ok {
        return err
    }
    tracks, err := h.Catalog.UniqueTracks(ctx, conf.ID)
    if err != nil {
        return writeError(c, err, "load tracks failed")
    }
    if tracks == nil {
        tracks = []model.Track{}
    }
    return c.JSON(http.StatusOK, echo.Map{"items": tracks})
}

func (h *ConferenceHandler) venue(ctx context.Context, c echo.Context) (*model.Venue, bool, error) {
    conf, ok, err := h.conference(ctx, c)
    if !ok {
        return nil, false, err
    }
    venueID, err := h.Conferences.VenueID(ctx, conf.ID)
    if err != nil {
        return nil, false, writeError(c, err, "load venue failed")
    }
    v, err := h.Venues.GetInfo(ctx, venueID)
    if err != nil {
        return nil, false, writeError(c, err, "load venue failed")
    }
    return v, true, nil
}

// Venue returns the venue with its map points and polygons.
func (h *ConferenceHandler) Venue(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    v, ok, err := h.venue(ctx, c)
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, v)
}

type mapViewResp struct {
    Zoom      int                `json:"zoom"`
    MaxZoom   int                `json:"max_zoom"`
    TileSize  int                `json:"tile_size"`
    WorldSize int64              `json:"world_size"`
    ScrollX   int64              `json:"scroll_x"`
    ScrollY   int64              `json:"scroll_y"`
    Center    geo.GeoPoint       `json:"center"`
    Bounds    *geo.BoundingBoxE6 `json:"bounds,omitempty"`
    Limit     *geo.Rect          `json:"limit,omitempty"`
    Popup     *geo.Bubble        `json:"popup,omitempty"`
}

// VenueMap resolves a view of the venue map.  The view is limited to the
// venue's offline map bounds when it has them.  ?zoom= picks the level,
// ?x=&y= a scroll position (otherwise the view centers on the bounds, or
// on the venue marker) and ?point= opens the bubble of the point with
// that index.
func (h *ConferenceHandler) VenueMap(c echo.Context) error {
    zoom := h.Map.DefaultZoom
    if raw := c.QueryParam("zoom"); raw != "" {
        v, err := strconv.Atoi(raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zoom"})
        }
        zoom = v
    }
    xRaw, yRaw := c.QueryParam("x"), c.QueryParam("y")
    if (xRaw == "") != (yRaw == "") {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "x and y go together"})
    }
    var x, y int64
    if xRaw != "" {
        var errX, errY error
        x, errX = strconv.ParseInt(xRaw, 10, 64)
        y, errY = strconv.ParseInt(yRaw, 10, 64)
        if errX != nil || errY != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid scroll position"})
        }
    }

    ctx, cancel := requestCtx(c)
    defer cancel()

    v, ok, err := h.venue(ctx, c)
    if !ok {
        return err
    }

    pointIdx := -1
    if raw := c.QueryParam("point"); raw != "" {
        i, err := strconv.Atoi(raw)
        if err != nil || i < 0 || i >= len(v.Points) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid point index"})
        }
        pointIdx = i
    }

    ts := geo.TileSystem{TileSize: h.Map.TileSize}
    view := geo.NewMapView(ts, h.Map.MaxZoom)
    resp := mapViewResp{MaxZoom: view.MaxZoom(), TileSize: h.Map.TileSize}

    var box *geo.BoundingBoxE6
    if v.OfflineMapBounds != "" {
        b, err := geo.ParseBoundingBox(v.OfflineMapBounds)
        if err != nil {
            logging.Ctx(ctx).Warn().Err(err).Uint64("venue_id", v.ID).Msg("ignoring offline map bounds")
        } else {
            box = &b
        }
    }
    view.SetScrollableAreaLimit(box)
    view.SetZoom(zoom)

    var popup geo.Popup
    if pointIdx >= 0 {
        p := v.Points[pointIdx]
        popup.Open(geo.PopupItem{
            Title:   p.Name,
            Address: p.Address,
            Snippet: p.Description,
            Point:   geo.GeoPoint{LatE6: p.LatE6, LonE6: p.LonE6},
        })
    }

    switch {
    case xRaw != "":
        view.ScrollTo(x, y)
    case popup.IsOpen():
        b, _ := popup.Bubble()
        view.CenterOn(b.Position)
    case box != nil:
        view.CenterOn(box.Center())
    default:
        if p, ok := venueMarker(v); ok {
            view.CenterOn(p)
        }
    }

    resp.Zoom = view.Zoom()
    resp.WorldSize = ts.MapSize(view.Zoom())
    resp.ScrollX, resp.ScrollY = view.Scroll()
    resp.Center = view.Center()
    resp.Bounds = box
    resp.Limit = view.ScrollableLimit()
    if b, open := popup.Bubble(); open {
        resp.Popup = &b
    }
    return c.JSON(http.StatusOK, resp)
}

// venueMarker returns the first point of type venue.
func venueMarker(v *model.Venue) (geo.GeoPoint, bool) {
    for _, p := range v.Points {
        if p.Type == model.PointVenue {
            return geo.GeoPoint{LatE6: p.LatE6, LonE6: p.LonE6}, true
        }
    }
    return geo.GeoPoint{}, false
}
