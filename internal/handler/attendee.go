package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/conference-companion/internal/repository"
)

// maxBulkGUIDs caps the guid list of a bulk flag request.
const maxBulkGUIDs = 1000

// AttendeeHandler serves the per-user schedule views and flag writes.
type AttendeeHandler struct {
    Conferences *repository.ConferenceRepo
    Events      *repository.EventRepo
}

func NewAttendeeHandler(conferences *repository.ConferenceRepo, events *repository.EventRepo) *AttendeeHandler {
    if conferences == nil || events == nil {
        panic("nil repository passed to NewAttendeeHandler")
    }
    return &AttendeeHandler{Conferences: conferences, Events: events}
}

type guidsReq struct {
    GUIDs []string `json:"guids"`
}

// caller resolves the user and the :id conference for a request.
func (h *AttendeeHandler) caller(ctx context.Context, c echo.Context) (userID, conferenceID uint64, ok bool, err error) {
    userID, uerr := getUserID(c)
    if uerr != nil {
        return 0, 0, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    conferenceID, valid := parseID(c, "id")
    if !valid {
        return 0, 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conference id"})
    }
    if _, err := h.Conferences.GetByID(ctx, conferenceID); err != nil {
        return 0, 0, false, writeError(c, err, "load conference failed")
    }
    return userID, conferenceID, true, nil
}

// MySchedule lists the events the caller added to their schedule.
func (h *AttendeeHandler) MySchedule(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    uid, confID, ok, err := h.caller(ctx, c)
    if !ok {
        return err
    }
    events, err := h.Events.MySchedule(ctx, confID, uid)
    if err != nil {
        return writeError(c, err, "load schedule failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// Alerts lists the events the caller wants a reminder for.
func (h *AttendeeHandler) Alerts(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    uid, confID, ok, err := h.caller(ctx, c)
    if !ok {
        return err
    }
    events, err := h.Events.Alerts(ctx, confID, uid)
    if err != nil {
        return writeError(c, err, "load alerts failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// Favorites returns the guids in the caller's schedule, the form clients
// keep locally to restore their selection after a refresh.
func (h *AttendeeHandler) Favorites(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    uid, confID, ok, err := h.caller(ctx, c)
    if !ok {
        return err
    }
    guids, err := h.Events.FavoriteGUIDs(ctx, confID, uid)
    if err != nil {
        return writeError(c, err, "load favorites failed")
    }
    if guids == nil {
        guids = []string{}
    }
    return c.JSON(http.StatusOK, echo.Map{"guids": guids})
}

// MarkFavorites adds the posted guids to the caller's schedule.
func (h *AttendeeHandler) MarkFavorites(c echo.Context) error {
    return h.markMany(c, h.Events.MarkMySchedule)
}

// MarkAlerts sets the alert flag on the posted guids.
func (h *AttendeeHandler) MarkAlerts(c echo.Context) error {
    return h.markMany(c, h.Events.MarkAlerts)
}

func (h *AttendeeHandler) markMany(c echo.Context, mark func(ctx context.Context, userID, conferenceID uint64, guids []string) (int, error)) error {
    var req guidsReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if len(req.GUIDs) > maxBulkGUIDs {
        return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "too many guids"})
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    uid, confID, ok, err := h.caller(ctx, c)
    if !ok {
        return err
    }
    n, err := mark(ctx, uid, confID, req.GUIDs)
    if err != nil {
        return writeError(c, err, "update flags failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": n, "ignored": len(req.GUIDs) - n})
}

// AddToSchedule and RemoveFromSchedule toggle one event.
func (h *AttendeeHandler) AddToSchedule(c echo.Context) error {
    return h.toggle(c, h.Events.SetMySchedule, true)
}

func (h *AttendeeHandler) RemoveFromSchedule(c echo.Context) error {
    return h.toggle(c, h.Events.SetMySchedule, false)
}

// SetAlert and ClearAlert toggle the reminder on one event.
func (h *AttendeeHandler) SetAlert(c echo.Context) error {
    return h.toggle(c, h.Events.SetAlert, true)
}

func (h *AttendeeHandler) ClearAlert(c echo.Context) error {
    return h.toggle(c, h.Events.SetAlert, false)
}

func (h *AttendeeHandler) toggle(c echo.Context, set func(ctx context.Context, userID, eventID uint64, on bool) error, on bool) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := set(ctx, uid, eventID, on); err != nil {
        return writeError(c, err, "update flag failed")
    }
    return c.NoContent(http.StatusNoContent)
}
