package handler_test

import (
	"net/http"
	"testing"

	"github.com/iliyamo/conference-companion/internal/geo"
	"github.com/iliyamo/conference-companion/internal/model"
)

func TestConferenceViews(t *testing.T) {
	v := newEnv(t)
	v.seed(t)

	var list struct {
		Items []model.Conference `json:"items"`
	}
	rec := v.do(http.MethodGet, "/v1/conferences", "", nil)
	decode(t, rec, &list)
	if rec.Code != http.StatusOK || len(list.Items) != 1 || list.Items[0].GUID != "dc12" {
		t.Fatalf("list = %d %+v", rec.Code, list)
	}

	cases := []struct {
		path string
		want string
	}{
		{"/v1/conferences/1/events", "e1,e2,e3"},
		{"/v1/conferences/1/events?track=1", "e2,e3"},
		{"/v1/conferences/1/events?language=de", "e3"},
		{"/v1/conferences/1/events?track=1,2&language=en", "e1,e2"},
		{"/v1/conferences/1/events/next?at=2012-09-18T07:20:00Z", "e1,e2"},
		{"/v1/conferences/1/events/next?at=2012-09-18T07:30:00Z", "e2,e3"},
		{"/v1/conferences/1/events/next?at=2012-09-18T07:30:00Z&n=1", "e2"},
		{"/v1/conferences/1/events/next?at=2013-01-01T00:00:00Z", ""},
		{"/v1/conferences/1/search?q=BOB", "e2,e3"},
		{"/v1/conferences/1/search?q=bounding", "e2"},
		{"/v1/conferences/1/search?q=nothing+here", ""},
	}
	for _, tc := range cases {
		var got eventList
		rec := v.do(http.MethodGet, tc.path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s = %d %s", tc.path, rec.Code, rec.Body.String())
			continue
		}
		decode(t, rec, &got)
		if g := guids(got.Items); g != tc.want {
			t.Errorf("%s = %q, want %q", tc.path, g, tc.want)
		}
	}

	var ev model.Event
	rec = v.do(http.MethodGet, "/v1/conferences/1/events/2", "", nil)
	decode(t, rec, &ev)
	if ev.GUID != "e2" || ev.RoomName != "Main Stage" || len(ev.Speakers) != 2 || ev.InMySchedule {
		t.Errorf("event = %+v", ev)
	}

	var langs struct {
		Items []string `json:"items"`
	}
	decode(t, v.do(http.MethodGet, "/v1/conferences/1/languages", "", nil), &langs)
	if len(langs.Items) != 2 || langs.Items[0] != "de" || langs.Items[1] != "en" {
		t.Errorf("languages = %v", langs.Items)
	}
	var tracks struct {
		Items []model.Track `json:"items"`
	}
	decode(t, v.do(http.MethodGet, "/v1/conferences/1/tracks", "", nil), &tracks)
	if len(tracks.Items) != 2 {
		t.Errorf("tracks = %+v", tracks.Items)
	}
}

func TestConferenceErrors(t *testing.T) {
	v := newEnv(t)
	v.seed(t)

	cases := []struct {
		path string
		code int
	}{
		{"/v1/conferences/abc", http.StatusBadRequest},
		{"/v1/conferences/99", http.StatusNotFound},
		{"/v1/conferences/99/events", http.StatusNotFound},
		{"/v1/conferences/1/events?track=x", http.StatusBadRequest},
		{"/v1/conferences/1/events/next?n=0", http.StatusBadRequest},
		{"/v1/conferences/1/events/next?at=yesterday", http.StatusBadRequest},
		{"/v1/conferences/1/events/42", http.StatusNotFound},
		{"/v1/conferences/1/search?q=+", http.StatusBadRequest},
		{"/v1/conferences/1/venue/map?x=1", http.StatusBadRequest},
		{"/v1/conferences/1/venue/map?zoom=high", http.StatusBadRequest},
		{"/v1/conferences/1/venue/map?point=2", http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := v.do(http.MethodGet, tc.path, "", nil); rec.Code != tc.code {
			t.Errorf("%s = %d, want %d (%s)", tc.path, rec.Code, tc.code, rec.Body.String())
		}
	}
}

type mapView struct {
	Zoom      int                `json:"zoom"`
	MaxZoom   int                `json:"max_zoom"`
	WorldSize int64              `json:"world_size"`
	ScrollX   int64              `json:"scroll_x"`
	ScrollY   int64              `json:"scroll_y"`
	Center    geo.GeoPoint       `json:"center"`
	Bounds    *geo.BoundingBoxE6 `json:"bounds"`
	Limit     *geo.Rect          `json:"limit"`
	Popup     *geo.Bubble        `json:"popup"`
}

func TestVenueMap(t *testing.T) {
	v := newEnv(t)
	v.seed(t)

	var venue model.Venue
	rec := v.do(http.MethodGet, "/v1/conferences/1/venue", "", nil)
	decode(t, rec, &venue)
	if venue.Name != "Postbahnhof" || len(venue.Points) != 2 || len(venue.Polygons) != 1 {
		t.Fatalf("venue = %+v", venue)
	}

	var mv mapView
	rec = v.do(http.MethodGet, "/v1/conferences/1/venue/map", "", nil)
	decode(t, rec, &mv)
	if mv.Zoom != 16 || mv.MaxZoom != 22 || mv.WorldSize != 256<<16 || mv.Limit == nil || mv.Popup != nil {
		t.Fatalf("default view = %+v", mv)
	}
	// Centered on the bounds, so the center lies inside them.
	if !mv.Bounds.Contains(mv.Center) {
		t.Errorf("center %+v outside %+v", mv.Center, mv.Bounds)
	}

	// A scroll far beyond the bounds is clamped to the limit corner.
	rec = v.do(http.MethodGet, "/v1/conferences/1/venue/map?zoom=16&x=8000000&y=8000000", "", nil)
	decode(t, rec, &mv)
	if mv.ScrollX != mv.Limit.Right>>6 || mv.ScrollY != mv.Limit.Bottom>>6 {
		t.Errorf("scroll = (%d,%d), limit %+v", mv.ScrollX, mv.ScrollY, mv.Limit)
	}

	// Scroll offsets many worlds away wrap in one step and still clamp.
	for _, x := range []string{"1099511627776", "9223372036854775807", "-9223372036854775808"} {
		rec = v.do(http.MethodGet, "/v1/conferences/1/venue/map?zoom=0&y=0&x="+x, "", nil)
		decode(t, rec, &mv)
		if mv.Zoom != 0 || mv.ScrollX < mv.Limit.Left>>22 || mv.ScrollX > mv.Limit.Right>>22 {
			t.Errorf("x=%s: zoom %d scroll %d, limit %+v", x, mv.Zoom, mv.ScrollX, mv.Limit)
		}
	}

	// Zoom beyond the pyramid is clamped.
	rec = v.do(http.MethodGet, "/v1/conferences/1/venue/map?zoom=40", "", nil)
	decode(t, rec, &mv)
	if mv.Zoom != 22 {
		t.Errorf("zoom = %d", mv.Zoom)
	}

	rec = v.do(http.MethodGet, "/v1/conferences/1/venue/map?point=1", "", nil)
	decode(t, rec, &mv)
	if mv.Popup == nil || mv.Popup.Name != "Curry stand" || mv.Popup.Description != "Vegan options" || mv.Popup.Align != geo.AlignBottomCenter {
		t.Fatalf("popup = %+v", mv.Popup)
	}
	if mv.Popup.Position != (geo.GeoPoint{LatE6: 52510000, LonE6: 13450000}) {
		t.Errorf("popup position = %+v", mv.Popup.Position)
	}
}

func TestVenueMissing(t *testing.T) {
	v := newEnv(t)
	v.seed(t)
	if rec := v.do(http.MethodDelete, "/v1/admin/conferences/1/data", token(t, 1, model.RoleAdmin), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("clear = %d", rec.Code)
	}
	if rec := v.do(http.MethodGet, "/v1/conferences/1/venue", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("venue after clear = %d", rec.Code)
	}
}

func TestNextCacheControl(t *testing.T) {
	v := newEnv(t)
	v.seed(t)

	rec := v.do(http.MethodGet, "/v1/conferences/1/events/next", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("clock-relative next = %d, Cache-Control %q", rec.Code, rec.Header().Get("Cache-Control"))
	}
	rec = v.do(http.MethodGet, "/v1/conferences/1/events/next?at=2012-09-18T07:20:00Z", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Cache-Control") != "" {
		t.Errorf("pinned next = %d, Cache-Control %q", rec.Code, rec.Header().Get("Cache-Control"))
	}
}
