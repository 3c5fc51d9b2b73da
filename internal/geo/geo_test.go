package geo

import (
	"math"
	"testing"
)

func TestMapSize(t *testing.T) {
	ts := DefaultTileSystem
	if ts.MapSize(0) != 256 {
		t.Errorf("MapSize(0) = %d", ts.MapSize(0))
	}
	if ts.MapSize(22) != 1<<30 {
		t.Errorf("MapSize(22) = %d", ts.MapSize(22))
	}
	if (TileSystem{}).MapSize(1) != 512 {
		t.Error("zero tile size should fall back to 256")
	}
}

func TestLatLongToPixelXY(t *testing.T) {
	ts := DefaultTileSystem
	tests := []struct {
		name     string
		lat, lon float64
		want     Point
	}{
		{"origin", 0, 0, Point{128, 128}},
		{"north west corner", 90, -180, Point{0, 0}},
		{"south east corner", -90, 180, Point{255, 255}},
		{"beyond range is clipped", 120, -400, Point{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ts.LatLongToPixelXY(tt.lat, tt.lon, 0); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPixelRoundTrip(t *testing.T) {
	ts := DefaultTileSystem
	for _, c := range [][2]float64{{49.4459, 11.0806}, {-33.8688, 151.2093}, {0, 0}, {60.1699, -24.9384}} {
		p := ts.LatLongToPixelXY(c[0], c[1], 22)
		lat, lon := ts.PixelXYToLatLong(p, 22)
		if math.Abs(lat-c[0]) > 1e-5 || math.Abs(lon-c[1]) > 1e-5 {
			t.Errorf("round trip %v -> %v -> (%f, %f)", c, p, lat, lon)
		}
	}
}

func TestParseE6(t *testing.T) {
	n, err := ParseE6(" 49.5 ")
	if err != nil || n != 49500000 {
		t.Errorf("ParseE6 = %d, %v", n, err)
	}
	n, _ = ParseE6("-0.25")
	if n != -250000 {
		t.Errorf("ParseE6(-0.25) = %d", n)
	}
	if _, err := ParseE6("north"); err == nil {
		t.Error("expected error for non numeric input")
	}
}

func TestParseBoundingBox(t *testing.T) {
	box, err := ParseBoundingBox("1.5,2.25,-1.5,-2.25")
	if err != nil {
		t.Fatal(err)
	}
	want := BoundingBoxE6{NorthE6: 1500000, EastE6: 2250000, SouthE6: -1500000, WestE6: -2250000}
	if box != want {
		t.Errorf("box = %+v", box)
	}
	if c := box.Center(); c != (GeoPoint{}) {
		t.Errorf("center = %+v", c)
	}
	if !box.Contains(GeoPoint{LatE6: 1500000, LonE6: 0}) || box.Contains(GeoPoint{LatE6: 0, LonE6: 3000000}) {
		t.Error("Contains mismatch")
	}
	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "-1,0,1,0"} {
		if _, err := ParseBoundingBox(bad); err == nil {
			t.Errorf("ParseBoundingBox(%q) expected error", bad)
		}
	}
}

func TestScrollToWrapsAndClamps(t *testing.T) {
	v := NewMapView(DefaultTileSystem, 2)
	tests := []struct {
		inX, inY     int64
		wantX, wantY int64
	}{
		{0, 0, 0, 0},
		{300, 0, 44, 0},
		{-300, 0, -44, 0},
		{128, 0, 128, 0},
		{0, 500, 0, 128},
		{0, -500, 0, -128},
		{900, -900, 132 - 256, -128},
		{384, 0, 128, 0},
		{-384, 0, -128, 0},
		{1 << 40, 0, 0, 0},
		{-(1 << 40), 0, 0, 0},
		{math.MaxInt64, 0, -1, 0},
		{math.MinInt64, 0, 0, 0},
	}
	for _, tt := range tests {
		x, y := v.ScrollTo(tt.inX, tt.inY)
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("ScrollTo(%d, %d) = (%d, %d), want (%d, %d)", tt.inX, tt.inY, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestScrollableAreaLimit(t *testing.T) {
	v := NewMapView(DefaultTileSystem, 2)
	box, _ := ParseBoundingBox("1,1,-1,-1")
	v.SetScrollableAreaLimit(&box)

	if got := *v.ScrollableLimit(); got != (Rect{Left: -3, Top: -3, Right: 3, Bottom: 3}) {
		t.Fatalf("limit = %+v", got)
	}

	v.SetZoom(2)
	if x, y := v.ScrollTo(100, -100); x != 3 || y != -3 {
		t.Errorf("at max zoom got (%d, %d), want (3, -3)", x, y)
	}

	v.SetZoom(0)
	if x, y := v.ScrollTo(50, 50); x != 0 || y != 0 {
		t.Errorf("zoom 0 upper clamp got (%d, %d)", x, y)
	}
	if x, y := v.ScrollTo(-50, -50); x != -1 || y != -1 {
		t.Errorf("zoom 0 lower clamp got (%d, %d)", x, y)
	}

	v.SetScrollableAreaLimit(nil)
	if v.ScrollableLimit() != nil {
		t.Error("nil box should clear the limit")
	}
	if x, _ := v.ScrollTo(100, 0); x != 100 {
		t.Errorf("without limit x = %d", x)
	}
}

func TestScrollListener(t *testing.T) {
	v := NewMapView(DefaultTileSystem, 22)
	var got []ScrollEvent
	v.SetScrollListener(func(e ScrollEvent) { got = append(got, e) })
	v.SetZoom(3)
	v.ScrollTo(10, 20)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[1] != (ScrollEvent{X: 10, Y: 20, Zoom: 3}) {
		t.Errorf("last event = %+v", got[1])
	}
}

func TestSetZoomClampsAndScales(t *testing.T) {
	v := NewMapView(DefaultTileSystem, 5)
	v.SetZoom(1)
	v.ScrollTo(10, -10)
	v.SetZoom(3)
	if x, y := v.Scroll(); x != 40 || y != -40 {
		t.Errorf("scaled scroll = (%d, %d)", x, y)
	}
	v.SetZoom(99)
	if v.Zoom() != 5 {
		t.Errorf("zoom = %d, want max 5", v.Zoom())
	}
	v.SetZoom(-1)
	if v.Zoom() != 0 {
		t.Errorf("zoom = %d, want 0", v.Zoom())
	}
}

func TestCenterOn(t *testing.T) {
	v := NewMapView(DefaultTileSystem, 22)
	v.SetZoom(16)
	target := NewGeoPoint(49.4459, 11.0806)
	v.CenterOn(target)
	c := v.Center()
	if math.Abs(c.Lat()-target.Lat()) > 1e-4 || math.Abs(c.Lon()-target.Lon()) > 1e-4 {
		t.Errorf("center = %+v, want %+v", c, target)
	}
}

func TestPopup(t *testing.T) {
	var p Popup
	if p.IsOpen() {
		t.Fatal("new popup should be closed")
	}
	p.Close()

	p.Open(PopupItem{Title: "Hotel", Address: "Main St 1", Snippet: "Breakfast included", Point: GeoPoint{LatE6: 1, LonE6: 2}})
	b, ok := p.Bubble()
	if !ok || !p.IsOpen() {
		t.Fatal("popup should be open")
	}
	if b.Name != "Hotel" || b.Address != "Main St 1" || b.Description != "Breakfast included" || b.Align != AlignBottomCenter {
		t.Errorf("bubble = %+v", b)
	}

	p.Open(PopupItem{Title: "Bar"})
	if b, _ := p.Bubble(); b.Name != "Bar" || b.Address != "" {
		t.Errorf("reopen should replace content, got %+v", b)
	}

	p.Close()
	p.Close()
	if _, ok := p.Bubble(); ok || p.IsOpen() {
		t.Error("popup should be closed")
	}
}
