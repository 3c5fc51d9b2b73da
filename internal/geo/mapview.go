package geo

// Rect is a pixel rectangle in map coordinates (origin at the world
// center).
type Rect struct {
	Left   int64 `json:"left"`
	Top    int64 `json:"top"`
	Right  int64 `json:"right"`
	Bottom int64 `json:"bottom"`
}

// ScrollEvent is delivered to the scroll listener after every ScrollTo.
type ScrollEvent struct {
	X    int64
	Y    int64
	Zoom int
}

// MapView tracks the scroll position and zoom level of a map whose
// scroll coordinates are centered on the world origin.  Horizontal
// scrolling wraps around the globe; vertical scrolling stops at the
// poles; an optional scrollable area limit confines both axes.
type MapView struct {
	ts       TileSystem
	maxZoom  int
	zoom     int
	scrollX  int64
	scrollY  int64
	limit    *Rect
	onScroll func(ScrollEvent)
}

// NewMapView returns a view at zoom 0 scrolled to the world origin.
func NewMapView(ts TileSystem, maxZoom int) *MapView {
	if maxZoom < 0 {
		maxZoom = 0
	}
	return &MapView{ts: ts, maxZoom: maxZoom}
}

// SetScrollListener registers fn to be called after each scroll.
func (v *MapView) SetScrollListener(fn func(ScrollEvent)) { v.onScroll = fn }

func (v *MapView) Zoom() int { return v.zoom }
func (v *MapView) MaxZoom() int { return v.maxZoom }
func (v *MapView) Scroll() (x, y int64) { return v.scrollX, v.scrollY }
func (v *MapView) ScrollableLimit() *Rect { return v.limit }

// SetScrollableAreaLimit confines scrolling to box.  The rectangle is
// kept at maximum zoom and scaled down on use.  A nil box clears the
// limit.
func (v *MapView) SetScrollableAreaLimit(box *BoundingBoxE6) {
	if box == nil {
		v.limit = nil
		return
	}
	half := v.ts.MapSize(v.maxZoom) / 2

	upperLeft := v.ts.LatLongToPixelXY(float64(box.NorthE6)/1e6, float64(box.WestE6)/1e6, v.maxZoom)
	lowerRight := v.ts.LatLongToPixelXY(float64(box.SouthE6)/1e6, float64(box.EastE6)/1e6, v.maxZoom)

	v.limit = &Rect{
		Left:   upperLeft.X - half,
		Top:    upperLeft.Y - half,
		Right:  lowerRight.X - half,
		Bottom: lowerRight.Y - half,
	}
}

// SetZoom changes the zoom level, clamped to [0, maxZoom], and re-applies
// the scroll constraints at the new level.  The scroll position is scaled
// so the same geographic point stays at the center.
func (v *MapView) SetZoom(level int) {
	if level < 0 {
		level = 0
	}
	if level > v.maxZoom {
		level = v.maxZoom
	}
	x, y := v.scrollX, v.scrollY
	if diff := level - v.zoom; diff > 0 {
		x, y = x<<uint(diff), y<<uint(diff)
	} else if diff < 0 {
		x, y = x>>uint(-diff), y>>uint(-diff)
	}
	v.zoom = level
	v.ScrollTo(x, y)
}

// ScrollTo moves the view, wrapping x around the world, clamping y to the
// poles and then confining both to the scrollable area limit.  It returns
// the position actually applied.
func (v *MapView) ScrollTo(x, y int64) (int64, int64) {
	half := v.ts.MapSize(v.zoom) / 2

	x = wrap(x, half)
	if y < -half {
		y = -half
	}
	if y > half {
		y = half
	}

	if v.limit != nil {
		zoomDiff := uint(v.maxZoom - v.zoom)
		minX := v.limit.Left >> zoomDiff
		minY := v.limit.Top >> zoomDiff
		maxX := v.limit.Right >> zoomDiff
		maxY := v.limit.Bottom >> zoomDiff
		if x < minX {
			x = minX
		} else if x > maxX {
			x = maxX
		}
		if y < minY {
			y = minY
		} else if y > maxY {
			y = maxY
		}
	}

	v.scrollX, v.scrollY = x, y
	if v.onScroll != nil {
		v.onScroll(ScrollEvent{X: x, Y: y, Zoom: v.zoom})
	}
	return x, y
}

// wrap brings x into [-half, half] by whole world widths.  The result
// is what stepping one width at a time would give, computed in O(1)
// without overflowing near the int64 limits.
func wrap(x, half int64) int64 {
	w := half * 2
	switch {
	case x > half:
		d := x - half
		k := d / w
		if d%w != 0 {
			k++
		}
		return x - (k-1)*w - w
	case x < -half:
		d := -half - x
		k := d / w
		if d%w != 0 {
			k++
		}
		return x + (k-1)*w + w
	}
	return x
}

// CenterOn scrolls so that p is at the center of the view.
func (v *MapView) CenterOn(p GeoPoint) (int64, int64) {
	px := v.ts.LatLongToPixelXY(p.Lat(), p.Lon(), v.zoom)
	half := v.ts.MapSize(v.zoom) / 2
	return v.ScrollTo(px.X-half, px.Y-half)
}

// Center returns the geographic position at the center of the view.
func (v *MapView) Center() GeoPoint {
	half := v.ts.MapSize(v.zoom) / 2
	lat, lon := v.ts.PixelXYToLatLong(Point{X: v.scrollX + half, Y: v.scrollY + half}, v.zoom)
	return NewGeoPoint(lat, lon)
}
