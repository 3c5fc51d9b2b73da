// Package geo holds the map arithmetic behind the venue map: fixed point
// coordinates, the Web Mercator tile system, a scroll-bounded map view and
// the marker popup bubble.
package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// GeoPoint is a position in degrees scaled by 1e6.
type GeoPoint struct {
	LatE6 int `json:"lat_e6"`
	LonE6 int `json:"lon_e6"`
}

// NewGeoPoint converts decimal degrees, truncating toward zero.
func NewGeoPoint(lat, lon float64) GeoPoint {
	return GeoPoint{LatE6: int(lat * 1e6), LonE6: int(lon * 1e6)}
}

func (p GeoPoint) Lat() float64 { return float64(p.LatE6) / 1e6 }
func (p GeoPoint) Lon() float64 { return float64(p.LonE6) / 1e6 }

// ParseE6 parses a decimal degree string into its 1e6 fixed point value.
func ParseE6(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse coordinate %q: %w", s, err)
	}
	return int(v * 1e6), nil
}

// BoundingBoxE6 is a geographic rectangle in 1e6 fixed point degrees.
type BoundingBoxE6 struct {
	NorthE6 int `json:"north_e6"`
	EastE6  int `json:"east_e6"`
	SouthE6 int `json:"south_e6"`
	WestE6  int `json:"west_e6"`
}

// ParseBoundingBox reads "north,east,south,west" in decimal degrees.
// North must not be below south.
func ParseBoundingBox(s string) (BoundingBoxE6, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBoxE6{}, fmt.Errorf("bounding box %q: want 4 comma separated values", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := ParseE6(p)
		if err != nil {
			return BoundingBoxE6{}, err
		}
		v[i] = n
	}
	box := BoundingBoxE6{NorthE6: v[0], EastE6: v[1], SouthE6: v[2], WestE6: v[3]}
	if box.NorthE6 < box.SouthE6 {
		return BoundingBoxE6{}, fmt.Errorf("bounding box %q: north below south", s)
	}
	return box, nil
}

// Center returns the midpoint of the box.
func (b BoundingBoxE6) Center() GeoPoint {
	return GeoPoint{LatE6: (b.NorthE6 + b.SouthE6) / 2, LonE6: (b.EastE6 + b.WestE6) / 2}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBoxE6) Contains(p GeoPoint) bool {
	return p.LatE6 <= b.NorthE6 && p.LatE6 >= b.SouthE6 &&
		p.LonE6 >= b.WestE6 && p.LonE6 <= b.EastE6
}
