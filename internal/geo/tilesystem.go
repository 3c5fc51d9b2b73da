package geo

import "math"

// Mercator limits.  Latitudes beyond ±85.05112878 project to infinity.
const (
	MinLatitude  = -85.05112878
	MaxLatitude  = 85.05112878
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Point is a pixel position.
type Point struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// TileSystem converts between geographic and pixel coordinates on the
// Web Mercator projection used by both Google and OSM tiles.
type TileSystem struct {
	TileSize int
}

// DefaultTileSystem uses 256 px tiles.
var DefaultTileSystem = TileSystem{TileSize: 256}

// MapSize is the width and height of the world in pixels at level.
func (ts TileSystem) MapSize(level int) int64 {
	size := ts.TileSize
	if size <= 0 {
		size = 256
	}
	return int64(size) << uint(level)
}

func clip(n, min, max float64) float64 {
	return math.Min(math.Max(n, min), max)
}

// LatLongToPixelXY projects a position at the given level of detail.
// Inputs outside the projectable range are clipped.
func (ts TileSystem) LatLongToPixelXY(lat, lon float64, level int) Point {
	lat = clip(lat, MinLatitude, MaxLatitude)
	lon = clip(lon, MinLongitude, MaxLongitude)

	x := (lon + 180) / 360
	sinLat := math.Sin(lat * math.Pi / 180)
	y := 0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)

	mapSize := float64(ts.MapSize(level))
	return Point{
		X: int64(clip(x*mapSize+0.5, 0, mapSize-1)),
		Y: int64(clip(y*mapSize+0.5, 0, mapSize-1)),
	}
}

// PixelXYToLatLong is the inverse of LatLongToPixelXY.
func (ts TileSystem) PixelXYToLatLong(p Point, level int) (lat, lon float64) {
	mapSize := float64(ts.MapSize(level))
	x := clip(float64(p.X), 0, mapSize-1)/mapSize - 0.5
	y := 0.5 - clip(float64(p.Y), 0, mapSize-1)/mapSize

	lat = 90 - 360*math.Atan(math.Exp(-y*2*math.Pi))/math.Pi
	lon = 360 * x
	return lat, lon
}
