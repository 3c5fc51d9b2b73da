package model

// PointType classifies a map point.  The zero value is used for the
// vertices of a polygon, which carry no category.
type PointType int

const (
    PointNone PointType = iota
    PointVenue
    PointFood
    PointDrink
    PointElectronics
    PointParty
    PointHotel
)

var pointTypeNames = map[PointType]string{
    PointNone:        "none",
    PointVenue:       "venue",
    PointFood:        "food",
    PointDrink:       "drink",
    PointElectronics: "electronics",
    PointParty:       "party",
    PointHotel:       "hotel",
}

// ParsePointType maps the category string stored in points.type onto a
// PointType.  Unknown categories map to PointNone.
func ParsePointType(s string) PointType {
    for t, name := range pointTypeNames {
        if name == s {
            return t
        }
    }
    return PointNone
}

func (t PointType) String() string {
    if s, ok := pointTypeNames[t]; ok {
        return s
    }
    return "none"
}

// MarshalText renders the type by name so JSON clients see "food"
// rather than an enum ordinal.
func (t PointType) MarshalText() ([]byte, error) {
    return []byte(t.String()), nil
}

// Venue holds the venue description together with the annotations that
// are drawn on its map.  Rows come from the `venues`, `points` and
// `mapPolygons` tables.
//
// Fields:
//  ID               – primary key identifier.
//  GUID             – upstream identifier.
//  Name             – venue name.
//  Address          – postal address.
//  InfoText         – free text shown on the venue screen.
//  OfflineMap       – reference to a pre-rendered offline map image.
//  OfflineMapBounds – "north,east,south,west" bounds of the offline map.
//  Points           – categorized markers.
//  Polygons         – outlined areas.
type Venue struct {
    ID               uint64       `json:"id"`                 // venues.id
    GUID             string       `json:"guid"`               // venues.guid
    Name             string       `json:"name"`               // venues.name
    Address          string       `json:"address"`            // venues.address
    InfoText         string       `json:"info_text"`          // venues.info_text
    OfflineMap       string       `json:"offline_map"`        // venues.offline_map
    OfflineMapBounds string       `json:"offline_map_bounds"` // venues.offline_map_bounds
    Points           []MapPoint   `json:"points"`
    Polygons         []MapPolygon `json:"polygons"`
}

// MapPoint is a marker on the venue map.  Coordinates are fixed point
// degrees scaled by 1e6.
type MapPoint struct {
    Type        PointType `json:"type"`                  // points.type
    LatE6       int       `json:"lat_e6"`                // points.lat
    LonE6       int       `json:"lon_e6"`                // points.lon
    Name        string    `json:"name,omitempty"`        // points.name
    Address     string    `json:"address,omitempty"`     // points.address
    Description string    `json:"description,omitempty"` // points.description
}

// MapPolygon is a styled outline made of ordered points.
type MapPolygon struct {
    Name      string     `json:"name"`       // mapPolygons.name
    Label     string     `json:"label"`      // mapPolygons.label
    LineColor int        `json:"line_color"` // mapPolygons.line_color
    FillColor int        `json:"fill_color"` // mapPolygons.fill_color
    Points    []MapPoint `json:"points"`     // parsed from mapPolygons.point_list
}

// Room is a room inside a venue where events take place.
type Room struct {
    ID          uint64 // rooms.id
    GUID        string // rooms.guid
    Name        string // rooms.name
    Description string // rooms.description
    VenueID     uint64 // rooms.venue_id
}
