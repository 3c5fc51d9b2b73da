// Package feed reads conference documents from the upstream feed and
// imports them into the local store.
//
// A document is JSON.  Rooms, tracks and speakers carry feed guids which
// events reference:
//
//	{
//	  "conference": {"guid": "dc12", "name": "DroidCon 2012", ...},
//	  "venue": {"guid": "v1", "name": "...", "points": [...], "polygons": [...]},
//	  "rooms":    [{"guid": "r1", "name": "Main Stage"}],
//	  "tracks":   [{"guid": "t1", "name": "Mobile", "color": "#00ff00"}],
//	  "speakers": [{"guid": "s1", "name": "Alice"}],
//	  "events":   [{"guid": "e1", "title": "...", "date": "2012-09-18T09:30:00+0200",
//	                "length": 45, "room": "r1", "track": "t1", "speakers": ["s1"]}]
//	}
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/iliyamo/conference-companion/internal/validation"
)

// ErrInvalidDocument wraps every decode or validation failure.
var ErrInvalidDocument = errors.New("invalid conference document")

type Document struct {
	Conference ConferenceDoc `json:"conference" validate:"required"`
	Venue      *VenueDoc     `json:"venue,omitempty"`
	Rooms      []RoomDoc     `json:"rooms" validate:"dive"`
	Tracks     []TrackDoc    `json:"tracks" validate:"dive"`
	Speakers   []SpeakerDoc  `json:"speakers" validate:"dive"`
	Events     []EventDoc    `json:"events" validate:"dive"`
}

type ConferenceDoc struct {
	GUID        string `json:"guid" validate:"required,max=191"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Year        int    `json:"year" validate:"gte=0"`
	SocialTag   string `json:"social_tag" validate:"max=255"`
	DateRange   string `json:"date_range" validate:"max=255"`
	URL         string `json:"url" validate:"omitempty,url"`
}

type VenueDoc struct {
	GUID             string       `json:"guid" validate:"required,max=191"`
	Name             string       `json:"name" validate:"required,max=255"`
	Address          string       `json:"address"`
	InfoText         string       `json:"info_text"`
	OfflineMap       string       `json:"offline_map"`
	OfflineMapBounds string       `json:"offline_map_bounds" validate:"omitempty,bbox"`
	Points           []PointDoc   `json:"points" validate:"dive"`
	Polygons         []PolygonDoc `json:"polygons" validate:"dive"`
}

type PointDoc struct {
	Type        string `json:"type" validate:"omitempty,oneof=none venue food drink electronics party hotel"`
	Lat         string `json:"lat" validate:"required,coord"`
	Lon         string `json:"lon" validate:"required,coord"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

type VertexDoc struct {
	Lat string `json:"lat" validate:"required,coord"`
	Lon string `json:"lon" validate:"required,coord"`
}

type PolygonDoc struct {
	Name      string      `json:"name"`
	Label     string      `json:"label"`
	LineColor int         `json:"line_color"`
	FillColor int         `json:"fill_color"`
	Points    []VertexDoc `json:"points" validate:"min=3,dive"`
}

type RoomDoc struct {
	GUID        string `json:"guid" validate:"required,max=191"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

type TrackDoc struct {
	GUID  string `json:"guid" validate:"required,max=191"`
	Name  string `json:"name" validate:"required,max=255"`
	Color string `json:"color" validate:"max=32"`
}

type SpeakerDoc struct {
	GUID      string `json:"guid" validate:"required,max=191"`
	Name      string `json:"name" validate:"required,max=255"`
	Company   string `json:"company"`
	Biography string `json:"biography"`
	PhotoGUID string `json:"photo_guid"`
}

type EventDoc struct {
	GUID     string   `json:"guid" validate:"required,max=191"`
	Title    string   `json:"title" validate:"required,max=512"`
	Abstract string   `json:"abstract"`
	Type     string   `json:"type" validate:"max=64"`
	Language string   `json:"language" validate:"max=32"`
	Date     string   `json:"date" validate:"required,eventdate"`
	Length   int      `json:"length" validate:"gte=0"`
	Room     string   `json:"room" validate:"required"`
	Track    string   `json:"track" validate:"required"`
	Speakers []string `json:"speakers"`
	URLs     []string `json:"urls"`
}

// Decode parses and validates a document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks field rules and that every reference resolves.
func (d *Document) Validate() error {
	if err := validation.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(d.Rooms) > 0 && d.Venue == nil {
		return fmt.Errorf("%w: rooms need a venue", ErrInvalidDocument)
	}
	rooms, err := guidSet("room", len(d.Rooms), func(i int) string { return d.Rooms[i].GUID })
	if err != nil {
		return err
	}
	tracks, err := guidSet("track", len(d.Tracks), func(i int) string { return d.Tracks[i].GUID })
	if err != nil {
		return err
	}
	speakers, err := guidSet("speaker", len(d.Speakers), func(i int) string { return d.Speakers[i].GUID })
	if err != nil {
		return err
	}
	if _, err := guidSet("event", len(d.Events), func(i int) string { return d.Events[i].GUID }); err != nil {
		return err
	}
	for _, e := range d.Events {
		if !rooms[e.Room] {
			return fmt.Errorf("%w: event %s references unknown room %q", ErrInvalidDocument, e.GUID, e.Room)
		}
		if !tracks[e.Track] {
			return fmt.Errorf("%w: event %s references unknown track %q", ErrInvalidDocument, e.GUID, e.Track)
		}
		seen := map[string]bool{}
		for _, s := range e.Speakers {
			if !speakers[s] {
				return fmt.Errorf("%w: event %s references unknown speaker %q", ErrInvalidDocument, e.GUID, s)
			}
			if seen[s] {
				return fmt.Errorf("%w: event %s lists speaker %q twice", ErrInvalidDocument, e.GUID, s)
			}
			seen[s] = true
		}
	}
	return nil
}

func guidSet(kind string, n int, guid func(int) string) (map[string]bool, error) {
	set := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		g := guid(i)
		if set[g] {
			return nil, fmt.Errorf("%w: duplicate %s guid %q", ErrInvalidDocument, kind, g)
		}
		set[g] = true
	}
	return set, nil
}
