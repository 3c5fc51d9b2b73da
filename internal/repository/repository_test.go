package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/iliyamo/conference-companion/internal/database"
	"github.com/iliyamo/conference-companion/internal/model"
)

// newTestDB returns an in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.CreateSchema(context.Background(), db, database.SQLite); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

// fixture holds the ids created by seedConference.
type fixture struct {
	conferenceID uint64
	venueID      uint64
	events       map[string]uint64 // guid -> id
	tracks       map[string]uint64 // name -> id
}

// seedConference imports a small conference: two tracks (one of them the
// meta track), two speakers and three events out of chronological order.
func seedConference(t *testing.T, db *sql.DB, guid string) fixture {
	t.Helper()
	ctx := context.Background()
	confs := NewConferenceRepo(db)
	venues := NewVenueRepo(db)
	catalog := NewCatalogRepo(db)
	events := NewEventRepo(db)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	c := &model.Conference{GUID: guid, Name: "DroidCon " + guid, Year: 2012, URL: "http://example.com/" + guid}
	must(confs.CreateTx(ctx, tx, c))

	v := &model.Venue{GUID: guid + "-venue", Name: "Postbahnhof", Address: "Strasse der Pariser Kommune 8", OfflineMapBounds: "52.52,13.46,52.50,13.44"}
	must(venues.CreateTx(ctx, tx, c.ID, v))
	must(venues.AddPointTx(ctx, tx, v.ID, PointRow{Type: "food", Lat: "52.510503", Lon: "13.451234", Name: "Cafe"}))
	must(venues.AddPointTx(ctx, tx, v.ID, PointRow{Type: "venue", Lat: "not-a-number", Lon: "13.45", Name: "Broken"}))
	must(venues.AddPolygonTx(ctx, tx, v.ID, PolygonRow{Name: "hall", Label: "Hall A", LineColor: 0xff0000, FillColor: 0x330000ff,
		PointList: "13.45,52.51;13.46,52.51;bad;13.46,52.50"}))
	must(confs.SetVenueTx(ctx, tx, c.ID, v.ID))

	room := &model.Room{GUID: guid + "-r1", Name: "Main Stage", VenueID: v.ID}
	must(catalog.CreateRoomTx(ctx, tx, room))

	mobile := &model.Track{GUID: guid + "-t1", Name: "Mobile", Color: "#00ff00", ConferenceID: c.ID}
	meta := &model.Track{GUID: guid + "-t2", Name: "Meta", Color: "#cccccc", ConferenceID: c.ID}
	unused := &model.Track{GUID: guid + "-t3", Name: "Unused", ConferenceID: c.ID}
	must(catalog.CreateTrackTx(ctx, tx, mobile))
	must(catalog.CreateTrackTx(ctx, tx, meta))
	must(catalog.CreateTrackTx(ctx, tx, unused))

	alice := &model.Speaker{GUID: guid + "-s1", Name: "Alice Example", ConferenceID: c.ID}
	bob := &model.Speaker{GUID: guid + "-s2", Name: "Bob Builder", ConferenceID: c.ID}
	must(catalog.CreateSpeakerTx(ctx, tx, alice))
	must(catalog.CreateSpeakerTx(ctx, tx, bob))

	recs := []*model.EventRecord{
		{GUID: "ev-2", TrackID: meta.ID, Date: "2012-09-18T10:30:00+0200", Length: 30, Language: "de", Title: "Coffee break", Abstract: "Drinks 100% free"},
		{GUID: "ev-1", TrackID: mobile.ID, Date: "2012-09-18T09:00:00+0200", Length: 60, Language: "en", Title: "Opening Go", Type: "talk"},
		{GUID: "ev-3", TrackID: mobile.ID, Date: "2012-09-18T08:00:00+0000", Length: 45, Language: "en", Title: "Maps", Abstract: "Tiles and bounds"},
	}
	f := fixture{conferenceID: c.ID, venueID: v.ID, events: map[string]uint64{}, tracks: map[string]uint64{
		"Mobile": mobile.ID, "Meta": meta.ID, "Unused": unused.ID,
	}}
	for _, rec := range recs {
		rec.ConferenceID = c.ID
		rec.RoomID = room.ID
		must(events.CreateTx(ctx, tx, rec))
		f.events[rec.GUID] = rec.ID
	}
	must(catalog.AddEventSpeakerTx(ctx, tx, alice.ID, f.events["ev-1"]))
	must(catalog.AddEventSpeakerTx(ctx, tx, alice.ID, f.events["ev-3"]))
	must(catalog.AddEventSpeakerTx(ctx, tx, bob.ID, f.events["ev-3"]))
	must(tx.Commit())
	return f
}

func eventGUIDs(events []*model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.GUID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
