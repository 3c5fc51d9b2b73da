package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/conference-companion/internal/model"
)

func TestVenueGetInfo(t *testing.T) {
	db := newTestDB(t)
	f := seedConference(t, db, "dc12")
	ctx := context.Background()

	venueID, err := NewConferenceRepo(db).VenueID(ctx, f.conferenceID)
	if err != nil || venueID != f.venueID {
		t.Fatalf("VenueID = %d, %v", venueID, err)
	}

	v, err := NewVenueRepo(db).GetInfo(ctx, venueID)
	if err != nil {
		t.Fatal(err)
	}
	if v.Name != "Postbahnhof" || v.OfflineMapBounds != "52.52,13.46,52.50,13.44" {
		t.Errorf("venue = %+v", v)
	}
	// The point with a broken latitude is skipped.
	if len(v.Points) != 1 {
		t.Fatalf("points = %+v", v.Points)
	}
	p := v.Points[0]
	if p.Type != model.PointFood || p.LatE6 != 52510503 || p.LonE6 != 13451234 {
		t.Errorf("point = %+v", p)
	}

	if len(v.Polygons) != 1 {
		t.Fatalf("polygons = %+v", v.Polygons)
	}
	poly := v.Polygons[0]
	if poly.Label != "Hall A" || poly.LineColor != 0xff0000 || poly.FillColor != 0x330000ff {
		t.Errorf("polygon = %+v", poly)
	}
	want := []model.MapPoint{
		{LatE6: 52510000, LonE6: 13450000},
		{LatE6: 52510000, LonE6: 13460000},
		{LatE6: 52500000, LonE6: 13460000},
	}
	if len(poly.Points) != len(want) {
		t.Fatalf("polygon points = %+v", poly.Points)
	}
	for i := range want {
		if poly.Points[i] != want[i] {
			t.Errorf("vertex %d = %+v, want %+v", i, poly.Points[i], want[i])
		}
	}

	if _, err := NewVenueRepo(db).GetInfo(ctx, 999); !errors.Is(err, ErrVenueNotFound) {
		t.Errorf("GetInfo(999) err = %v", err)
	}
}

func TestParsePointList(t *testing.T) {
	var errs int
	got := ParsePointList(" 13.4,52.5 ;;x;13.5,abc;-0.1,51.5", func(error) { errs++ })
	if len(got) != 2 {
		t.Fatalf("points = %+v", got)
	}
	if got[1].LatE6 != 51500000 || got[1].LonE6 != -100000 {
		t.Errorf("second vertex = %+v", got[1])
	}
	if errs != 2 {
		t.Errorf("errors reported = %d, want 2", errs)
	}
	if pts := ParsePointList("", nil); len(pts) != 0 {
		t.Errorf("empty list = %+v", pts)
	}
}
