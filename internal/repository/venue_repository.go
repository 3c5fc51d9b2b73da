// Package repository contains data access logic separated from HTTP handlers.
// This file covers venues and the annotations drawn on the venue map:
// categorized points and outlined polygons.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/conference-companion/internal/geo"
	"github.com/iliyamo/conference-companion/internal/logging"
	"github.com/iliyamo/conference-companion/internal/model"
)

// PointRow is a map point as written to the `points` table.  Coordinates
// are kept as the decimal strings received from the feed.
type PointRow struct {
	Type        string // points.type
	Lat         string // points.lat
	Lon         string // points.lon
	Name        string // points.name
	Address     string // points.address
	Description string // points.description
}

// PolygonRow is a polygon as written to the `mapPolygons` table.
// PointList holds "lon,lat;lon,lat;..." in drawing order.
type PolygonRow struct {
	Name      string
	Label     string
	LineColor int
	FillColor int
	PointList string
}

// VenueRepo encapsulates the venue, points and mapPolygons queries.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo constructs a VenueRepo with the provided DB handle.
func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

// CreateTx inserts a venue owned by conferenceID and sets its ID.
func (r *VenueRepo) CreateTx(ctx context.Context, tx *sql.Tx, conferenceID uint64, v *model.Venue) error {
	const q = `INSERT INTO venues (guid, conference_id, name, address, info_text, offline_map, offline_map_bounds)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, v.GUID, conferenceID, v.Name, v.Address, v.InfoText, v.OfflineMap, v.OfflineMapBounds)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// AddPointTx stores one map point for a venue.
func (r *VenueRepo) AddPointTx(ctx context.Context, tx *sql.Tx, venueID uint64, p PointRow) error {
	const q = `INSERT INTO points (venue_id, type, lat, lon, name, address, description) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, venueID, p.Type, p.Lat, p.Lon, p.Name, p.Address, p.Description)
	return err
}

// AddPolygonTx stores one polygon for a venue.
func (r *VenueRepo) AddPolygonTx(ctx context.Context, tx *sql.Tx, venueID uint64, p PolygonRow) error {
	const q = `INSERT INTO mapPolygons (venue_id, name, label, line_color, fill_color, point_list) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, venueID, p.Name, p.Label, p.LineColor, p.FillColor, p.PointList)
	return err
}

// GetInfo loads a venue with its points and polygons.  It returns
// ErrVenueNotFound when the venue does not exist.  Points or polygon
// vertices whose coordinates do not parse are logged and left out.
func (r *VenueRepo) GetInfo(ctx context.Context, venueID uint64) (*model.Venue, error) {
	const q = `SELECT id, guid, name, address, COALESCE(info_text, ''), offline_map, offline_map_bounds
	           FROM venues WHERE id = ?`
	var v model.Venue
	err := r.db.QueryRowContext(ctx, q, venueID).Scan(&v.ID, &v.GUID, &v.Name, &v.Address, &v.InfoText, &v.OfflineMap, &v.OfflineMapBounds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	if v.Points, err = r.points(ctx, venueID); err != nil {
		return nil, err
	}
	if v.Polygons, err = r.polygons(ctx, venueID); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VenueRepo) points(ctx context.Context, venueID uint64) ([]model.MapPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, lat, lon, name, address, COALESCE(description, '') FROM points WHERE venue_id = ? ORDER BY id`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MapPoint{}
	for rows.Next() {
		var (
			typ, lat, lon string
			p             model.MapPoint
		)
		if err := rows.Scan(&typ, &lat, &lon, &p.Name, &p.Address, &p.Description); err != nil {
			return nil, err
		}
		p.Type = model.ParsePointType(typ)
		if p.LatE6, p.LonE6, err = parseLatLon(lat, lon); err != nil {
			logging.Warn().Err(err).Uint64("venue_id", venueID).Str("point", p.Name).Msg("skipping map point")
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *VenueRepo) polygons(ctx context.Context, venueID uint64) ([]model.MapPolygon, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, label, line_color, fill_color, COALESCE(point_list, '') FROM mapPolygons WHERE venue_id = ? ORDER BY id`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MapPolygon{}
	for rows.Next() {
		var (
			p    model.MapPolygon
			list string
		)
		if err := rows.Scan(&p.Name, &p.Label, &p.LineColor, &p.FillColor, &list); err != nil {
			return nil, err
		}
		p.Points = ParsePointList(list, func(err error) {
			logging.Warn().Err(err).Uint64("venue_id", venueID).Str("polygon", p.Name).Msg("skipping polygon vertex")
		})
		out = append(out, p)
	}
	return out, rows.Err()
}

// ParsePointList parses "lon,lat;lon,lat;..." into ordered points of type
// none.  Malformed pairs are reported to onErr (which may be nil) and
// skipped.
func ParsePointList(list string, onErr func(error)) []model.MapPoint {
	out := []model.MapPoint{}
	for _, pair := range strings.Split(list, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		lon, lat, ok := strings.Cut(pair, ",")
		if !ok {
			if onErr != nil {
				onErr(errors.New("polygon vertex " + pair + ": want lon,lat"))
			}
			continue
		}
		latE6, lonE6, err := parseLatLon(lat, lon)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			continue
		}
		out = append(out, model.MapPoint{Type: model.PointNone, LatE6: latE6, LonE6: lonE6})
	}
	return out
}

func parseLatLon(lat, lon string) (int, int, error) {
	latE6, err := geo.ParseE6(lat)
	if err != nil {
		return 0, 0, err
	}
	lonE6, err := geo.ParseE6(lon)
	if err != nil {
		return 0, 0, err
	}
	return latE6, lonE6, nil
}
