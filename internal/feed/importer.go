package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/conference-companion/internal/logging"
	"github.com/iliyamo/conference-companion/internal/metrics"
	"github.com/iliyamo/conference-companion/internal/model"
	"github.com/iliyamo/conference-companion/internal/queue"
	"github.com/iliyamo/conference-companion/internal/repository"
)

var (
	// ErrNoFeedURL is returned by Refresh for a conference without a feed URL.
	ErrNoFeedURL = errors.New("conference has no feed url")
	// ErrGUIDMismatch is returned by Refresh when the feed describes a
	// different conference than the one being refreshed.
	ErrGUIDMismatch = errors.New("feed describes a different conference")
)

// Publisher announces committed imports.
type Publisher interface {
	PublishConferenceSynced(ctx context.Context, ev queue.ConferenceSyncedEvent) error
}

// Summary reports what an import wrote.
type Summary struct {
	ConferenceID uint64 `json:"conference_id"`
	GUID         string `json:"guid"`
	Created      bool   `json:"created"`
	Rooms        int    `json:"rooms"`
	Tracks       int    `json:"tracks"`
	Speakers     int    `json:"speakers"`
	Events       int    `json:"events"`
	Points       int    `json:"points"`
	Polygons     int    `json:"polygons"`
	LastUpdated  int64  `json:"last_updated"`
}

// Importer writes feed documents into the store.
type Importer struct {
	db          *sql.DB
	conferences *repository.ConferenceRepo
	venues      *repository.VenueRepo
	catalog     *repository.CatalogRepo
	events      *repository.EventRepo
	publisher   Publisher
	now         func() time.Time
}

// NewImporter wires an Importer.  publisher may be nil.
func NewImporter(db *sql.DB, publisher Publisher) *Importer {
	return &Importer{
		db:          db,
		conferences: repository.NewConferenceRepo(db),
		venues:      repository.NewVenueRepo(db),
		catalog:     repository.NewCatalogRepo(db),
		events:      repository.NewEventRepo(db),
		publisher:   publisher,
		now:         time.Now,
	}
}

// Import replaces everything stored for the document's conference in one
// transaction.  A conference seen for the first time is created; a known
// one keeps its id so per-user flags stay attached.  source is recorded
// in the sync message ("upload" or the feed URL).
func (im *Importer) Import(ctx context.Context, doc *Document, source string) (*Summary, error) {
	start := time.Now()
	if err := doc.Validate(); err != nil {
		metrics.RecordImport("invalid", 0, 0)
		return nil, err
	}
	sum, err := im.importTx(ctx, doc)
	if err != nil {
		metrics.RecordImport("error", 0, 0)
		return nil, err
	}
	metrics.RecordImport("success", time.Since(start), sum.Events)
	logging.Ctx(ctx).Info().
		Uint64("conference_id", sum.ConferenceID).
		Str("guid", sum.GUID).
		Int("events", sum.Events).
		Dur("took", time.Since(start)).
		Msg("conference imported")

	if im.publisher != nil {
		ev := queue.ConferenceSyncedEvent{
			ConferenceID:   sum.ConferenceID,
			ConferenceGUID: sum.GUID,
			Name:           doc.Conference.Name,
			Events:         sum.Events,
			Speakers:       sum.Speakers,
			Tracks:         sum.Tracks,
			Rooms:          sum.Rooms,
			Source:         source,
			SyncedAt:       time.Unix(sum.LastUpdated, 0).UTC().Format(time.RFC3339),
		}
		if err := im.publisher.PublishConferenceSynced(ctx, ev); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Uint64("conference_id", sum.ConferenceID).Msg("sync notification not sent")
		}
	}
	return sum, nil
}

func (im *Importer) importTx(ctx context.Context, doc *Document) (sum *Summary, err error) {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	c := &model.Conference{
		GUID:        doc.Conference.GUID,
		Name:        doc.Conference.Name,
		Description: doc.Conference.Description,
		Year:        doc.Conference.Year,
		SocialTag:   doc.Conference.SocialTag,
		DateRange:   doc.Conference.DateRange,
		URL:         doc.Conference.URL,
	}
	sum = &Summary{GUID: c.GUID}

	id, err := im.conferences.IDByGUIDTx(ctx, tx, c.GUID)
	switch {
	case errors.Is(err, repository.ErrConferenceNotFound):
		if err = im.conferences.CreateTx(ctx, tx, c); err != nil {
			return nil, fmt.Errorf("create conference: %w", err)
		}
		sum.Created = true
	case err != nil:
		return nil, err
	default:
		c.ID = id
		if err = im.conferences.UpdateMetaTx(ctx, tx, c); err != nil {
			return nil, fmt.Errorf("update conference: %w", err)
		}
		if err = im.conferences.ClearTx(ctx, tx, c.ID); err != nil {
			return nil, fmt.Errorf("clear conference: %w", err)
		}
	}
	sum.ConferenceID = c.ID

	var venueID uint64
	if doc.Venue != nil {
		if venueID, err = im.writeVenue(ctx, tx, c.ID, doc.Venue, sum); err != nil {
			return nil, err
		}
	}

	rooms := make(map[string]uint64, len(doc.Rooms))
	for _, r := range doc.Rooms {
		rm := &model.Room{GUID: r.GUID, Name: r.Name, Description: r.Description, VenueID: venueID}
		if err = im.catalog.CreateRoomTx(ctx, tx, rm); err != nil {
			return nil, fmt.Errorf("room %s: %w", r.GUID, err)
		}
		rooms[r.GUID] = rm.ID
	}
	tracks := make(map[string]uint64, len(doc.Tracks))
	for _, t := range doc.Tracks {
		tr := &model.Track{GUID: t.GUID, Name: t.Name, Color: t.Color, ConferenceID: c.ID}
		if err = im.catalog.CreateTrackTx(ctx, tx, tr); err != nil {
			return nil, fmt.Errorf("track %s: %w", t.GUID, err)
		}
		tracks[t.GUID] = tr.ID
	}
	speakers := make(map[string]uint64, len(doc.Speakers))
	for _, s := range doc.Speakers {
		sp := &model.Speaker{GUID: s.GUID, Name: s.Name, Company: s.Company, Biography: s.Biography, PhotoGUID: s.PhotoGUID, ConferenceID: c.ID}
		if err = im.catalog.CreateSpeakerTx(ctx, tx, sp); err != nil {
			return nil, fmt.Errorf("speaker %s: %w", s.GUID, err)
		}
		speakers[s.GUID] = sp.ID
	}
	for _, e := range doc.Events {
		rec := &model.EventRecord{
			GUID:         e.GUID,
			ConferenceID: c.ID,
			RoomID:       rooms[e.Room],
			TrackID:      tracks[e.Track],
			Date:         e.Date,
			Length:       e.Length,
			Type:         e.Type,
			Language:     e.Language,
			Title:        e.Title,
			Abstract:     e.Abstract,
			URLList:      strings.Join(e.URLs, "\n"),
		}
		if err = im.events.CreateTx(ctx, tx, rec); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.GUID, err)
		}
		for _, s := range e.Speakers {
			if err = im.catalog.AddEventSpeakerTx(ctx, tx, speakers[s], rec.ID); err != nil {
				return nil, fmt.Errorf("event %s speaker %s: %w", e.GUID, s, err)
			}
		}
	}
	sum.Rooms, sum.Tracks, sum.Speakers, sum.Events = len(rooms), len(tracks), len(speakers), len(doc.Events)

	sum.LastUpdated = im.now().UTC().Unix()
	if err = im.conferences.SetLastUpdatedTx(ctx, tx, c.ID, sum.LastUpdated); err != nil {
		return nil, err
	}
	if err = im.conferences.SetCachedTx(ctx, tx, c.ID, true); err != nil {
		return nil, err
	}
	return sum, nil
}

func (im *Importer) writeVenue(ctx context.Context, tx *sql.Tx, conferenceID uint64, vd *VenueDoc, sum *Summary) (uint64, error) {
	v := &model.Venue{
		GUID:             vd.GUID,
		Name:             vd.Name,
		Address:          vd.Address,
		InfoText:         vd.InfoText,
		OfflineMap:       vd.OfflineMap,
		OfflineMapBounds: vd.OfflineMapBounds,
	}
	if err := im.venues.CreateTx(ctx, tx, conferenceID, v); err != nil {
		return 0, fmt.Errorf("venue %s: %w", vd.GUID, err)
	}
	for _, p := range vd.Points {
		row := repository.PointRow{Type: p.Type, Lat: p.Lat, Lon: p.Lon, Name: p.Name, Address: p.Address, Description: p.Description}
		if err := im.venues.AddPointTx(ctx, tx, v.ID, row); err != nil {
			return 0, fmt.Errorf("venue point %q: %w", p.Name, err)
		}
	}
	for _, p := range vd.Polygons {
		row := repository.PolygonRow{Name: p.Name, Label: p.Label, LineColor: p.LineColor, FillColor: p.FillColor, PointList: pointList(p.Points)}
		if err := im.venues.AddPolygonTx(ctx, tx, v.ID, row); err != nil {
			return 0, fmt.Errorf("venue polygon %q: %w", p.Name, err)
		}
	}
	if err := im.conferences.SetVenueTx(ctx, tx, conferenceID, v.ID); err != nil {
		return 0, err
	}
	sum.Points, sum.Polygons = len(vd.Points), len(vd.Polygons)
	return v.ID, nil
}

// pointList renders vertices as "lon,lat;lon,lat".
func pointList(vs []VertexDoc) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strings.TrimSpace(v.Lon) + "," + strings.TrimSpace(v.Lat)
	}
	return strings.Join(parts, ";")
}

// Refresh downloads the feed of a stored conference and imports it.
func (im *Importer) Refresh(ctx context.Context, f *Fetcher, conferenceID uint64) (*Summary, error) {
	c, err := im.conferences.GetByID(ctx, conferenceID)
	if err != nil {
		return nil, err
	}
	if c.URL == "" {
		return nil, ErrNoFeedURL
	}
	doc, err := f.Fetch(ctx, c.URL)
	if err != nil {
		return nil, err
	}
	if doc.Conference.GUID != c.GUID {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrGUIDMismatch, doc.Conference.GUID, c.GUID)
	}
	// Keep refreshing from the address that just worked.
	doc.Conference.URL = c.URL
	return im.Import(ctx, doc, c.URL)
}
