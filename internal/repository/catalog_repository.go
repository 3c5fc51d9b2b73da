package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/conference-companion/internal/model"
)

// CatalogRepo manages rooms, tracks and speakers together with the
// event-speaker links.  These rows are only ever written by an import, so
// every write takes the import transaction.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// CreateRoomTx inserts a room and sets its ID.
func (r *CatalogRepo) CreateRoomTx(ctx context.Context, tx *sql.Tx, rm *model.Room) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (guid, name, description, venue_id) VALUES (?, ?, ?, ?)`,
		rm.GUID, rm.Name, rm.Description, rm.VenueID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = uint64(id)
	return nil
}

// CreateTrackTx inserts a track and sets its ID.
func (r *CatalogRepo) CreateTrackTx(ctx context.Context, tx *sql.Tx, t *model.Track) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tracks (guid, name, color, conference_id) VALUES (?, ?, ?, ?)`,
		t.GUID, t.Name, t.Color, t.ConferenceID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// CreateSpeakerTx inserts a speaker and sets its ID.
func (r *CatalogRepo) CreateSpeakerTx(ctx context.Context, tx *sql.Tx, s *model.Speaker) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO speakers (guid, name, company, biography, photo_guid, conference_id) VALUES (?, ?, ?, ?, ?, ?)`,
		s.GUID, s.Name, s.Company, s.Biography, s.PhotoGUID, s.ConferenceID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// AddEventSpeakerTx links a speaker to an event.  Linking the same pair
// twice yields ErrConflict.
func (r *CatalogRepo) AddEventSpeakerTx(ctx context.Context, tx *sql.Tx, speakerID, eventID uint64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO eventSpeakers (speaker_id, event_id) VALUES (?, ?)`, speakerID, eventID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// UniqueTracks returns the tracks referenced by at least one event of the
// conference, ordered by name.
func (r *CatalogRepo) UniqueTracks(ctx context.Context, conferenceID uint64) ([]model.Track, error) {
	const q = `SELECT t.id, t.guid, t.name, t.color, t.conference_id
	           FROM tracks t
	           WHERE t.conference_id = ?
	             AND EXISTS (SELECT 1 FROM events e WHERE e.track_id = t.id)
	           ORDER BY t.name, t.id`
	rows, err := r.db.QueryContext(ctx, q, conferenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Track{}
	for rows.Next() {
		var t model.Track
		if err := rows.Scan(&t.ID, &t.GUID, &t.Name, &t.Color, &t.ConferenceID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ForEvents loads the speakers of every event in eventIDs, one query per
// chunk of ids.  Events without speakers are absent from the map.
func (r *CatalogRepo) ForEvents(ctx context.Context, eventIDs []uint64) (map[uint64][]model.Speaker, error) {
	out := make(map[uint64][]model.Speaker, len(eventIDs))
	for _, chunk := range chunkIDs(eventIDs) {
		if err := r.speakersFor(ctx, chunk, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *CatalogRepo) speakersFor(ctx context.Context, eventIDs []uint64, out map[uint64][]model.Speaker) error {
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}
	q := `SELECT es.event_id, s.id, s.guid, s.name, s.company, COALESCE(s.biography, ''), s.photo_guid, s.conference_id
	      FROM eventSpeakers es
	      JOIN speakers s ON s.id = es.speaker_id
	      WHERE es.event_id IN (` + placeholders(len(eventIDs)) + `)
	      ORDER BY es.event_id, s.name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID uint64
			s       model.Speaker
		)
		if err := rows.Scan(&eventID, &s.ID, &s.GUID, &s.Name, &s.Company, &s.Biography, &s.PhotoGUID, &s.ConferenceID); err != nil {
			return err
		}
		out[eventID] = append(out[eventID], s)
	}
	return rows.Err()
}
