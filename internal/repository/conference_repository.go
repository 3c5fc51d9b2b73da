// Package repository contains data access logic separated from HTTP handlers.
// This file holds the conference queries: listing, lookup by guid, the
// cached/last-updated bookkeeping written by an import, and the cascading
// clear that wipes everything a conference owns.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/conference-companion/internal/model"
)

// ConferenceRepo encapsulates all database queries related to conferences.
type ConferenceRepo struct {
	db *sql.DB
}

// NewConferenceRepo constructs a ConferenceRepo with the provided DB handle.
func NewConferenceRepo(db *sql.DB) *ConferenceRepo {
	return &ConferenceRepo{db: db}
}

// DB exposes the underlying handle so callers can begin transactions
// spanning several repositories.
func (r *ConferenceRepo) DB() *sql.DB {
	return r.db
}

const conferenceColumns = `id, guid, name, COALESCE(description, ''), year, social_tag, date_range, is_cached, url, last_updated, venue_id`

func scanConference(row interface{ Scan(...any) error }) (*model.Conference, error) {
	var (
		c       model.Conference
		venueID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.GUID, &c.Name, &c.Description, &c.Year, &c.SocialTag,
		&c.DateRange, &c.IsCached, &c.URL, &c.LastUpdated, &venueID); err != nil {
		return nil, err
	}
	if venueID.Valid {
		v := uint64(venueID.Int64)
		c.VenueID = &v
	}
	return &c, nil
}

// List returns every cached conference ordered by id.
func (r *ConferenceRepo) List(ctx context.Context) ([]*model.Conference, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+conferenceColumns+` FROM conferences ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Conference{}
	for rows.Next() {
		c, err := scanConference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a conference.  It returns ErrConferenceNotFound if no
// row is found.
func (r *ConferenceRepo) GetByID(ctx context.Context, id uint64) (*model.Conference, error) {
	c, err := scanConference(r.db.QueryRowContext(ctx, `SELECT `+conferenceColumns+` FROM conferences WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConferenceNotFound
		}
		return nil, err
	}
	return c, nil
}

// IDByGUID resolves a feed guid to the local id.
func (r *ConferenceRepo) IDByGUID(ctx context.Context, guid string) (uint64, error) {
	return r.idByGUID(ctx, r.db, guid)
}

// IDByGUIDTx is IDByGUID inside an import transaction.
func (r *ConferenceRepo) IDByGUIDTx(ctx context.Context, tx *sql.Tx, guid string) (uint64, error) {
	return r.idByGUID(ctx, tx, guid)
}

func (r *ConferenceRepo) idByGUID(ctx context.Context, q queryer, guid string) (uint64, error) {
	var id uint64
	if err := q.QueryRowContext(ctx, `SELECT id FROM conferences WHERE guid = ?`, guid).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrConferenceNotFound
		}
		return 0, err
	}
	return id, nil
}

// CreateTx inserts a conference within tx and sets its ID.
func (r *ConferenceRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.Conference) error {
	const q = `INSERT INTO conferences (guid, name, description, year, social_tag, date_range, url)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, c.GUID, c.Name, c.Description, c.Year, c.SocialTag, c.DateRange, c.URL)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// UpdateMetaTx rewrites the descriptive fields of an existing conference.
func (r *ConferenceRepo) UpdateMetaTx(ctx context.Context, tx *sql.Tx, c *model.Conference) error {
	const q = `UPDATE conferences
	           SET name = ?, description = ?, year = ?, social_tag = ?, date_range = ?, url = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, c.Name, c.Description, c.Year, c.SocialTag, c.DateRange, c.URL, c.ID)
	return err
}

// LastUpdated returns the unix time of the last import, or 0 when the
// conference is unknown or was never imported.
func (r *ConferenceRepo) LastUpdated(ctx context.Context, id uint64) (int64, error) {
	var ts int64
	err := r.db.QueryRowContext(ctx, `SELECT last_updated FROM conferences WHERE id = ?`, id).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return ts, err
}

// SetLastUpdatedTx records the import time.
func (r *ConferenceRepo) SetLastUpdatedTx(ctx context.Context, tx *sql.Tx, id uint64, unix int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE conferences SET last_updated = ? WHERE id = ?`, unix, id)
	return err
}

// SetCached flags whether the full schedule of a conference is stored
// locally.  It returns ErrConferenceNotFound for an unknown id.
func (r *ConferenceRepo) SetCached(ctx context.Context, id uint64, cached bool) error {
	if err := r.setCached(ctx, r.db, id, cached); err != nil {
		return err
	}
	return nil
}

// SetCachedTx is SetCached inside an import transaction.
func (r *ConferenceRepo) SetCachedTx(ctx context.Context, tx *sql.Tx, id uint64, cached bool) error {
	return r.setCached(ctx, tx, id, cached)
}

func (r *ConferenceRepo) setCached(ctx context.Context, q queryer, id uint64, cached bool) error {
	if _, err := r.idExists(ctx, q, id); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `UPDATE conferences SET is_cached = ? WHERE id = ?`, boolInt(cached), id)
	return err
}

// idExists checks the row up front because MySQL reports zero affected
// rows for an UPDATE that leaves values unchanged.
func (r *ConferenceRepo) idExists(ctx context.Context, q queryer, id uint64) (bool, error) {
	var one int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM conferences WHERE id = ?`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrConferenceNotFound
		}
		return false, err
	}
	return true, nil
}

// VenueID returns the venue linked to a conference.  ErrVenueNotFound is
// returned when the conference has no venue yet.
func (r *ConferenceRepo) VenueID(ctx context.Context, conferenceID uint64) (uint64, error) {
	var venueID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT venue_id FROM conferences WHERE id = ?`, conferenceID).Scan(&venueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrConferenceNotFound
		}
		return 0, err
	}
	if !venueID.Valid {
		return 0, ErrVenueNotFound
	}
	return uint64(venueID.Int64), nil
}

// SetVenueTx links a venue to a conference.
func (r *ConferenceRepo) SetVenueTx(ctx context.Context, tx *sql.Tx, conferenceID, venueID uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE conferences SET venue_id = ? WHERE id = ?`, venueID, conferenceID)
	return err
}

// Clear removes every row owned by a conference inside one transaction
// and resets its venue link and cached flag.  The conference row itself
// is kept so a later import can reuse its id.
func (r *ConferenceRepo) Clear(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = r.idExists(ctx, tx, id); err != nil {
		return err
	}
	if err = r.ClearTx(ctx, tx, id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE conferences SET is_cached = 0, last_updated = 0 WHERE id = ?`, id)
	return err
}

// ClearTx deletes the schedule, speakers and venue data of a conference
// within tx.  The statements use sub-selects rather than multi-table
// DELETE so they run unchanged on MySQL and SQLite.
func (r *ConferenceRepo) ClearTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	stmts := []string{
		`DELETE FROM eventSpeakers WHERE event_id IN (SELECT id FROM events WHERE conference_id = ?)`,
		`DELETE FROM events WHERE conference_id = ?`,
		`DELETE FROM speakers WHERE conference_id = ?`,
		`DELETE FROM tracks WHERE conference_id = ?`,
		`DELETE FROM rooms WHERE venue_id IN (SELECT id FROM venues WHERE conference_id = ?)`,
		`DELETE FROM points WHERE venue_id IN (SELECT id FROM venues WHERE conference_id = ?)`,
		`DELETE FROM mapPolygons WHERE venue_id IN (SELECT id FROM venues WHERE conference_id = ?)`,
		`DELETE FROM venues WHERE conference_id = ?`,
		`UPDATE conferences SET venue_id = NULL WHERE id = ?`,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s, id); err != nil {
			return err
		}
	}
	return nil
}
