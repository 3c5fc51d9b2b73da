// Package repository contains data access logic separated from HTTP handlers.
// This file holds the schedule queries.  Events are read through one
// joined select that pulls in the room, the track and the caller's
// per-event flags; speakers are attached afterwards in a single batch.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/conference-companion/internal/logging"
	"github.com/iliyamo/conference-companion/internal/model"
	"github.com/iliyamo/conference-companion/internal/utils"
)

// DefaultNextCount is how many upcoming events Next returns when the
// caller does not ask for a specific number.
const DefaultNextCount = 2

// metaTrack names the track that holds housekeeping entries such as
// breaks and the opening session.
const metaTrack = "meta"

// ScheduleFilter narrows Schedule to a set of tracks and languages.
// Empty slices do not filter.
type ScheduleFilter struct {
	TrackIDs  []uint64
	Languages []string
}

// EventRepo manages persistence for events and per-user event flags.
type EventRepo struct {
	db       *sql.DB
	speakers *CatalogRepo
	now      func() time.Time
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db, speakers: NewCatalogRepo(db), now: time.Now}
}

// CreateTx inserts an event within tx.  The UTC sort key is derived from
// the stored date; a date that does not parse is rejected so only valid
// dates reach the table.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.EventRecord) error {
	start, _, err := utils.ParseEventDate(e.Date)
	if err != nil {
		return err
	}
	e.StartsUTC = utils.SortKey(start)
	const q = `INSERT INTO events (guid, conference_id, room_id, track_id, date, starts_utc, length, type, language, title, abstract, url_list)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, e.GUID, e.ConferenceID, e.RoomID, e.TrackID, e.Date, e.StartsUTC,
		e.Length, e.Type, e.Language, e.Title, e.Abstract, e.URLList)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// eventSelect is the joined read model.  The first placeholder is always
// the caller's user id (0 for anonymous callers, which matches no flags).
const eventSelect = `SELECT e.id, e.guid, e.conference_id, e.title, COALESCE(e.abstract, ''), e.type, e.language,
       e.date, e.length, COALESCE(r.name, ''), e.track_id, COALESCE(t.name, ''), COALESCE(t.color, ''),
       COALESCE(f.my_schedule, 0), COALESCE(f.alert, 0)
FROM events e
LEFT JOIN rooms r ON r.id = e.room_id
LEFT JOIN tracks t ON t.id = e.track_id
LEFT JOIN eventFlags f ON f.event_guid = e.guid AND f.conference_id = e.conference_id AND f.user_id = ?
`

const eventOrder = ` ORDER BY e.starts_utc, e.id`

// Schedule returns the events of a conference ordered by start time,
// optionally restricted to some tracks and languages.
func (r *EventRepo) Schedule(ctx context.Context, conferenceID, userID uint64, f ScheduleFilter) ([]*model.Event, error) {
	where := `WHERE e.conference_id = ?`
	args := []any{userID, conferenceID}
	if len(f.TrackIDs) > 0 {
		where += ` AND e.track_id IN (` + placeholders(len(f.TrackIDs)) + `)`
		for _, id := range f.TrackIDs {
			args = append(args, id)
		}
	}
	if len(f.Languages) > 0 {
		where += ` AND e.language IN (` + placeholders(len(f.Languages)) + `)`
		for _, l := range f.Languages {
			args = append(args, l)
		}
	}
	return r.query(ctx, eventSelect+where+eventOrder, args...)
}

// MySchedule returns the events the user added to their schedule.
func (r *EventRepo) MySchedule(ctx context.Context, conferenceID, userID uint64) ([]*model.Event, error) {
	return r.query(ctx, eventSelect+`WHERE e.conference_id = ? AND f.my_schedule = 1`+eventOrder, userID, conferenceID)
}

// Alerts returns the events the user wants a reminder for.
func (r *EventRepo) Alerts(ctx context.Context, conferenceID, userID uint64) ([]*model.Event, error) {
	return r.query(ctx, eventSelect+`WHERE e.conference_id = ? AND f.alert = 1`+eventOrder, userID, conferenceID)
}

// ByIDs returns the events of a conference whose id is in ids.  Long
// id lists are read in chunks and merged back into schedule order.
func (r *EventRepo) ByIDs(ctx context.Context, conferenceID, userID uint64, ids []uint64) ([]*model.Event, error) {
	out := []*model.Event{}
	chunks := chunkIDs(ids)
	for _, chunk := range chunks {
		args := []any{userID, conferenceID}
		for _, id := range chunk {
			args = append(args, id)
		}
		events, err := r.query(ctx, eventSelect+`WHERE e.conference_id = ? AND e.id IN (`+placeholders(len(chunk))+`)`+eventOrder, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, events...)
	}
	if len(chunks) > 1 {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			return a.ID < b.ID
		})
	}
	return out, nil
}

// Get returns a single event or ErrEventNotFound.
func (r *EventRepo) Get(ctx context.Context, conferenceID, userID, eventID uint64) (*model.Event, error) {
	events, err := r.query(ctx, eventSelect+`WHERE e.conference_id = ? AND e.id = ?`, userID, conferenceID, eventID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return events[0], nil
}

// Next returns up to n events that have not ended at now, in start order.
// n <= 0 selects DefaultNextCount.
func (r *EventRepo) Next(ctx context.Context, conferenceID, userID uint64, now time.Time, n int) ([]*model.Event, error) {
	if n <= 0 {
		n = DefaultNextCount
	}
	all, err := r.Schedule(ctx, conferenceID, userID, ScheduleFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Event, 0, n)
	for _, e := range all {
		if !e.EndDate.After(now) {
			continue
		}
		out = append(out, e)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// Search returns the ids of events whose title, abstract or speaker name
// contains text, case-insensitively.
func (r *EventRepo) Search(ctx context.Context, conferenceID uint64, text string) ([]uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []uint64{}, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	const q = `SELECT e.id FROM events e
	           WHERE e.conference_id = ?
	             AND (LOWER(e.title) LIKE ? ESCAPE '!'
	                  OR LOWER(COALESCE(e.abstract, '')) LIKE ? ESCAPE '!'
	                  OR EXISTS (SELECT 1 FROM eventSpeakers es JOIN speakers s ON s.id = es.speaker_id
	                             WHERE es.event_id = e.id AND LOWER(s.name) LIKE ? ESCAPE '!'))
	           ORDER BY e.starts_utc, e.id`
	rows, err := r.db.QueryContext(ctx, q, conferenceID, pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// Languages returns the distinct non-empty languages used by the
// conference's events.
func (r *EventRepo) Languages(ctx context.Context, conferenceID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT language FROM events WHERE conference_id = ? AND language <> '' ORDER BY language`, conferenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// flag columns of eventFlags that the toggles may write.
const (
	flagMySchedule = "my_schedule"
	flagAlert      = "alert"
)

// SetMySchedule adds or removes an event from the user's schedule.
func (r *EventRepo) SetMySchedule(ctx context.Context, userID, eventID uint64, on bool) error {
	return r.setFlag(ctx, userID, eventID, flagMySchedule, on)
}

// SetAlert switches the reminder for an event on or off.
func (r *EventRepo) SetAlert(ctx context.Context, userID, eventID uint64, on bool) error {
	return r.setFlag(ctx, userID, eventID, flagAlert, on)
}

func (r *EventRepo) setFlag(ctx context.Context, userID, eventID uint64, column string, on bool) (err error) {
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
	var (
		guid         string
		conferenceID uint64
	)
	err = tx.QueryRowContext(ctx, `SELECT guid, conference_id FROM events WHERE id = ?`, eventID).Scan(&guid, &conferenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	return upsertFlag(ctx, tx, userID, conferenceID, guid, column, on)
}

// MarkMySchedule puts every event of the conference whose guid is listed
// into the user's schedule.  Unknown guids are ignored.  It returns how
// many events were marked.
func (r *EventRepo) MarkMySchedule(ctx context.Context, userID, conferenceID uint64, guids []string) (int, error) {
	return r.markMany(ctx, userID, conferenceID, guids, flagMySchedule)
}

// MarkAlerts switches on the reminder for every listed event guid.
func (r *EventRepo) MarkAlerts(ctx context.Context, userID, conferenceID uint64, guids []string) (int, error) {
	return r.markMany(ctx, userID, conferenceID, guids, flagAlert)
}

func (r *EventRepo) markMany(ctx context.Context, userID, conferenceID uint64, guids []string, column string) (n int, err error) {
	if len(guids) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	args := []any{conferenceID}
	for _, g := range guids {
		args = append(args, g)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT guid FROM events WHERE conference_id = ? AND guid IN (`+placeholders(len(guids))+`)`, args...)
	if err != nil {
		return 0, err
	}
	var known []string
	for rows.Next() {
		var g string
		if err = rows.Scan(&g); err != nil {
			rows.Close()
			return 0, err
		}
		known = append(known, g)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, err
	}
	for _, g := range known {
		if err = upsertFlag(ctx, tx, userID, conferenceID, g, column, true); err != nil {
			return 0, err
		}
	}
	return len(known), nil
}

// upsertFlag writes one flag column.  The row is probed first instead of
// relying on the affected row count, which MySQL reports as zero when the
// value is unchanged.
func upsertFlag(ctx context.Context, tx *sql.Tx, userID, conferenceID uint64, guid, column string, on bool) error {
	if column != flagMySchedule && column != flagAlert {
		return fmt.Errorf("unknown event flag %q", column)
	}
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM eventFlags WHERE user_id = ? AND conference_id = ? AND event_guid = ?`,
		userID, conferenceID, guid).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE eventFlags SET `+column+` = ? WHERE user_id = ? AND conference_id = ? AND event_guid = ?`,
			boolInt(on), userID, conferenceID, guid)
		return err
	}
	if !on {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO eventFlags (user_id, conference_id, event_guid, `+column+`) VALUES (?, ?, ?, 1)`,
		userID, conferenceID, guid)
	return err
}

// FavoriteGUIDs returns the guids of the events in the user's schedule.
// They are kept by guid so a re-import of the conference does not lose
// them.
func (r *EventRepo) FavoriteGUIDs(ctx context.Context, conferenceID, userID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_guid FROM eventFlags WHERE conference_id = ? AND user_id = ? AND my_schedule = 1 ORDER BY event_guid`,
		conferenceID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// query runs an eventSelect statement, derives the time fields and
// attaches speakers.
func (r *EventRepo) query(ctx context.Context, q string, args ...any) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Event{}
	var ids []uint64
	for rows.Next() {
		var (
			e    model.Event
			date string
		)
		if err := rows.Scan(&e.ID, &e.GUID, &e.ConferenceID, &e.Title, &e.Abstract, &e.Type, &e.Language,
			&date, &e.Length, &e.RoomName, &e.TrackID, &e.TrackName, &e.Color, &e.InMySchedule, &e.Alert); err != nil {
			return nil, err
		}
		e.Date, e.TimeZone, err = utils.ParseEventDate(date)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Uint64("event_id", e.ID).Msg("bad event date, using current time")
			e.Date, e.TimeZone = r.now().UTC(), time.UTC
		}
		e.EndDate = utils.EventEnd(e.Date, e.Length)
		e.IsMeta = strings.EqualFold(e.TrackName, metaTrack)
		e.Speakers = []model.Speaker{}
		out = append(out, &e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	speakers, err := r.speakers.ForEvents(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range out {
		if s, ok := speakers[e.ID]; ok {
			e.Speakers = s
		}
	}
	return out, nil
}
