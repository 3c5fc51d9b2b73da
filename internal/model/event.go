package model

import "time"

// Track groups events by topic.  Each track has a display color.
type Track struct {
    ID           uint64 `json:"id"`    // tracks.id
    GUID         string `json:"guid"`  // tracks.guid
    Name         string `json:"name"`  // tracks.name
    Color        string `json:"color"` // tracks.color
    ConferenceID uint64 `json:"-"`     // tracks.conference_id
}

// Speaker presents one or more events.
type Speaker struct {
    ID           uint64 `json:"id"`                   // speakers.id
    GUID         string `json:"guid"`                 // speakers.guid
    Name         string `json:"name"`                 // speakers.name
    Company      string `json:"company"`              // speakers.company
    Biography    string `json:"biography"`            // speakers.biography
    PhotoGUID    string `json:"photo_guid,omitempty"` // speakers.photo_guid
    ConferenceID uint64 `json:"-"`                    // speakers.conference_id
}

// Event is one scheduled session.  The raw row lives in the `events`
// table; the remaining fields are joined in from rooms, tracks,
// eventSpeakers and the caller's eventFlags.
//
// Fields:
//  ID           – primary key identifier.
//  GUID         – upstream identifier, also the key for user flags.
//  ConferenceID – owning conference.
//  Title        – session title.
//  Abstract     – session abstract.
//  Type         – session type ("talk", "workshop", ...).
//  Language     – session language code.
//  Date         – start time in the event's own time zone.
//  EndDate      – Date plus Length minutes.
//  TimeZone     – zone named after the offset of the stored date.
//  Length       – duration in minutes.
//  RoomName     – joined from rooms.name.
//  TrackID      – events.track_id.
//  TrackName    – joined from tracks.name.
//  Color        – joined from tracks.color.
//  IsMeta       – the event belongs to the "meta" track (breaks, keynotes
//                 housekeeping) and is rendered differently.
//  InMySchedule – the caller added the event to their schedule.
//  Alert        – the caller wants a reminder for the event.
//  Speakers     – presenters from eventSpeakers.
type Event struct {
    ID           uint64         `json:"id"`
    GUID         string         `json:"guid"`
    ConferenceID uint64         `json:"conference_id"`
    Title        string         `json:"title"`
    Abstract     string         `json:"abstract,omitempty"`
    Type         string         `json:"type,omitempty"`
    Language     string         `json:"language,omitempty"`
    Date         time.Time      `json:"date"`
    EndDate      time.Time      `json:"end_date"`
    TimeZone     *time.Location `json:"-"`
    Length       int            `json:"length"`
    RoomName     string         `json:"room_name"`
    TrackID      uint64         `json:"track_id"`
    TrackName    string         `json:"track_name,omitempty"`
    Color        string         `json:"color,omitempty"`
    IsMeta       bool           `json:"is_meta"`
    InMySchedule bool           `json:"in_my_schedule"`
    Alert        bool           `json:"alert"`
    Speakers     []Speaker      `json:"speakers"`
}

// EventRecord mirrors the columns written when importing an event.
type EventRecord struct {
    ID           uint64 // events.id
    GUID         string // events.guid
    ConferenceID uint64 // events.conference_id
    RoomID       uint64 // events.room_id
    TrackID      uint64 // events.track_id
    Date         string // events.date (yyyy-MM-ddTHH:mm:ss±hhmm)
    StartsUTC    string // events.starts_utc ("2006-01-02 15:04:05", sort key)
    Length       int    // events.length
    Type         string // events.type
    Language     string // events.language
    Title        string // events.title
    Abstract     string // events.abstract
    URLList      string // events.url_list
}
