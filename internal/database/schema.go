package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates every table used by the service.  Safe to call on
// every start: all statements use IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	ddl := mysqlSchema
	if d == SQLite {
		ddl = sqliteSchema
	}
	// The MySQL driver rejects multi-statement strings unless
	// multiStatements=true, so statements are sent one at a time.
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS conferences (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    guid VARCHAR(191) NOT NULL UNIQUE,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    year INT NOT NULL DEFAULT 0,
    social_tag VARCHAR(255) NOT NULL DEFAULT '',
    date_range VARCHAR(255) NOT NULL DEFAULT '',
    is_cached TINYINT(1) NOT NULL DEFAULT 0,
    url VARCHAR(1024) NOT NULL DEFAULT '',
    last_updated BIGINT NOT NULL DEFAULT 0,
    venue_id BIGINT UNSIGNED NULL
);

CREATE TABLE IF NOT EXISTS venues (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    guid VARCHAR(191) NOT NULL,
    conference_id BIGINT UNSIGNED NOT NULL,
    name VARCHAR(255) NOT NULL,
    address VARCHAR(1024) NOT NULL DEFAULT '',
    info_text TEXT,
    offline_map VARCHAR(1024) NOT NULL DEFAULT '',
    offline_map_bounds VARCHAR(255) NOT NULL DEFAULT '',
    INDEX idx_venues_conference (conference_id)
);

CREATE TABLE IF NOT EXISTS points (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    venue_id BIGINT UNSIGNED NOT NULL,
    type VARCHAR(32) NOT NULL DEFAULT '',
    lat VARCHAR(32) NOT NULL,
    lon VARCHAR(32) NOT NULL,
    name VARCHAR(255) NOT NULL DEFAULT '',
    address VARCHAR(1024) NOT NULL DEFAULT '',
    description TEXT,
    INDEX idx_points_venue (venue_id)
);

CREATE TABLE IF NOT EXISTS mapPolygons (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    venue_id BIGINT UNSIGNED NOT NULL,
    name VARCHAR(255) NOT NULL DEFAULT '',
    label VARCHAR(255) NOT NULL DEFAULT '',
    line_color INT NOT NULL DEFAULT 0,
    fill_color INT NOT NULL DEFAULT 0,
    point_list TEXT,
    INDEX idx_polygons_venue (venue_id)
);

CREATE TABLE IF NOT EXISTS rooms (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    guid VARCHAR(191) NOT NULL,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    venue_id BIGINT UNSIGNED NOT NULL,
    INDEX idx_rooms_venue (venue_id)
);

CREATE TABLE IF NOT EXISTS tracks (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    guid VARCHAR(191) NOT NULL,
    name VARCHAR(255) NOT NULL,
    color VARCHAR(32) NOT NULL DEFAULT '',
    conference_id BIGINT UNSIGNED NOT NULL,
    INDEX idx_tracks_conference (conference_id)
);

CREATE TABLE IF NOT EXISTS speakers (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    guid VARCHAR(191) NOT NULL,
    name VARCHAR(255) NOT NULL,
    company VARCHAR(255) NOT NULL DEFAULT '',
    biography TEXT,
    photo_guid VARCHAR(191) NOT NULL DEFAULT '',
    conference_id BIGINT UNSIGNED NOT NULL,
    INDEX idx_speakers_conference (conference_id)
);

CREATE TABLE IF NOT EXISTS events (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    guid VARCHAR(191) NOT NULL,
    conference_id BIGINT UNSIGNED NOT NULL,
    room_id BIGINT UNSIGNED NOT NULL,
    track_id BIGINT UNSIGNED NOT NULL,
    date VARCHAR(32) NOT NULL,
    starts_utc VARCHAR(19) NOT NULL,
    length INT NOT NULL DEFAULT 0,
    type VARCHAR(64) NOT NULL DEFAULT '',
    language VARCHAR(32) NOT NULL DEFAULT '',
    title VARCHAR(512) NOT NULL,
    abstract TEXT,
    url_list TEXT,
    INDEX idx_events_conference (conference_id, starts_utc),
    INDEX idx_events_guid (guid)
);

CREATE TABLE IF NOT EXISTS eventSpeakers (
    speaker_id BIGINT UNSIGNED NOT NULL,
    event_id BIGINT UNSIGNED NOT NULL,
    PRIMARY KEY (event_id, speaker_id)
);

CREATE TABLE IF NOT EXISTS eventFlags (
    user_id BIGINT UNSIGNED NOT NULL,
    conference_id BIGINT UNSIGNED NOT NULL,
    event_guid VARCHAR(191) NOT NULL,
    my_schedule TINYINT(1) NOT NULL DEFAULT 0,
    alert TINYINT(1) NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, conference_id, event_guid)
);

CREATE TABLE IF NOT EXISTS users (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    email VARCHAR(191) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    role VARCHAR(16) NOT NULL DEFAULT 'ATTENDEE',
    is_active TINYINT(1) NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT UNSIGNED NOT NULL,
    token_hash CHAR(64) NOT NULL UNIQUE,
    expires_at BIGINT NOT NULL,
    revoked_at BIGINT NULL,
    INDEX idx_refresh_user (user_id)
)
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conferences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    description TEXT,
    year INTEGER NOT NULL DEFAULT 0,
    social_tag TEXT NOT NULL DEFAULT '',
    date_range TEXT NOT NULL DEFAULT '',
    is_cached INTEGER NOT NULL DEFAULT 0,
    url TEXT NOT NULL DEFAULT '',
    last_updated INTEGER NOT NULL DEFAULT 0,
    venue_id INTEGER NULL
);

CREATE TABLE IF NOT EXISTS venues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT NOT NULL,
    conference_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    info_text TEXT,
    offline_map TEXT NOT NULL DEFAULT '',
    offline_map_bounds TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_venues_conference ON venues(conference_id);

CREATE TABLE IF NOT EXISTS points (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    venue_id INTEGER NOT NULL,
    type TEXT NOT NULL DEFAULT '',
    lat TEXT NOT NULL,
    lon TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    description TEXT
);

CREATE INDEX IF NOT EXISTS idx_points_venue ON points(venue_id);

CREATE TABLE IF NOT EXISTS mapPolygons (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    venue_id INTEGER NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    label TEXT NOT NULL DEFAULT '',
    line_color INTEGER NOT NULL DEFAULT 0,
    fill_color INTEGER NOT NULL DEFAULT 0,
    point_list TEXT
);

CREATE INDEX IF NOT EXISTS idx_polygons_venue ON mapPolygons(venue_id);

CREATE TABLE IF NOT EXISTS rooms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    venue_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rooms_venue ON rooms(venue_id);

CREATE TABLE IF NOT EXISTS tracks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT NOT NULL,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    conference_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tracks_conference ON tracks(conference_id);

CREATE TABLE IF NOT EXISTS speakers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT NOT NULL,
    name TEXT NOT NULL,
    company TEXT NOT NULL DEFAULT '',
    biography TEXT,
    photo_guid TEXT NOT NULL DEFAULT '',
    conference_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_speakers_conference ON speakers(conference_id);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT NOT NULL,
    conference_id INTEGER NOT NULL,
    room_id INTEGER NOT NULL,
    track_id INTEGER NOT NULL,
    date TEXT NOT NULL,
    starts_utc TEXT NOT NULL,
    length INTEGER NOT NULL DEFAULT 0,
    type TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL,
    abstract TEXT,
    url_list TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_conference ON events(conference_id, starts_utc);
CREATE INDEX IF NOT EXISTS idx_events_guid ON events(guid);

CREATE TABLE IF NOT EXISTS eventSpeakers (
    speaker_id INTEGER NOT NULL,
    event_id INTEGER NOT NULL,
    PRIMARY KEY (event_id, speaker_id)
);

CREATE TABLE IF NOT EXISTS eventFlags (
    user_id INTEGER NOT NULL,
    conference_id INTEGER NOT NULL,
    event_guid TEXT NOT NULL,
    my_schedule INTEGER NOT NULL DEFAULT 0,
    alert INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, conference_id, event_guid)
);

CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'ATTENDEE',
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    token_hash TEXT NOT NULL UNIQUE,
    expires_at INTEGER NOT NULL,
    revoked_at INTEGER NULL
);

CREATE INDEX IF NOT EXISTS idx_refresh_user ON refresh_tokens(user_id)
`
