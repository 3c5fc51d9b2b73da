// Package queue defines message payloads exchanged over the message broker
// and the background consumer that reacts to them.
package queue

// SyncedQueueName is the durable queue carrying ConferenceSyncedEvent.
const SyncedQueueName = "conference.synced"

// ConferenceSyncedEvent is published after a conference import commits.
// It contains enough information for downstream consumers to drop stale
// cached responses and keep an audit trail without querying the primary
// database.
type ConferenceSyncedEvent struct {
    ConferenceID   uint64 `json:"conference_id"`
    ConferenceGUID string `json:"conference_guid"`
    Name           string `json:"name"`
    Events         int    `json:"events"`
    Speakers       int    `json:"speakers"`
    Tracks         int    `json:"tracks"`
    Rooms          int    `json:"rooms"`
    Source         string `json:"source"`    // "upload" or the feed URL
    SyncedAt       string `json:"synced_at"` // RFC3339 UTC
}
