package model

// Conference is a cached conference as stored in the `conferences`
// table.  A conference is imported from a remote feed identified by
// URL and is linked to at most one venue.
//
// Fields:
//  ID          – primary key identifier.
//  GUID        – stable identifier assigned by the upstream feed.
//  Name        – display name.
//  Description – free text description.
//  Year        – conference year.
//  SocialTag   – hashtag used on social networks.
//  DateRange   – human readable date range ("Sep 18-20").
//  IsCached    – whether the full schedule has been imported.
//  URL         – address of the remote feed.
//  LastUpdated – unix seconds of the last successful import.
//  VenueID     – linked venue (nil until a venue is imported).
type Conference struct {
    ID          uint64  `json:"id"`           // conferences.id
    GUID        string  `json:"guid"`         // conferences.guid
    Name        string  `json:"name"`         // conferences.name
    Description string  `json:"description"`  // conferences.description
    Year        int     `json:"year"`         // conferences.year
    SocialTag   string  `json:"social_tag"`   // conferences.social_tag
    DateRange   string  `json:"date_range"`   // conferences.date_range
    IsCached    bool    `json:"is_cached"`    // conferences.is_cached
    URL         string  `json:"url"`          // conferences.url
    LastUpdated int64   `json:"last_updated"` // conferences.last_updated
    VenueID     *uint64 `json:"venue_id,omitempty"` // conferences.venue_id (nullable)
}
