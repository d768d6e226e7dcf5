package cache

import (
	"encoding/json"
	"time"
)

// envelopeVersion tags the persisted envelope shape. Entries carrying a
// different version are treated as malformed and purged on read, so a
// deploy that changes the payload shape never serves stale-shaped data.
const envelopeVersion = 1

// Entry is the persisted cache envelope.
type Entry struct {
	// Version is the envelope schema version.
	Version int `json:"v"`

	// Data is the cached response body.
	Data json.RawMessage `json:"data"`

	// StoredAt is when the entry was written, in milliseconds since epoch.
	StoredAt int64 `json:"storedAt"`

	// ExpiresIn is the entry's time-to-live in milliseconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// newEntry wraps data in a versioned envelope stamped at now.
func newEntry(data json.RawMessage, ttl time.Duration, now time.Time) Entry {
	return Entry{
		Version:   envelopeVersion,
		Data:      data,
		StoredAt:  now.UnixMilli(),
		ExpiresIn: ttl.Milliseconds(),
	}
}

// IsExpired reports whether the entry's TTL has elapsed at now.
// An entry is valid iff now - storedAt <= ttl.
func (e *Entry) IsExpired(now time.Time) bool {
	return now.UnixMilli()-e.StoredAt > e.ExpiresIn
}

// usable reports whether the parsed envelope can be served.
func (e *Entry) usable() bool {
	return e.Version == envelopeVersion && e.Data != nil
}
