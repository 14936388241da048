package domain

import (
	"encoding/json"
	"time"
)

// Cap reasons recorded by the snapshot builder.
const (
	CapExhausted = "exhausted" // source reported no more pages
	CapMaxPages  = "max_pages" // page budget reached first
)

// Snapshot is an immutable, point-in-time view of the published
// opportunities plus their derived buckets.
//
// ClosingSoon and Featured are subsets of General. The same *Opportunity
// pointers are shared between buckets; consumers must not modify them.
type Snapshot struct {
	ID          string         `json:"id"`
	General     []*Opportunity `json:"general"`
	ClosingSoon []*Opportunity `json:"closing_soon"`
	Featured    []*Opportunity `json:"featured"`
	BuiltAt     time.Time      `json:"built_at"`
	Stats       BuildStats     `json:"stats"`
}

// BuildStats describes how a snapshot was produced.
type BuildStats struct {
	Pages     int    `json:"pages"`
	Fetched   int    `json:"fetched"`
	Published int    `json:"published"`
	Dropped   int    `json:"dropped"`
	CapReason string `json:"cap_reason"`
}

// Lookup returns the general-bucket opportunity with the given ID.
func (s *Snapshot) Lookup(id string) (*Opportunity, bool) {
	if s == nil {
		return nil, false
	}
	for _, o := range s.General {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// RecordPage is one page of raw records returned by the external source.
type RecordPage struct {
	Records    []RawRecord
	HasMore    bool
	NextCursor string
}

// RawRecord is an upstream record whose properties are still undecoded.
// Only the source mapper knows their shape. CreatedTime is the upstream
// RFC 3339 timestamp, parsed by the mapper.
type RawRecord struct {
	ID          string
	CreatedTime string
	Properties  map[string]json.RawMessage
}

// UserPreference is read-only input to personalized ranking.
type UserPreference struct {
	UserID      string   `json:"user_id"`
	Disciplines []string `json:"disciplines"`
	Email       string   `json:"email,omitempty"`
}
