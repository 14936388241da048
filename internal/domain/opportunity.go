package domain

import "time"

// Opportunity is the canonical, normalized form of one published call,
// grant or residency.
//
// It is NOT tied to Notion or Redis. The notion mapper produces it and the
// snapshot builder classifies it; nothing mutates it after that.
type Opportunity struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is the upstream page ID.
	ID string `json:"id"`

	// Title is the display name of the call.
	Title string `json:"title"`

	// ─────────────────────────────
	// Weighted text fields
	// ─────────────────────────────

	Country     string `json:"country"`
	RichSummary string `json:"rich_summary"`
	AISummary   string `json:"ai_summary"`
	Entity      string `json:"entity"`
	Category    string `json:"category"`

	// Disciplines holds normalized, deduplicated discipline terms in the
	// order they were found upstream.
	Disciplines []string `json:"disciplines"`

	// AIKeywords are the raw keyword tags; used for similarity lookups.
	AIKeywords []string `json:"ai_keywords"`

	// ─────────────────────────────
	// Promotion
	// ─────────────────────────────

	// AudienceTag is the normalized audience/recipient label.
	AudienceTag string `json:"audience_tag"`

	// FeaturedFlag is true when AudienceTag equals the highlight tag.
	FeaturedFlag bool `json:"featured"`

	TopFlag bool `json:"top"`

	// ─────────────────────────────
	// Links
	// ─────────────────────────────

	URL string `json:"url"`

	// Domain is derived from URL: lowercase host without "www.".
	Domain string `json:"domain"`

	// ─────────────────────────────
	// Time
	// ─────────────────────────────

	// ClosingDate is the deadline; the zero value marks "no date".
	ClosingDate Date `json:"closing_date"`

	CreatedTime time.Time `json:"created_time"`
}

// HasDeadline reports whether the opportunity carries a real closing date.
func (o *Opportunity) HasDeadline() bool {
	return !o.ClosingDate.IsNoDate()
}
