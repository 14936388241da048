package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar-day wire format used upstream and in the cache.
const DateLayout = "2006-01-02"

// NoDateLabel is what Display returns for the sentinel.
const NoDateLabel = "Sin Cierre"

// Date is a calendar day in UTC. The zero value is the "no date" sentinel:
// it never compares as a real deadline and always sorts in its own partition.
type Date struct {
	t time.Time
}

// NewDate truncates t to its calendar day, keeping the day as seen in t's
// location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf builds a Date from its parts.
func DateOf(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "YYYY-MM-DD" or a full RFC 3339 timestamp. An empty
// string yields the sentinel.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDate(t), nil
}

// IsNoDate reports whether d is the sentinel.
func (d Date) IsNoDate() bool { return d.t.IsZero() }

// Month returns the calendar month, or 0 for the sentinel.
func (d Date) Month() time.Month {
	if d.IsNoDate() {
		return 0
	}
	return d.t.Month()
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

// AddDays returns d shifted by n days. The sentinel stays the sentinel.
func (d Date) AddDays(n int) Date {
	if d.IsNoDate() {
		return d
	}
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Before and After compare real dates only; callers must partition
// sentinels first.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

func (d Date) String() string {
	if d.IsNoDate() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Display renders dd/mm, or NoDateLabel for the sentinel.
func (d Date) Display() string {
	if d.IsNoDate() {
		return NoDateLabel
	}
	return d.t.Format("02/01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsNoDate() {
		return []byte("null"), nil
	}
	return json.Marshal(d.t.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
