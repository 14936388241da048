package classify

import (
	"sort"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
)

// Policy holds the bucket windows and caps.
type Policy struct {
	ClosingSoonDays  int // primary window, inclusive
	ExtendedDays     int // fallback window when the primary one is sparse
	MinClosingSoon   int // below this many, the fallback window applies
	ClosingSoonLimit int
	FeaturedLimit    int
}

// DefaultPolicy is 7 days / 15 days / 5 minimum, capped at 7 and 6.
func DefaultPolicy() Policy {
	return Policy{
		ClosingSoonDays:  7,
		ExtendedDays:     15,
		MinClosingSoon:   5,
		ClosingSoonLimit: 7,
		FeaturedLimit:    6,
	}
}

// Buckets is the classifier output. ClosingSoon and Featured alias
// elements of General.
type Buckets struct {
	General     []*domain.Opportunity
	ClosingSoon []*domain.Opportunity
	Featured    []*domain.Opportunity
}

// Classify sorts opps into the general order and derives the closing-soon
// and featured buckets relative to today. The input slice is not modified.
func Classify(opps []*domain.Opportunity, today domain.Date, p Policy) Buckets {
	general := make([]*domain.Opportunity, len(opps))
	copy(general, opps)
	SortGeneral(general)

	return Buckets{
		General:     general,
		ClosingSoon: closingSoon(general, today, p),
		Featured:    featured(general, today, p),
	}
}

// SortGeneral orders dated opportunities before undated ones, then by
// closing date ascending, then newest created first. ID breaks any
// remaining tie so the order is total.
func SortGeneral(opps []*domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return Less(opps[i], opps[j])
	})
}

// Less is the general-order comparator.
func Less(a, b *domain.Opportunity) bool {
	aDated, bDated := a.HasDeadline(), b.HasDeadline()
	if aDated != bDated {
		return aDated
	}
	if aDated && !a.ClosingDate.Equal(b.ClosingDate) {
		return a.ClosingDate.Before(b.ClosingDate)
	}
	if !a.CreatedTime.Equal(b.CreatedTime) {
		return a.CreatedTime.After(b.CreatedTime)
	}
	return a.ID < b.ID
}

// closingSoon expects general to be sorted, so the result is already
// ascending by date.
func closingSoon(general []*domain.Opportunity, today domain.Date, p Policy) []*domain.Opportunity {
	within := func(days int) []*domain.Opportunity {
		end := today.AddDays(days)
		out := make([]*domain.Opportunity, 0, p.ClosingSoonLimit)
		for _, o := range general {
			if !o.HasDeadline() {
				continue
			}
			if o.ClosingDate.Before(today) || o.ClosingDate.After(end) {
				continue
			}
			out = append(out, o)
		}
		return out
	}

	out := within(p.ClosingSoonDays)
	if len(out) < p.MinClosingSoon {
		out = within(p.ExtendedDays)
	}
	if len(out) > p.ClosingSoonLimit {
		out = out[:p.ClosingSoonLimit]
	}
	return out
}

// featured keeps the general order.
func featured(general []*domain.Opportunity, today domain.Date, p Policy) []*domain.Opportunity {
	out := make([]*domain.Opportunity, 0, p.FeaturedLimit)
	for _, o := range general {
		if len(out) == p.FeaturedLimit {
			break
		}
		if !o.FeaturedFlag {
			continue
		}
		if o.HasDeadline() && o.ClosingDate.Before(today) {
			continue
		}
		out = append(out, o)
	}
	return out
}
