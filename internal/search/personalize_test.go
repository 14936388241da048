package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
)

func TestPrefScore(t *testing.T) {
	p := NewPersonalizer(testTaxonomy(t))

	tests := []struct {
		name        string
		disciplines []string
		prefs       []string
		want        int
	}{
		{"no preferences", []string{"opera"}, nil, 0},
		{"group only", []string{"opera"}, []string{"musica"}, 2},
		// opera is in musica and artes escenicas; both preferred
		{"two groups", []string{"opera"}, []string{"musica", "artes escenicas"}, 4},
		{"direct and group", []string{"teatro"}, []string{"teatro"}, 4},
		{"capped", []string{"opera", "teatro", "danza", "canto"}, []string{"musica", "artes escenicas", "teatro", "danza", "opera"}, 10},
		{"disjoint", []string{"pintura"}, []string{"musica"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := map[string]struct{}{}
			for _, d := range tt.prefs {
				prefs[d] = struct{}{}
			}
			o := &domain.Opportunity{Disciplines: tt.disciplines}
			assert.Equal(t, tt.want, p.PrefScore(o, prefs))
		})
	}
}

func TestRank(t *testing.T) {
	p := NewPersonalizer(testTaxonomy(t))
	undatedMatch := rec("undated-match", domain.Date{}, "opera")
	lateMatch := rec("late-match", domain.DateOf(2024, 9, 1), "canto")
	earlyMatch := rec("early-match", domain.DateOf(2024, 7, 1), "opera")
	noMatch := rec("no-match", domain.DateOf(2024, 6, 1), "pintura")

	in := []Hit{{Opportunity: undatedMatch, Score: 9}, {Opportunity: noMatch, Score: 8}, {Opportunity: lateMatch}, {Opportunity: earlyMatch}}
	got := p.Rank(in, []string{"Música"})

	var ids []string
	for _, h := range got {
		ids = append(ids, h.Opportunity.ID)
	}
	assert.Equal(t, []string{"early-match", "late-match", "undated-match", "no-match"}, ids)
	assert.Equal(t, 2, got[0].PrefScore)
	assert.Equal(t, 0, got[3].PrefScore)
	assert.Equal(t, 9, got[2].Score, "query score is carried through")

	// Input untouched.
	assert.Equal(t, "undated-match", in[0].Opportunity.ID)
	assert.Zero(t, in[0].PrefScore)
}

func TestRankWithoutPreferencesOrdersByDate(t *testing.T) {
	p := NewPersonalizer(testTaxonomy(t))
	in := []Hit{
		{Opportunity: rec("b", domain.Date{})},
		{Opportunity: rec("c", domain.DateOf(2024, 8, 1))},
		{Opportunity: rec("a", domain.Date{})},
		{Opportunity: rec("d", domain.DateOf(2024, 7, 1))},
	}

	got := p.Rank(in, nil)
	var ids []string
	for _, h := range got {
		ids = append(ids, h.Opportunity.ID)
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids)
}
