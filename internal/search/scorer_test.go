package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

func testTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.New(1, []taxonomy.GroupSpec{
		{Name: "música", Label: "Música", Synonyms: []string{"ópera", "canto"}},
		{Name: "artes escénicas", Synonyms: []string{"teatro", "danza", "ópera"}},
		{Name: "teatro", Synonyms: []string{"títeres"}},
		{Name: "danza", Synonyms: []string{"ballet"}},
		{Name: "artes visuales", Synonyms: []string{"pintura"}},
	})
	require.NoError(t, err)
	return tax
}

func TestParseWeights(t *testing.T) {
	w, err := ParseWeights("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), w)

	w, err = ParseWeights(" discipline=5, title = 2 ,group_bonus=0")
	require.NoError(t, err)
	assert.Equal(t, 5, w.Discipline)
	assert.Equal(t, 2, w.Title)
	assert.Equal(t, 0, w.GroupBonus)
	assert.Equal(t, 3, w.RichSummary)

	for _, bad := range []string{"discipline", "unknown=1", "title=x", "title=-1"} {
		_, err := ParseWeights(bad)
		assert.Error(t, err, bad)
	}
}

func TestScoreFieldWeights(t *testing.T) {
	s := NewScorer(DefaultWeights(), nil)
	o := &domain.Opportunity{
		Title:       "Danza",
		RichSummary: "Residencia de danza contemporánea",
		AISummary:   "Apoyo a creadores",
		Country:     "Chile",
		Disciplines: []string{"danza contemporanea", "danza"},
	}

	tests := []struct {
		name string
		term string
		want int
	}{
		// discipline exact 2*4, rich summary substring 3, title exact 2*1
		{"exact and substring", "danza", 8 + 3 + 2},
		// discipline substring 4, rich summary substring 3
		{"substring only", "contemporanea", 4 + 3},
		{"country exact", "chile", 2},
		{"no match", "pintura", 0},
		{"empty term", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(o, []string{tt.term}))
		})
	}
}

func TestScoreGroupBonus(t *testing.T) {
	s := NewScorer(DefaultWeights(), testTaxonomy(t))
	o := &domain.Opportunity{Disciplines: []string{"opera", "canto"}}

	// No field contains "musica"; two disciplines are in the group.
	assert.Equal(t, 2*3, s.Score(o, []string{"musica"}))
	assert.Zero(t, s.Score(o, []string{"artes visuales"}))
}

func TestScoreSumsTerms(t *testing.T) {
	s := NewScorer(DefaultWeights(), nil)
	o := &domain.Opportunity{Title: "Beca de teatro y danza"}

	assert.Equal(t, s.Score(o, []string{"teatro"})+s.Score(o, []string{"danza"}),
		s.Score(o, []string{"teatro", "danza"}))
}

func TestScoreMonotonic(t *testing.T) {
	s := NewScorer(DefaultWeights(), testTaxonomy(t))
	o := &domain.Opportunity{Title: "Convocatoria"}
	terms := []string{"musica"}

	steps := []func(*domain.Opportunity){
		func(o *domain.Opportunity) { o.Entity = "Fondo de la Música" },
		func(o *domain.Opportunity) { o.Disciplines = append(o.Disciplines, "opera") },
		func(o *domain.Opportunity) { o.RichSummary = "musica de camara" },
		func(o *domain.Opportunity) { o.Disciplines = append(o.Disciplines, "musica") },
		func(o *domain.Opportunity) { o.Category = "musica" },
	}

	prev := s.Score(o, terms)
	assert.Zero(t, prev)
	for i, step := range steps {
		step(o)
		got := s.Score(o, terms)
		assert.GreaterOrEqual(t, got, prev, "step %d decreased the score", i)
		assert.Positive(t, got)
		prev = got
	}
}

func TestMatchAll(t *testing.T) {
	s := NewScorer(DefaultWeights(), testTaxonomy(t))
	both := &domain.Opportunity{Disciplines: []string{"teatro", "danza"}}
	onlyTeatro := &domain.Opportunity{Disciplines: []string{"teatro"}}
	// In the danza group but never mentions the word.
	ballet := &domain.Opportunity{Disciplines: []string{"teatro", "ballet"}}

	score, ok := s.MatchAll(both, []string{"teatro", "danza"})
	assert.True(t, ok)
	assert.Positive(t, score)

	_, ok = s.MatchAll(onlyTeatro, []string{"teatro", "danza"})
	assert.False(t, ok)

	_, ok = s.MatchAll(ballet, []string{"teatro", "danza"})
	assert.False(t, ok, "group membership is not a term match")
}
