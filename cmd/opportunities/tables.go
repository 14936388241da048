package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/search"
)

const maxTitleWidth = 60

func errUnknownBucket(name string) error {
	return fmt.Errorf("unknown bucket %q", name)
}

func newTable(out io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	return t
}

func renderStats(out io.Writer, snap *domain.Snapshot) {
	t := newTable(out, "Snapshot "+snap.ID)
	t.AppendHeader(table.Row{"Built At", "Pages", "Fetched", "Published", "Dropped", "Cap", "General", "Closing Soon", "Featured"})
	t.AppendRow(table.Row{
		snap.BuiltAt.Format("2006-01-02 15:04:05"),
		snap.Stats.Pages,
		snap.Stats.Fetched,
		snap.Stats.Published,
		snap.Stats.Dropped,
		snap.Stats.CapReason,
		len(snap.General),
		len(snap.ClosingSoon),
		len(snap.Featured),
	})
	t.Render()
}

func renderBucket(out io.Writer, title string, opps []*domain.Opportunity) {
	t := newTable(out, fmt.Sprintf("%s (%d)", title, len(opps)))
	t.AppendHeader(table.Row{"Cierre", "Título", "Disciplinas", "País", "Dominio"})
	for _, o := range opps {
		t.AppendRow(table.Row{
			o.ClosingDate.Display(),
			truncate(o.Title),
			strings.Join(o.Disciplines, ", "),
			o.Country,
			o.Domain,
		})
	}
	t.Render()
}

func renderFacets(out io.Writer, facets []search.FacetCount) {
	t := newTable(out, "Disciplinas")
	t.AppendHeader(table.Row{"Grupo", "Nombre", "Convocatorias"})
	total := 0
	for _, f := range facets {
		t.AppendRow(table.Row{f.Label, f.Name, f.Count})
		total += f.Count
	}
	t.AppendFooter(table.Row{"", "Total", total})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	t.Render()
}

func renderResult(out io.Writer, res search.Result, limit int) {
	t := newTable(out, fmt.Sprintf("Modo %s: %d resultados", res.Mode, res.Total))
	t.AppendHeader(table.Row{"#", "Puntaje", "Pref", "Cierre", "Título", "Disciplinas"})
	for i, h := range res.Items {
		if limit > 0 && i >= limit {
			break
		}
		t.AppendRow(table.Row{
			i + 1,
			h.Score,
			h.PrefScore,
			h.Opportunity.ClosingDate.Display(),
			truncate(h.Opportunity.Title),
			strings.Join(h.Opportunity.Disciplines, ", "),
		})
	}
	t.Render()
	for _, d := range res.Diagnostics {
		fmt.Fprintf(out, "⚠ %s\n", d)
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTitleWidth {
		return s
	}
	return string(r[:maxTitleWidth-1]) + "…"
}
