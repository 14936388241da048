package notion

import (
	"encoding/json"
	"strings"
)

// PropertyNames maps opportunity fields to database property names.
type PropertyNames struct {
	Title       string
	Country     string
	Audience    string
	RichSummary string
	AISummary   string
	Entity      string
	Category    string
	Disciplines string
	AIKeywords  string
	URL         string
	ClosingDate string
	Publish     string
	Top         string
}

// DefaultPropertyNames matches the opportunities database layout.
func DefaultPropertyNames() PropertyNames {
	return PropertyNames{
		Title:       "Nombre",
		Country:     "País",
		Audience:    "Destinatarios",
		RichSummary: "Descripción",
		AISummary:   "Resumen generado por la IA",
		Entity:      "Entidad",
		Category:    "Categoría",
		Disciplines: "Disciplina",
		AIKeywords:  "AI keywords",
		URL:         "URL",
		ClosingDate: "Fecha de cierre",
		Publish:     "Publicar",
		Top:         "Top",
	}
}

// ─────────────────────────────────────────────────────────────────
// Wire format
// ─────────────────────────────────────────────────────────────────

// queryResponse is the body of POST /v1/databases/{id}/query.
type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// page is a database row. Properties stay raw until the mapper asks for them.
type page struct {
	ID          string                     `json:"id"`
	CreatedTime string                     `json:"created_time"`
	Archived    bool                       `json:"archived"`
	Properties  map[string]json.RawMessage `json:"properties"`
}

// apiErrorBody is the error envelope returned on non-2xx responses.
type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RichText is one segment of a title or rich_text property.
type RichText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

// Option is a select or multi_select value.
type Option struct {
	Name string `json:"name"`
}

// DateValue is the payload of a date property.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end"`
}

// Property is the strict, typed decoding of one property value. Only the
// member matching Type is populated.
type Property struct {
	Type        string     `json:"type"`
	Title       []RichText `json:"title"`
	RichText    []RichText `json:"rich_text"`
	Select      *Option    `json:"select"`
	MultiSelect []Option   `json:"multi_select"`
	URL         *string    `json:"url"`
	Date        *DateValue `json:"date"`
	Checkbox    *bool      `json:"checkbox"`
}

// Text returns the textual value of the property: concatenated segments
// for title and rich_text, the option name for select, comma-joined names
// for multi_select, and the raw value for url.
func (p Property) Text() string {
	switch p.Type {
	case "title":
		return joinSegments(p.Title)
	case "rich_text":
		return joinSegments(p.RichText)
	case "select":
		if p.Select != nil {
			return p.Select.Name
		}
	case "multi_select":
		return strings.Join(p.Names(), ", ")
	case "url":
		if p.URL != nil {
			return *p.URL
		}
	}
	return ""
}

// Names returns the option names of a select or multi_select property.
// Text properties are split on commas.
func (p Property) Names() []string {
	switch p.Type {
	case "multi_select":
		out := make([]string, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			if o.Name != "" {
				out = append(out, o.Name)
			}
		}
		return out
	case "select":
		if p.Select != nil && p.Select.Name != "" {
			return []string{p.Select.Name}
		}
		return nil
	case "title", "rich_text":
		var out []string
		for _, part := range strings.Split(p.Text(), ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Bool returns the checkbox value; false when absent.
func (p Property) Bool() bool {
	return p.Checkbox != nil && *p.Checkbox
}

// DateStart returns the start of a date property, or "".
func (p Property) DateStart() string {
	if p.Date == nil {
		return ""
	}
	return p.Date.Start
}

func joinSegments(segs []RichText) string {
	var b strings.Builder
	for _, s := range segs {
		switch {
		case s.PlainText != "":
			b.WriteString(s.PlainText)
		case s.Text != nil:
			b.WriteString(s.Text.Content)
		}
	}
	return b.String()
}
