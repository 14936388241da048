package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "date only", input: "2024-06-30", want: DateOf(2024, time.June, 30)},
		{name: "rfc3339 keeps local day", input: "2024-06-30T22:00:00-03:00", want: DateOf(2024, time.June, 30)},
		{name: "empty is sentinel", input: "", want: Date{}},
		{name: "garbage", input: "30/06/2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDateSentinel(t *testing.T) {
	var d Date
	if !d.IsNoDate() {
		t.Error("zero Date should be the sentinel")
	}
	if d.Month() != 0 {
		t.Errorf("sentinel Month() = %v, want 0", d.Month())
	}
	if !d.AddDays(3).IsNoDate() {
		t.Error("AddDays on sentinel should stay sentinel")
	}
	if d.Display() != NoDateLabel {
		t.Errorf("sentinel Display() = %q, want %q", d.Display(), NoDateLabel)
	}
}

func TestDateDisplay(t *testing.T) {
	d := DateOf(2024, time.March, 5)
	if got := d.Display(); got != "05/03" {
		t.Errorf("Display() = %q, want 05/03", got)
	}
	if got := d.String(); got != "2024-03-05" {
		t.Errorf("String() = %q, want 2024-03-05", got)
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}

	data, err := json.Marshal(wrapper{D: DateOf(2024, time.December, 1)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"d":"2024-12-01"}` {
		t.Errorf("Marshal() = %s", data)
	}

	data, err = json.Marshal(wrapper{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"d":null}` {
		t.Errorf("Marshal(sentinel) = %s", data)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"d":null}`), &w); err != nil || !w.D.IsNoDate() {
		t.Errorf("Unmarshal(null) = %v, %v", w.D, err)
	}
	if err := json.Unmarshal([]byte(`{"d":42}`), &w); err == nil {
		t.Error("Unmarshal(number) should fail")
	}
}

func TestSnapshotLookup(t *testing.T) {
	s := &Snapshot{General: []*Opportunity{{ID: "a"}, {ID: "b"}}}

	if o, ok := s.Lookup("b"); !ok || o.ID != "b" {
		t.Errorf("Lookup(b) = %v, %v", o, ok)
	}
	if _, ok := s.Lookup("z"); ok {
		t.Error("Lookup(z) should miss")
	}

	var nilSnap *Snapshot
	if _, ok := nilSnap.Lookup("a"); ok {
		t.Error("Lookup on nil snapshot should miss")
	}
}
