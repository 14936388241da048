package taxonomy

import (
	"errors"
	"fmt"
)

// ErrUnknownGroup is returned when a name does not match any group.
var ErrUnknownGroup = errors.New("unknown discipline group")

// Group is a named cluster of discipline synonyms. Name and Synonyms are
// normalized; Synonyms always contains Name.
type Group struct {
	Name     string
	Label    string
	Synonyms []string
}

// Taxonomy is an immutable discipline table with a reverse index.
// It is safe for concurrent use.
type Taxonomy struct {
	version  int
	groups   []Group
	byName   map[string]int
	synonyms map[string]map[string]struct{} // group name -> synonym set
	reverse  map[string][]string            // synonym -> group names
}

// GroupSpec is the raw, unnormalized definition of one group.
type GroupSpec struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Synonyms []string `yaml:"synonyms"`
}

// New normalizes every group and builds the lookup indexes. Groups whose
// names collide after normalization are merged.
func New(version int, specs []GroupSpec) (*Taxonomy, error) {
	t := &Taxonomy{
		version:  version,
		byName:   make(map[string]int, len(specs)),
		synonyms: make(map[string]map[string]struct{}, len(specs)),
		reverse:  make(map[string][]string),
	}

	for i, spec := range specs {
		name := Normalize(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("group %d: empty name", i)
		}
		label := spec.Label
		if label == "" {
			label = spec.Name
		}

		idx, exists := t.byName[name]
		if !exists {
			idx = len(t.groups)
			t.byName[name] = idx
			t.groups = append(t.groups, Group{Name: name, Label: label})
			t.synonyms[name] = make(map[string]struct{})
		}

		terms := append([]string{name}, NormalizeAll(spec.Synonyms)...)
		for _, term := range terms {
			if _, ok := t.synonyms[name][term]; ok {
				continue
			}
			t.synonyms[name][term] = struct{}{}
			t.groups[idx].Synonyms = append(t.groups[idx].Synonyms, term)
			t.reverse[term] = append(t.reverse[term], name)
		}
	}

	return t, nil
}

// Version returns the configuration version the table was loaded from.
func (t *Taxonomy) Version() int { return t.version }

// Groups returns the groups in configuration order.
func (t *Taxonomy) Groups() []Group {
	out := make([]Group, len(t.groups))
	copy(out, t.groups)
	return out
}

// IsGroupName reports whether term, once normalized, names a group.
func (t *Taxonomy) IsGroupName(term string) bool {
	_, ok := t.byName[Normalize(term)]
	return ok
}

// GroupSynonyms returns the synonym set of the named group, including the
// group name itself.
func (t *Taxonomy) GroupSynonyms(name string) ([]string, error) {
	idx, ok := t.byName[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}
	syn := t.groups[idx].Synonyms
	out := make([]string, len(syn))
	copy(out, syn)
	return out, nil
}

// Group returns the named group.
func (t *Taxonomy) Group(name string) (Group, bool) {
	idx, ok := t.byName[Normalize(name)]
	if !ok {
		return Group{}, false
	}
	return t.groups[idx], true
}

// GroupsOf returns the names of the groups that list term as a synonym.
// The returned slice is shared and must not be modified.
func (t *Taxonomy) GroupsOf(term string) []string {
	return t.reverse[Normalize(term)]
}

// InGroup reports whether term belongs to the group. Both arguments must
// already be normalized.
func (t *Taxonomy) InGroup(name, term string) bool {
	set, ok := t.synonyms[name]
	if !ok {
		return false
	}
	_, ok = set[term]
	return ok
}

// Intersect counts how many terms belong to the group. name and terms must
// already be normalized.
func (t *Taxonomy) Intersect(name string, terms []string) int {
	set, ok := t.synonyms[name]
	if !ok {
		return 0
	}
	n := 0
	for _, term := range terms {
		if _, ok := set[term]; ok {
			n++
		}
	}
	return n
}
