package unified

import (
	"sort"
	"strings"

	"engram/internal/mapper"
	"engram/pkg/models"
)

// entry is one real-world subject and its id in each catalog that has it.
type entry struct {
	Name string
	IDs  map[models.Source]string
}

// subjectTable is the deduplicated view of one (branch, semester).
type subjectTable struct {
	entries []*entry
}

// lookup finds the entry whose display name or any catalog id equals subject.
func (t *subjectTable) lookup(subject string) *entry {
	for _, e := range t.entries {
		if strings.EqualFold(e.Name, subject) {
			return e
		}
	}
	for _, e := range t.entries {
		for _, id := range e.IDs {
			if strings.EqualFold(id, subject) {
				return e
			}
		}
	}
	return nil
}

// names returns sorted display names, unique ignoring case.
func (t *subjectTable) names() []string {
	seen := make(map[string]struct{}, len(t.entries))
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		k := strings.ToLower(e.Name)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}

// secondary catalogs are keyed by code and aligned against StudyX names.
var secondary = []models.Source{models.SourceDotNotes, models.SourceFifteenFourteen}

// buildTable collapses the native subject lists of one scope:
//
//   - each StudyX name is forward-mapped; a DotNotes or FifteenFourteen id
//     equal to the code (or to the name itself) joins its entry.
//   - leftover ids first join an entry already holding the same id from
//     another code-keyed catalog, then are backward-mapped onto StudyX names.
//   - anything still unmatched stands alone under its own id.
func buildTable(m *mapper.Mapper, native map[models.Source][]string, branch, semester string) *subjectTable {
	t := &subjectTable{}
	claimed := make(map[models.Source]map[string]bool)
	for _, src := range secondary {
		claimed[src] = make(map[string]bool)
	}
	claim := func(e *entry, src models.Source, id string) {
		e.IDs[src] = id
		claimed[src][strings.ToLower(id)] = true
	}

	primary := native[models.SourceStudyX]
	for _, name := range primary {
		e := &entry{Name: name, IDs: map[models.Source]string{models.SourceStudyX: name}}
		res := m.MapForward(name, branch, semester)
		for _, src := range secondary {
			if id, ok := findID(native[src], res.Code, name); ok && !claimed[src][strings.ToLower(id)] {
				claim(e, src, id)
			}
		}
		t.entries = append(t.entries, e)
	}

	for _, src := range secondary {
		for _, id := range native[src] {
			if claimed[src][strings.ToLower(id)] {
				continue
			}
			if e := t.sharedID(src, id); e != nil {
				claim(e, src, id)
				continue
			}
			rev := m.MapBackward(id, primary)
			if e := t.primaryMatch(src, rev.Names); e != nil {
				claim(e, src, id)
				continue
			}
			e := &entry{Name: id, IDs: map[models.Source]string{}}
			claim(e, src, id)
			t.entries = append(t.entries, e)
		}
	}
	return t
}

func findID(ids []string, code, name string) (string, bool) {
	if code != "" {
		for _, id := range ids {
			if strings.EqualFold(id, code) {
				return id, true
			}
		}
	}
	for _, id := range ids {
		if strings.EqualFold(id, name) {
			return id, true
		}
	}
	return "", false
}

// sharedID finds an entry without a src id that already holds id from
// another code-keyed catalog.
func (t *subjectTable) sharedID(src models.Source, id string) *entry {
	for _, e := range t.entries {
		if _, has := e.IDs[src]; has {
			continue
		}
		for _, other := range secondary {
			if other != src && strings.EqualFold(e.IDs[other], id) {
				return e
			}
		}
	}
	return nil
}

// primaryMatch finds the StudyX entry, still missing a src id, whose name
// matches one of the backward-mapped names. Names are tried best first.
func (t *subjectTable) primaryMatch(src models.Source, names []string) *entry {
	for _, n := range names {
		want := mapper.Normalize(n)
		for _, e := range t.entries {
			if _, ok := e.IDs[models.SourceStudyX]; !ok {
				continue
			}
			if _, has := e.IDs[src]; has {
				continue
			}
			if mapper.Normalize(e.Name) == want {
				return e
			}
		}
	}
	return nil
}
