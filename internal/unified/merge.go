package unified

import (
	"sort"
	"strings"

	"engram/pkg/models"
)

// policy lists, per category, which catalogs may contribute and in what order.
//
//   - syllabus: DotNotes is authoritative.
//   - akash: StudyX is authoritative.
//   - books, notes, pyqs, lab, videos: every catalog.
var policy = map[models.Category][]models.Source{
	models.CategorySyllabus: {models.SourceDotNotes},
	models.CategoryBooks:    models.Sources,
	models.CategoryAkash:    {models.SourceStudyX},
	models.CategoryNotes:    models.Sources,
	models.CategoryPYQs:     models.Sources,
	models.CategoryLab:      models.Sources,
	models.CategoryVideos:   models.Sources,
}

// Merge combines per-catalog material sets into one. Documents carry the
// catalog they came from; videos never do. Notes are ordered by display
// name. Catalogs missing from sets contribute nothing.
func Merge(sets map[models.Source]models.MaterialSet) models.MaterialSet {
	out := models.NewMaterialSet()
	for _, cat := range models.Categories {
		for _, src := range policy[cat] {
			set, ok := sets[src]
			if !ok {
				continue
			}
			for _, m := range set[cat] {
				if cat == models.CategoryVideos {
					m.Source = ""
				} else {
					m.Source = src
				}
				out[cat] = append(out[cat], m)
			}
		}
	}

	notes := out[models.CategoryNotes]
	sort.SliceStable(notes, func(i, j int) bool {
		return strings.ToLower(notes[i].DisplayName()) < strings.ToLower(notes[j].DisplayName())
	})
	return out
}
