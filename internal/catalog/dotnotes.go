package catalog

import (
	"context"

	"engram/pkg/fetch"
	"engram/pkg/logger"
	"engram/pkg/models"
)

// dotNotesDocument: branches -> semester -> subject code -> category -> items.
type dotNotesDocument struct {
	Source           string                                           `json:"source"`
	ExtractionDate   string                                           `json:"extractionDate"`
	OptimizationMode string                                           `json:"optimizationMode"`
	Branches         map[string]map[string]map[string]dotNotesSubject `json:"branches" validate:"required"`
}

type dotNotesSubject map[string][]dotNotesMaterial

type dotNotesMaterial struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DownloadURL    string `json:"downloadUrl"`
	ViewURL        string `json:"viewUrl"`
	OriginalFolder string `json:"originalFolder"`
}

func (m dotNotesMaterial) material() models.Material {
	return models.Material{
		Name:        m.Name,
		ID:          m.ID,
		DownloadURL: m.DownloadURL,
		PreviewURL:  m.ViewURL,
		WebViewURL:  m.ViewURL,
	}
}

// DotNotes files subjects under abbreviation codes such as "APM1", one
// tree per branch with no shared bucket.
type DotNotes struct {
	doc *Document[dotNotesDocument]
	log *logger.Logger
}

func NewDotNotes(f fetch.Fetcher, opts Options) *DotNotes {
	opts = opts.withDefaults(DotNotesPath)
	log := opts.Logger.With("catalog", models.SourceDotNotes)
	return &DotNotes{
		doc: NewDocument(models.SourceDotNotes, opts.URL, f, opts.Timeout, log, DecodeJSON[dotNotesDocument]),
		log: log,
	}
}

func (d *DotNotes) Source() models.Source { return models.SourceDotNotes }

func (d *DotNotes) Load(ctx context.Context) error {
	_, err := d.doc.Get(ctx)
	return err
}

func (d *DotNotes) ClearCache() { d.doc.Clear() }

func (d *DotNotes) Branches(ctx context.Context) ([]string, error) {
	doc, err := d.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc.Branches), nil
}

func (d *DotNotes) Semesters(ctx context.Context, branch string) ([]string, error) {
	doc, err := d.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	_, sems, ok := lookupFold(doc.Branches, branch)
	if !ok {
		return []string{}, nil
	}
	return semesterKeys(sems), nil
}

func (d *DotNotes) semester(doc *dotNotesDocument, branch, semester string) (map[string]dotNotesSubject, bool) {
	_, sems, ok := lookupFold(doc.Branches, branch)
	if !ok {
		return nil, false
	}
	return lookupSemester(sems, semester)
}

func (d *DotNotes) Subjects(ctx context.Context, branch, semester string) ([]string, error) {
	doc, err := d.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	subjects, ok := d.semester(doc, branch, semester)
	if !ok {
		return []string{}, nil
	}
	return sortedKeys(subjects), nil
}

func (d *DotNotes) Materials(ctx context.Context, branch, semester, code string) (models.MaterialSet, error) {
	doc, err := d.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	subjects, ok := d.semester(doc, branch, semester)
	if !ok {
		return models.NewMaterialSet(), nil
	}
	_, subj, ok := lookupFold(subjects, code)
	if !ok {
		return models.NewMaterialSet(), nil
	}
	return materialSet(d.log, subj, func(_ models.Category, _ int, m dotNotesMaterial) models.Material {
		return m.material()
	}), nil
}

func (d *DotNotes) Entries(ctx context.Context) ([]models.SubjectRef, error) {
	doc, err := d.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.SubjectRef
	for _, b := range sortedKeys(doc.Branches) {
		sems := doc.Branches[b]
		for _, semKey := range sortedKeys(sems) {
			for _, code := range sortedKeys(sems[semKey]) {
				out = append(out, models.SubjectRef{
					Branch:   b,
					Semester: NormalizeSemester(semKey),
					Subject:  code,
					Name:     code,
					Source:   models.SourceDotNotes,
				})
			}
		}
	}
	return out, nil
}
