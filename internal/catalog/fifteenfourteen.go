package catalog

import (
	"context"
	"strconv"
	"strings"

	"engram/pkg/fetch"
	"engram/pkg/logger"
	"engram/pkg/models"
)

// CommonBranch is the bucket shared by every branch.
const CommonBranch = "COMMON"

type ffDocument struct {
	Metadata struct {
		Source      string `json:"source"`
		GeneratedAt string `json:"generatedAt"`
		Version     string `json:"version"`
		Coverage    string `json:"coverage"`
	} `json:"metadata"`
	Branches map[string]map[string]map[string]ffSubject `json:"branches" validate:"required"`
}

type ffUnit struct {
	Number  string `json:"number"`
	Content string `json:"content"`
}

// ffSubject keeps the categories the app understands; viva and midsem
// are decoded but never surfaced.
type ffSubject struct {
	Name     string       `json:"name"`
	URL      string       `json:"url"`
	Units    []ffUnit     `json:"units"`
	Notes    []ffMaterial `json:"notes"`
	PYQs     []ffMaterial `json:"pyqs"`
	Viva     []ffMaterial `json:"viva"`
	Midsem   []ffMaterial `json:"midsem"`
	Books    []ffMaterial `json:"books"`
	Lab      []ffMaterial `json:"lab"`
	Syllabus []ffMaterial `json:"syllabus"`
	Videos   []ffMaterial `json:"videos"`
	Akash    []ffMaterial `json:"akash"`
}

func (s ffSubject) folders() map[string][]ffMaterial {
	return map[string][]ffMaterial{
		string(models.CategoryNotes):    s.Notes,
		string(models.CategoryPYQs):     s.PYQs,
		string(models.CategoryBooks):    s.Books,
		string(models.CategoryLab):      s.Lab,
		string(models.CategoryAkash):    s.Akash,
		string(models.CategorySyllabus): s.Syllabus,
		string(models.CategoryVideos):   s.Videos,
	}
}

type ffMaterial struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DownloadURL    string `json:"downloadUrl"`
	ViewURL        string `json:"viewUrl"`
	OriginalFolder string `json:"originalFolder"`
	Source         string `json:"source"`
	OriginalURL    string `json:"originalUrl"`
}

// material converts an item; placeholder "LINK" names become
// "<folder> <position>".
func (m ffMaterial) material(cat models.Category, index int) models.Material {
	name := m.Name
	if strings.EqualFold(strings.TrimSpace(name), "link") {
		folder := m.OriginalFolder
		if folder == "" {
			folder = cat.Title()
		}
		name = folder + " " + strconv.Itoa(index+1)
	}
	return models.Material{
		Name:        name,
		ID:          m.ID,
		DownloadURL: m.DownloadURL,
		PreviewURL:  m.ViewURL,
		WebViewURL:  m.OriginalURL,
	}
}

// FifteenFourteen files subjects under codes. When the document has a
// COMMON branch it serves every branch.
type FifteenFourteen struct {
	doc *Document[ffDocument]
	log *logger.Logger
}

func NewFifteenFourteen(f fetch.Fetcher, opts Options) *FifteenFourteen {
	opts = opts.withDefaults(FifteenFourteenPath)
	log := opts.Logger.With("catalog", models.SourceFifteenFourteen)
	return &FifteenFourteen{
		doc: NewDocument(models.SourceFifteenFourteen, opts.URL, f, opts.Timeout, log, DecodeJSON[ffDocument]),
		log: log,
	}
}

func (c *FifteenFourteen) Source() models.Source { return models.SourceFifteenFourteen }

func (c *FifteenFourteen) Load(ctx context.Context) error {
	_, err := c.doc.Get(ctx)
	return err
}

func (c *FifteenFourteen) ClearCache() { c.doc.Clear() }

func (c *FifteenFourteen) Branches(ctx context.Context) ([]string, error) {
	doc, err := c.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc.Branches), nil
}

func (c *FifteenFourteen) target(doc *ffDocument, branch string) (map[string]map[string]ffSubject, bool) {
	if _, common, ok := lookupFold(doc.Branches, CommonBranch); ok {
		return common, true
	}
	_, b, ok := lookupFold(doc.Branches, branch)
	return b, ok
}

func (c *FifteenFourteen) Semesters(ctx context.Context, branch string) ([]string, error) {
	doc, err := c.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	sems, ok := c.target(doc, branch)
	if !ok {
		return []string{}, nil
	}
	return semesterKeys(sems), nil
}

func (c *FifteenFourteen) semester(doc *ffDocument, branch, semester string) (map[string]ffSubject, bool) {
	sems, ok := c.target(doc, branch)
	if !ok {
		return nil, false
	}
	return lookupSemester(sems, semester)
}

func (c *FifteenFourteen) Subjects(ctx context.Context, branch, semester string) ([]string, error) {
	doc, err := c.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	subjects, ok := c.semester(doc, branch, semester)
	if !ok {
		return []string{}, nil
	}
	return sortedKeys(subjects), nil
}

func (c *FifteenFourteen) Materials(ctx context.Context, branch, semester, code string) (models.MaterialSet, error) {
	doc, err := c.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	subjects, ok := c.semester(doc, branch, semester)
	if !ok {
		return models.NewMaterialSet(), nil
	}
	_, subj, ok := lookupFold(subjects, code)
	if !ok {
		return models.NewMaterialSet(), nil
	}
	return materialSet(c.log, subj.folders(), func(cat models.Category, i int, m ffMaterial) models.Material {
		return m.material(cat, i)
	}), nil
}

func (c *FifteenFourteen) Entries(ctx context.Context) ([]models.SubjectRef, error) {
	doc, err := c.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.SubjectRef
	for _, b := range sortedKeys(doc.Branches) {
		sems := doc.Branches[b]
		for _, semKey := range sortedKeys(sems) {
			subjects := sems[semKey]
			for _, code := range sortedKeys(subjects) {
				name := subjects[code].Name
				if name == "" {
					name = code
				}
				out = append(out, models.SubjectRef{
					Branch:   strings.ToUpper(b),
					Semester: NormalizeSemester(semKey),
					Subject:  code,
					Name:     name,
					Source:   models.SourceFifteenFourteen,
				})
			}
		}
	}
	return out, nil
}
