package catalog

import (
	"context"

	"engram/pkg/fetch"
	"engram/pkg/logger"
	"engram/pkg/models"
)

// studyXDocument is the StudyX wire shape. SEM1 and SEM2 live under
// materials.common; later semesters live under each branch.
type studyXDocument struct {
	Metadata struct {
		LastUpdated string `json:"lastUpdated"`
		Version     string `json:"version"`
	} `json:"metadata"`
	Materials struct {
		Common map[string]studyXSemester `json:"common" validate:"required"`
	} `json:"materials"`
	Branches map[string]studyXBranch `json:"branches" validate:"required,dive"`
}

type studyXBranch struct {
	Semesters map[string]studyXSemester `json:"semesters"`
}

type studyXSemester struct {
	Subjects map[string]studyXSubject `json:"subjects"`
}

type studyXSubject struct {
	Name      string                      `json:"name"`
	Materials map[string][]studyXMaterial `json:"materials"`
}

type studyXMaterial struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       string `json:"size"`
	UploadedAt string `json:"uploadedAt"`
	ID         string `json:"id"`
	Links      struct {
		Preview  string `json:"preview"`
		Download string `json:"download"`
		WebView  string `json:"webView"`
	} `json:"links"`
}

func (m studyXMaterial) material() models.Material {
	return models.Material{
		Name:        m.Name,
		ID:          m.ID,
		DownloadURL: m.Links.Download,
		PreviewURL:  m.Links.Preview,
		WebViewURL:  m.Links.WebView,
	}
}

// commonSemester reports whether a semester is served from materials.common.
func commonSemester(semester string) bool {
	n := SemesterNumber(NormalizeSemester(semester))
	return n == 1 || n == 2
}

// StudyX files subjects under full names; SEM1 and SEM2 live in a shared
// common bucket.
type StudyX struct {
	doc *Document[studyXDocument]
	log *logger.Logger
}

func NewStudyX(f fetch.Fetcher, opts Options) *StudyX {
	opts = opts.withDefaults(StudyXPath)
	log := opts.Logger.With("catalog", models.SourceStudyX)
	return &StudyX{
		doc: NewDocument(models.SourceStudyX, opts.URL, f, opts.Timeout, log, DecodeJSON[studyXDocument]),
		log: log,
	}
}

func (s *StudyX) Source() models.Source { return models.SourceStudyX }

func (s *StudyX) Load(ctx context.Context) error {
	_, err := s.doc.Get(ctx)
	return err
}

func (s *StudyX) ClearCache() { s.doc.Clear() }

func (s *StudyX) Branches(ctx context.Context) ([]string, error) {
	doc, err := s.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc.Branches), nil
}

// Semesters is the union of the common semesters and the branch's own.
func (s *StudyX) Semesters(ctx context.Context, branch string) ([]string, error) {
	doc, err := s.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	_, b, ok := lookupFold(doc.Branches, branch)
	if !ok {
		return []string{}, nil
	}
	return semesterKeys(doc.Materials.Common, b.Semesters), nil
}

func (s *StudyX) semester(doc *studyXDocument, branch, semester string) (studyXSemester, bool) {
	if commonSemester(semester) {
		return lookupSemester(doc.Materials.Common, semester)
	}
	_, b, ok := lookupFold(doc.Branches, branch)
	if !ok {
		return studyXSemester{}, false
	}
	return lookupSemester(b.Semesters, semester)
}

func (s *StudyX) Subjects(ctx context.Context, branch, semester string) ([]string, error) {
	doc, err := s.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	sem, ok := s.semester(doc, branch, semester)
	if !ok {
		return []string{}, nil
	}
	return sortedKeys(sem.Subjects), nil
}

func (s *StudyX) Materials(ctx context.Context, branch, semester, subject string) (models.MaterialSet, error) {
	doc, err := s.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	sem, ok := s.semester(doc, branch, semester)
	if !ok {
		return models.NewMaterialSet(), nil
	}
	_, subj, ok := lookupFold(sem.Subjects, subject)
	if !ok {
		return models.NewMaterialSet(), nil
	}
	return materialSet(s.log, subj.Materials, func(_ models.Category, _ int, m studyXMaterial) models.Material {
		return m.material()
	}), nil
}

// Entries flattens the catalog. Common semesters are reported under
// the "COMMON" branch.
func (s *StudyX) Entries(ctx context.Context) ([]models.SubjectRef, error) {
	doc, err := s.doc.Get(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.SubjectRef
	add := func(branch string, sems map[string]studyXSemester) {
		for _, semKey := range sortedKeys(sems) {
			subjects := sems[semKey].Subjects
			for _, key := range sortedKeys(subjects) {
				name := subjects[key].Name
				if name == "" {
					name = key
				}
				out = append(out, models.SubjectRef{
					Branch:   branch,
					Semester: NormalizeSemester(semKey),
					Subject:  key,
					Name:     name,
					Source:   models.SourceStudyX,
				})
			}
		}
	}
	add(CommonBranch, doc.Materials.Common)
	for _, b := range sortedKeys(doc.Branches) {
		add(b, doc.Branches[b].Semesters)
	}
	return out, nil
}
