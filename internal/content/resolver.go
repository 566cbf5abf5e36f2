// Package content serves syllabus text and lecture videos from the
// consolidated content document, keyed by DotNotes subject code.
package content

import (
	"context"
	"strings"

	"engram/internal/catalog"
	"engram/internal/mapper"
	"engram/pkg/fetch"
	"engram/pkg/logger"
	"engram/pkg/models"
)

const ConsolidatedPath = "/Content-Meta/consolidated.json"

// documentSource labels load errors of the consolidated document.
const documentSource models.Source = "Consolidated"

type origin struct {
	Path     string `json:"path"`
	Branch   string `json:"branch"`
	Semester string `json:"semester"`
	Subject  string `json:"subject"`
}

type syllabusEntry struct {
	ExtractedFrom origin          `json:"extractedFrom"`
	Content       models.Syllabus `json:"content"`
}

type videosEntry struct {
	ExtractedFrom origin                   `json:"extractedFrom"`
	Content       []models.VideoDescriptor `json:"content"`
}

// tree is branch -> semester -> code -> entry.
type tree[E any] map[string]map[string]map[string]E

func (t tree[E]) find(branch, semester, code string) (E, bool) {
	var zero E
	sems, ok := t[strings.ToUpper(branch)]
	if !ok {
		return zero, false
	}
	codes, ok := sems[catalog.NormalizeSemester(semester)]
	if !ok {
		return zero, false
	}
	e, ok := codes[strings.ToUpper(code)]
	return e, ok
}

func (t tree[E]) count() int {
	n := 0
	for _, sems := range t {
		for _, codes := range sems {
			n += len(codes)
		}
	}
	return n
}

type document struct {
	Metadata struct {
		TotalFiles  int    `json:"totalFiles"`
		GeneratedAt string `json:"generatedAt"`
		Source      string `json:"source"`
		Description string `json:"description"`
	} `json:"metadata"`
	Syllabus tree[syllabusEntry] `json:"syllabus" validate:"required_without=Videos"`
	Videos   tree[videosEntry]   `json:"videos" validate:"required_without=Syllabus"`
}

// Status reports what the resolver currently holds in memory.
type Status struct {
	Loaded   bool `json:"loaded"`
	Syllabi  int  `json:"syllabi"`
	Videos   int  `json:"videos"`
	Declared int  `json:"declared_files"`
}

// Resolver looks subjects up in the consolidated document. It never
// fails: a missing path segment or a failed load is an absent result.
type Resolver struct {
	doc    *catalog.Document[document]
	mapper *mapper.Mapper
	log    *logger.Logger
}

func New(f fetch.Fetcher, m *mapper.Mapper, opts catalog.Options) *Resolver {
	if opts.URL == "" {
		opts.URL = ConsolidatedPath
	}
	log := logger.OrNop(opts.Logger).With("component", "content")
	if m == nil {
		m = mapper.New(mapper.Options{Logger: log})
	}
	return &Resolver{
		doc:    catalog.NewDocument(documentSource, opts.URL, f, opts.Timeout, log, catalog.DecodeJSON[document]),
		mapper: m,
		log:    log,
	}
}

func (r *Resolver) Load(ctx context.Context) error {
	_, err := r.doc.Get(ctx)
	return err
}

func (r *Resolver) ClearCache() { r.doc.Clear() }

// code is the DotNotes code for subject; when mapping finds nothing the
// subject itself is taken as a code.
func (r *Resolver) code(branch, semester, subject string) string {
	if res := r.mapper.MapForward(subject, branch, semester); res.Found() {
		return res.Code
	}
	return strings.ToUpper(strings.TrimSpace(subject))
}

func (r *Resolver) load(ctx context.Context) (*document, bool) {
	doc, err := r.doc.Get(ctx)
	if err != nil {
		r.log.Warn("content unavailable", "error", err)
		return nil, false
	}
	return doc, true
}

// Syllabus returns the unit texts of a subject, or false when absent.
func (r *Resolver) Syllabus(ctx context.Context, branch, semester, subject string) (models.Syllabus, bool) {
	doc, ok := r.load(ctx)
	if !ok {
		return nil, false
	}
	code := r.code(branch, semester, subject)
	e, ok := doc.Syllabus.find(branch, semester, code)
	if !ok || len(e.Content) == 0 {
		r.log.Debug("no syllabus", "branch", branch, "semester", semester, "subject", subject, "code", code)
		return nil, false
	}
	return e.Content, true
}

// Videos returns the lecture videos of a subject; entries without a
// title are skipped.
func (r *Resolver) Videos(ctx context.Context, branch, semester, subject string) []models.VideoDescriptor {
	out := []models.VideoDescriptor{}
	doc, ok := r.load(ctx)
	if !ok {
		return out
	}
	code := r.code(branch, semester, subject)
	e, ok := doc.Videos.find(branch, semester, code)
	if !ok {
		return out
	}
	for _, v := range e.Content {
		if strings.TrimSpace(v.Title) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (r *Resolver) Status(ctx context.Context) Status {
	if !r.doc.Loaded() {
		return Status{}
	}
	doc, ok := r.load(ctx)
	if !ok {
		return Status{}
	}
	return Status{
		Loaded:   true,
		Syllabi:  doc.Syllabus.count(),
		Videos:   doc.Videos.count(),
		Declared: doc.Metadata.TotalFiles,
	}
}
