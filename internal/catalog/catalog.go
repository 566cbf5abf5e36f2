package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"engram/pkg/logger"
	"engram/pkg/models"
)

// Fixed document locations, resolved against the content origin.
const (
	StudyXPath          = "/Content-Meta/StudyX.json"
	DotNotesPath        = "/Content-Meta/Dotnotes.json"
	FifteenFourteenPath = "/Content-Meta/FifteenFourteen.json"
)

// Catalog is implemented by each upstream study-material catalog.
// Each implementation parses its own document format and maps it into
// models.Material; lookups are case-insensitive exact matches only.
type Catalog interface {
	Source() models.Source
	Load(ctx context.Context) error
	Branches(ctx context.Context) ([]string, error)
	Semesters(ctx context.Context, branch string) ([]string, error)
	Subjects(ctx context.Context, branch, semester string) ([]string, error)
	Materials(ctx context.Context, branch, semester, subject string) (models.MaterialSet, error)
	Entries(ctx context.Context) ([]models.SubjectRef, error)
	ClearCache()
}

// ErrInvalidDocument marks a body that parsed but did not have the expected shape.
var ErrInvalidDocument = errors.New("invalid catalog document")

// LoadError means a catalog document could not be fetched or parsed.
// It is never cached: the next call retries.
type LoadError struct {
	Source models.Source
	URL    string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s catalog from %s: %v", e.Source, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Options configures a catalog loader.
type Options struct {
	URL     string        // document location; defaults to the catalog's Content-Meta path
	Timeout time.Duration // per-fetch timeout; defaults to fetch.DefaultTimeout
	Logger  *logger.Logger
}

func (o Options) withDefaults(path string) Options {
	if o.URL == "" {
		o.URL = path
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateDocument runs struct-tag validation on a freshly decoded document.
func validateDocument(doc any) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// lookupFold returns the entry whose key equals key, ignoring case.
func lookupFold[V any](m map[string]V, key string) (string, V, bool) {
	if v, ok := m[key]; ok {
		return key, v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return k, v, true
		}
	}
	var zero V
	return "", zero, false
}

// lookupSemester finds the entry whose key normalizes to the same semester.
func lookupSemester[V any](m map[string]V, semester string) (V, bool) {
	want := NormalizeSemester(semester)
	if v, ok := m[want]; ok {
		return v, true
	}
	for k, v := range m {
		if NormalizeSemester(k) == want {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// semesterKeys returns the normalized, de-duplicated semesters of m.
func semesterKeys[V any](maps ...map[string]V) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range maps {
		for k := range m {
			s := NormalizeSemester(k)
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	SortSemesters(out)
	return out
}

// materialSet converts catalog folders into a full MaterialSet.
// Folders outside the fixed category list are skipped.
func materialSet[M any](log *logger.Logger, folders map[string][]M, convert func(models.Category, int, M) models.Material) models.MaterialSet {
	set := models.NewMaterialSet()
	for folder, items := range folders {
		cat, ok := models.ParseCategory(folder)
		if !ok {
			log.Debug("skipping unknown folder", "folder", folder, "items", len(items))
			continue
		}
		for i, item := range items {
			m := convert(cat, i, item)
			if m.DownloadURL == "" {
				log.Debug("dropping material without download url", "category", cat, "name", m.Name)
				continue
			}
			set[cat] = append(set[cat], m.Normalize())
		}
	}
	return set
}
