// Package unified presents the catalogs as one: merged listings,
// deduplicated subjects and per-category merged materials.
package unified

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"engram/internal/catalog"
	"engram/internal/mapper"
	"engram/pkg/logger"
	"engram/pkg/models"
)

// ErrAllSourcesFailed is returned by listings when no catalog could answer.
var ErrAllSourcesFailed = errors.New("all catalogs failed")

type scope struct{ branch, semester string }

// Aggregator fans requests out to every catalog and merges the answers.
// A failing catalog degrades to an empty contribution; only listings
// report an error, and only when every catalog failed.
type Aggregator struct {
	catalogs []catalog.Catalog
	mapper   *mapper.Mapper
	log      *logger.Logger

	mu     sync.RWMutex
	tables map[scope]*subjectTable
}

func New(m *mapper.Mapper, log *logger.Logger, catalogs ...catalog.Catalog) *Aggregator {
	if m == nil {
		m = mapper.New(mapper.Options{Logger: log})
	}
	return &Aggregator{
		catalogs: catalogs,
		mapper:   m,
		log:      logger.OrNop(log),
		tables:   make(map[scope]*subjectTable),
	}
}

func (a *Aggregator) Catalogs() []catalog.Catalog { return a.catalogs }

type outcome[T any] struct {
	source models.Source
	value  T
	err    error
}

// fanout calls fn for every catalog concurrently. Results are collected
// independently; one failure does not cancel the rest.
func fanout[T any](ctx context.Context, cats []catalog.Catalog, fn func(context.Context, catalog.Catalog) (T, error)) []outcome[T] {
	out := make([]outcome[T], len(cats))
	var wg sync.WaitGroup
	for i, c := range cats {
		wg.Add(1)
		go func(i int, c catalog.Catalog) {
			defer wg.Done()
			v, err := fn(ctx, c)
			out[i] = outcome[T]{source: c.Source(), value: v, err: err}
		}(i, c)
	}
	wg.Wait()
	return out
}

// union merges string listings; it fails only when every catalog failed.
func (a *Aggregator) union(op string, results []outcome[[]string]) ([]string, error) {
	seen := make(map[string]struct{})
	out := []string{}
	var errs []error
	for _, r := range results {
		if r.err != nil {
			a.log.Warn("partial source failure", "op", op, "source", r.source, "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		for _, v := range r.value {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	if len(results) > 0 && len(errs) == len(results) {
		return nil, fmt.Errorf("%s: %w", op, errors.Join(append([]error{ErrAllSourcesFailed}, errs...)...))
	}
	return out, nil
}

// Branches lists every branch any catalog knows. The shared COMMON
// bucket is not a branch.
func (a *Aggregator) Branches(ctx context.Context) ([]string, error) {
	res := fanout(ctx, a.catalogs, func(ctx context.Context, c catalog.Catalog) ([]string, error) {
		return c.Branches(ctx)
	})
	for i := range res {
		res[i].value = upperAll(res[i].value)
	}
	branches, err := a.union("branches", res)
	if err != nil {
		return nil, err
	}
	out := branches[:0]
	for _, b := range branches {
		if b != catalog.CommonBranch {
			out = append(out, b)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (a *Aggregator) Semesters(ctx context.Context, branch string) ([]string, error) {
	res := fanout(ctx, a.catalogs, func(ctx context.Context, c catalog.Catalog) ([]string, error) {
		return c.Semesters(ctx, branch)
	})
	sems, err := a.union("semesters", res)
	if err != nil {
		return nil, err
	}
	catalog.SortSemesters(sems)
	return sems, nil
}

// Subjects returns one display name per real-world subject.
func (a *Aggregator) Subjects(ctx context.Context, branch, semester string) ([]string, error) {
	t, err := a.table(ctx, branch, semester)
	if err != nil {
		return nil, err
	}
	return t.names(), nil
}

// table returns the deduplicated subject table of a scope. Only tables
// built while every catalog answered are cached.
func (a *Aggregator) table(ctx context.Context, branch, semester string) (*subjectTable, error) {
	key := scope{branch: strings.ToUpper(branch), semester: catalog.NormalizeSemester(semester)}

	a.mu.RLock()
	t, ok := a.tables[key]
	a.mu.RUnlock()
	if ok {
		return t, nil
	}

	res := fanout(ctx, a.catalogs, func(ctx context.Context, c catalog.Catalog) ([]string, error) {
		return c.Subjects(ctx, branch, semester)
	})

	native := make(map[models.Source][]string, len(res))
	var errs []error
	for _, r := range res {
		if r.err != nil {
			a.log.Warn("partial source failure", "op", "subjects", "source", r.source,
				"branch", branch, "semester", semester, "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		native[r.source] = r.value
	}
	if len(res) > 0 && len(errs) == len(res) {
		return nil, fmt.Errorf("subjects: %w", errors.Join(append([]error{ErrAllSourcesFailed}, errs...)...))
	}

	t = buildTable(a.mapper, native, key.branch, key.semester)
	if len(errs) == 0 {
		a.mu.Lock()
		a.tables[key] = t
		a.mu.Unlock()
	}
	return t, nil
}

// resolve finds each catalog's native id for subject: from the subject
// table when it lists the subject, otherwise from a fresh forward mapping.
func (a *Aggregator) resolve(ctx context.Context, branch, semester, subject string) map[models.Source]string {
	if t, err := a.table(ctx, branch, semester); err == nil {
		if e := t.lookup(subject); e != nil {
			return e.IDs
		}
	}

	ids := map[models.Source]string{models.SourceStudyX: subject}
	code := subject
	if res := a.mapper.MapForward(subject, branch, semester); res.Found() {
		code = res.Code
	}
	for _, src := range secondary {
		ids[src] = code
	}
	return ids
}

// Materials merges every catalog's materials for subject. It never
// fails: unresolved or failing catalogs contribute nothing, and when
// every catalog fails the result is an all-empty set.
func (a *Aggregator) Materials(ctx context.Context, branch, semester, subject string) models.MaterialSet {
	ids := a.resolve(ctx, branch, semester, subject)

	var targets []catalog.Catalog
	for _, c := range a.catalogs {
		if ids[c.Source()] != "" {
			targets = append(targets, c)
		}
	}

	res := fanout(ctx, targets, func(ctx context.Context, c catalog.Catalog) (models.MaterialSet, error) {
		return c.Materials(ctx, branch, semester, ids[c.Source()])
	})

	sets := make(map[models.Source]models.MaterialSet, len(res))
	for _, r := range res {
		if r.err != nil {
			a.log.Warn("partial source failure", "op", "materials", "source", r.source,
				"branch", branch, "semester", semester, "subject", subject, "error", r.err)
			continue
		}
		sets[r.source] = r.value
	}

	merged := Merge(sets)
	a.log.Debug("materials merged", "branch", branch, "semester", semester, "subject", subject,
		"resolved", len(targets), "answered", len(sets), "total", merged.Total())
	return merged
}

// Entries lists every (branch, semester, subject) of every catalog in
// source order. Like the listings it fails only when all catalogs fail.
func (a *Aggregator) Entries(ctx context.Context) ([]models.SubjectRef, error) {
	res := fanout(ctx, a.catalogs, func(ctx context.Context, c catalog.Catalog) ([]models.SubjectRef, error) {
		return c.Entries(ctx)
	})
	out := []models.SubjectRef{}
	var errs []error
	for _, r := range res {
		if r.err != nil {
			a.log.Warn("partial source failure", "op", "entries", "source", r.source, "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		out = append(out, r.value...)
	}
	if len(res) > 0 && len(errs) == len(res) {
		return nil, fmt.Errorf("entries: %w", errors.Join(append([]error{ErrAllSourcesFailed}, errs...)...))
	}
	return out, nil
}

// Mapping exposes the forward mapping used for alignment.
func (a *Aggregator) Mapping(subject, branch, semester string) models.SubjectMapping {
	return a.mapper.MapForward(subject, branch, semester)
}

// ClearCache drops subject tables and every catalog's document.
func (a *Aggregator) ClearCache() {
	a.mu.Lock()
	a.tables = make(map[scope]*subjectTable)
	a.mu.Unlock()
	for _, c := range a.catalogs {
		c.ClearCache()
	}
}

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
