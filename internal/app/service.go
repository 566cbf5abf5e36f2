// Package app wires the catalogs, mapper, aggregator, content resolver
// and search index into the one service every surface talks to.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"engram/internal/catalog"
	"engram/internal/content"
	"engram/internal/mapper"
	"engram/internal/search"
	"engram/internal/unified"
	"engram/pkg/database"
	"engram/pkg/fetch"
	"engram/pkg/logger"
	"engram/pkg/models"
)

type Options struct {
	Timeout        time.Duration // per-document fetch timeout
	Database       database.Config
	FuzzyThreshold float64
	BranchBoost    float64
}

type Service struct {
	mapper  *mapper.Mapper
	agg     *unified.Aggregator
	content *content.Resolver
	index   *search.Index
	db      *sql.DB
	log     *logger.Logger

	mu      sync.Mutex
	onClear []func()
}

func New(opts Options, f fetch.Fetcher, log *logger.Logger) (*Service, error) {
	log = logger.OrNop(log)

	db, err := database.Open(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("open search db: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate search db: %w", err)
	}

	m := mapper.New(mapper.Options{
		FuzzyThreshold: opts.FuzzyThreshold,
		BranchBoost:    opts.BranchBoost,
		Logger:         log.With("component", "mapper"),
	})
	copts := catalog.Options{Timeout: opts.Timeout, Logger: log}
	agg := unified.New(m, log.With("component", "aggregator"),
		catalog.NewStudyX(f, copts),
		catalog.NewDotNotes(f, copts),
		catalog.NewFifteenFourteen(f, copts),
	)

	return &Service{
		mapper:  m,
		agg:     agg,
		content: content.New(f, m, copts),
		index:   search.NewIndex(search.NewRepo(db), agg, log),
		db:      db,
		log:     log,
	}, nil
}

func (s *Service) Close() error { return s.db.Close() }

// Ready loads every catalog and reports whether at least one answered.
func (s *Service) Ready(ctx context.Context) bool {
	cats := s.agg.Catalogs()
	ok := make(chan bool, len(cats))
	for _, c := range cats {
		go func(c catalog.Catalog) { ok <- c.Load(ctx) == nil }(c)
	}
	ready := false
	for range cats {
		if <-ok {
			ready = true
		}
	}
	return ready
}

func (s *Service) Branches(ctx context.Context) ([]string, error) {
	return s.agg.Branches(ctx)
}

func (s *Service) Semesters(ctx context.Context, branch string) ([]string, error) {
	return s.agg.Semesters(ctx, branch)
}

func (s *Service) Subjects(ctx context.Context, branch, semester string) ([]string, error) {
	return s.agg.Subjects(ctx, branch, semester)
}

func (s *Service) Materials(ctx context.Context, branch, semester, subject string) models.MaterialSet {
	return s.agg.Materials(ctx, branch, semester, subject)
}

func (s *Service) Syllabus(ctx context.Context, branch, semester, subject string) (models.Syllabus, bool) {
	return s.content.Syllabus(ctx, branch, semester, subject)
}

func (s *Service) Videos(ctx context.Context, branch, semester, subject string) []models.VideoDescriptor {
	return s.content.Videos(ctx, branch, semester, subject)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) (search.Result, error) {
	return s.index.Search(ctx, search.Query{Q: query, Limit: limit, Offset: offset})
}

// Index exposes the search index for handlers that need its full query.
func (s *Service) Index() *search.Index { return s.index }

func (s *Service) Mapping(subject, branch, semester string) models.SubjectMapping {
	return s.mapper.MapForward(subject, branch, semester)
}

func (s *Service) ContentStatus(ctx context.Context) content.Status {
	return s.content.Status(ctx)
}

// OnClear registers fn to run after every ClearCache.
func (s *Service) OnClear(fn func()) {
	s.mu.Lock()
	s.onClear = append(s.onClear, fn)
	s.mu.Unlock()
}

// ClearCache drops every in-memory cache; the next call refetches.
func (s *Service) ClearCache() {
	s.agg.ClearCache()
	s.content.ClearCache()
	s.index.Invalidate()

	s.mu.Lock()
	hooks := append([]func(){}, s.onClear...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	s.log.Info("caches cleared")
}
