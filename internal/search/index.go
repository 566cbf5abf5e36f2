// Package search indexes every subject of every catalog in SQLite and
// answers substring queries over it.
package search

import (
	"context"
	"fmt"
	"sync"

	"engram/pkg/logger"
	"engram/pkg/models"
)

// EntrySource lists the subjects to index.
type EntrySource interface {
	Entries(ctx context.Context) ([]models.SubjectRef, error)
}

type Result struct {
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Items  []models.SubjectRef `json:"items"`
}

// Index builds lazily on the first search and again after Invalidate.
type Index struct {
	repo *Repo
	src  EntrySource
	log  *logger.Logger

	mu    sync.Mutex
	built bool
}

func NewIndex(repo *Repo, src EntrySource, log *logger.Logger) *Index {
	return &Index{repo: repo, src: src, log: logger.OrNop(log).With("component", "search")}
}

func (x *Index) ensure(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.built {
		return nil
	}

	refs, err := x.src.Entries(ctx)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := x.repo.Replace(ctx, refs); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	x.built = true
	x.log.Info("search index built", "entries", len(refs))
	return nil
}

// Invalidate marks the index stale; the next Search rebuilds it.
func (x *Index) Invalidate() {
	x.mu.Lock()
	x.built = false
	x.mu.Unlock()
}

func (x *Index) Search(ctx context.Context, q Query) (Result, error) {
	if err := x.ensure(ctx); err != nil {
		return Result{}, err
	}
	q.Limit = normalizeLimit(q.Limit)
	if q.Offset < 0 {
		q.Offset = 0
	}

	total, err := x.repo.Count(ctx, q)
	if err != nil {
		return Result{}, err
	}
	items, err := x.repo.List(ctx, q)
	if err != nil {
		return Result{}, err
	}
	return Result{Total: total, Limit: q.Limit, Offset: q.Offset, Items: items}, nil
}
