package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"engram/pkg/fetch"
	"engram/pkg/logger"
	"engram/pkg/models"
)

// Document memoizes one parsed JSON document.
//
// Concurrent callers during the first fetch share a single network call;
// once parsed the value is served from memory until Clear. Failures are
// returned to every waiter and are not cached. A load that was in flight
// when Clear ran is handed to its waiters but not stored.
type Document[T any] struct {
	source  models.Source
	url     string
	fetcher fetch.Fetcher
	timeout time.Duration
	parse   func([]byte) (*T, error)
	log     *logger.Logger

	mu    sync.RWMutex
	value *T
	gen   uint64 // bumped by Clear
	group singleflight.Group
}

// NewDocument builds a memoized document. parse must reject bodies that
// do not have the expected shape.
func NewDocument[T any](source models.Source, url string, f fetch.Fetcher, timeout time.Duration, log *logger.Logger, parse func([]byte) (*T, error)) *Document[T] {
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	return &Document[T]{
		source:  source,
		url:     url,
		fetcher: f,
		timeout: timeout,
		parse:   parse,
		log:     logger.OrNop(log),
	}
}

// URL is the document location.
func (d *Document[T]) URL() string { return d.url }

// Loaded reports whether a parsed value is cached.
func (d *Document[T]) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value != nil
}

// Get returns the parsed document, fetching it on first use.
func (d *Document[T]) Get(ctx context.Context) (*T, error) {
	d.mu.RLock()
	v := d.value
	d.mu.RUnlock()
	if v != nil {
		return v, nil
	}

	ch := d.group.DoChan(d.url, func() (interface{}, error) {
		d.mu.RLock()
		cached, gen := d.value, d.gen
		d.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		return d.load(ctx, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*T), nil
	case <-ctx.Done():
		return nil, d.loadError(ctx.Err())
	}
}

// load runs detached from the caller's cancellation so that one caller
// giving up does not fail everyone sharing the flight.
func (d *Document[T]) load(ctx context.Context, gen uint64) (*T, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	start := time.Now()
	body, err := d.fetcher.Fetch(fctx, d.url)
	if err != nil {
		d.log.Warn("catalog fetch failed", "source", d.source, "url", d.url, "error", err)
		return nil, d.loadError(err)
	}

	doc, err := d.parse(body)
	if err != nil {
		d.log.Warn("catalog parse failed", "source", d.source, "url", d.url, "error", err)
		return nil, d.loadError(err)
	}

	d.mu.Lock()
	stale := d.gen != gen
	if !stale {
		d.value = doc
	}
	d.mu.Unlock()
	if stale {
		d.log.Debug("catalog cleared during load, not caching", "source", d.source, "url", d.url)
		return doc, nil
	}

	d.log.Info("catalog loaded", "source", d.source, "url", d.url, "bytes", len(body), "took", time.Since(start))
	return doc, nil
}

func (d *Document[T]) loadError(err error) error {
	return &LoadError{Source: d.source, URL: d.url, Err: err}
}

// Clear drops the cached value; the next Get fetches again.
func (d *Document[T]) Clear() {
	d.mu.Lock()
	d.value = nil
	d.gen++
	d.mu.Unlock()
	d.group.Forget(d.url)
}

// DecodeJSON is the shared parse step: typed decode, then struct-tag validation.
// Any failure wraps ErrInvalidDocument.
func DecodeJSON[T any](body []byte) (*T, error) {
	var doc T
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := validateDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
