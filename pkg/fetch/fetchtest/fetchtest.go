// Package fetchtest provides an in-memory Fetcher for tests.
package fetchtest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Static serves fixed documents and counts every call per location.
type Static struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	errs  map[string]error
	calls map[string]*atomic.Int64

	// Gate, when set, blocks every Fetch until it is closed.
	Gate chan struct{}
}

func New() *Static {
	return &Static{
		docs:  make(map[string][]byte),
		errs:  make(map[string]error),
		calls: make(map[string]*atomic.Int64),
	}
}

// Set registers a document body.
func (s *Static) Set(location string, body []byte) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[location] = body
	delete(s.errs, location)
	return s
}

// SetFile registers the contents of a fixture file.
func (s *Static) SetFile(location, path string) *Static {
	b, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("fetchtest: read fixture %s: %v", path, err))
	}
	return s.Set(location, b)
}

// Fail makes location return err until Set is called again.
func (s *Static) Fail(location string, err error) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[location] = err
	return s
}

// Calls reports how many times location was fetched.
func (s *Static) Calls(location string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.calls[location]; ok {
		return int(c.Load())
	}
	return 0
}

func (s *Static) counter(location string) *atomic.Int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[location]
	if !ok {
		c = &atomic.Int64{}
		s.calls[location] = c
	}
	return c
}

func (s *Static) Fetch(ctx context.Context, location string) ([]byte, error) {
	s.counter(location).Add(1)

	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.errs[location]; ok {
		return nil, err
	}
	body, ok := s.docs[location]
	if !ok {
		return nil, fmt.Errorf("fetchtest: no document at %s", location)
	}
	return body, nil
}
