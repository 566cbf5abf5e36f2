// Package fetch retrieves raw JSON documents from an origin.
//
// Callers treat it as a black box: a document either arrives as bytes or
// the call fails. Retries, proxies and caching live elsewhere.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 64 << 20
	userAgent       = "engram/1.0 (catalog-loader)"
)

// Fetcher returns the body stored at location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// ErrTooLarge is returned when a body exceeds the fetcher's MaxBytes.
var ErrTooLarge = errors.New("document too large")

// StatusError is returned when the origin answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// HTTP fetches documents relative to an origin such as "https://engram.example".
// Absolute URLs passed to Fetch are used as-is.
type HTTP struct {
	Origin   string
	Client   *http.Client
	MaxBytes int64
}

func NewHTTP(origin string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		Origin:   strings.TrimRight(origin, "/"),
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: DefaultMaxBytes,
	}
}

func (h *HTTP) resolve(location string) string {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location
	}
	if !strings.HasPrefix(location, "/") {
		location = "/" + location
	}
	return h.Origin + location
}

func (h *HTTP) Fetch(ctx context.Context, location string) ([]byte, error) {
	u := h.resolve(location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: build request: %w", u, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}

	limit := h.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", u, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("fetch %s: %w (limit %d bytes)", u, ErrTooLarge, limit)
	}
	return body, nil
}

// Dir serves documents from a local directory laid out like the site root,
// so "/Content-Meta/StudyX.json" reads <Root>/Content-Meta/StudyX.json.
type Dir struct {
	Root string
}

func (d Dir) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean("/" + strings.TrimPrefix(location, "file://"))
	b, err := os.ReadFile(filepath.Join(d.Root, clean))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	return b, nil
}

// New picks a Dir fetcher for local paths and an HTTP fetcher otherwise.
func New(content string, timeout time.Duration) Fetcher {
	if strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://") {
		return NewHTTP(content, timeout)
	}
	return Dir{Root: content}
}
