// Package source fetches media bytes from the locators found in gallery
// items.
//
// A locator is a URL. The scheme picks the backend:
//
//	http://, https://   HTTPFetcher
//	s3://bucket/key     S3Fetcher
//	file:///path, path  FileFetcher
//
// Router dispatches a locator to the fetcher registered for its scheme.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the locator points at nothing.
	ErrNotFound = errors.New("source: object not found")

	// ErrUnsupportedScheme is returned for locators no fetcher handles.
	ErrUnsupportedScheme = errors.New("source: unsupported locator scheme")

	// ErrInvalidLocator is returned for locators that cannot be parsed.
	ErrInvalidLocator = errors.New("source: invalid locator")
)

// Range selects a byte window of an object. The zero value selects the
// whole object; a zero Length means "to the end".
type Range struct {
	Offset int64
	Length int64
}

// IsZero reports whether r selects the whole object.
func (r Range) IsZero() bool {
	return r.Offset == 0 && r.Length == 0
}

// Header returns the HTTP Range header value for r, or "" for the whole
// object.
func (r Range) Header() string {
	if r.IsZero() {
		return ""
	}
	if r.Length <= 0 {
		return fmt.Sprintf("bytes=%d-", r.Offset)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Offset, r.Offset+r.Length-1)
}

// Object is an open fetch. The caller must close Body.
type Object struct {
	Body io.ReadCloser

	// ContentType is the reported media type, possibly empty.
	ContentType string

	// Size is the full object size in bytes, or -1 when unknown. It is the
	// size of the whole object even when a Range was requested.
	Size int64
}

// Fetcher opens media locators.
type Fetcher interface {
	// Fetch opens the object at locator. Implementations must honor ctx
	// cancellation for the whole lifetime of the returned Body.
	Fetch(ctx context.Context, locator string, r Range) (*Object, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, locator string, r Range) (*Object, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, locator string, r Range) (*Object, error) {
	return f(ctx, locator, r)
}

// Scheme returns the lower-cased scheme of locator. Bare paths report
// "file".
func Scheme(locator string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLocator)
	}
	if strings.HasPrefix(locator, "/") || strings.HasPrefix(locator, ".") {
		return "file", nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	if u.Scheme == "" {
		return "file", nil
	}
	return strings.ToLower(u.Scheme), nil
}

// Metrics observes fetches made through a Router. A nil Metrics disables
// collection.
type Metrics interface {
	// ObserveFetch records one Fetch call. It measures time to open the
	// object, not to drain the body.
	ObserveFetch(scheme string, err error, duration time.Duration)
}

// Router dispatches locators to fetchers by scheme.
type Router struct {
	fetchers map[string]Fetcher
	metrics  Metrics
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{fetchers: make(map[string]Fetcher)}
}

// Handle registers f for the given schemes.
func (r *Router) Handle(f Fetcher, schemes ...string) *Router {
	for _, s := range schemes {
		r.fetchers[strings.ToLower(s)] = f
	}
	return r
}

// WithMetrics sets the fetch observer.
func (r *Router) WithMetrics(m Metrics) *Router {
	r.metrics = m
	return r
}

// Schemes returns the registered schemes.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.fetchers))
	for s := range r.fetchers {
		out = append(out, s)
	}
	return out
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, locator string, rng Range) (*Object, error) {
	scheme, err := Scheme(locator)
	if err != nil {
		return nil, err
	}

	f, ok := r.fetchers[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	start := time.Now()
	obj, err := f.Fetch(ctx, locator, rng)
	if r.metrics != nil {
		r.metrics.ObserveFetch(scheme, err, time.Since(start))
	}
	return obj, err
}
