package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	// Timeout bounds the time to receive response headers. The body is
	// bounded only by the request context.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string
}

// HTTPFetcher fetches http and https locators.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with its own transport.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &HTTPFetcher{
		client:    &http.Client{Transport: transport},
		userAgent: cfg.UserAgent,
	}
}

// NewHTTPFetcherWithClient wraps an existing client.
func NewHTTPFetcherWithClient(client *http.Client, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{client: client, userAgent: userAgent}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string, r Range) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if h := r.Header(); h != "" {
		req.Header.Set("Range", h)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get %s: %w", locator, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusNotFound, http.StatusGone:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", locator, ErrNotFound)
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("http get %s: unexpected status %s", locator, resp.Status)
	}

	body := resp.Body
	// The server ignored the Range header: skip to the offset ourselves.
	if resp.StatusCode == http.StatusOK && r.Offset > 0 {
		if _, err := io.CopyN(io.Discard, body, r.Offset); err != nil {
			_ = body.Close()
			return nil, fmt.Errorf("http get %s: skip to offset: %w", locator, err)
		}
	}
	if resp.StatusCode == http.StatusOK && r.Length > 0 {
		body = limitReadCloser(body, r.Length)
	}

	return &Object{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        objectSize(resp),
	}, nil
}

// objectSize extracts the full object size, preferring the total from
// Content-Range on partial responses.
func objectSize(resp *http.Response) int64 {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if i := strings.LastIndexByte(cr, '/'); i >= 0 {
			if n, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
				return n
			}
		}
		return -1
	}
	return resp.ContentLength
}

type limitedReadCloser struct {
	io.Reader
	io.Closer
}

func limitReadCloser(rc io.ReadCloser, n int64) io.ReadCloser {
	return limitedReadCloser{Reader: io.LimitReader(rc, n), Closer: rc}
}
