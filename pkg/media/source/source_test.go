package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, obj *Object) string {
	t.Helper()
	defer func() { _ = obj.Body.Close() }()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	return string(data)
}

// ============================================================================
// Range and Scheme
// ============================================================================

func TestRange_Header(t *testing.T) {
	assert.Equal(t, "", Range{}.Header())
	assert.Equal(t, "bytes=0-1023", Range{Length: 1024}.Header())
	assert.Equal(t, "bytes=100-", Range{Offset: 100}.Header())
	assert.Equal(t, "bytes=10-19", Range{Offset: 10, Length: 10}.Header())
}

func TestScheme(t *testing.T) {
	tests := []struct {
		locator string
		want    string
		wantErr bool
	}{
		{"https://cdn.example.com/a.jpg", "https", false},
		{"HTTP://cdn.example.com/a.jpg", "http", false},
		{"s3://bucket/key.mp4", "s3", false},
		{"file:///srv/a.png", "file", false},
		{"/srv/a.png", "file", false},
		{"./a.png", "file", false},
		{"photos/a.png", "file", false},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			got, err := Scheme(tt.locator)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLocator)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouter(t *testing.T) {
	var got string
	f := FetcherFunc(func(_ context.Context, locator string, _ Range) (*Object, error) {
		got = locator
		return &Object{Body: io.NopCloser(strings.NewReader("x")), Size: 1}, nil
	})

	r := NewRouter().Handle(f, "http", "HTTPS")
	assert.ElementsMatch(t, []string{"http", "https"}, r.Schemes())

	_, err := r.Fetch(context.Background(), "https://cdn.example.com/a.jpg", Range{})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got)

	_, err = r.Fetch(context.Background(), "ftp://example.com/a.jpg", Range{})
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

type fetchRecorder struct {
	schemes []string
	errs    []error
}

func (r *fetchRecorder) ObserveFetch(scheme string, err error, _ time.Duration) {
	r.schemes = append(r.schemes, scheme)
	r.errs = append(r.errs, err)
}

func TestRouter_Metrics(t *testing.T) {
	rec := &fetchRecorder{}
	r := NewRouter().
		Handle(FileFetcher{Root: t.TempDir()}, "file").
		WithMetrics(rec)

	_, err := r.Fetch(context.Background(), "missing.png", Range{})
	require.ErrorIs(t, err, ErrNotFound)

	// Unsupported schemes never reach a fetcher and are not observed.
	_, err = r.Fetch(context.Background(), "gopher://x/y", Range{})
	require.ErrorIs(t, err, ErrUnsupportedScheme)

	assert.Equal(t, []string{"file"}, rec.schemes)
	assert.ErrorIs(t, rec.errs[0], ErrNotFound)
}

// ============================================================================
// HTTP
// ============================================================================

func TestHTTPFetcher(t *testing.T) {
	payload := strings.Repeat("0123456789", 10)
	var gotUA atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.UserAgent())
		switch r.URL.Path {
		case "/video.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			http.ServeContent(w, r, "video.mp4", time.Time{}, strings.NewReader(payload))
		case "/norange.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = io.WriteString(w, payload)
		case "/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(HTTPConfig{Timeout: time.Second, UserAgent: "mediaview-test"})
	ctx := context.Background()

	t.Run("Whole", func(t *testing.T) {
		obj, err := f.Fetch(ctx, srv.URL+"/video.mp4", Range{})
		require.NoError(t, err)
		assert.Equal(t, "video/mp4", obj.ContentType)
		assert.Equal(t, int64(100), obj.Size)
		assert.Equal(t, payload, readAll(t, obj))
		assert.Equal(t, "mediaview-test", gotUA.Load())
	})

	t.Run("Ranged", func(t *testing.T) {
		obj, err := f.Fetch(ctx, srv.URL+"/video.mp4", Range{Offset: 10, Length: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(100), obj.Size, "size is the whole object")
		assert.Equal(t, "01234", readAll(t, obj))
	})

	t.Run("ServerIgnoresRange", func(t *testing.T) {
		obj, err := f.Fetch(ctx, srv.URL+"/norange.jpg", Range{Offset: 3, Length: 4})
		require.NoError(t, err)
		assert.Equal(t, "3456", readAll(t, obj))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := f.Fetch(ctx, srv.URL+"/missing.jpg", Range{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ServerError", func(t *testing.T) {
		_, err := f.Fetch(ctx, srv.URL+"/broken", Range{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.Fetch(cctx, srv.URL+"/video.mp4", Range{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// ============================================================================
// File
// ============================================================================

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("abcdefghij"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	ctx := context.Background()

	t.Run("FileURL", func(t *testing.T) {
		obj, err := FileFetcher{}.Fetch(ctx, "file://"+filepath.ToSlash(filepath.Join(dir, "a.png")), Range{})
		require.NoError(t, err)
		assert.Equal(t, int64(10), obj.Size)
		assert.Equal(t, "image/png", obj.ContentType)
		assert.Equal(t, "abcdefghij", readAll(t, obj))
	})

	t.Run("RelativeUnderRoot", func(t *testing.T) {
		obj, err := FileFetcher{Root: dir}.Fetch(ctx, "a.png", Range{Offset: 2, Length: 3})
		require.NoError(t, err)
		assert.Equal(t, "cde", readAll(t, obj))
	})

	t.Run("OpenEndedRange", func(t *testing.T) {
		obj, err := FileFetcher{Root: dir}.Fetch(ctx, "a.png", Range{Offset: 7})
		require.NoError(t, err)
		assert.Equal(t, "hij", readAll(t, obj))
	})

	t.Run("EscapingRoot", func(t *testing.T) {
		_, err := FileFetcher{Root: filepath.Join(dir, "sub")}.Fetch(ctx, "../a.png", Range{})
		assert.ErrorIs(t, err, ErrInvalidLocator)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := FileFetcher{Root: dir}.Fetch(ctx, "nope.png", Range{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := FileFetcher{Root: dir}.Fetch(ctx, "sub", Range{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ReadAfterCancel", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		obj, err := FileFetcher{Root: dir}.Fetch(cctx, "a.png", Range{})
		require.NoError(t, err)
		defer func() { _ = obj.Body.Close() }()

		cancel()
		_, err = obj.Body.Read(make([]byte, 4))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// ============================================================================
// S3 (unit)
// ============================================================================

func TestParseS3Locator(t *testing.T) {
	bucket, key, err := ParseS3Locator("s3://gallery/2024/trip/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "gallery", bucket)
	assert.Equal(t, "2024/trip/clip.mp4", key)

	for _, bad := range []string{"s3://gallery", "s3:///key", "https://gallery/key"} {
		_, _, err := ParseS3Locator(bad)
		assert.ErrorIs(t, err, ErrInvalidLocator, bad)
	}
}

func TestS3ErrorClassification(t *testing.T) {
	assert.True(t, isNotFoundError(&types.NoSuchKey{}))
	assert.True(t, isNotFoundError(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFoundError(errors.New("boom")))

	assert.True(t, isRetryableError(&smithy.GenericAPIError{Code: "SlowDown"}))
	assert.False(t, isRetryableError(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isRetryableError(context.Canceled))
}
