package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mediaview/pkg/media"
	"github.com/marmos91/mediaview/pkg/media/source"
	"github.com/marmos91/mediaview/pkg/preload"
	"github.com/marmos91/mediaview/pkg/viewer"
)

var testMP4 = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0}

func testPNG() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2)))
	return buf.Bytes()
}

// memSource serves .png and .mp4 locators from memory; anything else is
// not found.
func memSource() source.Fetcher {
	pngData := testPNG()
	return source.FetcherFunc(func(_ context.Context, locator string, _ source.Range) (*source.Object, error) {
		var data []byte
		switch {
		case strings.HasSuffix(locator, ".png"):
			data = pngData
		case strings.HasSuffix(locator, ".mp4"):
			data = testMP4
		default:
			return nil, source.ErrNotFound
		}
		return &source.Object{
			Body: io.NopCloser(bytes.NewReader(data)),
			Size: int64(len(data)),
		}, nil
	})
}

func newTestManager() *viewer.Manager {
	fetcher := memSource()
	return viewer.NewManager(func() *preload.Cache {
		return preload.New(preload.Config{Capacity: 10}, preload.Loaders{
			preload.KindImage: &media.ImageLoader{Fetcher: fetcher},
			preload.KindVideo: &media.VideoLoader{Fetcher: fetcher},
		})
	})
}

func newTestRouter(m *viewer.Manager) http.Handler {
	h := NewSessionHandler(m)
	r := chi.NewRouter()
	r.Post("/sessions", h.Create)
	r.Get("/sessions", h.List)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Close)
		r.Put("/position", h.Navigate)
		r.Post("/next", h.Next)
		r.Post("/prev", h.Prev)
		r.Get("/media", h.Media)
		r.Get("/metrics", h.Metrics)
		r.Get("/export", h.Export)
		r.Post("/timers/{timer}/{action}", h.Timer)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, rd))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func galleryItems() []preload.Item {
	return []preload.Item{
		{ID: "1", Src: "mem://1.png", Kind: preload.KindImage},
		{ID: "2", Src: "mem://2.mp4", Kind: preload.KindVideo},
		{ID: "3", Src: "mem://3.png", Kind: preload.KindImage},
		{ID: "4", Src: "mem://4.png", Kind: preload.KindImage},
		{ID: "5", Src: "mem://5.png", Kind: preload.KindImage},
		{ID: "6", Src: "mem://6.png", Kind: preload.KindImage},
		{ID: "7", Src: "mem://7.gone", Kind: preload.KindImage},
	}
}

func createSession(t *testing.T, h http.Handler, index int) SessionResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", CreateSessionRequest{Items: galleryItems(), Index: index})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[SessionResponse](t, w)
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestSessions_CreateGetClose(t *testing.T) {
	m := newTestManager()
	h := newTestRouter(m)

	created := createSession(t, h, 2)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 2, created.Index)
	assert.Equal(t, 7, created.Items)
	require.NotNil(t, created.Current)
	assert.Equal(t, "3", created.Current.ID)
	// index 2 and two neighbors on each side
	assert.Equal(t, 5, created.Metrics.MediaCacheSize)

	w := do(t, h, http.MethodGet, "/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[SessionResponse](t, w).ID)

	w = do(t, h, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]viewer.Info](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	w = do(t, h, http.MethodDelete, "/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, m.Len())

	w = do(t, h, http.MethodDelete, "/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ContentTypeProblemJSON, w.Header().Get("Content-Type"))
}

func TestSessions_CreateRejectsBadInput(t *testing.T) {
	h := newTestRouter(newTestManager())

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"empty items", CreateSessionRequest{}, http.StatusUnprocessableEntity},
		{"index out of range", CreateSessionRequest{Items: galleryItems(), Index: 9}, http.StatusUnprocessableEntity},
		{"unknown kind", CreateSessionRequest{Items: []preload.Item{{ID: "a", Src: "x", Kind: "audio"}}}, http.StatusUnprocessableEntity},
		{"unknown field", map[string]any{"items": galleryItems(), "cursor": 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/sessions", tt.body)
			assert.Equal(t, tt.status, w.Code)
			p := decode[Problem](t, w)
			assert.Equal(t, tt.status, p.Status)
		})
	}
}

func TestSessions_UnknownSession(t *testing.T) {
	h := newTestRouter(newTestManager())

	for _, path := range []string{"/sessions/nope", "/sessions/nope/metrics", "/sessions/nope/export"} {
		w := do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := do(t, h, http.MethodPost, "/sessions/nope/next", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ============================================================================
// Navigation
// ============================================================================

func TestSessions_Navigate(t *testing.T) {
	h := newTestRouter(newTestManager())
	s := createSession(t, h, 0)

	w := do(t, h, http.MethodPut, "/sessions/"+s.ID+"/position", map[string]int{"index": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[SessionResponse](t, w)
	assert.Equal(t, 3, resp.Index)
	assert.LessOrEqual(t, resp.Metrics.MediaCacheSize, 10)

	w = do(t, h, http.MethodPut, "/sessions/"+s.ID+"/position", map[string]int{"index": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodPut, "/sessions/"+s.ID+"/position", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions_NextPrevWrap(t *testing.T) {
	h := newTestRouter(newTestManager())
	s := createSession(t, h, 0)

	w := do(t, h, http.MethodPost, "/sessions/"+s.ID+"/prev", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 6, decode[SessionResponse](t, w).Index)

	w = do(t, h, http.MethodPost, "/sessions/"+s.ID+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[SessionResponse](t, w).Index)
}

// ============================================================================
// Media
// ============================================================================

func waitSettled(t *testing.T, m *viewer.Manager, id string, items ...preload.Item) {
	t.Helper()
	s, err := m.Lookup(id)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		for _, it := range items {
			if st, _ := s.Cache().State(it.ID, it.Src); st == preload.StatePending {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSessions_Media(t *testing.T) {
	m := newTestManager()
	h := newTestRouter(m)
	s := createSession(t, h, 0)
	items := galleryItems()
	waitSettled(t, m, s.ID, items[0], items[1], items[2], items[5], items[6])

	t.Run("image hit", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/media?id=1&src=mem://1.png", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hit", w.Header().Get(HeaderPreloadCache))
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.Equal(t, testPNG(), w.Body.Bytes())
	})

	t.Run("video hit", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/media?id=2&src=mem://2.mp4", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hit", w.Header().Get(HeaderPreloadCache))
		assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
		assert.Equal(t, media.PreloadMetadata, w.Header().Get("X-Media-Preload"))
		assert.Equal(t, testMP4, w.Body.Bytes())
	})

	t.Run("failed load is a miss", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/media?id=7&src=mem://7.gone", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "miss", w.Header().Get(HeaderPreloadCache))
	})

	t.Run("not prefetched", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/media?id=4&src=mem://4.png", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing params", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/media?id=1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// ============================================================================
// Metrics and timers
// ============================================================================

func TestSessions_MetricsAndExport(t *testing.T) {
	m := newTestManager()
	h := newTestRouter(m)
	s := createSession(t, h, 0)
	items := galleryItems()
	waitSettled(t, m, s.ID, items[0], items[1], items[2], items[5], items[6])

	w := do(t, h, http.MethodGet, "/sessions/"+s.ID+"/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	metrics := decode[MetricsResponse](t, w)
	assert.Equal(t, 5, metrics.MediaCacheSize)
	assert.Equal(t, 4, metrics.PreloadCount)

	w = do(t, h, http.MethodGet, "/sessions/"+s.ID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	export := decode[preload.Export](t, w)
	assert.Equal(t, 5, export.CacheSize)
	assert.False(t, export.Timestamp.IsZero())
}

func TestSessions_Timers(t *testing.T) {
	h := newTestRouter(newTestManager())
	s := createSession(t, h, 0)
	base := "/sessions/" + s.ID + "/timers/"

	w := do(t, h, http.MethodPost, base+"load/start", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPost, base+"load/end", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[TimerResponse](t, w)
	assert.Equal(t, "load", resp.Timer)
	assert.GreaterOrEqual(t, resp.DurationMs, 0.0)

	// Ending a timer that is not running returns the last measurement.
	w = do(t, h, http.MethodPost, base+"navigation/end", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, base+"paint/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
