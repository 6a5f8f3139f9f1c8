package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mediaview/internal/bytesize"
	"github.com/marmos91/mediaview/pkg/api/handlers"
	"github.com/marmos91/mediaview/pkg/preload"
	"github.com/marmos91/mediaview/pkg/viewer"
)

type nopElement struct{ src string }

func (e *nopElement) Kind() preload.Kind { return preload.KindImage }
func (e *nopElement) Source() string     { return e.src }
func (e *nopElement) Release()           { e.src = "" }

func testManager() *viewer.Manager {
	loader := preload.LoaderFunc(func(_ context.Context, item preload.Item, done func(error)) preload.Element {
		done(nil)
		return &nopElement{src: item.Src}
	})
	return viewer.NewManager(func() *preload.Cache {
		return preload.New(preload.Config{}, preload.Loaders{
			preload.KindImage: loader,
			preload.KindVideo: loader,
		})
	})
}

func TestAPIConfig_ApplyDefaults(t *testing.T) {
	var cfg APIConfig
	cfg.ApplyDefaults()

	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, bytesize.MiB, cfg.MaxBodyBytes)

	disabled := false
	cfg = APIConfig{Enabled: &disabled, Port: 9000}
	cfg.ApplyDefaults()
	assert.False(t, cfg.IsEnabled())
	assert.Equal(t, 9000, cfg.Port)
}

func TestRouter(t *testing.T) {
	m := testManager()
	t.Cleanup(m.CloseAll)
	srv := NewServer(APIConfig{MaxBodyBytes: 512}, m)
	h := srv.Handler()

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("Content-Type"))
	})

	t.Run("root redirects to health", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/health", w.Header().Get("Location"))
	})

	t.Run("session lifecycle", func(t *testing.T) {
		body, err := json.Marshal(handlers.CreateSessionRequest{
			Items: []preload.Item{
				{ID: "a", Src: "https://cdn.example.com/a.jpg", Kind: preload.KindImage},
				{ID: "b", Src: "https://cdn.example.com/b.mp4", Kind: preload.KindVideo},
			},
		})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body)))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created handlers.SessionResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.Equal(t, "/api/v1/sessions/"+created.ID, w.Header().Get("Location"))
		assert.Equal(t, 2, created.Metrics.PreloadCount)
		assert.Equal(t, 1, m.Len())

		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+created.ID+"/next", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+created.ID, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `{"items":[{"id":"a","src":"` + strings.Repeat("x", 1024) + `","kind":"image"}]}`
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(APIConfig{Port: 18089}, testManager())
	assert.Equal(t, 18089, srv.Port())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18089/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}

	// Second stop is a no-op.
	assert.NoError(t, srv.Stop(context.Background()))
}
