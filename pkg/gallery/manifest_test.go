package gallery

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mediaview/pkg/preload"
)

const sample = `name: holiday
index: 1
items:
  - id: beach
    src: https://cdn.example.com/beach.jpg
    kind: image
  - id: waves
    src: s3://media/waves.mp4
    kind: video
  - id: local
    src: photos/sunset.png
    kind: image
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "holiday", m.Name)
	assert.Equal(t, 1, m.Index)
	require.Len(t, m.Items, 3)
	assert.Equal(t, preload.Item{ID: "waves", Src: "s3://media/waves.mp4", Kind: preload.KindVideo}, m.Items[1])
}

func TestParse_JSON(t *testing.T) {
	m, err := Parse(strings.NewReader(`{"name":"j","items":[{"id":"a","src":"a.jpg","kind":"image"}]}`))
	require.NoError(t, err)
	assert.Len(t, m.Items, 1)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"no items":      "name: x\nitems: []\n",
		"bad kind":      "items:\n  - {id: a, src: a.mp3, kind: audio}\n",
		"missing src":   "items:\n  - {id: a, kind: image}\n",
		"unknown field": "items:\n  - {id: a, src: a.jpg, kind: image, size: 3}\n",
		"index":         "index: 2\nitems:\n  - {id: a, src: a.jpg, kind: image}\n",
		"not yaml":      "items: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gallery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/beach.jpg", m.Items[0].Src)
	assert.Equal(t, "s3://media/waves.mp4", m.Items[1].Src)
	assert.Equal(t, filepath.Join(dir, "photos", "sunset.png"), m.Items[2].Src)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	m, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))

	again, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, again)
}
