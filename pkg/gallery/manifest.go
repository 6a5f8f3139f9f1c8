// Package gallery reads gallery manifests: a named, ordered list of media
// items stored as YAML (or JSON, which YAML accepts).
//
//	name: holiday
//	items:
//	  - id: beach
//	    src: https://cdn.example.com/beach.jpg
//	    kind: image
//	  - id: waves
//	    src: s3://media/waves.mp4
//	    kind: video
package gallery

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/mediaview/pkg/media/source"
	"github.com/marmos91/mediaview/pkg/preload"
)

// ErrInvalidManifest is returned for manifests that fail validation.
var ErrInvalidManifest = errors.New("gallery: invalid manifest")

// Manifest is a gallery definition.
type Manifest struct {
	Name  string         `yaml:"name" json:"name"`
	Items []preload.Item `yaml:"items" json:"items" validate:"required,min=1,dive"`

	// Index is the item the viewer opens on.
	Index int `yaml:"index,omitempty" json:"index,omitempty" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a manifest.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidManifest)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads the manifest at path. Relative bare-path sources are resolved
// against the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, item := range m.Items {
		scheme, err := source.Scheme(item.Src)
		if err != nil || scheme != "file" || filepath.IsAbs(item.Src) || strings.HasPrefix(item.Src, "file://") {
			continue
		}
		m.Items[i].Src = filepath.Join(dir, item.Src)
	}
	return m, nil
}

// Validate checks the manifest fields.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.Index >= len(m.Items) {
		return fmt.Errorf("%w: index %d out of range for %d items", ErrInvalidManifest, m.Index, len(m.Items))
	}
	return nil
}

// Write encodes m as YAML.
func (m *Manifest) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}
