// Package media provides the element handles and loaders the preload cache
// uses to prefetch gallery items.
//
// An ImageLoader fetches the whole image and decodes its header, so a
// Loaded image is known to be displayable. A VideoLoader only fetches the
// leading bytes of the stream (the "metadata" preload policy) and keeps the
// transfer cancellable until the element is released.
package media

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/marmos91/mediaview/pkg/preload"
)

var (
	// ErrTooLarge is returned when an object exceeds the loader byte budget.
	ErrTooLarge = errors.New("media: object exceeds size limit")

	// ErrUndecodable is returned when fetched bytes are not a usable image.
	ErrUndecodable = errors.New("media: cannot decode image")

	// ErrReleased is returned when a load finishes after its element was
	// released.
	ErrReleased = errors.New("media: element released")
)

// PreloadMetadata is the only preload policy videos are fetched with.
const PreloadMetadata = "metadata"

// ============================================================================
// Image
// ============================================================================

// Image is a prefetched, decodable image.
type Image struct {
	mu          sync.RWMutex
	src         string
	contentType string
	width       int
	height      int
	format      string
	data        []byte
	cancel      context.CancelFunc
}

var _ preload.Element = (*Image)(nil)

// Kind implements preload.Element.
func (*Image) Kind() preload.Kind { return preload.KindImage }

// Source implements preload.Element.
func (i *Image) Source() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.src
}

// ContentType returns the media type of the image.
func (i *Image) ContentType() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.contentType
}

// Dimensions returns the decoded width and height. Both are zero for
// formats that were accepted on content type alone.
func (i *Image) Dimensions() (width, height int) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.width, i.height
}

// Format returns the decoder name ("jpeg", "png", "gif") or "".
func (i *Image) Format() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.format
}

// Data returns the image bytes. The slice must not be modified.
func (i *Image) Data() []byte {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data
}

// Release implements preload.Element. It aborts a fetch still in flight and
// drops the buffered bytes.
func (i *Image) Release() {
	i.mu.Lock()
	cancel := i.cancel
	i.src = ""
	i.data = nil
	i.cancel = nil
	i.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// fill stores the load result unless the image was released meanwhile.
func (i *Image) fill(contentType, format string, w, h int, data []byte) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.src == "" {
		return false
	}
	i.contentType = contentType
	i.format = format
	i.width = w
	i.height = h
	i.data = data
	return true
}

// ============================================================================
// Video
// ============================================================================

// Video is a video whose leading bytes have been prefetched. Videos are
// always muted and only preload metadata.
type Video struct {
	mu          sync.RWMutex
	src         string
	contentType string
	size        int64
	header      []byte
	cancel      context.CancelFunc
}

var _ preload.Element = (*Video)(nil)

// Kind implements preload.Element.
func (*Video) Kind() preload.Kind { return preload.KindVideo }

// Source implements preload.Element.
func (v *Video) Source() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.src
}

// Muted is always true for prefetched videos.
func (*Video) Muted() bool { return true }

// Preload returns the preload policy, always "metadata".
func (*Video) Preload() string { return PreloadMetadata }

// ContentType returns the media type of the video.
func (v *Video) ContentType() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.contentType
}

// Size returns the full size of the video in bytes, or -1 when unknown.
func (v *Video) Size() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.size
}

// Header returns the prefetched leading bytes. The slice must not be
// modified.
func (v *Video) Header() []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.header
}

// Release implements preload.Element. It clears the source and stops the
// transfer if it is still running.
func (v *Video) Release() {
	v.mu.Lock()
	cancel := v.cancel
	v.src = ""
	v.header = nil
	v.cancel = nil
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (v *Video) fill(contentType string, size int64, header []byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.src == "" {
		return false
	}
	v.contentType = contentType
	v.size = size
	v.header = header
	return true
}

// sniff returns the reported content type, falling back to detection from
// the first bytes when the source reported nothing useful.
func sniff(reported string, data []byte) string {
	if reported != "" && !strings.HasPrefix(reported, "application/octet-stream") {
		return reported
	}
	return mimetype.Detect(data).String()
}
