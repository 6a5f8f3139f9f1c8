package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/marmos91/mediaview/internal/logger"
	"github.com/marmos91/mediaview/internal/telemetry"
	"github.com/marmos91/mediaview/pkg/media/source"
	"github.com/marmos91/mediaview/pkg/preload"
)

// DefaultMaxImageBytes bounds a single image prefetch.
const DefaultMaxImageBytes = 32 << 20

// ImageLoader prefetches images. Every load fetches the whole object and
// decodes its header on a dedicated goroutine.
type ImageLoader struct {
	Fetcher source.Fetcher

	// MaxBytes caps the bytes read per image. Zero means DefaultMaxImageBytes.
	MaxBytes int64
}

var _ preload.Loader = (*ImageLoader)(nil)

// Load implements preload.Loader.
func (l *ImageLoader) Load(ctx context.Context, item preload.Item, done func(error)) preload.Element {
	ctx, cancel := context.WithCancel(ctx)
	img := &Image{src: item.Src, cancel: cancel}

	go func() {
		defer cancel()
		done(l.load(ctx, item, img))
	}()

	return img
}

func (l *ImageLoader) load(ctx context.Context, item preload.Item, img *Image) (err error) {
	ctx, span := telemetry.StartMediaSpan(ctx, item.ID, string(item.Kind), item.Src)
	defer func() {
		telemetry.RecordError(ctx, err)
		span.End()
	}()

	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}

	obj, err := l.Fetcher.Fetch(ctx, item.Src, source.Range{})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", item.Src, err)
	}
	defer func() { _ = obj.Body.Close() }()

	if obj.Size > limit {
		return fmt.Errorf("%s is %d bytes: %w", item.Src, obj.Size, ErrTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(obj.Body, limit+1))
	if err != nil {
		return fmt.Errorf("read %s: %w", item.Src, err)
	}
	if int64(len(data)) > limit {
		return fmt.Errorf("%s exceeds %d bytes: %w", item.Src, limit, ErrTooLarge)
	}

	contentType := sniff(obj.ContentType, data)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	switch {
	case err == nil:
		telemetry.SetAttributes(ctx, telemetry.MediaFormat(format))
		telemetry.SetAttributes(ctx, telemetry.MediaDimensions(cfg.Width, cfg.Height)...)
	case errors.Is(err, image.ErrFormat) && strings.HasPrefix(contentType, "image/"):
		// No registered decoder; trust the content type.
		logger.Debug("Image format not decodable, accepting by content type",
			logger.KeyMediaID, item.ID,
			logger.KeyContentType, contentType)
	default:
		return fmt.Errorf("%s: %w: %v", item.Src, ErrUndecodable, err)
	}

	telemetry.SetAttributes(ctx,
		telemetry.MediaContentType(contentType),
		telemetry.MediaBytesRead(int64(len(data))))

	if !img.fill(contentType, format, cfg.Width, cfg.Height, data) {
		return ErrReleased
	}
	return nil
}
