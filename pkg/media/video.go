package media

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/mediaview/internal/telemetry"
	"github.com/marmos91/mediaview/pkg/media/source"
	"github.com/marmos91/mediaview/pkg/preload"
)

// DefaultVideoMetadataBytes is how much of a video is prefetched. It is
// enough for the container header of typical MP4 and WebM files.
const DefaultVideoMetadataBytes = 256 << 10

// VideoLoader prefetches the leading bytes of videos.
type VideoLoader struct {
	Fetcher source.Fetcher

	// MetadataBytes is the ranged read length. Zero means
	// DefaultVideoMetadataBytes.
	MetadataBytes int64
}

var _ preload.Loader = (*VideoLoader)(nil)

// Load implements preload.Loader. The fetch context stays alive until the
// element is released or the header has been read.
func (l *VideoLoader) Load(ctx context.Context, item preload.Item, done func(error)) preload.Element {
	ctx, cancel := context.WithCancel(ctx)
	v := &Video{src: item.Src, size: -1, cancel: cancel}

	go func() {
		defer cancel()
		done(l.load(ctx, item, v))
	}()

	return v
}

func (l *VideoLoader) load(ctx context.Context, item preload.Item, v *Video) (err error) {
	ctx, span := telemetry.StartMediaSpan(ctx, item.ID, string(item.Kind), item.Src)
	defer func() {
		telemetry.RecordError(ctx, err)
		span.End()
	}()

	n := l.MetadataBytes
	if n <= 0 {
		n = DefaultVideoMetadataBytes
	}

	obj, err := l.Fetcher.Fetch(ctx, item.Src, source.Range{Length: n})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", item.Src, err)
	}
	defer func() { _ = obj.Body.Close() }()

	header, err := io.ReadAll(io.LimitReader(obj.Body, n))
	if err != nil {
		return fmt.Errorf("read %s: %w", item.Src, err)
	}

	contentType := sniff(obj.ContentType, header)
	telemetry.SetAttributes(ctx,
		telemetry.MediaContentType(contentType),
		telemetry.MediaSize(obj.Size),
		telemetry.MediaBytesRead(int64(len(header))))

	if !v.fill(contentType, obj.Size, header) {
		return ErrReleased
	}
	return nil
}
