package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. OpenTelemetry semantic conventions are used where one
// exists; media and viewer attributes use their own prefix.
const (
	AttrClientIP = "client.address"

	AttrMediaID          = "media.id"
	AttrMediaKind        = "media.kind"
	AttrMediaSource      = "media.source"
	AttrMediaScheme      = "media.scheme"
	AttrMediaContentType = "media.content_type"
	AttrMediaSize        = "media.size"
	AttrMediaBytesRead   = "media.bytes_read"
	AttrMediaWidth       = "media.width"
	AttrMediaHeight      = "media.height"
	AttrMediaFormat      = "media.format"

	AttrSessionID = "viewer.session_id"
	AttrIndex     = "viewer.index"
	AttrItems     = "viewer.items"

	AttrCacheHit  = "cache.hit"
	AttrCacheSize = "cache.size"
)

// Span names.
const (
	SpanMediaLoad      = "media.load"
	SpanViewerNavigate = "viewer.navigate"
)

// MediaID returns an attribute for a gallery item ID
func MediaID(id string) attribute.KeyValue {
	return attribute.String(AttrMediaID, id)
}

// MediaKind returns an attribute for the media kind
func MediaKind(kind string) attribute.KeyValue {
	return attribute.String(AttrMediaKind, kind)
}

// MediaSource returns an attribute for the media locator
func MediaSource(src string) attribute.KeyValue {
	return attribute.String(AttrMediaSource, src)
}

// MediaContentType returns an attribute for the reported content type
func MediaContentType(ct string) attribute.KeyValue {
	return attribute.String(AttrMediaContentType, ct)
}

// MediaSize returns an attribute for the full object size
func MediaSize(n int64) attribute.KeyValue {
	return attribute.Int64(AttrMediaSize, n)
}

// MediaBytesRead returns an attribute for bytes actually transferred
func MediaBytesRead(n int64) attribute.KeyValue {
	return attribute.Int64(AttrMediaBytesRead, n)
}

// MediaDimensions returns width and height attributes
func MediaDimensions(w, h int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrMediaWidth, w),
		attribute.Int(AttrMediaHeight, h),
	}
}

// MediaFormat returns an attribute for the decoded image format
func MediaFormat(f string) attribute.KeyValue {
	return attribute.String(AttrMediaFormat, f)
}

// SessionID returns an attribute for a viewer session
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// Index returns an attribute for the current gallery index
func Index(i int) attribute.KeyValue {
	return attribute.Int(AttrIndex, i)
}

// Items returns an attribute for the gallery length
func Items(n int) attribute.KeyValue {
	return attribute.Int(AttrItems, n)
}

// CacheHit returns an attribute for a cache lookup result
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheSize returns an attribute for the cache entry count
func CacheSize(n int) attribute.KeyValue {
	return attribute.Int(AttrCacheSize, n)
}

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// StartMediaSpan starts a media.load span for one prefetch.
func StartMediaSpan(ctx context.Context, id, kind, src string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{MediaID(id), MediaKind(kind), MediaSource(src)}, attrs...)
	return StartSpan(ctx, SpanMediaLoad,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...))
}

// StartViewerSpan starts a span for a viewer operation.
func StartViewerSpan(ctx context.Context, name, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{SessionID(sessionID)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(all...))
}
