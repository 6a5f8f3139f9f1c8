package logger

import "log/slog"

// Standard field keys for structured logging. Use these consistently so
// log lines from the cache, the loaders and the API can be queried together.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// HTTP
	// ========================================================================
	KeyRequestID = "request_id" // chi request ID
	KeyClientIP  = "client_ip"  // Client IP address
	KeyMethod    = "method"     // HTTP method
	KeyPath      = "path"       // Request path
	KeyStatus    = "status"     // HTTP status code
	KeyAddr      = "addr"       // Listen address

	// ========================================================================
	// Viewer
	// ========================================================================
	KeySessionID = "session_id" // Viewer session identifier
	KeyIndex     = "index"      // Current gallery index
	KeyItems     = "items"      // Gallery length
	KeyGallery   = "gallery"    // Gallery manifest name

	// ========================================================================
	// Media
	// ========================================================================
	KeyMediaID     = "media_id"     // Gallery item ID
	KeyMediaKind   = "media_kind"   // image, video
	KeySource      = "source"       // Media locator
	KeyScheme      = "scheme"       // Locator scheme: http, https, s3, file
	KeyContentType = "content_type" // Reported content type
	KeySize        = "size"         // Object size in bytes
	KeyBytesRead   = "bytes_read"   // Bytes actually transferred
	KeyBucket      = "bucket"       // S3 bucket
	KeyKey         = "key"          // S3 object key

	// ========================================================================
	// Cache Layer
	// ========================================================================
	KeyCacheHit      = "cache_hit"      // Cache hit indicator
	KeyCacheState    = "cache_state"    // Pending, Loaded, Failed
	KeyCacheSize     = "cache_size"     // Current cache size
	KeyCacheCapacity = "cache_capacity" // Maximum cache capacity
	KeyEvicted       = "evicted"        // Number of entries evicted
	KeyThreshold     = "threshold"      // Memory admission threshold

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyOperation  = "operation"   // Sub-operation type
)

// ============================================================================
// Field constructors
// ============================================================================

// SessionID returns a slog.Attr for a viewer session
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// MediaID returns a slog.Attr for a gallery item ID
func MediaID(id string) slog.Attr {
	return slog.String(KeyMediaID, id)
}

// Source returns a slog.Attr for a media locator
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
