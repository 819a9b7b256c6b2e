// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody caps plain JSON submissions.
	MaxJSONBody = 1 << 20 // 1 MB

	// DefaultMaxUploadMB caps multipart submissions carrying an image when
	// max_upload_mb is not configured.
	DefaultMaxUploadMB = 10

	// MultipartMemory is how much of a multipart body is held in memory
	// before spilling to temp files.
	MultipartMemory = 8 << 20
)

// UploadBytes converts a megabyte setting to bytes, falling back to the
// default for non-positive values.
func UploadBytes(mb int) int64 {
	if mb <= 0 {
		mb = DefaultMaxUploadMB
	}
	return int64(mb) << 20
}
