package usecase

import (
	"mime"
	"path"
	"strings"
)

// ContentTypeForPath maps a video file path to its MIME type, falling back to
// container types the stdlib mime table does not know on every platform.
func ContentTypeForPath(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	switch ext {
	case ".mkv":
		return "video/x-matroska"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".ts":
		return "video/mp2t"
	case ".wmv":
		return "video/x-ms-wmv"
	default:
		return "application/octet-stream"
	}
}
