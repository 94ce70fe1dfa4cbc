package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormatFileSize formats a file size in bytes to a human-readable string.
func FormatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// ContentType picks the stored content type for an upload: the part header
// when the client sent a specific one, else a guess from the extension.
func ContentType(header, filename string) string {
	ct := strings.TrimSpace(header)
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if guess := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); guess != "" {
		return guess
	}
	return "application/octet-stream"
}

// StorageKey builds the object key for an upload: media/YYYY/MM/<uuid><ext>.
// The original name is kept only in the media record.
func StorageKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return fmt.Sprintf("media/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.NewString(), ext)
}
