package api

import (
	"path/filepath"
	"strings"
)

// blockedExtensions are refused even when the content sniffs as video.
var blockedExtensions = map[string]bool{
	".exe":   true,
	".bat":   true,
	".cmd":   true,
	".com":   true,
	".msi":   true,
	".scr":   true,
	".sh":    true,
	".ps1":   true,
	".vbs":   true,
	".js":    true,
	".jar":   true,
	".php":   true,
	".py":    true,
	".dll":   true,
	".so":    true,
	".dylib": true,
}

// sourceExtensions maps a sniffed video type to the extension of its stored source.
var sourceExtensions = map[string]string{
	"video/mp4":        ".mp4",
	"video/quicktime":  ".mov",
	"video/webm":       ".webm",
	"video/x-matroska": ".mkv",
	"video/x-msvideo":  ".avi",
	"video/ogg":        ".ogv",
	"video/mpeg":       ".mpeg",
}

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

func IsBlockedExtension(filename string) bool {
	return blockedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SourceExtension prefers the sniffed type and falls back to the uploaded name.
func SourceExtension(contentType, filename string) string {
	if ext, ok := sourceExtensions[contentType]; ok {
		return ext
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && len(ext) <= 6 {
		return ext
	}
	return ".bin"
}

func ImageContentType(key string) string {
	if ct, ok := imageContentTypes[strings.ToLower(filepath.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// SanitizeFilename strips path components and control characters from a filename.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	if idx := strings.LastIndex(filename, "\\"); idx != -1 {
		filename = filename[idx+1:]
	}

	var sanitized strings.Builder
	for _, r := range filename {
		if r >= 32 && r != 127 && !strings.ContainsRune(`/\:*?"<>|`, r) {
			sanitized.WriteRune(r)
		}
	}

	result := strings.Trim(sanitized.String(), ". ")
	if result == "" {
		return "unnamed_video"
	}

	if len(result) > 255 {
		ext := filepath.Ext(result)
		name := strings.TrimSuffix(result, ext)
		if maxNameLen := 255 - len(ext); maxNameLen > 0 && len(name) > maxNameLen {
			name = name[:maxNameLen]
		}
		result = name + ext
	}
	return result
}
