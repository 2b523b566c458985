package llm

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// SupportedFileTypes are the extensions the model APIs accept as attachments.
// Matching is case-sensitive.
var SupportedFileTypes = []string{
	"pdf", "csv", "doc", "docx", "xls", "xlsx", "html", "txt", "md",
	"png", "jpeg", "gif", "webp",
}

// ImageFormats are attached as images; every other supported type is a document.
var ImageFormats = []string{"png", "jpeg", "gif", "webp"}

var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"csv":  "text/csv",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"html": "text/html",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// FileNameAndExtension splits the last path segment at its final dot.
// "a/b/c.txt" yields ("c", "txt") and "a/b/noext" yields ("noext", "").
func FileNameAndExtension(fileFullPath string) (string, string) {
	base := fileFullPath[strings.LastIndex(fileFullPath, "/")+1:]
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return base, ""
	}
	return base[:i], base[i+1:]
}

// IsSupported reports whether the file's extension is in SupportedFileTypes.
// Unsupported files are only logged; callers decide what to do with them.
func IsSupported(dataFileFullPath string) bool {
	_, ext := FileNameAndExtension(dataFileFullPath)
	if slices.Contains(SupportedFileTypes, ext) {
		slog.Debug("File type is supported.", "path", dataFileFullPath, "type", ext)
		return true
	}
	slog.Warn("File type is not supported.", "path", dataFileFullPath, "type", ext)
	slog.Info("Supported file types.", "types", SupportedFileTypes)
	return false
}

// IsImage reports whether a lowercased extension is attached as an image.
func IsImage(ext string) bool {
	return slices.Contains(ImageFormats, ext)
}

// MIMEType returns the content type for a supported extension, or
// application/octet-stream.
func MIMEType(ext string) string {
	if t, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return t
	}
	return "application/octet-stream"
}

// SubstringAfter returns the text after the last occurrence of sep.
func SubstringAfter(s, sep string) (string, error) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return "", fmt.Errorf("%q does not contain %q", s, sep)
	}
	return s[i+len(sep):], nil
}
