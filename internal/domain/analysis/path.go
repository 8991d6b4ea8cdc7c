package analysis

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactPath builds the storage key {userId}/{epochMillis}_{originalFilename}.
// Only the base name of filename is kept so uploads cannot escape the user's prefix.
func ArtifactPath(userID string, at time.Time, filename string) string {
	return fmt.Sprintf("%s/%d_%s", userID, at.UnixMilli(), SafeFilename(filename))
}

// SafeFilename strips directories and separators from an uploaded file name.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload"
	}
	return name
}

// ContentTypeFor returns declared when set, otherwise guesses from the extension.
func ContentTypeFor(filename, declared string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}
