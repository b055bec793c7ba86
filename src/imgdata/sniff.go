package imgdata

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/snapwall/snapwall/src/models"
	_ "golang.org/x/image/webp"
)

var reUnsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.\-]`)

/*
SanitizeFilename reduces a client-supplied filename to something safe to show
and store: directory parts become separators, whitespace becomes underscores,
and anything outside [A-Za-z0-9_.-] is dropped. Leading and trailing dots and
underscores are trimmed. The result may be empty.
*/
func SanitizeFilename(filename string) string {
	filename = strings.NewReplacer("/", " ", "\\", " ").Replace(filename)
	filename = strings.Join(strings.Fields(filename), "_")
	filename = reUnsafeFilenameChars.ReplaceAllString(filename, "")
	return strings.Trim(filename, "._")
}

// Returns the lowercased extension of a sanitized filename, or
// ErrUnsupportedType if it isn't one we accept.
func ImageExtension(sanitized string) (string, error) {
	ext := strings.ToLower(filepath.Ext(sanitized))
	for _, allowed := range models.ImageExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", ErrUnsupportedType
}

type ImageInfo struct {
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Reads just enough of the content to know it really is an image we accept.
func SniffImage(content []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return ImageInfo{}, ErrUnsupportedType
	}

	var contentType string
	switch format {
	case "png":
		contentType = "image/png"
	case "jpeg":
		contentType = "image/jpeg"
	case "webp":
		contentType = "image/webp"
	default:
		return ImageInfo{}, ErrUnsupportedType
	}

	return ImageInfo{
		Format:      format,
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}
