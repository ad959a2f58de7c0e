package docpipe

import (
	"fmt"
	"path/filepath"
	"strings"
)

// decodeImage wraps an image payload for the vision extractor. There is no
// local OCR pass: date attribution in visual layouts is the model's job.
func decodeImage(name string, data []byte) (*Content, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	mime := sniffImageMIME(name, data)
	return &Content{Images: []Image{{MIME: mime, Data: data}}}, nil
}

// sniffImageMIME resolves the MIME type from magic bytes, falling back to the
// file extension.
func sniffImageMIME(name string, data []byte) string {
	switch {
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return "image/gif"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
