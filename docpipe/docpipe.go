// Package docpipe decodes heterogeneous calendar inputs into plain text.
//
// Supported kinds:
//   - .txt        plain text (passthrough)
//   - .csv        comma-separated rows, one line per row
//   - .docx       Microsoft Word (archive/zip, word/document.xml)
//   - .xlsx       Excel workbook (excelize streaming rows)
//   - .pdf        embedded text per page, or page images for the vision path
//   - .png/.jpg   image payload for the vision path
//   - .html       sanitized and converted to markdown
//
// A decoder produces a best-effort textual representation plus, for PDFs and
// images, the raster payloads the vision extractor consumes. Decoders read
// their input and nothing else; they never call the network.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	content, err := pipe.Decode(ctx, "syllabus.pdf", data)
package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Pipeline is the input decoding engine.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Detect returns the input kind based on filename extension.
func (p *Pipeline) Detect(name string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt", ".text", ".md":
		return KindText, nil
	case ".csv":
		return KindCSV, nil
	case ".docx":
		return KindDocx, nil
	case ".xlsx":
		return KindXLSX, nil
	case ".pdf":
		return KindPDF, nil
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return KindImage, nil
	case ".html", ".htm":
		return KindHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Decode extracts textual content (and, where applicable, image payloads)
// from an input payload. The kind is detected from name.
func (p *Pipeline) Decode(ctx context.Context, name string, data []byte) (*Content, error) {
	kind, err := p.Detect(name)
	if err != nil {
		return nil, err
	}
	return p.DecodeAs(ctx, kind, name, data)
}

// DecodeAs extracts content with an explicit kind, bypassing detection.
func (p *Pipeline) DecodeAs(ctx context.Context, kind Kind, name string, data []byte) (*Content, error) {
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), p.cfg.MaxFileSize)
	}

	p.logger.Debug("decoding input", "name", name, "kind", kind, "bytes", len(data))

	var content *Content
	var err error

	switch kind {
	case KindText:
		content, err = decodeText(data)
	case KindCSV:
		content, err = decodeCSV(data)
	case KindDocx:
		content, err = decodeDocx(data)
	case KindXLSX:
		content, err = decodeXLSX(data)
	case KindPDF:
		content, err = p.decodePDF(data)
	case KindImage:
		content, err = decodeImage(name, data)
	case KindHTML:
		content, err = decodeHTML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s (%s): %w", name, kind, err)
	}
	content.Kind = kind
	return content, nil
}

// SupportedKinds returns all decodable input kinds.
func SupportedKinds() []Kind {
	return []Kind{KindText, KindCSV, KindDocx, KindXLSX, KindPDF, KindImage, KindHTML}
}
