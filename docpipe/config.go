package docpipe

import "log/slog"

// Config configures the input decoding pipeline.
type Config struct {
	// MaxFileSize is the maximum input payload size (default: 25 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// MaxPDFPages caps how many PDF pages are decoded (default: 15).
	MaxPDFPages int `json:"max_pdf_pages" yaml:"max_pdf_pages"`

	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 25 * 1024 * 1024
	}
	if c.MaxPDFPages <= 0 {
		c.MaxPDFPages = 15
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
