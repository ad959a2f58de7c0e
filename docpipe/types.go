package docpipe

import (
	"encoding/base64"
	"errors"
)

// Kind identifies an input media type.
type Kind string

const (
	KindText  Kind = "text"
	KindCSV   Kind = "csv"
	KindDocx  Kind = "docx"
	KindXLSX  Kind = "xlsx"
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindHTML  Kind = "html"
)

// ErrUnsupportedFormat is returned when no decoder handles the input kind.
var ErrUnsupportedFormat = errors.New("docpipe: unsupported format")

// ErrFileTooLarge is returned when the payload exceeds the configured limit.
var ErrFileTooLarge = errors.New("docpipe: input too large")

// Image is a raster payload destined for the vision extraction path.
type Image struct {
	MIME string `json:"mime"`
	Data []byte `json:"-"`
}

// DataURL encodes the image as a data: URL for inline transport.
func (im Image) DataURL() string {
	return "data:" + im.MIME + ";base64," + base64.StdEncoding.EncodeToString(im.Data)
}

// Content is the result of decoding one input payload.
type Content struct {
	Kind    Kind        `json:"kind"`
	Text    string      `json:"text"`              // extracted text, may be empty for image inputs
	Images  []Image     `json:"images,omitempty"`  // page/image payloads for vision extraction
	Quality *PDFQuality `json:"quality,omitempty"` // set for PDF inputs
}
