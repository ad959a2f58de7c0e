package docpipe

import "unicode"

// PDFQuality captures metrics about PDF text extraction quality. It decides
// whether the embedded text is trustworthy or the document needs the vision
// extraction path (scanned pages, exported images of schedules).
type PDFQuality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
}

// NeedsVision returns true if the embedded text is likely unusable and the
// page images should be sent to the vision extractor instead.
func (q *PDFQuality) NeedsVision() bool {
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}

// computePrintableRatio returns the ratio of printable characters in text.
// Excludes PUA U+E000-U+F8FF, control chars < U+0020 (except \n\r\t), U+FFFD.
func computePrintableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	// Private Use Area
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	// Replacement character
	if r == 0xFFFD {
		return true
	}
	// Control chars except whitespace
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}
