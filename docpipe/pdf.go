package docpipe

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// decodePDF extracts text from a PDF payload using pdfcpu. Pages are capped at
// cfg.MaxPDFPages to bound downstream inference cost. When the embedded text
// is too thin to trust (scanned documents), the page image XObjects are pulled
// out as vision payloads instead.
func (p *Pipeline) decodePDF(data []byte) (*Content, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := ctx.PageCount
	if pages > p.cfg.MaxPDFPages {
		p.logger.Debug("pdf page cap applied", "pages", ctx.PageCount, "cap", p.cfg.MaxPDFPages)
		pages = p.cfg.MaxPDFPages
	}

	var allText strings.Builder
	totalChars := 0

	for pageNr := 1; pageNr <= pages; pageNr++ {
		pageText := extractPageText(ctx, pageNr)
		if pageText == "" {
			continue
		}
		totalChars += len([]rune(pageText))
		if allText.Len() > 0 {
			allText.WriteByte('\n')
		}
		allText.WriteString(pageText)
	}

	fullText := allText.String()
	var charsPerPage float64
	if pages > 0 {
		charsPerPage = float64(totalChars) / float64(pages)
	}

	quality := &PDFQuality{
		PageCount:       pages,
		CharsPerPage:    charsPerPage,
		PrintableRatio:  computePrintableRatio(fullText),
		HasImageStreams: detectImageStreams(ctx),
	}

	content := &Content{Text: fullText, Quality: quality}

	if quality.NeedsVision() {
		images, err := extractPageImages(ctx, pages)
		if err != nil {
			return nil, fmt.Errorf("extract page images: %w", err)
		}
		content.Images = images
	}

	return content, nil
}

// extractPageText extracts text from a single PDF page via pdfcpu content stream.
func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// extractPageImages pulls image XObjects page by page for vision extraction.
func extractPageImages(ctx *model.Context, pages int) ([]Image, error) {
	var images []Image
	for pageNr := 1; pageNr <= pages; pageNr++ {
		pageImages, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}
		for _, img := range pageImages {
			data, err := io.ReadAll(img)
			if err != nil || len(data) == 0 {
				continue
			}
			images = append(images, Image{MIME: imageMIME(img.FileType), Data: data})
		}
	}
	return images, nil
}

func imageMIME(fileType string) string {
	switch strings.ToLower(fileType) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// detectImageStreams checks if the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	// Fallback: scan the xref table for image subtype objects.
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}
