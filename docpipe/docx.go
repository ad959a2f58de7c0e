package docpipe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// decodeDocx parses a .docx payload by reading word/document.xml from the ZIP
// archive. Paragraphs and list items become one line each; table rows are
// flattened by joining cell text with " | ". Identical lines are emitted once,
// in encounter order; Word schedules repeat headers and footers constantly.
func decodeDocx(data []byte) (*Content, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)

	var lines []string
	seen := make(map[string]bool)
	emit := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			return
		}
		seen[line] = true
		lines = append(lines, line)
	}

	var paragraph strings.Builder // current w:p text
	var cell strings.Builder      // current w:tc text, paragraphs joined with spaces
	var cells []string            // completed cells of the current table row
	var inParagraph bool
	var tableDepth int

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				if tableDepth > 0 {
					cells = cells[:0]
				}
			case "tc":
				if tableDepth > 0 {
					cell.Reset()
				}
			case "p":
				inParagraph = true
				paragraph.Reset()
			}

		case xml.CharData:
			if inParagraph {
				paragraph.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if !inParagraph {
					continue
				}
				inParagraph = false
				text := strings.TrimSpace(paragraph.String())
				if tableDepth > 0 {
					if cell.Len() > 0 && text != "" {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
					continue
				}
				emit(text)
			case "tc":
				if tableDepth > 0 {
					cells = append(cells, cell.String())
					cell.Reset()
				}
			case "tr":
				if tableDepth > 0 {
					emit(joinCells(cells, " | "))
					cells = cells[:0]
				}
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			}
		}
	}

	return &Content{Text: strings.Join(lines, "\n")}, nil
}
