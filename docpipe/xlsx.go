package docpipe

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// decodeXLSX renders every sheet of a workbook as text: a sheet-name marker
// line, then one comma-separated line per row. Rows stream through excelize
// so large workbooks never load fully into memory.
func decodeXLSX(data []byte) (*Content, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook")
	}

	var sb strings.Builder
	for _, sheet := range sheets {
		rows, err := f.Rows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
		}

		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("# Sheet: ")
		sb.WriteString(sheet)

		for rows.Next() {
			cols, err := rows.Columns()
			if err != nil {
				continue // skip malformed rows
			}
			line := joinCells(cols, ", ")
			if line == "" {
				continue
			}
			sb.WriteByte('\n')
			sb.WriteString(line)
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close rows of %q: %w", sheet, err)
		}
	}

	return &Content{Text: sb.String()}, nil
}
