package docpipe

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// decodeText passes plain text through untouched. Normalization happens later.
func decodeText(data []byte) (*Content, error) {
	return &Content{Text: string(data)}, nil
}

// decodeCSV renders each record as one comma-separated line.
func decodeCSV(data []byte) (*Content, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // ragged rows are common in exported schedules

	var sb strings.Builder
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line := joinCells(record, ", ")
		if line == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	return &Content{Text: sb.String()}, nil
}

// joinCells joins non-empty trimmed cells with sep.
func joinCells(cells []string, sep string) string {
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, sep)
}
