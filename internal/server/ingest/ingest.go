// Package ingest turns uploaded delimited text into field-keyed rows.
//
// Parsing follows RFC 4180 (quoted fields may contain the delimiter,
// quotes and newlines), leniently: a stray quote inside an unquoted
// field is kept as text. Rows may be ragged: missing trailing columns
// become "", extra columns are dropped. A line holding only delimiters
// is still a row.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/certhub/internal/common"
)

// Row is one data line keyed by header name.
type Row map[string]string

// Result is a parsed upload. Header keeps the column order.
type Result struct {
	Header []string
	Rows   []Row
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads the header line and every non-empty data line of data.
// An empty header or a repeated header name is common.ErrMalformedInput.
// A header with no data lines yields an empty row set.
func Parse(data []byte, delimiter rune) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	if len(bytes.TrimSpace(firstLine)) == 0 {
		return nil, fmt.Errorf("%w: header line is empty", common.ErrMalformedInput)
	}

	r := csv.NewReader(bytes.NewReader(data))
	if delimiter != 0 {
		r.Comma = delimiter
	}
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", common.ErrMalformedInput, err)
	}

	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("%w: column %d has no name", common.ErrMalformedInput, i+1)
		}
		key := strings.ToLower(h)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", common.ErrMalformedInput, h)
		}
		seen[key] = struct{}{}
		header[i] = h
	}

	res := &Result{Header: header, Rows: []Row{}}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedInput, err)
		}
		if whitespaceOnly(rec) {
			continue
		}

		row := make(Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// whitespaceOnly reports a line with no delimiter and no text.
func whitespaceOnly(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}
