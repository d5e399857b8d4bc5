// Package pdfmeta inspects uploaded PDFs without extracting their text.
package pdfmeta

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var ErrNotPDF = errors.New("not a PDF document")

// PageCount returns the number of pages in content.
func PageCount(content []byte) (n int, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(content, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, ErrNotPDF
	}
	// The reader panics on some damaged cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("read pdf: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return r.NumPage(), nil
}
