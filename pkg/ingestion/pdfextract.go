package ingestion

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// LedongthucExtractor is the production PDFTextExtractor, backed by
// github.com/ledongthuc/pdf. architect.py shells out to PyPDF2 for the same
// job (page-by-page plain text, no layout reconstruction); this is the Go
// equivalent reading of that behavior.
type LedongthucExtractor struct{}

// NewPDFExtractor builds the default PDFTextExtractor.
func NewPDFExtractor() *LedongthucExtractor {
	return &LedongthucExtractor{}
}

// ExtractText reads every page's plain text out of pdfBytes and
// concatenates it, reporting the page count so Architect can attribute a
// competency's page_range accurately.
func (LedongthucExtractor) ExtractText(pdfBytes []byte) (string, int, error) {
	reader := bytes.NewReader(pdfBytes)
	r, err := pdf.NewReader(reader, int64(len(pdfBytes)))
	if err != nil {
		return "", 0, fmt.Errorf("ingestion: open pdf: %w", err)
	}

	numPages := r.NumPage()
	var buf bytes.Buffer
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(&buf, "\n[page %d]\n", i)
		buf.WriteString(text)
	}

	if buf.Len() == 0 {
		return "", numPages, fmt.Errorf("ingestion: no extractable text in %d pages", numPages)
	}
	return buf.String(), numPages, nil
}
