package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSX turns each sheet into one page; rows become tab-joined lines
// and empty rows become blank lines.
func extractXLSX(doc *Document) error {
	f, err := excelize.OpenReader(bytes.NewReader(doc.Raw))
	if err != nil {
		return fmt.Errorf("%w: xlsx: %v", ErrExtractionFailure, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("%w: xlsx: sheet %q: %v", ErrExtractionFailure, sheet, err)
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.TrimRight(strings.Join(row, "\t"), "\t"))
		}
		doc.Pages = append(doc.Pages, Page{Text: strings.Join(lines, "\n")})
	}
	joinPages(doc)
	return nil
}
