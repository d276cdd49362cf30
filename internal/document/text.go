package document

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText decodes b as UTF-8, honouring a UTF-8 or UTF-16 byte order mark.
// Invalid byte sequences become U+FFFD; decoding never fails on content.
func DecodeText(b []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func extractText(doc *Document) error {
	s, err := DecodeText(doc.Raw)
	if err != nil {
		return fmt.Errorf("%w: text: %v", ErrExtractionFailure, err)
	}
	doc.Text = s
	return nil
}
