package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// extractDOCX reads word/document.xml and joins paragraph text with newlines,
// in document order. Empty paragraphs are kept so that blank lines survive
// for clause segmentation.
func extractDOCX(doc *Document) error {
	zr, err := zip.NewReader(bytes.NewReader(doc.Raw), int64(len(doc.Raw)))
	if err != nil {
		return fmt.Errorf("%w: docx: %v", ErrExtractionFailure, err)
	}
	var body io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body, err = f.Open()
			if err != nil {
				return fmt.Errorf("%w: docx: open document.xml: %v", ErrExtractionFailure, err)
			}
			break
		}
	}
	if body == nil {
		return fmt.Errorf("%w: docx: word/document.xml not found", ErrExtractionFailure)
	}
	defer body.Close()

	paras, err := docxParagraphs(body)
	if err != nil {
		return fmt.Errorf("%w: docx: %v", ErrExtractionFailure, err)
	}
	doc.Text = strings.Join(paras, "\n")
	return nil
}

// docxParagraphs streams WordprocessingML and returns the text of each w:p.
// Inside a run, w:tab becomes a tab and w:br / w:cr a newline; tab stops in
// paragraph properties are ignored. A paragraph nested in another (text boxes)
// is emitted on its own, before the paragraph that contains it.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		open   []*strings.Builder
		inRun  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		var cur *strings.Builder
		if len(open) > 0 {
			cur = open[len(open)-1]
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "r":
				inRun++
			case "t":
				inText = true
			case "tab":
				if cur != nil && inRun > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil && inRun > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if cur != nil {
					paras = append(paras, cur.String())
					open = open[:len(open)-1]
				}
			case "r":
				if inRun > 0 {
					inRun--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if cur != nil && inText {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}
