package document

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// imageTypes are the image encodings accepted by every oracle provider.
var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// extTypes is the last-resort mapping when neither the declared type nor the
// content sniff is conclusive.
var extTypes = map[string]string{
	".pdf":  mimePDF,
	".docx": mimeDOCX,
	".xlsx": mimeXLSX,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
}

// Detect resolves the format of an upload. A specific declared type wins;
// generic declarations (empty, application/octet-stream) fall through to
// content sniffing, and the filename extension is consulted last.
func Detect(filename, declared string, data []byte) (Format, string, error) {
	if mt := baseType(declared); mt != "" && mt != "application/octet-stream" {
		if f, ok := formatOf(mt); ok {
			return f, mt, nil
		}
	}

	sniffed := baseType(mimetype.Detect(data).String())
	if f, ok := formatOf(sniffed); ok {
		return f, sniffed, nil
	}

	if mt, ok := extTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		if f, ok := formatOf(mt); ok {
			return f, mt, nil
		}
	}

	return "", sniffed, fmt.Errorf("%w: %q (declared %q)", ErrUnsupportedFormat, sniffed, declared)
}

func formatOf(mt string) (Format, bool) {
	switch {
	case mt == mimePDF:
		return FormatPDF, true
	case mt == mimeDOCX:
		return FormatDOCX, true
	case mt == mimeXLSX:
		return FormatXLSX, true
	case imageTypes[mt]:
		return FormatImage, true
	case strings.HasPrefix(mt, "text/"):
		return FormatText, true
	}
	return "", false
}

func baseType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(s)
	if err != nil {
		return strings.ToLower(s)
	}
	return mt
}
