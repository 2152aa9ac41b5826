package uploadsession

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimePDF = "application/pdf"
	extPDF  = ".pdf"

	defaultMaxUploadBytes = 10 << 20
)

// File is one document handed to StartUpload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes.
func (f File) Size() int64 { return int64(len(f.Data)) }

// validateFile accepts PDFs only, checked by extension or declared type and
// then by content sniffing.
func validateFile(f File, maxBytes int64) error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return validationError("file name is required")
	}
	declared := strings.ToLower(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]))
	if !strings.EqualFold(filepath.Ext(name), extPDF) && declared != mimePDF {
		return validationError("only PDF files are accepted, got %q", name)
	}
	if len(f.Data) == 0 {
		return validationError("file %q is empty", name)
	}
	if maxBytes > 0 && f.Size() > maxBytes {
		return validationError("file %q exceeds %d bytes", name, maxBytes)
	}
	if detected := mimetype.Detect(f.Data); !detected.Is(mimePDF) {
		return validationError("file %q is %s, not a PDF", name, detected.String())
	}
	return nil
}
