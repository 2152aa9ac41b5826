package object

import (
	"bytes"
	"context"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// ObjectStore saves uploaded documents and derived artifacts.
type ObjectStore interface {
	// Save stores r under the owner's namespace and returns the generated key,
	// the byte count and the sniffed content type.
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// SaveWithKey stores r at a caller-chosen key, e.g. an extracted text copy.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
}

// Sniff reads up to 3072 bytes from r for content detection and returns them
// with a reader that replays the full stream.
func Sniff(r io.Reader) ([]byte, io.Reader, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, nil, err
	}
	head = head[:n]
	return head, io.MultiReader(bytes.NewReader(head), r), nil
}

// DetectType returns the MIME type of a sniffed header.
func DetectType(head []byte) string {
	return mimetype.Detect(head).String()
}
