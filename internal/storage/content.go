package storage

import (
	"errors"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedType is returned for uploads that are not an image or PDF.
var ErrUnsupportedType = errors.New("unsupported document type, use JPEG, PNG, WEBP or PDF")

var allowedDocumentTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

// DetectDocumentType sniffs the content of an upload and returns its MIME type.
// The client-declared type is ignored.
func DetectDocumentType(head []byte) (string, error) {
	mt := mimetype.Detect(head)
	for _, allowed := range allowedDocumentTypes {
		if mt.Is(allowed) {
			return allowed, nil
		}
	}
	return mt.String(), ErrUnsupportedType
}

// IsImage reports whether a detected type can be passed to the image worker.
func IsImage(contentType string) bool {
	return contentType == "image/jpeg" || contentType == "image/png"
}
