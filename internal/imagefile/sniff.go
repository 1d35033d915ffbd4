// Package imagefile validates image payloads by content: magic-byte format
// sniffing, header-only dimension checks, bounded local reads, and safe
// output filename generation. Nothing here trusts a filename or a declared
// content type.
package imagefile

import (
	"bytes"

	"github.com/lumagen/lumagen/internal/errs"
)

// MaxBytes is the upper bound for any image payload, local or remote.
const MaxBytes = 50 * 1024 * 1024 // 50 MiB

// Format is an image format recognized by its byte signature.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
	WEBP Format = "webp"
)

// MIME returns the canonical MIME type for the format.
func (f Format) MIME() string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case GIF:
		return "image/gif"
	case WEBP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Ext returns the file extension for the format, without a leading dot.
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// AllowedMIME reports whether a response content type names a recognized
// image format.
func AllowedMIME(contentType string) bool {
	switch contentType {
	case "image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// Sniff determines the image format from leading bytes alone.
func Sniff(data []byte) (Format, error) {
	if len(data) == 0 {
		return "", errs.New(errs.KindContent, "image file is empty")
	}

	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}):
		return PNG, nil
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return JPEG, nil
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("GIF")):
		return GIF, nil
	case len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return WEBP, nil
	}

	return "", errs.New(errs.KindContent, "file content is not a recognized image format (png, jpeg, gif, webp)")
}
