package imagefile

import (
	"os"

	"github.com/lumagen/lumagen/internal/errs"
)

// Load reads a local image file, applying the same gates remote fetches get:
// the size ceiling is checked against file metadata before the bytes are
// buffered, and the content must carry a recognized image signature.
func Load(path string) ([]byte, Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", mapIOError(path, err)
	}
	if info.Size() > MaxBytes {
		return nil, "", errs.Newf(errs.KindSecurity,
			"file too large: %d bytes (max %d)", info.Size(), MaxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", mapIOError(path, err)
	}

	format, err := Sniff(data)
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

func mapIOError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return errs.Newf(errs.KindIO, "file not found: %s", path)
	case os.IsPermission(err):
		return errs.Newf(errs.KindIO, "permission denied: %s", path)
	default:
		return errs.Wrap(errs.KindIO, "failed to read file", err)
	}
}
