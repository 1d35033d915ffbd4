package imagefile

import (
	"bytes"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/lumagen/lumagen/internal/errs"
)

// Dimensions extracts width and height from image header bytes. Only the
// header is decoded, never the pixel payload.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, errs.Wrap(errs.KindContent, "unable to read image dimensions", err)
	}
	return cfg.Width, cfg.Height, nil
}

// AssertSquare fails unless the image in data has equal width and height.
func AssertSquare(data []byte) error {
	w, h, err := Dimensions(data)
	if err != nil {
		return err
	}
	if w != h {
		return errs.Newf(errs.KindContent, "image must be square, got %dx%d", w, h)
	}
	return nil
}

// AssertSquareFile is AssertSquare for a file on disk.
func AssertSquareFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return mapIOError(path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return errs.Wrap(errs.KindContent, "unable to read image dimensions", err)
	}
	if cfg.Width != cfg.Height {
		return errs.Newf(errs.KindContent, "image must be square, got %dx%d", cfg.Width, cfg.Height)
	}
	return nil
}
