package imagefile

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumagen/lumagen/internal/errs"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDimensions(t *testing.T) {
	data := encodePNG(t, 6, 4)
	w, h, err := Dimensions(data)
	if err != nil {
		t.Fatalf("Dimensions() error = %v", err)
	}
	if w != 6 || h != 4 {
		t.Errorf("Dimensions() = %dx%d, want 6x4", w, h)
	}
}

func TestAssertSquare(t *testing.T) {
	if err := AssertSquare(encodePNG(t, 4, 4)); err != nil {
		t.Errorf("AssertSquare(4x4) error = %v", err)
	}

	err := AssertSquare(encodePNG(t, 4, 2))
	if err == nil {
		t.Fatal("AssertSquare(4x2) succeeded")
	}
	if !errs.IsKind(err, errs.KindContent) {
		t.Errorf("kind = %v, want content", err)
	}
	if !strings.Contains(err.Error(), "4x2") {
		t.Errorf("error %q does not report actual dimensions", err.Error())
	}
}

func TestAssertSquareFile(t *testing.T) {
	dir := t.TempDir()

	square := filepath.Join(dir, "square.png")
	if err := os.WriteFile(square, encodePNG(t, 4, 4), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AssertSquareFile(square); err != nil {
		t.Errorf("AssertSquareFile(square) error = %v", err)
	}

	wide := filepath.Join(dir, "wide.png")
	if err := os.WriteFile(wide, encodePNG(t, 4, 2), 0o644); err != nil {
		t.Fatal(err)
	}
	err := AssertSquareFile(wide)
	if err == nil {
		t.Fatal("AssertSquareFile(wide) succeeded")
	}
	if !strings.Contains(err.Error(), "4x2") {
		t.Errorf("error %q does not report actual dimensions", err.Error())
	}

	if err := AssertSquareFile(filepath.Join(dir, "missing.png")); !errs.IsKind(err, errs.KindIO) {
		t.Errorf("missing file error = %v, want io kind", err)
	}
}

func TestDimensionsGarbage(t *testing.T) {
	_, _, err := Dimensions([]byte("definitely not an image"))
	if err == nil {
		t.Fatal("Dimensions(garbage) succeeded")
	}
	if !strings.Contains(err.Error(), "unable to read image dimensions") {
		t.Errorf("error %q lacks decode phrasing", err.Error())
	}
}
