package imagefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumagen/lumagen/internal/errs"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "image.png")
	if err := os.WriteFile(path, encodePNG(t, 2, 2), 0o644); err != nil {
		t.Fatal(err)
	}

	data, format, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if format != PNG {
		t.Errorf("format = %v, want png", format)
	}
	if len(data) == 0 {
		t.Error("Load() returned no data")
	}
}

func TestLoadNotFound(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	if err == nil {
		t.Fatal("Load(missing) succeeded")
	}
	if !errs.IsKind(err, errs.KindIO) {
		t.Errorf("kind = %v, want io", err)
	}
	if !strings.Contains(err.Error(), "file not found") {
		t.Errorf("error %q lacks not-found phrasing", err.Error())
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(path)
	if err == nil {
		t.Fatal("Load(empty) succeeded")
	}
	if !errs.IsKind(err, errs.KindContent) {
		t.Errorf("kind = %v, want content", err)
	}
	if !strings.Contains(err.Error(), "empty") {
		t.Errorf("error %q lacks empty phrasing", err.Error())
	}
}

func TestLoadNotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("just some text"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(path)
	if err == nil {
		t.Fatal("Load(text) succeeded")
	}
	if !errs.IsKind(err, errs.KindContent) {
		t.Errorf("kind = %v, want content", err)
	}
}

func TestLoadOversized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// Sparse file: the size gate must fire on metadata before buffering.
	if err := f.Truncate(MaxBytes + 1); err != nil {
		f.Close()
		t.Skipf("cannot create sparse file: %v", err)
	}
	f.Close()

	_, _, err = Load(path)
	if err == nil {
		t.Fatal("Load(oversized) succeeded")
	}
	if !errs.IsKind(err, errs.KindSecurity) {
		t.Errorf("kind = %v, want security", err)
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("error %q lacks size phrasing", err.Error())
	}
}

func TestLoadPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root; permission bits are not enforced")
	}

	path := filepath.Join(t.TempDir(), "secret.png")
	if err := os.WriteFile(path, encodePNG(t, 2, 2), 0o000); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(path)
	if err == nil {
		t.Fatal("Load(unreadable) succeeded")
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("error %q lacks permission phrasing", err.Error())
	}
}
