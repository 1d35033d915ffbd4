package output

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumagen/lumagen/internal/imagefile"
	"github.com/rs/zerolog"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestSaveWritesImageAndMetadata(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root, nil, zerolog.Nop())

	path, err := s.Save(context.Background(), "generate", pngHeader, imagefile.PNG, Metadata{
		Prompt: "A Lighthouse at Dusk!",
		Seed:   7,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if filepath.Dir(path) != filepath.Join(root, "generate") {
		t.Errorf("image written to %q, want generate subdirectory", path)
	}
	base := filepath.Base(path)
	if !strings.Contains(base, "a-lighthouse-at-dusk") || !strings.HasSuffix(base, ".png") {
		t.Errorf("unexpected filename %q", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != string(pngHeader) {
		t.Error("image bytes differ")
	}

	metaPath := strings.TrimSuffix(path, ".png") + ".json"
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("read metadata sibling: %v", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if meta.Operation != "generate" || meta.Seed != 7 || meta.CreatedAt.IsZero() {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

type fakeUploader struct {
	key  string
	fail bool
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if u.fail {
		return "", errors.New("bucket unavailable")
	}
	u.key = key
	return "https://cdn.example.com/" + key, nil
}

func TestSaveMirrorsWhenUploaderPresent(t *testing.T) {
	up := &fakeUploader{}
	s := NewStore(t.TempDir(), up, zerolog.Nop())

	path, err := s.Save(context.Background(), "remix", pngHeader, imagefile.PNG, Metadata{Prompt: "boat"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(up.key, "remix/") {
		t.Errorf("upload key = %q, want remix/ prefix", up.key)
	}

	metaBytes, _ := os.ReadFile(strings.TrimSuffix(path, ".png") + ".json")
	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(meta.MirrorURL, "https://cdn.example.com/remix/") {
		t.Errorf("MirrorURL = %q", meta.MirrorURL)
	}
}

func TestSaveSurvivesMirrorFailure(t *testing.T) {
	s := NewStore(t.TempDir(), &fakeUploader{fail: true}, zerolog.Nop())

	path, err := s.Save(context.Background(), "generate", pngHeader, imagefile.PNG, Metadata{Prompt: "x"})
	if err != nil {
		t.Fatalf("Save() error = %v, want local save to succeed", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("local image missing: %v", err)
	}
}

func TestSaveCreatesNestedDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "deep", "output")
	s := NewStore(root, nil, zerolog.Nop())

	if _, err := s.Save(context.Background(), "upscale", pngHeader, imagefile.PNG, Metadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Saving again must be idempotent with respect to directory creation.
	if _, err := s.Save(context.Background(), "upscale", pngHeader, imagefile.PNG, Metadata{}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
}
