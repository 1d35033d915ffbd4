package imagefile

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestMakeFilenameBasic(t *testing.T) {
	got := makeFilenameAt(fixedTime, "Hello, World! ✨", "", 50)
	want := "20260314_092653_hello-world.png"
	if got != want {
		t.Errorf("makeFilenameAt() = %q, want %q", got, want)
	}
}

func TestMakeFilenameMatchesPattern(t *testing.T) {
	got := MakeFilename("Hello, World! ✨", "", 50)
	re := regexp.MustCompile(`^\d{8}_\d{6}_hello-world\.png$`)
	if !re.MatchString(got) {
		t.Errorf("MakeFilename() = %q, does not match %v", got, re)
	}
}

func TestMakeFilenameTruncationAndExt(t *testing.T) {
	long := strings.Repeat("a very long prompt ", 16) // ~300 chars
	got := makeFilenameAt(fixedTime, long, "JPE///G", 50)

	dot := strings.LastIndex(got, ".")
	if dot == -1 {
		t.Fatalf("no extension in %q", got)
	}
	ext := got[dot+1:]
	if ext != "jpeg" {
		t.Errorf("extension = %q, want jpeg", ext)
	}

	slug := strings.TrimPrefix(got[:dot], fixedTime.Format(timestampLayout)+"_")
	if len(slug) > 50 {
		t.Errorf("slug %q is %d chars, want <= 50", slug, len(slug))
	}
	if strings.ContainsAny(slug, "/\\. ") {
		t.Errorf("slug %q contains unsafe characters", slug)
	}
}

func TestMakeFilenameEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		text string
		ext  string
		want string
	}{
		{"empty text", "", "png", "20260314_092653.png"},
		{"only punctuation", "!!!???///", "png", "20260314_092653.png"},
		{"traversal attempt", "../../etc/passwd", "png", "20260314_092653_etcpasswd.png"},
		{"dotted extension", "photo", ".webp", "20260314_092653_photo.webp"},
		{"empty extension after stripping", "photo", "///", "20260314_092653_photo.png"},
		{"long extension capped", "photo", "abcdefghijklmnop", "20260314_092653_photo.abcdefghij"},
		{"whitespace runs", "a   b\t\tc", "gif", "20260314_092653_a-b-c.gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := makeFilenameAt(fixedTime, tt.text, tt.ext, 50)
			if got != tt.want {
				t.Errorf("makeFilenameAt(%q, %q) = %q, want %q", tt.text, tt.ext, got, tt.want)
			}
			if strings.ContainsRune(got, '/') || strings.HasPrefix(got, ".") {
				t.Errorf("filename %q is not traversal-safe", got)
			}
		})
	}
}
