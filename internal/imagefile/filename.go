package imagefile

import (
	"regexp"
	"strings"
	"time"
)

const (
	timestampLayout = "20060102_150405"
	maxExtLen       = 10
	defaultExt      = "png"
)

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9\s-]+`)
	slugCollapseRe = regexp.MustCompile(`[\s-]+`)
	extStripRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// MakeFilename builds a collision-resistant, traversal-safe output filename of
// the form {timestamp}_{slug}.{ext}. It is total: any input, including text
// that sanitizes to nothing, yields a usable name.
func MakeFilename(freeText, ext string, maxSlugLen int) string {
	return makeFilenameAt(time.Now(), freeText, ext, maxSlugLen)
}

func makeFilenameAt(now time.Time, freeText, ext string, maxSlugLen int) string {
	slug := sanitizeSlug(freeText, maxSlugLen)
	cleanExt := sanitizeExt(ext)

	name := now.Format(timestampLayout)
	if slug != "" {
		name += "_" + slug
	}
	return name + "." + cleanExt
}

func sanitizeSlug(text string, maxLen int) string {
	s := strings.ToLower(text)
	s = slugStripRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugCollapseRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
		s = strings.Trim(s, "-")
	}
	return s
}

func sanitizeExt(ext string) string {
	e := strings.ToLower(ext)
	e = strings.TrimLeft(e, ".")
	e = extStripRe.ReplaceAllString(e, "")
	if len(e) > maxExtLen {
		e = e[:maxExtLen]
	}
	if e == "" {
		return defaultExt
	}
	return e
}
