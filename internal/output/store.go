// Package output persists generated images and their metadata. Files are
// written only after every upstream validation has succeeded; there is no
// partially written state to clean up.
package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumagen/lumagen/internal/errs"
	"github.com/lumagen/lumagen/internal/imagefile"
	"github.com/rs/zerolog"
)

// Uploader mirrors a saved asset to remote storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Metadata is written as a JSON sibling next to each saved image.
type Metadata struct {
	Prompt     string    `json:"prompt,omitempty"`
	Operation  string    `json:"operation"`
	Seed       int       `json:"seed,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
	Style      string    `json:"style,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	MirrorURL  string    `json:"mirror_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store writes assets under an operation-named subdirectory of the root.
type Store struct {
	root     string
	uploader Uploader
	logger   zerolog.Logger
}

// NewStore returns a Store. uploader may be nil to disable mirroring.
func NewStore(root string, uploader Uploader, logger zerolog.Logger) *Store {
	return &Store{root: root, uploader: uploader, logger: logger}
}

// Save writes the image and its metadata sibling, returning the image path.
// Filenames come from the sanitizer, so concurrent writers and hostile
// prompts cannot escape the output directory.
func (s *Store) Save(ctx context.Context, operation string, data []byte, format imagefile.Format, meta Metadata) (string, error) {
	dir := filepath.Join(s.root, operation)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(errs.KindIO, "failed to create output directory", err)
	}

	name := imagefile.MakeFilename(meta.Prompt, format.Ext(), 50)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errs.Wrap(errs.KindIO, "failed to write image", err)
	}

	if s.uploader != nil {
		key := operation + "/" + ContentKey(data, format.Ext())
		url, err := s.uploader.Upload(ctx, key, data, format.MIME())
		if err != nil {
			// The local copy is already safe; mirroring is best effort.
			s.logger.Warn().Err(err).Str("key", key).Msg("mirror upload failed")
		} else {
			meta.MirrorURL = url
		}
	}

	meta.Operation = operation
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	metaPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errs.Wrap(errs.KindIO, "failed to encode metadata", err)
	}
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return "", errs.Wrap(errs.KindIO, "failed to write metadata", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("bytes", len(data)).
		Str("format", string(format)).
		Msg("saved image")

	return path, nil
}
