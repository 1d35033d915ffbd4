// Package assets orchestrates the full pipeline for each operation: resolve
// and validate user-supplied image references, call the generation API, pull
// the results back through the bounded download gate, and persist them.
package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumagen/lumagen/internal/api"
	"github.com/lumagen/lumagen/internal/errs"
	"github.com/lumagen/lumagen/internal/fetch"
	"github.com/lumagen/lumagen/internal/imagefile"
	"github.com/lumagen/lumagen/internal/output"
	"github.com/lumagen/lumagen/internal/security"
	"github.com/rs/zerolog"
)

// Downloader turns a raw URL into validated image bytes. The production
// implementation runs the URL validator before the bounded fetch.
type Downloader interface {
	Download(ctx context.Context, rawURL string) ([]byte, imagefile.Format, error)
}

// GateDownloader is the production Downloader: validate first, then fetch.
type GateDownloader struct {
	validator *security.Validator
	fetcher   *fetch.Fetcher
}

func NewGateDownloader(validator *security.Validator, fetcher *fetch.Fetcher) *GateDownloader {
	return &GateDownloader{validator: validator, fetcher: fetcher}
}

func (d *GateDownloader) Download(ctx context.Context, rawURL string) ([]byte, imagefile.Format, error) {
	u, err := d.validator.Validate(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	return d.fetcher.Fetch(ctx, u)
}

// Service wires the validators, the API client and the output store.
type Service struct {
	client     *api.Client
	downloader Downloader
	store      *output.Store
	logger     zerolog.Logger
}

func NewService(client *api.Client, downloader Downloader, store *output.Store, logger zerolog.Logger) *Service {
	return &Service{
		client:     client,
		downloader: downloader,
		store:      store,
		logger:     logger,
	}
}

// LoadInput resolves a user-supplied image reference. URLs go through the
// security gate and bounded fetch; anything else is treated as a local path
// with the same size and content checks.
func (s *Service) LoadInput(ctx context.Context, ref string) ([]byte, imagefile.Format, error) {
	if strings.Contains(ref, "://") {
		return s.downloader.Download(ctx, ref)
	}
	return imagefile.Load(ref)
}

// Generate runs a single prompt and saves every returned image.
func (s *Service) Generate(ctx context.Context, req api.GenerateRequest) ([]string, error) {
	resp, err := s.client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.saveResults(ctx, "generate", resp)
}

// GenerateBatch runs prompts sequentially. The first failing prompt aborts
// the remaining batch; images saved for earlier prompts are kept.
func (s *Service) GenerateBatch(ctx context.Context, prompts []string, base api.GenerateRequest) ([]string, error) {
	if len(prompts) == 0 {
		return nil, errs.New(errs.KindFormat, "at least one prompt is required")
	}

	var paths []string
	for i, prompt := range prompts {
		req := base
		req.Prompt = prompt
		s.logger.Info().Int("index", i).Msg("generating batch item")

		got, err := s.Generate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("prompt %d: %w", i+1, err)
		}
		paths = append(paths, got...)
	}
	return paths, nil
}

// Edit replaces the masked region of the referenced image.
func (s *Service) Edit(ctx context.Context, imageRef, maskRef, prompt string, style api.StylePreset, seed *int) ([]string, error) {
	img, _, err := s.LoadInput(ctx, imageRef)
	if err != nil {
		return nil, err
	}
	mask, _, err := s.LoadInput(ctx, maskRef)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Edit(ctx, api.EditRequest{
		Image: img, Mask: mask, Prompt: prompt, Style: style, Seed: seed,
	})
	if err != nil {
		return nil, err
	}
	return s.saveResults(ctx, "edit", resp)
}

// Remix regenerates the referenced image guided by the prompt.
func (s *Service) Remix(ctx context.Context, imageRef, prompt string, weight int, style api.StylePreset, resolution api.Resolution) ([]string, error) {
	img, _, err := s.LoadInput(ctx, imageRef)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Remix(ctx, api.RemixRequest{
		Image: img, Prompt: prompt, ImageWeight: weight, Style: style, Resolution: resolution,
	})
	if err != nil {
		return nil, err
	}
	return s.saveResults(ctx, "remix", resp)
}

// Reframe extends the referenced square image to a new resolution.
func (s *Service) Reframe(ctx context.Context, imageRef string, resolution api.Resolution) ([]string, error) {
	img, _, err := s.LoadInput(ctx, imageRef)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Reframe(ctx, api.ReframeRequest{Image: img, Resolution: resolution})
	if err != nil {
		return nil, err
	}
	return s.saveResults(ctx, "reframe", resp)
}

// Describe returns captions for the referenced image.
func (s *Service) Describe(ctx context.Context, imageRef string) ([]string, error) {
	img, _, err := s.LoadInput(ctx, imageRef)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Describe(ctx, api.DescribeRequest{Image: img})
	if err != nil {
		return nil, err
	}

	var texts []string
	for _, d := range resp.Descriptions {
		texts = append(texts, d.Text)
	}
	return texts, nil
}

// Upscale increases the resolution of the referenced image.
func (s *Service) Upscale(ctx context.Context, imageRef, prompt string, detail, resemblance int) ([]string, error) {
	img, _, err := s.LoadInput(ctx, imageRef)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Upscale(ctx, api.UpscaleRequest{
		Image: img, Prompt: prompt, Detail: detail, Resemblance: resemblance,
	})
	if err != nil {
		return nil, err
	}
	return s.saveResults(ctx, "upscale", resp)
}

// saveResults downloads every returned image through the same gate inputs go
// through (the API's CDN URLs are still untrusted input) and saves each one.
func (s *Service) saveResults(ctx context.Context, operation string, resp *api.ImagesResponse) ([]string, error) {
	if len(resp.Data) == 0 {
		return nil, errs.Upstream(errs.CategoryGeneric, "API returned no images")
	}

	var paths []string
	for i, img := range resp.Data {
		data, format, err := s.downloader.Download(ctx, img.URL)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i+1, err)
		}

		path, err := s.store.Save(ctx, operation, data, format, output.Metadata{
			Prompt:     img.Prompt,
			Seed:       img.Seed,
			Resolution: img.Resolution,
			Style:      img.StyleType,
			SourceURL:  img.URL,
		})
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
