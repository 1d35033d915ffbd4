package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumagen/lumagen/internal/api"
	"github.com/lumagen/lumagen/internal/assets"
	"github.com/lumagen/lumagen/internal/config"
	"github.com/lumagen/lumagen/internal/fetch"
	"github.com/lumagen/lumagen/internal/output"
	"github.com/lumagen/lumagen/internal/security"
	"github.com/lumagen/lumagen/internal/server"
	"github.com/lumagen/lumagen/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: lumagen <command> [flags]

commands:
  generate   generate images from one or more prompts
  edit       replace the masked region of an image
  remix      regenerate an image guided by a prompt
  reframe    extend a square image to a new resolution
  describe   caption an image
  upscale    increase image resolution
  serve      run the HTTP API

run "lumagen <command> -h" for command flags
`

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command, args := os.Args[1], os.Args[2:]
	if command == "-h" || command == "--help" || command == "help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, command, args, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("LUMAGEN_API_KEY is required")
	}
	logger.Debug().Str("api_key", cfg.RedactedAPIKey()).Str("base_url", cfg.BaseURL).Msg("configured")

	svc, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	switch command {
	case "generate":
		return runGenerate(ctx, args, svc)
	case "edit":
		return runEdit(ctx, args, svc)
	case "remix":
		return runRemix(ctx, args, svc)
	case "reframe":
		return runReframe(ctx, args, svc)
	case "describe":
		return runDescribe(ctx, args, svc)
	case "upscale":
		return runUpscale(ctx, args, svc)
	case "serve":
		return runServe(ctx, cfg, logger, svc)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
		return nil
	}
}

func buildService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*assets.Service, error) {
	var uploader output.Uploader
	if cfg.S3Enabled() {
		s3Client, err := storage.NewS3Client(ctx,
			cfg.S3Endpoint, cfg.S3Region,
			cfg.S3AccessKeyID, cfg.S3SecretAccessKey,
			cfg.S3Bucket, cfg.S3PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		uploader = s3Client
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("output mirroring enabled")
	}

	downloader := assets.NewGateDownloader(
		security.NewValidator(logger),
		fetch.NewFetcher(logger),
	)
	return assets.NewService(
		api.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Production, logger),
		downloader,
		output.NewStore(cfg.OutputDir, uploader, logger),
		logger,
	), nil
}

func runGenerate(ctx context.Context, args []string, svc *assets.Service) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	negative := fs.String("negative", "", "negative prompt")
	style := fs.String("style", "", "style preset (AUTO, GENERAL, REALISTIC, DESIGN, ANIME, RENDER_3D)")
	resolution := fs.String("resolution", "", "exact output resolution")
	aspect := fs.String("aspect", "", "aspect ratio (mutually exclusive with -resolution)")
	count := fs.Int("n", 0, "number of images per prompt")
	seed := fs.Int("seed", -1, "generation seed (-1 for random)")
	fs.Parse(args)

	prompts := fs.Args()
	if len(prompts) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	req, err := buildGenerateRequest(*negative, *style, *resolution, *aspect, *count, *seed)
	if err != nil {
		return err
	}

	var paths []string
	if len(prompts) == 1 {
		req.Prompt = prompts[0]
		paths, err = svc.Generate(ctx, req)
	} else {
		paths, err = svc.GenerateBatch(ctx, prompts, req)
	}
	if err != nil {
		return err
	}
	printPaths(paths)
	return nil
}

func buildGenerateRequest(negative, style, resolution, aspect string, count, seed int) (api.GenerateRequest, error) {
	var req api.GenerateRequest

	parsedStyle, ok := api.ParseStyle(style)
	if !ok {
		return req, fmt.Errorf("unknown style %q", style)
	}
	parsedResolution, ok := api.ParseResolution(resolution)
	if !ok {
		return req, fmt.Errorf("unknown resolution %q", resolution)
	}
	parsedAspect, ok := api.ParseAspectRatio(aspect)
	if !ok {
		return req, fmt.Errorf("unknown aspect ratio %q", aspect)
	}

	req.NegativePrompt = negative
	req.Style = parsedStyle
	req.Resolution = parsedResolution
	req.AspectRatio = parsedAspect
	req.NumImages = count
	if seed >= 0 {
		req.Seed = &seed
	}
	return req, nil
}

func runEdit(ctx context.Context, args []string, svc *assets.Service) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	image := fs.String("image", "", "image path or URL (required)")
	mask := fs.String("mask", "", "mask path or URL (required)")
	prompt := fs.String("prompt", "", "edit prompt (required)")
	style := fs.String("style", "", "style preset")
	seed := fs.Int("seed", -1, "generation seed (-1 for random)")
	fs.Parse(args)

	if *image == "" || *mask == "" || *prompt == "" {
		fs.Usage()
		os.Exit(2)
	}
	parsedStyle, ok := api.ParseStyle(*style)
	if !ok {
		return fmt.Errorf("unknown style %q", *style)
	}
	var seedPtr *int
	if *seed >= 0 {
		seedPtr = seed
	}

	paths, err := svc.Edit(ctx, *image, *mask, *prompt, parsedStyle, seedPtr)
	if err != nil {
		return err
	}
	printPaths(paths)
	return nil
}

func runRemix(ctx context.Context, args []string, svc *assets.Service) error {
	fs := flag.NewFlagSet("remix", flag.ExitOnError)
	image := fs.String("image", "", "image path or URL (required)")
	prompt := fs.String("prompt", "", "remix prompt (required)")
	weight := fs.Int("weight", 50, "image weight 1-100")
	style := fs.String("style", "", "style preset")
	resolution := fs.String("resolution", "", "exact output resolution")
	fs.Parse(args)

	if *image == "" || *prompt == "" {
		fs.Usage()
		os.Exit(2)
	}
	parsedStyle, ok := api.ParseStyle(*style)
	if !ok {
		return fmt.Errorf("unknown style %q", *style)
	}
	parsedResolution, ok := api.ParseResolution(*resolution)
	if !ok {
		return fmt.Errorf("unknown resolution %q", *resolution)
	}

	paths, err := svc.Remix(ctx, *image, *prompt, *weight, parsedStyle, parsedResolution)
	if err != nil {
		return err
	}
	printPaths(paths)
	return nil
}

func runReframe(ctx context.Context, args []string, svc *assets.Service) error {
	fs := flag.NewFlagSet("reframe", flag.ExitOnError)
	image := fs.String("image", "", "square image path or URL (required)")
	resolution := fs.String("resolution", "", "target resolution (required)")
	fs.Parse(args)

	if *image == "" || *resolution == "" {
		fs.Usage()
		os.Exit(2)
	}
	parsedResolution, ok := api.ParseResolution(*resolution)
	if !ok {
		return fmt.Errorf("unknown resolution %q", *resolution)
	}

	paths, err := svc.Reframe(ctx, *image, parsedResolution)
	if err != nil {
		return err
	}
	printPaths(paths)
	return nil
}

func runDescribe(ctx context.Context, args []string, svc *assets.Service) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lumagen describe <image path or URL>")
		os.Exit(2)
	}

	texts, err := svc.Describe(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	for _, text := range texts {
		fmt.Println(text)
	}
	return nil
}

func runUpscale(ctx context.Context, args []string, svc *assets.Service) error {
	fs := flag.NewFlagSet("upscale", flag.ExitOnError)
	image := fs.String("image", "", "image path or URL (required)")
	prompt := fs.String("prompt", "", "optional guidance prompt")
	detail := fs.Int("detail", 50, "detail 0-100")
	resemblance := fs.Int("resemblance", 50, "resemblance 0-100")
	fs.Parse(args)

	if *image == "" {
		fs.Usage()
		os.Exit(2)
	}

	paths, err := svc.Upscale(ctx, *image, *prompt, *detail, *resemblance)
	if err != nil {
		return err
	}
	printPaths(paths)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger zerolog.Logger, svc *assets.Service) error {
	srv := server.NewServer(cfg, logger, svc)

	httpServer := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        srv.Routes(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   5 * time.Minute,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info().Msg("server exited")
	return nil
}

func printPaths(paths []string) {
	for _, path := range paths {
		fmt.Println(path)
	}
}
