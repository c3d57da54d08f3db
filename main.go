package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"pixstu_backend/animation"
	"pixstu_backend/cache"
	"pixstu_backend/core"
	"pixstu_backend/device"
	"pixstu_backend/generator"
	"pixstu_backend/logging"
	"pixstu_backend/metadata"
	"pixstu_backend/pipeline"
	"pixstu_backend/presets"
	"pixstu_backend/shutdown"
)

const usage = `pixstu - preset-driven image generation

Usage:
  pixstu generate -preset <name> -prompt <text> [options]
  pixstu presets  [-assets]
  pixstu rate     -image <path> -score <1-5>
  pixstu ratings
  pixstu gif      -dir <frames-dir> [-pattern <glob>] -out <path> [options]

Run "pixstu <command> -h" for command options.
`

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		// Logger isn't up yet.
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	if len(os.Args) < 2 {
		fmt.Print(usage)
		return core.ExitCodeError
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"
	logFile := core.GetEnvOrDefault("PIXSTU_LOG_FILE", "pixstu.log")
	logger, err := logging.NewLogger(isDevelopment, logFile)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	cfg, err := core.LoadConfig()
	if err != nil {
		reportError(err)
		return core.ExitCodeError
	}

	switch os.Args[1] {
	case "generate":
		return cmdGenerate(cfg, logger, os.Args[2:])
	case "presets":
		return cmdPresets(cfg, os.Args[2:])
	case "rate":
		return cmdRate(os.Args[2:])
	case "ratings":
		return cmdRatings(cfg)
	case "gif":
		return cmdGIF(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return core.ExitCodeSuccess
	default:
		fmt.Printf("Unknown command %q\n\n%s", os.Args[1], usage)
		return core.ExitCodeError
	}
}

// newSession assembles the generation facade from configuration.
func newSession(cfg *core.Config, logger *logging.Logger) (*generator.Session, error) {
	store := presets.NewStore(cfg.PresetFile, cfg.ModelsRoot)
	if err := store.Load(); err != nil {
		return nil, err
	}

	index, err := cache.Open(cfg.CachePath, logger)
	if err != nil {
		return nil, err
	}

	var pipe pipeline.Pipeline
	switch cfg.Provider {
	case core.ProviderOpenAI:
		pipe, err = pipeline.NewOpenAIPipeline(pipeline.OpenAIConfig{APIKey: cfg.OpenAIKey})
	default:
		pipe, err = pipeline.NewHTTPPipeline(pipeline.HTTPConfig{
			Host:    cfg.PipelineURL,
			Timeout: cfg.GenerationTimeout,
		})
	}
	if err != nil {
		index.Close()
		return nil, err
	}

	return generator.NewSession(generator.SessionConfig{
		Presets:           store,
		Cache:             index,
		Pipeline:          pipe,
		Selector:          device.NewSelector(),
		Logger:            logger,
		OutputsDir:        cfg.OutputsDir,
		DevicePreference:  cfg.DevicePreference,
		StrictAssets:      cfg.StrictAssets,
		GenerationTimeout: cfg.GenerationTimeout,
	})
}

func cmdGenerate(cfg *core.Config, logger *logging.Logger, args []string) int {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	prompt := fs.String("prompt", "", "prompt text (required)")
	preset := fs.String("preset", "", "preset name (required)")
	negative := fs.String("negative", "", "additional negative terms")
	seed := fs.String("seed", "random", "seed: integer or \"random\"")
	width := fs.Int("width", 0, "override width (multiple of 8)")
	height := fs.Int("height", 0, "override height (multiple of 8)")
	reference := fs.String("reference", "", "reference image for img2img")
	strength := fs.Float64("strength", cfg.ReferenceStrength, "denoising strength for -reference (0..1)")
	mask := fs.String("mask", "", "inpainting mask (requires -reference)")
	count := fs.Int("count", 1, "number of images to generate")
	fs.Parse(args)

	if *prompt == "" || *preset == "" {
		fmt.Println("generate: -prompt and -preset are required")
		return core.ExitCodeError
	}

	session, err := newSession(cfg, logger)
	if err != nil {
		reportError(err)
		return core.ExitCodeError
	}

	handler := shutdown.NewHandler(context.Background(), logger, 30*time.Second)
	handler.Register("session", 30, func(context.Context) error { return session.Close() })
	handler.Register("logger", 5, func(context.Context) error { return logger.Sync() })
	handler.Start()
	defer handler.Finish()

	req := generator.Request{
		Prompt:         *prompt,
		NegativePrompt: *negative,
		Preset:         *preset,
		Seed:           *seed,
		Width:          *width,
		Height:         *height,
	}
	if *reference != "" {
		data, err := os.ReadFile(*reference)
		if err != nil {
			reportError(err)
			return core.ExitCodeError
		}
		req.Conditioners = append(req.Conditioners,
			pipeline.ReferenceConditioner{Image: data, Strength: *strength})
	}
	if *mask != "" {
		data, err := os.ReadFile(*mask)
		if err != nil {
			reportError(err)
			return core.ExitCodeError
		}
		req.Mask = data
	}

	var bar *progressbar.ProgressBar
	if *count > 1 {
		bar = progressbar.Default(int64(*count), "generating")
	}

	for i := 0; i < *count; i++ {
		result, err := session.Generate(handler.Context(), req)
		if err != nil {
			if handler.Interrupted() {
				fmt.Println("\nInterrupted.")
				return core.ExitCodeSIGINT
			}
			reportError(err)
			return core.ExitCodeError
		}
		if bar != nil {
			bar.Add(1)
		}
		printResult(result)
	}
	return core.ExitCodeSuccess
}

func printResult(result *generator.Result) {
	for _, w := range result.Warnings {
		color.New(color.FgYellow).Printf("warning: %s\n", w.Message)
		if w.Download != "" {
			color.New(color.FgHiBlack).Printf("  download: %s\n", w.Download)
		}
	}
	tag := "generated"
	if result.CacheHit {
		tag = "cache hit"
	}
	color.New(color.FgGreen).Printf("%s: %s", tag, result.ImagePath)
	color.New(color.FgHiBlack).Printf("  (seed %d, %s)\n", result.Record.Seed, result.Record.Device)
}

func cmdPresets(cfg *core.Config, args []string) int {
	fs := flag.NewFlagSet("presets", flag.ExitOnError)
	showAssets := fs.Bool("assets", false, "report missing assets per preset")
	fs.Parse(args)

	store := presets.NewStore(cfg.PresetFile, cfg.ModelsRoot)
	if err := store.Load(); err != nil {
		reportError(err)
		return core.ExitCodeError
	}
	list, err := store.Presets()
	if err != nil {
		reportError(err)
		return core.ExitCodeError
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Printf("%d preset(s) in %s\n", len(list), store.Path())
	for _, p := range list {
		fmt.Printf("  %-24s %s  %dx%d  steps=%d cfg=%.1f\n",
			p.Name, p.Model, p.Resolution.Width, p.Resolution.Height, p.Steps, p.CFG)
		if !*showAssets {
			continue
		}
		missing := store.MissingAssets(p)
		if len(missing) == 0 {
			color.New(color.FgGreen).Println("    assets: ready")
			continue
		}
		for _, a := range missing {
			color.New(color.FgYellow).Printf("    missing: %s", a.DisplayPath)
			if a.SizeGB > 0 {
				fmt.Printf(" (~%.1f GB)", a.SizeGB)
			}
			fmt.Println()
		}
	}
	return core.ExitCodeSuccess
}

func cmdRate(args []string) int {
	fs := flag.NewFlagSet("rate", flag.ExitOnError)
	image := fs.String("image", "", "generated image or sidecar path (required)")
	score := fs.Int("score", 0, fmt.Sprintf("rating, %d to %d (required)", metadata.MinRating, metadata.MaxRating))
	fs.Parse(args)

	if *image == "" {
		fmt.Println("rate: -image is required")
		return core.ExitCodeError
	}
	sidecar := *image
	if !strings.HasSuffix(sidecar, ".json") {
		sidecar = metadata.SidecarPath(sidecar)
	}
	if err := metadata.Rate(sidecar, *score); err != nil {
		reportError(err)
		return core.ExitCodeError
	}
	color.New(color.FgGreen).Printf("rated %s: %d\n", sidecar, *score)
	return core.ExitCodeSuccess
}

func cmdRatings(cfg *core.Config) int {
	ratings, err := metadata.Aggregate(cfg.OutputsDir)
	if err != nil {
		reportError(err)
		return core.ExitCodeError
	}
	if len(ratings) == 0 {
		fmt.Println("No rated outputs found.")
		return core.ExitCodeSuccess
	}
	color.New(color.FgCyan, color.Bold).Println("Preset ratings")
	for _, r := range ratings {
		fmt.Printf("  %-24s %.2f (%d rated)\n", r.Preset, r.Average, r.Count)
	}
	return core.ExitCodeSuccess
}

func cmdGIF(args []string) int {
	fs := flag.NewFlagSet("gif", flag.ExitOnError)
	dir := fs.String("dir", "outputs", "directory containing frames")
	pattern := fs.String("pattern", "*.png", "frame filename glob")
	out := fs.String("out", "outputs/animation.gif", "output GIF path")
	delay := fs.Int("delay", 100, "per-frame delay in milliseconds")
	width := fs.Int("width", 0, "output width (0 = first frame)")
	height := fs.Int("height", 0, "output height (0 = first frame)")
	fs.Parse(args)

	frames, err := animation.CollectFrames(*dir, *pattern)
	if err != nil {
		reportError(err)
		return core.ExitCodeError
	}
	if len(frames) == 0 {
		fmt.Printf("No frames matching %q under %s\n", *pattern, *dir)
		return core.ExitCodeError
	}

	opts := animation.Options{Width: *width, Height: *height, DelayMS: *delay}
	if err := animation.Assemble(frames, *out, opts); err != nil {
		reportError(err)
		return core.ExitCodeError
	}
	color.New(color.FgGreen).Printf("wrote %s (%d frames)\n", *out, len(frames))
	return core.ExitCodeSuccess
}

// reportError prints an error in the most helpful form available; structured
// configuration errors include their remediation action.
func reportError(err error) {
	var cfgErr *core.ConfigError
	if errors.As(err, &cfgErr) {
		color.New(color.FgRed).Printf("error [%s]: %s\n", cfgErr.Code, cfgErr.Message)
		if cfgErr.Action != "" {
			color.New(color.FgHiBlack).Printf("  hint: %s\n", cfgErr.Action)
		}
		return
	}
	var missing *generator.MissingAssetError
	if errors.As(err, &missing) {
		color.New(color.FgRed).Printf("error: %v\n", err)
		for _, a := range missing.Assets {
			if a.Download != "" {
				color.New(color.FgHiBlack).Printf("  download %s from %s\n", a.DisplayPath, a.Download)
			}
		}
		return
	}
	color.New(color.FgRed).Printf("error: %v\n", err)
}
