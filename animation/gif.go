// Package animation assembles generated frames into animated GIFs. Frames
// are decoded, scaled to a common canvas and palette-quantized before
// encoding.
package animation

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	stddraw "image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// ErrNoFrames indicates an assembly request with an empty frame list.
var ErrNoFrames = errors.New("animation: no frames to assemble")

const defaultDelayMS = 100

// Options controls GIF assembly.
type Options struct {
	// Width/Height set the output canvas. Zero means the first frame's size;
	// frames of other sizes are scaled to fit.
	Width  int
	Height int

	// DelayMS is the per-frame delay in milliseconds (default 100).
	DelayMS int

	// LoopCount follows the GIF convention: 0 loops forever, -1 plays once,
	// n > 0 repeats n times.
	LoopCount int
}

// Assemble decodes the given frame files in order, normalizes them to a
// common canvas and writes an animated GIF to outPath.
func Assemble(framePaths []string, outPath string, opts Options) error {
	if len(framePaths) == 0 {
		return ErrNoFrames
	}
	delay := opts.DelayMS
	if delay <= 0 {
		delay = defaultDelayMS
	}

	anim := &gif.GIF{LoopCount: opts.LoopCount}
	width, height := opts.Width, opts.Height

	for _, path := range framePaths {
		frame, err := decodeFrame(path)
		if err != nil {
			return err
		}
		if width == 0 || height == 0 {
			bounds := frame.Bounds()
			width, height = bounds.Dx(), bounds.Dy()
		}
		anim.Image = append(anim.Image, quantize(scale(frame, width, height)))
		// GIF delays are in hundredths of a second.
		anim.Delay = append(anim.Delay, delay/10)
	}

	if dir := filepath.Dir(outPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("animation: create output directory: %w", err)
		}
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("animation: create %s: %w", outPath, err)
	}
	defer out.Close()

	if err := gif.EncodeAll(out, anim); err != nil {
		return fmt.Errorf("animation: encode gif: %w", err)
	}
	return nil
}

// CollectFrames returns the image files under dir matching pattern (a glob
// against the base name, e.g. "hero_*.png"), sorted by name so
// generation order becomes playback order.
func CollectFrames(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.png"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("animation: bad frame pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func decodeFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("animation: open frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("animation: decode frame %s: %w", path, err)
	}
	return img, nil
}

// scale resizes the frame to the target canvas when sizes differ.
func scale(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// quantize reduces the frame to the Plan 9 palette with error diffusion.
func quantize(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	dst := image.NewPaletted(bounds, palette.Plan9)
	stddraw.FloydSteinberg.Draw(dst, bounds, img, bounds.Min)
	return dst
}
