package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// ReferenceConditioner supplies a reference image for img2img generation.
// IP-Adapter style guidance degrades to this on backends without adapter
// support.
type ReferenceConditioner struct {
	Image    []byte  // encoded reference image
	Strength float64 // denoising strength (0..1); 0.75 when unset
}

// Name identifies the module.
func (c ReferenceConditioner) Name() string { return "reference" }

// Apply attaches the reference image and strength to the invocation.
func (c ReferenceConditioner) Apply(params Params) Params {
	params.Reference = c.Image
	if c.Strength > 0 {
		params.Strength = c.Strength
	} else if params.Strength == 0 {
		params.Strength = 0.75
	}
	return params
}

// MaskConditioner supplies an explicit inpainting mask.
// White pixels mark the editable area.
type MaskConditioner struct {
	Mask []byte // encoded grayscale mask
}

// Name identifies the module.
func (c MaskConditioner) Name() string { return "mask" }

// Apply attaches the mask to the invocation.
func (c MaskConditioner) Apply(params Params) Params {
	params.Mask = c.Mask
	return params
}

// RegionConditioner constrains generation to a rectangular region by
// synthesizing an inpainting mask sized to the invocation resolution:
// the region is white (editable), everything else black (frozen).
type RegionConditioner struct {
	X, Y, W, H int
}

// Name identifies the module.
func (c RegionConditioner) Name() string { return "region" }

// Apply builds the mask PNG and attaches it. Out-of-bounds regions are
// clamped to the canvas; a degenerate region leaves the params untouched.
func (c RegionConditioner) Apply(params Params) Params {
	if params.Width <= 0 || params.Height <= 0 {
		return params
	}
	region := image.Rect(c.X, c.Y, c.X+c.W, c.Y+c.H).
		Intersect(image.Rect(0, 0, params.Width, params.Height))
	if region.Empty() {
		return params
	}

	mask := image.NewGray(image.Rect(0, 0, params.Width, params.Height))
	draw.Draw(mask, region, image.NewUniform(color.White), image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, mask); err != nil {
		return params
	}
	params.Mask = buf.Bytes()
	return params
}
