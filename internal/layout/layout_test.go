package layout

import (
	"image"
	"testing"

	"github.com/ivlev/slidecast/internal/config"
)

func TestComputeSplitModesForceFullHD(t *testing.T) {
	// Target size is ignored: split modes always render 1920x1080.
	above := Compute(640, 480, config.AspectSubtitleAbove, 0, 0, 50)
	if above.CanvasW != 1920 || above.CanvasH != 1080 {
		t.Fatalf("above: canvas %dx%d, want 1920x1080", above.CanvasW, above.CanvasH)
	}
	if above.ImageArea != image.Rect(0, 216, 1920, 1080) {
		t.Errorf("above: image area %v", above.ImageArea)
	}
	if above.SubtitleVPos != 10 {
		t.Errorf("above: vpos %f, want 10", above.SubtitleVPos)
	}

	below := Compute(640, 480, config.AspectSubtitleBelow, 0, 0, 50)
	if below.CanvasW != 1920 || below.CanvasH != 1080 {
		t.Fatalf("below: canvas %dx%d, want 1920x1080", below.CanvasW, below.CanvasH)
	}
	if below.ImageArea != image.Rect(0, 0, 1920, 864) {
		t.Errorf("below: image area %v", below.ImageArea)
	}
	if below.SubtitleVPos != 90 {
		t.Errorf("below: vpos %f, want 90", below.SubtitleVPos)
	}
}

func TestComputeStandardModes(t *testing.T) {
	l := Compute(1920, 1080, config.AspectLandscape, 0, 0, 85)
	if l.CanvasW != 1920 || l.CanvasH != 1080 {
		t.Errorf("landscape: canvas %dx%d", l.CanvasW, l.CanvasH)
	}
	if l.SubtitleVPos != 85 {
		t.Errorf("landscape: vpos %f, want style value 85", l.SubtitleVPos)
	}

	// Odd targets round down to even.
	l = Compute(1921, 1081, config.AspectPortrait, 0, 0, 85)
	if l.CanvasW != 1920 || l.CanvasH != 1080 {
		t.Errorf("odd target: canvas %dx%d, want 1920x1080", l.CanvasW, l.CanvasH)
	}
}

func TestComputeSourceMode(t *testing.T) {
	// Natural size kept, rounded down to even.
	l := Compute(1920, 1080, config.AspectSource, 801, 601, 85)
	if l.CanvasW != 800 || l.CanvasH != 600 {
		t.Errorf("natural: canvas %dx%d, want 800x600", l.CanvasW, l.CanvasH)
	}
	if l.ImageArea != image.Rect(0, 0, 800, 600) {
		t.Errorf("natural: image area %v", l.ImageArea)
	}

	// Oversized sources downscale so the longest side is <= 1920.
	l = Compute(1920, 1080, config.AspectSource, 3840, 2160, 85)
	if l.CanvasW > 1920 || l.CanvasH > 1920 {
		t.Errorf("oversize: canvas %dx%d exceeds cap", l.CanvasW, l.CanvasH)
	}
	if l.CanvasW%2 != 0 || l.CanvasH%2 != 0 {
		t.Errorf("oversize: odd dimensions %dx%d", l.CanvasW, l.CanvasH)
	}
	if l.CanvasW != 1920 {
		t.Errorf("oversize landscape: width %d, want 1920", l.CanvasW)
	}

	// Tall source: height drives the scale.
	l = Compute(1920, 1080, config.AspectSource, 1080, 3840, 85)
	if l.CanvasH != 1920 {
		t.Errorf("tall: height %d, want 1920", l.CanvasH)
	}
	if l.CanvasW%2 != 0 {
		t.Errorf("tall: odd width %d", l.CanvasW)
	}

	// Unknown natural size falls back to the target.
	l = Compute(1280, 720, config.AspectSource, 0, 0, 85)
	if l.CanvasW != 1280 || l.CanvasH != 720 {
		t.Errorf("fallback: canvas %dx%d, want 1280x720", l.CanvasW, l.CanvasH)
	}
}

func TestFitImageLetterbox(t *testing.T) {
	l := Compute(1920, 1080, config.AspectLandscape, 0, 0, 85)

	// Wide image fills the width, centered vertically.
	r := l.FitImage(3840, 1080)
	if r.Dx() != 1920 || r.Dy() != 540 {
		t.Errorf("wide: fit %v", r)
	}
	if r.Min.Y != 270 {
		t.Errorf("wide: not vertically centered, y0=%d", r.Min.Y)
	}

	// Tall image fills the height, centered horizontally.
	r = l.FitImage(540, 1080)
	if r.Dy() != 1080 || r.Dx() != 540 {
		t.Errorf("tall: fit %v", r)
	}
	if r.Min.X != 690 {
		t.Errorf("tall: not horizontally centered, x0=%d", r.Min.X)
	}

	// Exact aspect match fills the area.
	r = l.FitImage(1920, 1080)
	if r != image.Rect(0, 0, 1920, 1080) {
		t.Errorf("exact: fit %v", r)
	}

	// Degenerate input yields an empty rect.
	if r := l.FitImage(0, 600); !r.Empty() {
		t.Errorf("zero width: expected empty rect, got %v", r)
	}
}

func TestFitImageRespectsAreaOffset(t *testing.T) {
	// In the subtitle-above split the image area starts below the band.
	l := Compute(0, 0, config.AspectSubtitleAbove, 0, 0, 50)
	r := l.FitImage(1920, 864)
	if !r.In(l.ImageArea) {
		t.Errorf("fit %v escapes image area %v", r, l.ImageArea)
	}
	if r.Min.Y < 216 {
		t.Errorf("image overlaps subtitle band: y0=%d", r.Min.Y)
	}
}
