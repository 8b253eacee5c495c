package layout

import (
	"image"

	"github.com/ivlev/slidecast/internal/config"
)

// Split modes reserve this fraction of canvas height for the subtitle band.
const bandFraction = 0.2

// maxSourceDim caps "source" mode canvases; larger images are downscaled.
const maxSourceDim = 1920

// Layout is the geometry of one output configuration. Computed once per
// export, read every frame.
type Layout struct {
	CanvasW int
	CanvasH int
	// ImageArea is the region the letterboxed slide image may occupy.
	ImageArea image.Rectangle
	// SubtitleVPos is the vertical anchor of the subtitle block as a
	// percentage of canvas height. Split modes pin it; otherwise it is
	// the user-configured style value.
	SubtitleVPos float64
}

// evenDown rounds down to the nearest even number. Common encoders reject
// odd frame dimensions for yuv420p output.
func evenDown(v int) int {
	if v < 2 {
		return 2
	}
	return v &^ 1
}

// Compute resolves canvas dimensions and sub-areas for a target size and
// aspect mode. naturalW/naturalH describe the first slide's source image
// and are only consulted in AspectSource mode (pass zeros otherwise).
func Compute(targetW, targetH int, mode config.AspectMode, naturalW, naturalH int, styleVPos float64) Layout {
	switch mode {
	case config.AspectSubtitleAbove:
		// Split modes force a fixed 1920x1080 canvas regardless of the
		// requested target; the band takes the top 20% of the height.
		band := int(1080 * bandFraction)
		return Layout{
			CanvasW:      1920,
			CanvasH:      1080,
			ImageArea:    image.Rect(0, band, 1920, 1080),
			SubtitleVPos: 10,
		}
	case config.AspectSubtitleBelow:
		band := int(1080 * bandFraction)
		return Layout{
			CanvasW:      1920,
			CanvasH:      1080,
			ImageArea:    image.Rect(0, 0, 1920, 1080-band),
			SubtitleVPos: 90,
		}
	case config.AspectSource:
		w, h := naturalW, naturalH
		if w <= 0 || h <= 0 {
			w, h = targetW, targetH
		}
		w, h = evenDown(w), evenDown(h)
		if w > maxSourceDim || h > maxSourceDim {
			scale := float64(maxSourceDim) / float64(w)
			if h > w {
				scale = float64(maxSourceDim) / float64(h)
			}
			w = evenDown(int(float64(w) * scale))
			h = evenDown(int(float64(h) * scale))
		}
		return Layout{
			CanvasW:      w,
			CanvasH:      h,
			ImageArea:    image.Rect(0, 0, w, h),
			SubtitleVPos: styleVPos,
		}
	default:
		w, h := evenDown(targetW), evenDown(targetH)
		return Layout{
			CanvasW:      w,
			CanvasH:      h,
			ImageArea:    image.Rect(0, 0, w, h),
			SubtitleVPos: styleVPos,
		}
	}
}

// FitImage letterboxes an image of imgW x imgH into the layout's image
// area: uniform scale-to-fit, centered.
func (l Layout) FitImage(imgW, imgH int) image.Rectangle {
	if imgW <= 0 || imgH <= 0 {
		return image.Rectangle{}
	}
	areaW := float64(l.ImageArea.Dx())
	areaH := float64(l.ImageArea.Dy())

	scale := areaW / float64(imgW)
	if s := areaH / float64(imgH); s < scale {
		scale = s
	}

	w := int(float64(imgW) * scale)
	h := int(float64(imgH) * scale)
	x := l.ImageArea.Min.X + (l.ImageArea.Dx()-w)/2
	y := l.ImageArea.Min.Y + (l.ImageArea.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
