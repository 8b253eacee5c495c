package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/slidecast/internal/anim"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/layout"
	"github.com/ivlev/slidecast/internal/project"
	"github.com/ivlev/slidecast/internal/system"
)

// scaler is used for all image resampling. ApproxBiLinear keeps per-frame
// element redraws cheap; the base image is scaled once per slide.
var scaler = xdraw.ApproxBiLinear

// Compositor renders frames for one export. It never mutates slides or
// style; the per-slide scaled base image is the only cached state.
type Compositor struct {
	cfg    *config.Config
	lay    layout.Layout
	text   *textRenderer
	canvas *image.RGBA

	// base is the current slide's image, already letterboxed into the
	// layout's image area. nil until SetSlide.
	base *image.RGBA

	qr *image.RGBA
}

// New builds a compositor for the given config and resolved layout.
func New(cfg *config.Config, lay layout.Layout) (*Compositor, error) {
	tr, err := newTextRenderer(cfg.Style.FontSize)
	if err != nil {
		return nil, fmt.Errorf("шрифты субтитров: %w", err)
	}

	c := &Compositor{
		cfg:    cfg,
		lay:    lay,
		text:   tr,
		canvas: image.NewRGBA(image.Rect(0, 0, lay.CanvasW, lay.CanvasH)),
	}

	if cfg.QRLink != "" {
		q, err := qrcode.New(cfg.QRLink, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("QR-код: %w", err)
		}
		side := lay.CanvasH / 8
		qrImg := q.Image(side)
		c.qr = image.NewRGBA(qrImg.Bounds())
		draw.Draw(c.qr, c.qr.Bounds(), qrImg, qrImg.Bounds().Min, draw.Src)
	}

	return c, nil
}

// placeholderColor fills the image area when a slide asset failed to load.
var placeholderColor = color.RGBA{32, 32, 32, 255}

// SetSlide prepares the compositor for a slide: the source image is
// letterboxed and scaled once, then reused every frame. A nil image
// installs the placeholder.
func (c *Compositor) SetSlide(img image.Image) {
	if img == nil {
		r := c.lay.ImageArea
		c.base = image.NewRGBA(r)
		draw.Draw(c.base, r, &image.Uniform{placeholderColor}, image.Point{}, draw.Src)
		return
	}

	b := img.Bounds()
	fit := c.lay.FitImage(b.Dx(), b.Dy())
	c.base = image.NewRGBA(fit)
	scaler.Scale(c.base, fit, img, b, xdraw.Src, nil)
}

// Render draws one frame for the slide at the given progress fraction.
// The returned buffer is reused by the next Render call.
func (c *Compositor) Render(slide *project.Slide, progress float64) *image.RGBA {
	// Clear to black.
	draw.Draw(c.canvas, c.canvas.Bounds(), image.Black, image.Point{}, draw.Src)

	if c.base != nil {
		draw.Draw(c.canvas, c.base.Bounds(), c.base, c.base.Bounds().Min, draw.Src)

		dur := slide.Duration(config.FallbackSlideDuration)
		for _, el := range slide.Elements {
			t := anim.Evaluate(el.Animation, el.StartTime, el.Duration, progress, dur)
			c.drawElement(el, t)
		}
	}

	if c.cfg.Subtitles {
		if line := ResolveSubtitle(slide, progress); line != "" {
			c.text.draw(c.canvas, line, &c.cfg.Style, c.lay.SubtitleVPos)
		}
	}

	if c.qr != nil {
		c.drawQR()
	}

	return c.canvas
}

// drawElement redraws the element's window of the base image onto the
// canvas with the evaluated transform. Elements are windows onto the
// slide's own raster, not separate assets.
func (c *Compositor) drawElement(el project.VisualElement, t anim.Transform) {
	if !t.Visible || t.Opacity <= 0 {
		return
	}

	srcRect := el.Rect.Pixels(c.base.Bounds())
	if srcRect.Empty() {
		return
	}
	src := c.base.SubImage(srcRect).(*image.RGBA)

	// Scale about the element's own center, then apply vertical offset.
	dstRect := srcRect
	if t.Scale != 1.0 {
		cx := float64(srcRect.Min.X+srcRect.Max.X) / 2
		cy := float64(srcRect.Min.Y+srcRect.Max.Y) / 2
		hw := float64(srcRect.Dx()) * t.Scale / 2
		hh := float64(srcRect.Dy()) * t.Scale / 2
		dstRect = image.Rect(int(cx-hw), int(cy-hh), int(cx+hw), int(cy+hh))
	}
	if t.OffsetY != 0 {
		dy := int(t.OffsetY * float64(srcRect.Dy()))
		dstRect = dstRect.Add(image.Pt(0, dy))
	}
	if dstRect.Empty() {
		return
	}

	// Render the transformed window into a pooled buffer.
	tmp := system.GetImage(image.Rect(0, 0, dstRect.Dx(), dstRect.Dy()))
	defer system.PutImage(tmp)
	scaler.Scale(tmp, tmp.Bounds(), src, srcRect, xdraw.Src, nil)

	if t.Brightness != 1.0 {
		applyBrightness(tmp, t.Brightness)
	}

	if t.Opacity >= 1.0 {
		draw.Draw(c.canvas, dstRect, tmp, tmp.Bounds().Min, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(t.Opacity*255 + 0.5)})
	draw.DrawMask(c.canvas, dstRect, tmp, tmp.Bounds().Min, mask, image.Point{}, draw.Over)
}

// applyBrightness multiplies RGB channels in place, clamping at 255.
func applyBrightness(img *image.RGBA, mult float64) {
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		for j := 0; j < 3; j++ {
			v := float64(pix[i+j]) * mult
			if v > 255 {
				v = 255
			}
			pix[i+j] = uint8(v)
		}
	}
}

// drawQR paints the link badge in the bottom-right corner.
func (c *Compositor) drawQR() {
	const margin = 16
	b := c.qr.Bounds()
	x := c.lay.CanvasW - b.Dx() - margin
	y := c.lay.CanvasH - b.Dy() - margin
	draw.Draw(c.canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), c.qr, b.Min, draw.Over)
}
