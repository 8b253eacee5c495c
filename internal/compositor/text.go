package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/project"
	"github.com/ivlev/slidecast/internal/subtitle"
)

// Emphasized runs render at this multiple of the base font size.
const emphasisScale = 1.2

// Below this background opacity the box is dropped in favor of an
// outline stroke, which stays legible on arbitrary image backgrounds.
const outlineOpacityThreshold = 0.3

const (
	padX = 18
	padY = 10
)

// ResolveSubtitle picks the subtitle text for a slide at a progress
// fraction. With narration present the time-synced chunk of the script
// wins; the stored static subtitle is the fallback, including the case
// where the synced chunk resolves to empty text.
func ResolveSubtitle(slide *project.Slide, progress float64) string {
	if slide.Narration != nil {
		chunks := subtitle.Split(slide.Script)
		if len(chunks) > 0 {
			if line := chunks[subtitle.Index(chunks, progress)]; line != "" {
				return line
			}
		}
	}
	return strings.TrimSpace(slide.Subtitle)
}

// textRenderer draws one centered rich-text subtitle block. Faces are
// built once per export; colors are read from the style every frame.
type textRenderer struct {
	regular  font.Face
	emphasis font.Face
}

func newTextRenderer(fontSize float64) (*textRenderer, error) {
	if fontSize <= 0 {
		fontSize = config.DefaultSubtitleStyle().FontSize
	}

	// The embedded Go fonts are the only faces shipped with the binary;
	// FontFamily values naming other families fall back to them.
	reg, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, err
	}

	regFace, err := opentype.NewFace(reg, &opentype.FaceOptions{
		Size: fontSize, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	emFace, err := opentype.NewFace(bold, &opentype.FaceOptions{
		Size: fontSize * emphasisScale, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}

	return &textRenderer{regular: regFace, emphasis: emFace}, nil
}

func (tr *textRenderer) face(emphasis bool) font.Face {
	if emphasis {
		return tr.emphasis
	}
	return tr.regular
}

// draw renders the line horizontally centered, vertically anchored at
// vpos percent of the canvas height.
func (tr *textRenderer) draw(dst *image.RGBA, line string, style *config.SubtitleStyle, vpos float64) {
	runs := subtitle.ParseRuns(line)
	if len(runs) == 0 {
		return
	}

	// Measure each run at its own size; runs share one baseline.
	totalW := 0
	ascent, descent := 0, 0
	widths := make([]int, len(runs))
	for i, r := range runs {
		f := tr.face(r.Emphasis)
		widths[i] = font.MeasureString(f, r.Text).Ceil()
		totalW += widths[i]
		m := f.Metrics()
		if a := m.Ascent.Ceil(); a > ascent {
			ascent = a
		}
		if d := m.Descent.Ceil(); d > descent {
			descent = d
		}
	}

	canvasW := dst.Bounds().Dx()
	canvasH := dst.Bounds().Dy()
	blockH := ascent + descent
	x0 := (canvasW - totalW) / 2
	centerY := int(vpos / 100 * float64(canvasH))
	baseline := centerY - blockH/2 + ascent

	textCol := parseHexRGBA(style.TextColor)
	hlCol := parseHexRGBA(style.HighlightColor)

	if style.BackgroundOpacity < outlineOpacityThreshold {
		// No box: stroke an outline behind every run for legibility.
		tr.drawRuns(dst, runs, widths, x0, baseline, color.RGBA{0, 0, 0, 255}, color.RGBA{0, 0, 0, 255}, true)
	} else {
		bg := parseHexRGBA(style.BackgroundColor)
		alpha := color.Alpha{A: uint8(clamp01(style.BackgroundOpacity)*255 + 0.5)}
		box := image.Rect(x0-padX, baseline-ascent-padY, x0+totalW+padX, baseline+descent+padY)
		draw.DrawMask(dst, box, &image.Uniform{bg}, image.Point{},
			&image.Uniform{alpha}, image.Point{}, draw.Over)
	}

	tr.drawRuns(dst, runs, widths, x0, baseline, textCol, hlCol, false)
}

// drawRuns paints the runs left to right. In outline mode each run is
// stamped at four diagonal offsets instead of its fill color.
func (tr *textRenderer) drawRuns(dst *image.RGBA, runs []subtitle.Run, widths []int, x, baseline int, textCol, hlCol color.RGBA, outline bool) {
	offsets := []image.Point{{}}
	if outline {
		offsets = []image.Point{{-2, -2}, {2, -2}, {-2, 2}, {2, 2}}
	}

	cx := x
	for i, r := range runs {
		col := textCol
		if r.Emphasis {
			col = hlCol
		}
		for _, off := range offsets {
			d := font.Drawer{
				Dst:  dst,
				Src:  &image.Uniform{col},
				Face: tr.face(r.Emphasis),
				Dot:  fixed.P(cx+off.X, baseline+off.Y),
			}
			d.DrawString(r.Text)
		}
		cx += widths[i]
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// parseHexRGBA converts "#rrggbb" to an opaque color. White is the safe
// default on any parse error.
func parseHexRGBA(s string) color.RGBA {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{255, 255, 255, 255}
	}
	r, err1 := strconv.ParseUint(hex[0:2], 16, 8)
	g, err2 := strconv.ParseUint(hex[2:4], 16, 8)
	b, err3 := strconv.ParseUint(hex[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}
}
