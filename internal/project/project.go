package project

import (
	"fmt"
	"image"

	"github.com/ivlev/slidecast/internal/anim"
	"github.com/ivlev/slidecast/internal/audio"
)

// Rect is an element bounding box in percentage units of the image bounds.
type Rect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// VisualElement is a rectangular window onto the slide image with an
// entrance/emphasis animation. Coordinates are validated once, at
// ingestion; the compositor trusts them afterwards.
type VisualElement struct {
	ID        int       `yaml:"id"`
	Label     string    `yaml:"label"`
	Rect      Rect      `yaml:"rect"`
	Animation anim.Kind `yaml:"animation"`
	StartTime float64   `yaml:"startTime"` // доля длительности слайда [0,1]
	Duration  float64   `yaml:"duration"`  // секунды
}

// Slide is one narrated still. Read-only during compositing.
type Slide struct {
	ID        int             `yaml:"id"`
	Image     string          `yaml:"image"` // путь к растру слайда
	Script    string          `yaml:"script"`
	Subtitle  string          `yaml:"subtitle"` // статический запасной текст
	AudioPath string          `yaml:"audio,omitempty"`
	Elements  []VisualElement `yaml:"elements,omitempty"`

	// Narration is the decoded voice-over; nil when the slide is silent.
	// Populated from AudioPath on load or by the speech service.
	Narration *audio.Clip `yaml:"-"`
}

// Duration returns the slide playback duration in seconds:
// narration length when present, otherwise the fixed fallback.
func (s *Slide) Duration(fallback float64) float64 {
	if s.Narration != nil && s.Narration.Duration() > 0 {
		return s.Narration.Duration()
	}
	return fallback
}

// Project owns the ordered slide list.
type Project struct {
	Version string  `yaml:"version"`
	Slides  []Slide `yaml:"slides"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampRect coerces a rect into the invariant 0≤x,y≤100, w,h≥1,
// x+w≤100, y+h≤100. Out-of-range input is never rejected, only clamped.
func ClampRect(r Rect) Rect {
	r.X = clamp(r.X, 0, 100)
	r.Y = clamp(r.Y, 0, 100)
	r.W = clamp(r.W, 1, 100)
	r.H = clamp(r.H, 1, 100)
	if r.X+r.W > 100 {
		r.W = 100 - r.X
		if r.W < 1 {
			r.W = 1
			r.X = 99
		}
	}
	if r.Y+r.H > 100 {
		r.H = 100 - r.Y
		if r.H < 1 {
			r.H = 1
			r.Y = 99
		}
	}
	return r
}

// Pixels maps the percentage rect onto concrete image bounds.
func (r Rect) Pixels(bounds image.Rectangle) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	x0 := bounds.Min.X + int(r.X/100*w)
	y0 := bounds.Min.Y + int(r.Y/100*h)
	x1 := bounds.Min.X + int((r.X+r.W)/100*w)
	y1 := bounds.Min.Y + int((r.Y+r.H)/100*h)
	return image.Rect(x0, y0, x1, y1).Intersect(bounds)
}

// AddSlide appends a slide, assigning the next free ID, and returns it.
func (p *Project) AddSlide(s Slide) *Slide {
	maxID := 0
	for i := range p.Slides {
		if p.Slides[i].ID > maxID {
			maxID = p.Slides[i].ID
		}
	}
	s.ID = maxID + 1
	for i := range s.Elements {
		s.Elements[i].Rect = ClampRect(s.Elements[i].Rect)
		s.Elements[i].StartTime = clamp(s.Elements[i].StartTime, 0, 1)
	}
	p.Slides = append(p.Slides, s)
	return &p.Slides[len(p.Slides)-1]
}

// RemoveSlide deletes the slide with the given ID, preserving order.
func (p *Project) RemoveSlide(id int) bool {
	for i := range p.Slides {
		if p.Slides[i].ID == id {
			p.Slides = append(p.Slides[:i], p.Slides[i+1:]...)
			return true
		}
	}
	return false
}

// FindSlide returns the slide with the given ID or nil.
func (p *Project) FindSlide(id int) *Slide {
	for i := range p.Slides {
		if p.Slides[i].ID == id {
			return &p.Slides[i]
		}
	}
	return nil
}

// SetScript replaces the narration script and static subtitle of a slide.
func (s *Slide) SetScript(script, subtitle string) {
	s.Script = script
	s.Subtitle = subtitle
}

// SetNarration attaches decoded narration audio to the slide.
func (s *Slide) SetNarration(c *audio.Clip) {
	s.Narration = c
}

// SetElements replaces the element list, clamping every rect and start
// time at the boundary.
func (s *Slide) SetElements(els []VisualElement) {
	for i := range els {
		els[i].Rect = ClampRect(els[i].Rect)
		els[i].StartTime = clamp(els[i].StartTime, 0, 1)
		if els[i].ID == 0 {
			els[i].ID = i + 1
		}
	}
	s.Elements = els
}

// RemoveElement deletes one element by ID.
func (s *Slide) RemoveElement(id int) bool {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			s.Elements = append(s.Elements[:i], s.Elements[i+1:]...)
			return true
		}
	}
	return false
}

// Validate checks project-level invariants that cannot be coerced.
func (p *Project) Validate() error {
	if len(p.Slides) == 0 {
		return fmt.Errorf("проект не содержит слайдов")
	}
	for i := range p.Slides {
		if p.Slides[i].Image == "" {
			return fmt.Errorf("слайд %d: не задано изображение", p.Slides[i].ID)
		}
	}
	return nil
}
