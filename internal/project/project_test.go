package project

import (
	"image"
	"testing"

	"github.com/ivlev/slidecast/internal/audio"
)

func TestClampRectInvariants(t *testing.T) {
	// Sweep a grid of out-of-range inputs; every output must satisfy the
	// rect invariants.
	for x := -50.0; x <= 150; x += 10 {
		for w := -20.0; w <= 150; w += 10 {
			r := ClampRect(Rect{X: x, Y: 40, W: w, H: 30})
			if r.X < 0 || r.X > 100 {
				t.Fatalf("x=%f w=%f: X=%f out of range", x, w, r.X)
			}
			if r.W < 1 {
				t.Fatalf("x=%f w=%f: W=%f below minimum", x, w, r.W)
			}
			if r.X+r.W > 100+1e-9 {
				t.Fatalf("x=%f w=%f: X+W=%f exceeds 100", x, w, r.X+r.W)
			}
		}
	}
}

func TestClampRectCases(t *testing.T) {
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"already valid", Rect{10, 20, 30, 40}, Rect{10, 20, 30, 40}},
		{"negative origin", Rect{-5, -5, 30, 30}, Rect{0, 0, 30, 30}},
		{"overflow width trimmed", Rect{80, 10, 50, 20}, Rect{80, 10, 20, 20}},
		{"origin at edge", Rect{100, 50, 20, 20}, Rect{99, 50, 1, 20}},
		{"zero size grows", Rect{10, 10, 0, 0}, Rect{10, 10, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampRect(tt.in); got != tt.want {
				t.Errorf("ClampRect(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRectPixels(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 500)
	r := Rect{X: 10, Y: 20, W: 30, H: 40}
	px := r.Pixels(bounds)
	if px != image.Rect(100, 100, 400, 300) {
		t.Errorf("Pixels = %v", px)
	}

	// Offset bounds shift the result.
	px = r.Pixels(image.Rect(100, 100, 1100, 600))
	if px != image.Rect(200, 200, 500, 400) {
		t.Errorf("offset Pixels = %v", px)
	}
}

func TestSlideDuration(t *testing.T) {
	s := Slide{}
	if d := s.Duration(3.0); d != 3.0 {
		t.Errorf("silent slide: duration %f, want fallback 3.0", d)
	}

	// 24000 frames * 2 bytes = 1 second.
	s.SetNarration(audio.NewClip(make([]byte, 48000)))
	if d := s.Duration(3.0); d != 1.0 {
		t.Errorf("narrated slide: duration %f, want 1.0", d)
	}
}

func TestProjectEditing(t *testing.T) {
	var p Project

	a := p.AddSlide(Slide{Image: "a.png"})
	b := p.AddSlide(Slide{Image: "b.png"})
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids %d, %d, want 1, 2", a.ID, b.ID)
	}

	if !p.RemoveSlide(1) {
		t.Fatal("RemoveSlide(1) failed")
	}
	if p.RemoveSlide(1) {
		t.Fatal("RemoveSlide(1) succeeded twice")
	}

	// IDs never reuse: next slide gets 3, not 1.
	c := p.AddSlide(Slide{Image: "c.png"})
	if c.ID != 3 {
		t.Errorf("id after removal %d, want 3", c.ID)
	}

	if p.FindSlide(2) == nil || p.FindSlide(99) != nil {
		t.Error("FindSlide lookup broken")
	}
}

func TestSetElementsNormalizes(t *testing.T) {
	var s Slide
	s.SetElements([]VisualElement{
		{Rect: Rect{X: 120, Y: -10, W: 0, H: 0}, StartTime: 1.5},
		{ID: 7, Rect: Rect{X: 10, Y: 10, W: 20, H: 20}, StartTime: 0.5},
	})

	if len(s.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(s.Elements))
	}
	e := s.Elements[0]
	if e.ID != 1 {
		t.Errorf("missing id not assigned: %d", e.ID)
	}
	if e.StartTime != 1.0 {
		t.Errorf("startTime not clamped: %f", e.StartTime)
	}
	if e.Rect.X > 100 || e.Rect.W < 1 {
		t.Errorf("rect not clamped: %+v", e.Rect)
	}
	if s.Elements[1].ID != 7 {
		t.Errorf("explicit id overwritten: %d", s.Elements[1].ID)
	}

	if !s.RemoveElement(7) || s.RemoveElement(7) {
		t.Error("RemoveElement broken")
	}
}

func TestValidate(t *testing.T) {
	var p Project
	if p.Validate() == nil {
		t.Error("empty project must not validate")
	}
	p.AddSlide(Slide{})
	if p.Validate() == nil {
		t.Error("slide without image must not validate")
	}
	p.Slides[0].Image = "x.png"
	if err := p.Validate(); err != nil {
		t.Errorf("valid project rejected: %v", err)
	}
}
