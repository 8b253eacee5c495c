package anim

import "math"

// Kind selects the entrance/emphasis animation of a visual element.
type Kind string

const (
	None      Kind = "none"
	FadeIn    Kind = "fadeIn"
	ZoomIn    Kind = "zoomIn"
	Highlight Kind = "highlight"
	SlideUp   Kind = "slideUp"
)

// ParseKind maps arbitrary input (AI hints, project files) to a known Kind.
// Unknown values default to FadeIn.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case None, FadeIn, ZoomIn, Highlight, SlideUp:
		return Kind(s)
	}
	return FadeIn
}

// Transform is the visual state of an element at one instant.
// OffsetY is expressed as a fraction of the element's pixel height;
// the compositor converts it to pixels at draw time.
type Transform struct {
	Visible    bool
	Opacity    float64 // [0,1]
	Scale      float64 // about the element's own center, 1.0 = identity
	OffsetY    float64 // fraction of element height, positive is down
	Brightness float64 // multiplier, 1.0 = unchanged
}

func identity(visible bool, opacity float64) Transform {
	return Transform{Visible: visible, Opacity: opacity, Scale: 1.0, Brightness: 1.0}
}

// Evaluate computes the transform of an element at slide progress p.
//
// The element is INACTIVE while p < startTime and ACTIVE afterwards.
// Once active, localElapsed = (p - startTime) * slideDuration seconds and
// animProgress = clamp(localElapsed / duration, 0, 1). animProgress
// saturates at 1 and stays there; there is no re-trigger. Evaluation is a
// pure function of its arguments; no state survives between frames.
func Evaluate(kind Kind, startTime, duration, p, slideDuration float64) Transform {
	active := p >= startTime
	ap := 0.0
	if active {
		localElapsed := (p - startTime) * slideDuration
		if localElapsed < 0 {
			localElapsed = 0
		}
		if duration <= 0 {
			ap = 1.0
		} else {
			ap = localElapsed / duration
			if ap > 1 {
				ap = 1
			}
		}
	}

	switch kind {
	case FadeIn:
		if !active {
			return identity(false, 0)
		}
		return identity(ap > 0, ap)
	case ZoomIn:
		if !active {
			return identity(false, 0)
		}
		t := identity(ap > 0, ap)
		t.Scale = 0.8 + 0.2*ap
		return t
	case Highlight:
		// Visible even while inactive; brightness peaks mid-animation
		// and returns to 1.0 at animProgress=1.
		t := identity(true, 1)
		t.Brightness = 1 + 0.3*math.Sin(ap*math.Pi)
		return t
	case SlideUp:
		if !active {
			return identity(false, 0)
		}
		t := identity(ap > 0, ap)
		t.OffsetY = (1 - ap) * 0.05
		return t
	default: // None
		return identity(true, 1)
	}
}
