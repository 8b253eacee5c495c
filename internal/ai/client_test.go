package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivlev/slidecast/internal/anim"
	"github.com/ivlev/slidecast/internal/project"
)

func testImage() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 64, 64))
}

// newTestServer answers /generate by action, capturing the last request.
func newTestServer(t *testing.T, handler func(action string, payload json.RawMessage, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var req struct {
			Action  string          `json:"action"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		handler(req.Action, req.Payload, w)
	}))
}

func TestGenerateScript(t *testing.T) {
	srv := newTestServer(t, func(action string, payload json.RawMessage, w http.ResponseWriter) {
		if action != ActionScript {
			t.Errorf("action %s, want %s", action, ActionScript)
		}
		var p map[string]string
		if err := json.Unmarshal(payload, &p); err != nil {
			t.Fatal(err)
		}
		if p["audience"] != "школьники" || p["length"] != "short" {
			t.Errorf("payload options missing: %v", p)
		}
		if p["image"] == "" {
			t.Error("payload has no image")
		}
		json.NewEncoder(w).Encode(ScriptResult{Script: "строка раз\nстрока два", Subtitle: "кратко"})
	})
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	got, err := c.GenerateScript(context.Background(), testImage(), "школьники", "short")
	if err != nil {
		t.Fatal(err)
	}
	if got.Script != "строка раз\nстрока два" || got.Subtitle != "кратко" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestSynthesize(t *testing.T) {
	pcm := make([]byte, 48000) // 1 second
	srv := newTestServer(t, func(action string, payload json.RawMessage, w http.ResponseWriter) {
		if action != ActionSpeech {
			t.Errorf("action %s, want %s", action, ActionSpeech)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"audio": base64.StdEncoding.EncodeToString(pcm),
		})
	})
	defer srv.Close()

	c := NewClient(srv.URL, "")
	clip, err := c.Synthesize(context.Background(), "текст", "alloy")
	if err != nil {
		t.Fatal(err)
	}
	if d := clip.Duration(); d != 1.0 {
		t.Errorf("clip duration %f, want 1.0", d)
	}
}

func TestSynthesizeRejectsEmptyAudio(t *testing.T) {
	srv := newTestServer(t, func(action string, payload json.RawMessage, w http.ResponseWriter) {
		json.NewEncoder(w).Encode(map[string]string{"audio": ""})
	})
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Synthesize(context.Background(), "текст", ""); err == nil {
		t.Fatal("expected error on empty audio")
	}
}

func TestDetectElementsCoercion(t *testing.T) {
	srv := newTestServer(t, func(action string, payload json.RawMessage, w http.ResponseWriter) {
		if action != ActionDetect {
			t.Errorf("action %s, want %s", action, ActionDetect)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"elements": []map[string]interface{}{
				{
					"label":     "диаграмма",
					"rect":      map[string]float64{"x": 10, "y": 10, "w": 30, "h": 30},
					"animation": "zoomIn",
					"startTime": 0.4,
					"duration":  2.0,
				},
				{
					// Degenerate: no size, unknown animation, out-of-range timing.
					"label":     "сноска",
					"rect":      map[string]float64{"x": 95, "y": -10},
					"animation": "wobble",
					"startTime": 1.7,
					"duration":  -3,
				},
			},
		})
	})
	defer srv.Close()

	c := NewClient(srv.URL, "")
	els, err := c.DetectElements(context.Background(), testImage(), "сценарий")
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 2 {
		t.Fatalf("elements %d, want 2", len(els))
	}

	good := els[0]
	if good.ID != 1 || good.Animation != anim.ZoomIn || good.StartTime != 0.4 || good.Duration != 2.0 {
		t.Errorf("well-formed element mangled: %+v", good)
	}

	bad := els[1]
	if bad.ID != 2 {
		t.Errorf("id %d, want 2", bad.ID)
	}
	if bad.Animation != anim.FadeIn {
		t.Errorf("unknown animation must default to fadeIn, got %s", bad.Animation)
	}
	if bad.StartTime != 1.0 {
		t.Errorf("startTime not clamped: %f", bad.StartTime)
	}
	if bad.Duration != defaultElementDur {
		t.Errorf("duration not defaulted: %f", bad.Duration)
	}
	if bad.Rect.W < 1 || bad.Rect.X+bad.Rect.W > 100 || bad.Rect.Y < 0 {
		t.Errorf("rect not clamped: %+v", bad.Rect)
	}
}

func TestCoerceElementDefaults(t *testing.T) {
	el := coerceElement(rawElement{Label: "x"}, 3)
	if el.ID != 3 {
		t.Errorf("id %d, want 3", el.ID)
	}
	if el.Rect.W != defaultRectSize || el.Rect.H != defaultRectSize {
		t.Errorf("missing size must default to %v: %+v", defaultRectSize, el.Rect)
	}
	if el.Duration != defaultElementDur {
		t.Errorf("duration %f, want %f", el.Duration, defaultElementDur)
	}
	if el.Animation != anim.FadeIn {
		t.Errorf("animation %s, want fadeIn", el.Animation)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	srv := newTestServer(t, func(action string, payload json.RawMessage, w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":       "rate_limited",
			"message":    "слишком много запросов",
			"retryAfter": 30,
		})
	})
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GenerateScript(context.Background(), testImage(), "", "")
	if err == nil {
		t.Fatal("expected service error")
	}

	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if se.Status != http.StatusTooManyRequests || se.Code != "rate_limited" || se.RetryAfter != 30 {
		t.Errorf("mapped error %+v", se)
	}
}

func TestServiceErrorWithoutBody(t *testing.T) {
	srv := newTestServer(t, func(action string, payload json.RawMessage, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GenerateScript(context.Background(), testImage(), "", "")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
	if se.Status != http.StatusInternalServerError || se.Message == "" {
		t.Errorf("fallback message missing: %+v", se)
	}
}

func TestAuthHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(ScriptResult{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	if _, err := c.GenerateScript(context.Background(), testImage(), "", ""); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer secret-key" {
		t.Errorf("auth header %q", auth)
	}
}

func TestEncodeImageFitsSmallInput(t *testing.T) {
	// A small flat image compresses far below the limit on the first pass.
	data, err := encodeImage(testImage())
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		t.Fatalf("not valid base64: %v", err)
	}
	if len(raw) == 0 || len(raw) > MaxImagePayload {
		t.Errorf("encoded size %d out of bounds", len(raw))
	}
}

func TestClampRectViaCoerce(t *testing.T) {
	el := coerceElement(rawElement{
		Rect: project.Rect{X: 120, Y: 50, W: 40, H: 200},
	}, 1)
	r := el.Rect
	if r.X > 100 || r.X+r.W > 100 || r.Y+r.H > 100 {
		t.Errorf("rect escaped bounds: %+v", r)
	}
}
