// Package ai — клиент генеративного сервиса: сценарий, синтез речи,
// поиск визуальных элементов. Ответы сервиса не считаются доверенными:
// форма проверяется на границе, выходы за диапазон приводятся к
// документированным значениям по умолчанию.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/slidecast/internal/anim"
	"github.com/ivlev/slidecast/internal/audio"
	"github.com/ivlev/slidecast/internal/project"
)

const (
	ActionScript = "script-generation"
	ActionSpeech = "speech-synthesis"
	ActionDetect = "element-detection"

	// MaxImagePayload ограничивает закодированное изображение в запросе.
	MaxImagePayload = 1500 * 1024

	// Кратный даунскейл при превышении лимита; после maxShrinkPasses
	// попыток — постоянная ошибка.
	shrinkFactor    = 0.8
	maxShrinkPasses = 5

	defaultTimeout = 120 * time.Second

	// Значения по умолчанию при неполном ответе детектора.
	defaultRectSize   = 20.0
	defaultElementDur = 1.0
)

// ErrPayloadTooLarge — изображение не удалось ужать под лимит.
var ErrPayloadTooLarge = errors.New("изображение превышает лимит запроса даже после сжатия")

// ServiceError — ошибка сервиса: HTTP-статус, машинный код и
// опциональная подсказка повтора.
type ServiceError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int // секунды; 0 — подсказки нет
}

func (e *ServiceError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("сервис генерации: %s (HTTP %d, код %s, повтор через %dс)", e.Message, e.Status, e.Code, e.RetryAfter)
	}
	return fmt.Sprintf("сервис генерации: %s (HTTP %d, код %s)", e.Message, e.Status, e.Code)
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type request struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func (c *Client) do(ctx context.Context, action string, payload, out interface{}) error {
	body, err := json.Marshal(request{Action: action, Payload: payload})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Message == "" {
			eb.Message = resp.Status
		}
		return &ServiceError{Status: resp.StatusCode, Code: eb.Code, Message: eb.Message, RetryAfter: eb.RetryAfter}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// encodeImage кодирует изображение в base64-JPEG, итеративно уменьшая
// его, пока оно не уложится в лимит. Количество попыток ограничено,
// чтобы цикл гарантированно завершался.
func encodeImage(img image.Image) (string, error) {
	var buf bytes.Buffer
	for pass := 0; ; pass++ {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return "", err
		}
		if buf.Len() <= MaxImagePayload {
			return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
		}
		if pass >= maxShrinkPasses {
			return "", fmt.Errorf("%w: %d байт после %d попыток", ErrPayloadTooLarge, buf.Len(), pass)
		}

		b := img.Bounds()
		w := int(float64(b.Dx()) * shrinkFactor)
		h := int(float64(b.Dy()) * shrinkFactor)
		if w < 1 || h < 1 {
			return "", fmt.Errorf("%w: изображение выродилось при сжатии", ErrPayloadTooLarge)
		}
		small := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, xdraw.Src, nil)
		img = small
	}
}

// ScriptResult — текст озвучки и статический субтитр слайда.
type ScriptResult struct {
	Script   string `json:"script"`
	Subtitle string `json:"subtitle"`
}

// GenerateScript запрашивает сценарий слайда для заданной аудитории и
// целевой длины.
func (c *Client) GenerateScript(ctx context.Context, img image.Image, audience, length string) (*ScriptResult, error) {
	data, err := encodeImage(img)
	if err != nil {
		return nil, err
	}
	payload := map[string]string{
		"image":    data,
		"audience": audience,
		"length":   length,
	}
	var out ScriptResult
	if err := c.do(ctx, ActionScript, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type speechResponse struct {
	Audio string `json:"audio"` // base64 raw PCM s16le 24kHz mono
}

// Synthesize превращает текст в озвучку. Формат PCM фиксирован
// контрактом сервиса (audio.SampleRate).
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*audio.Clip, error) {
	payload := map[string]string{
		"text":  text,
		"voice": voice,
	}
	var out speechResponse
	if err := c.do(ctx, ActionSpeech, payload, &out); err != nil {
		return nil, err
	}
	pcm, err := base64.StdEncoding.DecodeString(out.Audio)
	if err != nil {
		return nil, fmt.Errorf("аудио сервиса не декодируется: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("сервис вернул пустое аудио")
	}
	return audio.NewClip(pcm), nil
}

// rawElement — форма ответа детектора до валидации.
type rawElement struct {
	Label     string       `json:"label"`
	Rect      project.Rect `json:"rect"`
	Animation string       `json:"animation"`
	StartTime float64      `json:"startTime"`
	Duration  float64      `json:"duration"`
}

type detectResponse struct {
	Elements []rawElement `json:"elements"`
}

// DetectElements запрашивает визуальные элементы слайда и приводит
// ответ к инвариантам модели: отсутствующие размеры получают
// фиксированное значение, координаты зажимаются в [0,100], элемент
// никогда не выходит за границы изображения.
func (c *Client) DetectElements(ctx context.Context, img image.Image, script string) ([]project.VisualElement, error) {
	data, err := encodeImage(img)
	if err != nil {
		return nil, err
	}
	payload := map[string]string{
		"image":  data,
		"script": script,
	}
	var out detectResponse
	if err := c.do(ctx, ActionDetect, payload, &out); err != nil {
		return nil, err
	}

	els := make([]project.VisualElement, 0, len(out.Elements))
	for i, raw := range out.Elements {
		els = append(els, coerceElement(raw, i+1))
	}
	return els, nil
}

// coerceElement применяет документированные значения по умолчанию к
// одному элементу ответа.
func coerceElement(raw rawElement, id int) project.VisualElement {
	r := raw.Rect
	if r.W <= 0 {
		r.W = defaultRectSize
	}
	if r.H <= 0 {
		r.H = defaultRectSize
	}

	start := raw.StartTime
	if start < 0 {
		start = 0
	}
	if start > 1 {
		start = 1
	}

	dur := raw.Duration
	if dur <= 0 {
		dur = defaultElementDur
	}

	return project.VisualElement{
		ID:        id,
		Label:     raw.Label,
		Rect:      project.ClampRect(r),
		Animation: anim.ParseKind(raw.Animation),
		StartTime: start,
		Duration:  dur,
	}
}
