package ai

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slidecast/internal/project"
)

// BatchOptions настраивают пакетную генерацию по слайдам.
type BatchOptions struct {
	Audience string
	Length   string
	Voice    string
	// Detect включает поиск визуальных элементов.
	Detect bool
	// Workers ограничивает параллелизм запросов.
	Workers int
}

// SlideFailure — отказ по одному слайду пакета.
type SlideFailure struct {
	SlideID int
	Err     error
}

func (f SlideFailure) Error() string {
	return fmt.Sprintf("слайд %d: %v", f.SlideID, f.Err)
}

// GenerateAll прогоняет каждый слайд через сценарий → озвучку →
// детекцию элементов. Отказ одного слайда записывается и не
// останавливает остальные: пакет доводится до конца, список отказов
// возвращается вызывающему.
func (c *Client) GenerateAll(ctx context.Context, slides []project.Slide, opts BatchOptions) []SlideFailure {
	workers := opts.Workers
	if workers < 1 {
		workers = 2
	}

	failures := make([]*SlideFailure, len(slides))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range slides {
		g.Go(func() error {
			if err := c.generateSlide(gctx, &slides[i], opts); err != nil {
				failures[i] = &SlideFailure{SlideID: slides[i].ID, Err: err}
				log.Printf("[!] Генерация слайда %d: %v", slides[i].ID, err)
			}
			// Ошибка не возвращается: пакет продолжает работу.
			return nil
		})
	}
	g.Wait()

	var out []SlideFailure
	for _, f := range failures {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func (c *Client) generateSlide(ctx context.Context, slide *project.Slide, opts BatchOptions) error {
	img, err := loadImage(slide.Image)
	if err != nil {
		return fmt.Errorf("изображение: %w", err)
	}

	script, err := c.GenerateScript(ctx, img, opts.Audience, opts.Length)
	if err != nil {
		return fmt.Errorf("сценарий: %w", err)
	}
	slide.SetScript(script.Script, script.Subtitle)

	clip, err := c.Synthesize(ctx, script.Script, opts.Voice)
	if err != nil {
		return fmt.Errorf("синтез речи: %w", err)
	}
	slide.SetNarration(clip)

	if opts.Detect {
		els, err := c.DetectElements(ctx, img, script.Script)
		if err != nil {
			return fmt.Errorf("детекция элементов: %w", err)
		}
		slide.SetElements(els)
	}
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
