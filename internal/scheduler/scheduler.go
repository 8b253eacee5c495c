// Package scheduler ведет таймлайн экспорта: слайды по порядку, звук и
// кадры синхронно, готовые кадры — в кодирующий приемник.
package scheduler

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/slidecast/internal/audio"
	"github.com/ivlev/slidecast/internal/compositor"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/encoder"
	"github.com/ivlev/slidecast/internal/project"
)

// ProgressFunc получает грубый прогресс (проценты) и строку статуса
// после старта каждого слайда.
type ProgressFunc func(percent float64, message string)

type Scheduler struct {
	Cfg      *config.Config
	Slides   []project.Slide
	Comp     *compositor.Compositor
	Sink     encoder.Sink
	Progress ProgressFunc

	// Точки подмены времени для тестов. nil — реальные часы.
	now      func() time.Time
	newPacer func(d time.Duration) (wait func(ctx context.Context) error, stop func())
}

func New(cfg *config.Config, slides []project.Slide, comp *compositor.Compositor, sink encoder.Sink, progress ProgressFunc) *Scheduler {
	return &Scheduler{
		Cfg:      cfg,
		Slides:   slides,
		Comp:     comp,
		Sink:     sink,
		Progress: progress,
	}
}

func (s *Scheduler) clockNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// pacer по умолчанию: тикер с периодом кадра. Цикл кадров не крутится
// вхолостую — он приостанавливается до следующего тика, чем и держится
// примерное выравнивание часов кадров и часов звука.
func (s *Scheduler) pacer(d time.Duration) (func(ctx context.Context) error, func()) {
	if s.newPacer != nil {
		return s.newPacer(d)
	}
	t := time.NewTicker(d)
	wait := func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	return wait, t.Stop
}

// narrationSlot — единственный активный "проигрыватель" озвучки.
// Предыдущий обязан быть остановлен до старта следующего; Stop
// фиксирует клип слайда (с добивкой тишиной) в общей дорожке.
type narrationSlot struct {
	track   *audio.Track
	clip    *audio.Clip
	dur     float64
	stopped bool
}

func (n *narrationSlot) Stop() {
	if n == nil || n.stopped {
		return
	}
	n.stopped = true
	n.track.AppendClip(n.clip, n.dur)
}

// mixdown собирает дорожку озвучки всего экспорта. Дисциплина ресурса:
// в каждый момент жив ровно один narrationSlot.
func (s *Scheduler) mixdown() *audio.Track {
	track := audio.NewTrack()
	var active *narrationSlot
	for i := range s.Slides {
		active.Stop()
		active = &narrationSlot{
			track: track,
			clip:  s.Slides[i].Narration,
			dur:   s.Slides[i].Duration(config.FallbackSlideDuration),
		}
	}
	active.Stop()
	return track
}

// Run выполняет один экспорт целиком. Отмена контекста прерывает
// кодирование и удаляет частичный результат.
func (s *Scheduler) Run(ctx context.Context) error {
	startTime := time.Now()

	if len(s.Slides) == 0 {
		return fmt.Errorf("проект не содержит слайдов")
	}
	if s.Cfg.FPS <= 0 {
		return fmt.Errorf("некорректный FPS: %d", s.Cfg.FPS)
	}

	tempDir, err := os.MkdirTemp("", "slidecast_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	// Дорожка озвучки собирается до старта кодировщика: ffmpeg получает
	// ее вторым входом и мультиплексирует по ходу кадров.
	track := s.mixdown()
	audioPath := filepath.Join(tempDir, "narration.wav")
	if err := track.SaveWAV(audioPath); err != nil {
		return fmt.Errorf("дорожка озвучки: %w", err)
	}

	if err := s.Sink.Start(ctx, audioPath); err != nil {
		return err
	}

	total := len(s.Slides)
	frameDur := time.Second / time.Duration(s.Cfg.FPS)
	frames := 0

	for i := range s.Slides {
		slide := &s.Slides[i]

		img := s.loadSlideImage(ctx, slide)
		s.Comp.SetSlide(img)

		if s.Progress != nil {
			percent := float64(i) / float64(total) * 100
			s.Progress(percent, fmt.Sprintf("Слайд %d из %d", i+1, total))
		}

		dur := slide.Duration(config.FallbackSlideDuration)
		wait, stop := s.pacer(frameDur)
		slideStart := s.clockNow()

		for {
			elapsed := s.clockNow().Sub(slideStart).Seconds()
			if elapsed >= dur {
				break
			}
			p := elapsed / dur
			if p > 1 {
				p = 1
			}

			frame := s.Comp.Render(slide, p)
			if err := s.Sink.PushFrame(frame); err != nil {
				stop()
				s.Sink.Abort()
				return fmt.Errorf("кадр слайда %d: %w", slide.ID, err)
			}
			frames++

			if err := wait(ctx); err != nil {
				stop()
				s.Sink.Abort()
				return err
			}
		}
		stop()
	}

	if err := s.Sink.Finish(); err != nil {
		return err
	}

	if s.Progress != nil {
		s.Progress(100, "Экспорт завершен")
	}

	if s.Cfg.ShowStats {
		totalTime := time.Since(startTime)
		fmt.Printf(
			"--- [EXPORT REPORT] ---\n"+
				"Build: %s\n"+
				"Слайдов: %d | Кадров: %d\n"+
				"Total Time: %.2fs\n"+
				"Effective FPS: %.2f\n"+
				"-----------------------\n",
			s.Cfg.BuildVersion, total, frames, totalTime.Seconds(),
			float64(frames)/totalTime.Seconds(),
		)
	}

	return nil
}

// loadSlideImage декодирует растр слайда с ограниченным ожиданием.
// Ошибка или таймаут не останавливают конвейер: слайд идет с
// изображением-заглушкой, инцидент попадает в лог.
func (s *Scheduler) loadSlideImage(ctx context.Context, slide *project.Slide) image.Image {
	timeout := s.Cfg.DecodeTimeout
	if timeout <= 0 {
		timeout = 5
	}

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := os.Open(slide.Image)
		if err != nil {
			ch <- result{nil, err}
			return
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		ch <- result{img, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			log.Printf("[!] Слайд %d: изображение не загружено (%v), используется заглушка", slide.ID, r.err)
			return nil
		}
		return r.img
	case <-time.After(time.Duration(timeout * float64(time.Second))):
		log.Printf("[!] Слайд %d: таймаут декодирования, используется заглушка", slide.ID)
		return nil
	case <-ctx.Done():
		return nil
	}
}
