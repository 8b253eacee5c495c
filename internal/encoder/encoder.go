// Package encoder — приемник кадров и звука: долгоживущий процесс
// ffmpeg, читающий raw RGBA из stdin с фиксированной частотой кадров и
// дорожку озвучки вторым входом.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"

	"github.com/ivlev/slidecast/internal/system"
)

// ErrNoEncoder — на хосте нет никакой возможности кодирования.
// Фатально: экспорт невозможен в принципе.
var ErrNoEncoder = errors.New("ffmpeg не найден: кодирование видео недоступно")

// Sink принимает последовательность кадров и финализирует один
// закодированный медиафайл.
type Sink interface {
	Start(ctx context.Context, audioPath string) error
	PushFrame(img *image.RGBA) error
	// Finish закрывает поток кадров и дожидается кодировщика.
	Finish() error
	// Abort прерывает кодирование и удаляет частичный результат.
	Abort()
}

// PickEncoder выбирает лучший доступный видеокодек из предпочтительных
// (VideoToolbox, NVENC) с откатом на libx264. Возвращает ErrNoEncoder,
// если ffmpeg отсутствует вовсе.
func PickEncoder() (string, error) {
	if !system.HasFFmpeg() {
		return "", ErrNoEncoder
	}
	name, _ := system.GetBestH264Encoder()
	return name, nil
}

type FFmpegSink struct {
	Width, Height int
	FPS           int
	OutputPath    string
	Encoder       string
	Quality       int

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logBuf bytes.Buffer
}

func (s *FFmpegSink) Start(ctx context.Context, audioPath string) error {
	if s.Encoder == "" {
		enc, err := PickEncoder()
		if err != nil {
			return err
		}
		s.Encoder = enc
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-framerate", fmt.Sprintf("%d", s.FPS),
		"-i", "-",
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args, "-map", "0:v")
	if audioPath != "" {
		args = append(args, "-map", "1:a", "-c:a", "aac", "-shortest")
	}
	args = append(args, "-r", fmt.Sprintf("%d", s.FPS), "-pix_fmt", "yuv420p", "-c:v", s.Encoder)

	// Качество в зависимости от энкодера
	switch s.Encoder {
	case "h264_videotoolbox":
		bitrate := s.Quality * 100 // кбит/с. 75 -> 7.5Мбит/с
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", s.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", s.Quality), "-preset", "medium")
	}
	args = append(args, s.OutputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = &s.logBuf
	cmd.Stderr = &s.logBuf

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	return nil
}

func (s *FFmpegSink) PushFrame(img *image.RGBA) error {
	return writeRawRGBA(s.stdin, img)
}

func (s *FFmpegSink) Finish() error {
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd == nil {
		return nil
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %v\nLog: %s", err, s.logBuf.String())
	}
	return nil
}

func (s *FFmpegSink) Abort() {
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	os.Remove(s.OutputPath)
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	// Кадры композитора приходят со стандартным шагом; на всякий случай
	// перекладываем нестандартные.
	if img.Stride != bounds.Dx()*4 || bounds.Min.X != 0 || bounds.Min.Y != 0 {
		tmp := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(tmp, tmp.Bounds(), img, bounds.Min, draw.Src)
		img = tmp
	}
	_, err := w.Write(img.Pix)
	return err
}
