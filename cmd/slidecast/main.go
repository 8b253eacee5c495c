package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/slidecast/internal/ai"
	"github.com/ivlev/slidecast/internal/compositor"
	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/deck"
	"github.com/ivlev/slidecast/internal/encoder"
	"github.com/ivlev/slidecast/internal/layout"
	"github.com/ivlev/slidecast/internal/project"
	"github.com/ivlev/slidecast/internal/scheduler"
	"github.com/ivlev/slidecast/internal/source"
	"github.com/ivlev/slidecast/internal/system"
)

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	for _, d := range []string{"input/pdf", "output"} {
		os.MkdirAll(d, 0755)
	}

	projectPtr := flag.String("project", "", "Путь к файлу проекта YAML (слайды, сценарии, элементы, стиль)")
	inputPtr := flag.String("input", "", "Путь к PDF или папке с изображениями (по умолчанию: самый свежий файл в input/pdf/)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	widthPtr := flag.Int("width", 1920, "Ширина")
	heightPtr := flag.Int("height", 1080, "Высота")
	fpsPtr := flag.Int("fps", 30, "FPS")
	aspectPtr := flag.String("aspect", "16:9", "Режим кадра: 16:9, 9:16, subtitle-above, subtitle-below, source")
	subtitlesPtr := flag.Bool("subtitles", true, "Рисовать субтитры")
	fontSizePtr := flag.Float64("font-size", 42, "Размер шрифта субтитров")
	subPosPtr := flag.Float64("subtitle-pos", 85, "Вертикальная позиция субтитров, % высоты")
	bgOpacityPtr := flag.Float64("bg-opacity", 0.6, "Непрозрачность подложки субтитров [0..1]")
	qrPtr := flag.String("qr", "", "Ссылка для QR-кода в углу кадра")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	genPtr := flag.Bool("generate", false, "Сгенерировать сценарий/озвучку/элементы через AI-сервис")
	aiURLPtr := flag.String("ai-url", os.Getenv("SLIDECAST_AI_URL"), "Адрес AI-сервиса")
	audiencePtr := flag.String("audience", "general", "Аудитория сценария")
	lengthPtr := flag.String("length", "medium", "Длина сценария: short, medium, long")
	voicePtr := flag.String("voice", "alloy", "Голос синтеза речи")
	detectPtr := flag.Bool("detect", true, "Искать визуальные элементы при генерации")
	deckPtr := flag.String("deck", "", "Дополнительно сохранить презентацию PPTX по указанному пути")
	saveProjectPtr := flag.String("save-project", "", "Сохранить собранный проект в YAML")
	statsPtr := flag.Bool("stats", false, "Печатать отчет о производительности")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system.LogHostInfo()

	cfg := &config.Config{
		ProjectPath:  *projectPtr,
		Width:        *widthPtr,
		Height:       *heightPtr,
		FPS:          *fpsPtr,
		Aspect:       config.AspectMode(*aspectPtr),
		Subtitles:    *subtitlesPtr,
		Style:        config.DefaultSubtitleStyle(),
		QRLink:       *qrPtr,
		Workers:      system.RenderWorkers(),
		ShowStats:    *statsPtr,
		BuildVersion: "slidecast-1.0",
	}
	cfg.Style.FontSize = *fontSizePtr
	cfg.Style.VerticalPos = *subPosPtr
	cfg.Style.BackgroundOpacity = *bgOpacityPtr

	var slides []project.Slide
	var tempAssets string

	if *projectPtr != "" {
		pf, err := project.Read(*projectPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения проекта: %v", err)
		}
		if pf.Style.FontSize > 0 {
			cfg.Style = pf.Style
		}
		slides = pf.Slides
		fmt.Printf("[*] Проект: %s | Слайдов: %d\n", *projectPtr, len(slides))
	} else {
		var err error
		slides, tempAssets, err = importSlides(ctx, cfg, *inputPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка импорта: %v", err)
		}
	}
	if tempAssets != "" {
		defer os.RemoveAll(tempAssets)
	}

	if len(slides) == 0 {
		log.Fatalf("[-] Ошибка: нет ни одного слайда")
	}

	if *genPtr {
		if *aiURLPtr == "" {
			log.Fatalf("[-] Ошибка: для -generate нужен адрес сервиса (-ai-url или SLIDECAST_AI_URL)")
		}
		client := ai.NewClient(*aiURLPtr, os.Getenv("SLIDECAST_AI_KEY"))
		fmt.Printf("[*] Генерация сценариев и озвучки: %d слайдов...\n", len(slides))
		failures := client.GenerateAll(ctx, slides, ai.BatchOptions{
			Audience: *audiencePtr,
			Length:   *lengthPtr,
			Voice:    *voicePtr,
			Detect:   *detectPtr,
			Workers:  2,
		})
		for _, f := range failures {
			fmt.Printf("[!] %v\n", f)
		}
		fmt.Printf("[*] Генерация завершена: отказов %d из %d\n", len(failures), len(slides))
	}

	if *saveProjectPtr != "" {
		pf := &project.File{Version: "1.0", Style: cfg.Style, Slides: slides}
		if err := project.Write(pf, *saveProjectPtr); err != nil {
			log.Printf("[!] Не удалось сохранить проект: %v", err)
		} else {
			fmt.Printf("[*] Проект сохранен: %s\n", *saveProjectPtr)
		}
	}

	if *deckPtr != "" {
		if err := deck.Write(slides, *deckPtr); err != nil {
			log.Printf("[!] Не удалось сохранить презентацию: %v", err)
		} else {
			fmt.Printf("[*] Презентация сохранена: %s\n", *deckPtr)
		}
	}

	finalOutput := *outputPtr
	if finalOutput == "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		finalOutput = filepath.Join("output", fmt.Sprintf("slidecast_%s.mp4", timestamp))
	}
	cfg.OutputVideo = finalOutput

	encoderName, err := encoder.PickEncoder()
	if err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	if encoderName != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
	}
	cfg.VideoEncoder = encoderName

	quality := *qualityPtr
	if quality == 0 {
		switch encoderName {
		case "h264_videotoolbox":
			quality = 75
		case "h264_nvenc":
			quality = 28
		default:
			quality = 23
		}
	}
	cfg.Quality = quality

	// Естественный размер первого слайда нужен режиму source.
	natW, natH := slideDimensions(&slides[0])
	lay := layout.Compute(cfg.Width, cfg.Height, cfg.Aspect, natW, natH, cfg.Style.VerticalPos)

	fmt.Println("--- [SLIDECAST COMPOSITOR] ---")
	fmt.Printf("[*] Холст: %dx%d @ %d FPS | Режим: %s\n", lay.CanvasW, lay.CanvasH, cfg.FPS, cfg.Aspect)
	fmt.Println("------------------------------")

	comp, err := compositor.New(cfg, lay)
	if err != nil {
		log.Fatalf("[-] Ошибка композитора: %v", err)
	}

	sink := &encoder.FFmpegSink{
		Width:      lay.CanvasW,
		Height:     lay.CanvasH,
		FPS:        cfg.FPS,
		OutputPath: cfg.OutputVideo,
		Encoder:    cfg.VideoEncoder,
		Quality:    cfg.Quality,
	}

	sched := scheduler.New(cfg, slides, comp, sink, func(percent float64, message string) {
		fmt.Printf("[>] %3.0f%% | %s\n", percent, message)
	})

	if err := sched.Run(ctx); err != nil {
		log.Fatalf("[-] Ошибка экспорта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
}

// importSlides строит слайды из PDF или папки изображений. Страницы PDF
// растеризуются во временную папку; она живет до конца экспорта.
func importSlides(ctx context.Context, cfg *config.Config, inputPath string) ([]project.Slide, string, error) {
	if inputPath == "" {
		latest, err := system.FindLatestPDF("input/pdf")
		if err != nil {
			return nil, "", fmt.Errorf("%v. Положите PDF в input/pdf/ или укажите -input", err)
		}
		inputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", inputPath)
	}

	if !strings.HasSuffix(strings.ToLower(inputPath), ".pdf") {
		imgs, err := source.NewImageSource(inputPath)
		if err != nil {
			return nil, "", err
		}
		prj := &project.Project{}
		for i := 0; i < imgs.PageCount(); i++ {
			prj.AddSlide(project.Slide{Image: imgs.Path(i)})
		}
		return prj.Slides, "", nil
	}

	src, err := source.NewFitzPDFSource(inputPath)
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	fmt.Printf("[*] Растеризация: %s | Страниц: %d | Воркеров: %d\n", inputPath, src.PageCount(), cfg.Workers)
	pages, err := source.RenderAll(ctx, src, cfg.Workers)
	if err != nil {
		return nil, "", err
	}

	tempDir, err := os.MkdirTemp("", "slidecast_pages_")
	if err != nil {
		return nil, "", err
	}

	prj := &project.Project{}
	for i, img := range pages {
		path := filepath.Join(tempDir, fmt.Sprintf("page_%03d.png", i+1))
		if err := savePNG(path, img); err != nil {
			os.RemoveAll(tempDir)
			return nil, "", err
		}
		prj.AddSlide(project.Slide{Image: path})
	}
	return prj.Slides, tempDir, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// slideDimensions читает натуральный размер растра слайда; при ошибке
// возвращает нули (layout подставит целевой размер).
func slideDimensions(s *project.Slide) (int, int) {
	f, err := os.Open(s.Image)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
