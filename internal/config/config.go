package config

// AspectMode выбирает размер холста и раскладку кадра.
type AspectMode string

const (
	AspectLandscape     AspectMode = "16:9"
	AspectPortrait      AspectMode = "9:16"
	AspectSubtitleAbove AspectMode = "subtitle-above"
	AspectSubtitleBelow AspectMode = "subtitle-below"
	AspectSource        AspectMode = "source"
)

// SubtitleStyle — глобальный стиль субтитров, общий для всех слайдов.
// Редактор меняет его между экспортами, композитор читает каждый кадр.
type SubtitleStyle struct {
	FontSize          float64 `yaml:"fontSize"`
	FontFamily        string  `yaml:"fontFamily"`
	TextColor         string  `yaml:"textColor"`         // "#rrggbb"
	BackgroundColor   string  `yaml:"backgroundColor"`   // "#rrggbb"
	BackgroundOpacity float64 `yaml:"backgroundOpacity"` // [0,1]
	HighlightColor    string  `yaml:"highlightColor"`
	VerticalPos       float64 `yaml:"verticalPos"` // проценты высоты холста [0,100]
}

// DefaultSubtitleStyle returns the style applied when the project file
// does not override it.
func DefaultSubtitleStyle() SubtitleStyle {
	return SubtitleStyle{
		FontSize:          42,
		FontFamily:        "Go",
		TextColor:         "#ffffff",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.6,
		HighlightColor:    "#ffd166",
		VerticalPos:       85,
	}
}

type Config struct {
	ProjectPath   string
	InputPath     string
	OutputVideo   string
	Width         int
	Height        int
	FPS           int
	Aspect        AspectMode
	Subtitles     bool
	Style         SubtitleStyle
	QRLink        string
	Workers       int
	DecodeTimeout float64 // секунды ожидания декодирования слайда
	VideoEncoder  string
	Quality       int
	ShowStats     bool
	BuildVersion  string
}

// FallbackSlideDuration — длительность слайда без озвучки, секунды.
const FallbackSlideDuration = 3.0
