package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/slidecast/internal/audio"
	"github.com/ivlev/slidecast/internal/config"
)

// File is the on-disk project document: slide list plus the shared
// subtitle style. Relative asset paths are resolved against the file's
// directory.
type File struct {
	Version string               `yaml:"version"`
	Style   config.SubtitleStyle `yaml:"style"`
	Slides  []Slide              `yaml:"slides"`
}

// Write saves a project document to a YAML file.
func Write(f *File, path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Read loads a project document, normalizes element rects and decodes
// referenced narration audio. A missing audio file is an error: the
// project explicitly names it, unlike a failed image decode which the
// scheduler recovers from at composite time.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("разбор файла проекта %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range f.Slides {
		s := &f.Slides[i]
		if s.ID == 0 {
			s.ID = i + 1
		}
		if s.Image != "" && !filepath.IsAbs(s.Image) {
			s.Image = filepath.Join(base, s.Image)
		}
		s.SetElements(s.Elements)
		if s.AudioPath != "" {
			ap := s.AudioPath
			if !filepath.IsAbs(ap) {
				ap = filepath.Join(base, ap)
			}
			clip, err := audio.LoadClip(ap)
			if err != nil {
				return nil, fmt.Errorf("озвучка слайда %d: %w", s.ID, err)
			}
			s.Narration = clip
		}
	}
	return &f, nil
}
