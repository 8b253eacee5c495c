package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Формат озвучки фиксирован контрактом сервиса синтеза речи:
// raw PCM s16le, моно, 24 кГц.
const (
	SampleRate    = 24000
	Channels      = 1
	BytesPerFrame = 2 // s16le * 1 канал
)

// Clip — декодированная озвучка одного слайда: буфер сэмплов и длительность.
type Clip struct {
	PCM []byte
}

// NewClip wraps raw PCM bytes. A trailing odd byte is dropped so the
// buffer always holds whole frames.
func NewClip(pcm []byte) *Clip {
	if len(pcm)%BytesPerFrame != 0 {
		pcm = pcm[:len(pcm)-len(pcm)%BytesPerFrame]
	}
	return &Clip{PCM: pcm}
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil {
		return 0
	}
	return float64(len(c.PCM)) / float64(SampleRate*BytesPerFrame)
}

// LoadClip reads a raw s16le/24kHz/mono file.
func LoadClip(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("пустой аудиофайл %s", path)
	}
	return NewClip(data), nil
}

// Track собирает звуковую дорожку экспорта: озвучка каждого слайда
// дополняется тишиной до полной длительности слайда.
type Track struct {
	pcm []byte
}

func NewTrack() *Track {
	return &Track{}
}

// frames converts seconds to a whole frame count.
func frames(seconds float64) int {
	n := int(seconds * SampleRate)
	if n < 0 {
		n = 0
	}
	return n
}

// AppendClip writes clip audio padded (or truncated) to slideDuration seconds.
// A nil clip produces pure silence for the whole slide.
func (t *Track) AppendClip(c *Clip, slideDuration float64) {
	want := frames(slideDuration) * BytesPerFrame
	var pcm []byte
	if c != nil {
		pcm = c.PCM
	}
	if len(pcm) > want {
		pcm = pcm[:want]
	}
	t.pcm = append(t.pcm, pcm...)
	if pad := want - len(pcm); pad > 0 {
		t.pcm = append(t.pcm, make([]byte, pad)...)
	}
}

// Duration returns the assembled track length in seconds.
func (t *Track) Duration() float64 {
	return float64(len(t.pcm)) / float64(SampleRate*BytesPerFrame)
}

// WriteWAV writes the track as a PCM WAV stream.
func (t *Track) WriteWAV(w io.Writer) error {
	dataLen := uint32(len(t.pcm))
	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataLen)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], Channels)
	binary.LittleEndian.PutUint32(hdr[24:28], SampleRate)
	binary.LittleEndian.PutUint32(hdr[28:32], SampleRate*Channels*BytesPerFrame)
	binary.LittleEndian.PutUint16(hdr[32:34], Channels*BytesPerFrame)
	binary.LittleEndian.PutUint16(hdr[34:36], 16)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataLen)

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(t.pcm)
	return err
}

// SaveWAV writes the track to a file.
func (t *Track) SaveWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteWAV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
