package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestClipDuration(t *testing.T) {
	// 24000 frames/s * 2 bytes/frame: 48000 bytes = 1 second.
	c := NewClip(make([]byte, 48000))
	if d := c.Duration(); d != 1.0 {
		t.Errorf("duration %f, want 1.0", d)
	}

	var nilClip *Clip
	if nilClip.Duration() != 0 {
		t.Error("nil clip must report zero duration")
	}
}

func TestNewClipDropsOddByte(t *testing.T) {
	c := NewClip(make([]byte, 5))
	if len(c.PCM) != 4 {
		t.Errorf("expected trailing byte dropped, got %d bytes", len(c.PCM))
	}
}

func TestTrackPadding(t *testing.T) {
	tr := NewTrack()

	// Half-second clip padded to 1 second.
	tr.AppendClip(NewClip(make([]byte, 24000)), 1.0)
	if d := tr.Duration(); d != 1.0 {
		t.Errorf("after padded clip: duration %f, want 1.0", d)
	}

	// Nil clip is pure silence.
	tr.AppendClip(nil, 2.0)
	if d := tr.Duration(); d != 3.0 {
		t.Errorf("after silence: duration %f, want 3.0", d)
	}

	// Longer clip truncated to the slide duration.
	tr.AppendClip(NewClip(make([]byte, 96000)), 1.0)
	if d := tr.Duration(); d != 4.0 {
		t.Errorf("after truncated clip: duration %f, want 4.0", d)
	}
}

func TestWriteWAVHeader(t *testing.T) {
	pcm := make([]byte, 48000)
	pcm[0], pcm[1] = 0x12, 0x34

	tr := NewTrack()
	tr.AppendClip(NewClip(pcm), 1.0)

	var buf bytes.Buffer
	if err := tr.WriteWAV(&buf); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != 44+48000 {
		t.Fatalf("wav length %d, want %d", len(b), 44+48000)
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if rate := binary.LittleEndian.Uint32(b[24:28]); rate != SampleRate {
		t.Errorf("sample rate %d, want %d", rate, SampleRate)
	}
	if ch := binary.LittleEndian.Uint16(b[22:24]); ch != Channels {
		t.Errorf("channels %d, want %d", ch, Channels)
	}
	if bits := binary.LittleEndian.Uint16(b[34:36]); bits != 16 {
		t.Errorf("bits %d, want 16", bits)
	}
	if dl := binary.LittleEndian.Uint32(b[40:44]); dl != 48000 {
		t.Errorf("data length %d, want 48000", dl)
	}
	if !bytes.Equal(b[44:46], []byte{0x12, 0x34}) {
		t.Error("payload mismatch")
	}
}
