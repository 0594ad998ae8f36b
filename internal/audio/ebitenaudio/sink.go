package ebitenaudio

import (
	"bytes"
	"fmt"
	"io"

	eaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"markaudio/internal/audio"
)

// Sink plays decoded buffers through an ebiten audio context. A process
// can hold only one context, so create a single Sink per process.
type Sink struct {
	ctx *eaudio.Context
}

// NewSink creates the output device at the given sample rate
func NewSink(sampleRate int) *Sink {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &Sink{ctx: eaudio.NewContext(sampleRate)}
}

// NewVoice builds a player over the buffer's PCM. Looping voices wrap
// the buffer in an infinite loop stream.
func (s *Sink) NewVoice(buf *audio.Buffer, loop bool) (audio.Voice, error) {
	if buf == nil {
		return nil, fmt.Errorf("nil buffer")
	}
	var src io.Reader = bytes.NewReader(buf.PCM)
	if loop {
		src = eaudio.NewInfiniteLoop(bytes.NewReader(buf.PCM), int64(len(buf.PCM)))
	}
	p, err := s.ctx.NewPlayer(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return &voice{p: p}, nil
}

// voice adapts an ebiten player to the Voice interface
type voice struct {
	p *eaudio.Player
}

func (v *voice) Play()  { v.p.Play() }
func (v *voice) Pause() { v.p.Pause() }

// SetVolume clamps to [0,1]; ebiten players reject values outside it
func (v *voice) SetVolume(gain float64) {
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}
	v.p.SetVolume(gain)
}

func (v *voice) IsPlaying() bool { return v.p.IsPlaying() }
func (v *voice) Close() error    { return v.p.Close() }
