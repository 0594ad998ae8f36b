package audio

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"
)

const (
	timeout      = 2 * time.Second
	pollInterval = 5 * time.Millisecond
)

// fakeSource serves canned bytes or a canned error
type fakeSource struct {
	data []byte
	err  error

	// blocks the fetch until released when non-nil
	gate chan struct{}
}

func (s *fakeSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return append([]byte(nil), s.data...), nil
}

// fakeEngine decodes anything except data starting with "BAD"
type fakeEngine struct {
	mu    sync.Mutex
	calls int

	// blocks the decode until released when non-nil
	gate chan struct{}
	// receives one signal per decode as it begins when non-nil
	entered chan struct{}
}

func (e *fakeEngine) Decode(data []byte) (*Buffer, error) {
	e.mu.Lock()
	e.calls++
	gate, entered := e.gate, e.entered
	e.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if bytes.HasPrefix(data, []byte("BAD")) {
		return nil, errors.New("not valid audio data")
	}
	return &Buffer{PCM: append([]byte(nil), data...), SampleRate: DefaultSampleRate}, nil
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *fakeEngine) setGate(gate, entered chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate, e.entered = gate, entered
}

// fakeSink hands out fakeVoices and remembers them in creation order
type fakeSink struct {
	mu     sync.Mutex
	voices []*fakeVoice
	err    error
}

func (s *fakeSink) NewVoice(buf *Buffer, loop bool) (Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	v := &fakeVoice{buf: buf, loop: loop}
	s.voices = append(s.voices, v)
	return v, nil
}

func (s *fakeSink) voice(i int) *fakeVoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voices[i]
}

// fakeVoice records every volume it was given
type fakeVoice struct {
	mu      sync.Mutex
	buf     *Buffer
	loop    bool
	playing bool
	closed  bool
	volume  float64
	volumes []float64
}

func (v *fakeVoice) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = true
}

func (v *fakeVoice) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = false
}

func (v *fakeVoice) SetVolume(gain float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.volume = gain
	v.volumes = append(v.volumes, gain)
}

func (v *fakeVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *fakeVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

func (v *fakeVoice) currentVolume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

func (v *fakeVoice) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
