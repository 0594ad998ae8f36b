package audio

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handle is one live playback of a decoded asset. It keeps its own
// reference to the decoded buffer, so unloading the asset does not cut
// off playback already in flight. All mutation happens under the
// manager lock.
type Handle struct {
	id      string
	name    string
	channel Channel
	voice   Voice

	multiplier float64

	// fade state: level is the current fade factor in [0,1]
	level         float64
	fading        bool
	fadeFrom      float64
	fadeTo        float64
	fadeElapsed   time.Duration
	fadeDur       time.Duration
	stopOnFadeEnd bool

	done bool
}

// ID returns the handle's unique id
func (h *Handle) ID() string { return h.id }

// Name returns the asset name the handle was started from
func (h *Handle) Name() string { return h.name }

// Channel returns the channel the handle plays on
func (h *Handle) Channel() Channel { return h.channel }

// Play starts a decoded asset on the music or sfx channel. The handle's
// gain stage starts at EffectiveGain(channel) times the per-handle
// multiplier. The music channel stops the current track by default;
// SFX handles are unbounded.
func (m *Manager) Play(name string, ch Channel, opts PlayOptions) (*Handle, error) {
	if ch != ChannelMusic && ch != ChannelSFX {
		return nil, fmt.Errorf("%w: cannot play on channel %s", ErrOutOfRange, ch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sink == nil {
		return nil, fmt.Errorf("%w: playback engine not initialized", ErrInvalidState)
	}
	a, ok := m.assets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if a.state != StateDecoded {
		return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrInvalidState, name, a.state, StateDecoded)
	}

	if ch == ChannelMusic && !opts.KeepCurrent && m.music != nil {
		m.stopLocked(m.music)
	}

	h, err := m.startLocked(a, ch, opts.Loop, opts.VolumeMultiplier)
	if err != nil {
		return nil, err
	}
	if opts.FadeIn > 0 {
		h.level = 0
		h.fading = true
		h.fadeFrom = 0
		h.fadeTo = 1
		h.fadeDur = opts.FadeIn
	}
	h.voice.SetVolume(m.gainForLocked(h))
	h.voice.Play()

	m.handles[h.id] = h
	if ch == ChannelMusic {
		m.music = h
	}

	m.log.Info("playback started",
		zap.String("name", name),
		zap.String("channel", ch.String()),
		zap.String("handle", h.id),
		zap.Bool("loop", opts.Loop))
	return h, nil
}

// Transition crossfades the music channel to a new decoded asset: the
// outgoing track ramps linearly to silence and is disposed, the
// incoming one ramps from silence to its target over the same window.
// The two ramps overlap, so combined gain never drops to zero
// mid-transition, and the incoming voice is only created here, after
// its asset is already Decoded.
func (m *Manager) Transition(name string, duration time.Duration, opts TransitionOptions) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sink == nil {
		return nil, fmt.Errorf("%w: playback engine not initialized", ErrInvalidState)
	}
	a, ok := m.assets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if a.state != StateDecoded {
		return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrInvalidState, name, a.state, StateDecoded)
	}

	if duration <= 0 {
		// degenerate crossfade: plain track switch
		if m.music != nil {
			m.stopLocked(m.music)
		}
	}

	h, err := m.startLocked(a, ChannelMusic, opts.Loop, opts.VolumeMultiplier)
	if err != nil {
		return nil, err
	}
	if duration > 0 {
		h.level = 0
		h.fading = true
		h.fadeFrom = 0
		h.fadeTo = 1
		h.fadeDur = duration

		if out := m.music; out != nil {
			out.fading = true
			out.fadeFrom = out.level
			out.fadeTo = 0
			out.fadeElapsed = 0
			out.fadeDur = duration
			out.stopOnFadeEnd = true
			m.outgoing = out
		}
	}
	h.voice.SetVolume(m.gainForLocked(h))
	h.voice.Play()

	m.handles[h.id] = h
	m.music = h

	m.log.Info("music transition",
		zap.String("name", name),
		zap.Duration("duration", duration),
		zap.String("handle", h.id))
	return h, nil
}

// Stop ends a handle, optionally fading it out first. Stopping an
// already finished handle is a no-op.
func (m *Manager) Stop(h *Handle, fadeOut time.Duration) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.done {
		return
	}
	if fadeOut > 0 {
		h.fading = true
		h.fadeFrom = h.level
		h.fadeTo = 0
		h.fadeElapsed = 0
		h.fadeDur = fadeOut
		h.stopOnFadeEnd = true
		return
	}
	m.stopLocked(h)
}

// StopAll stops every handle on a channel; ChannelMaster stops all
func (m *Manager) StopAll(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		if ch == ChannelMaster || h.channel == ch {
			m.stopLocked(h)
		}
	}
}

// Playing reports whether the handle still produces output
func (m *Manager) Playing(h *Handle) bool {
	if h == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !h.done && h.voice.IsPlaying()
}

// startLocked builds a handle and its voice without starting playback
func (m *Manager) startLocked(a *asset, ch Channel, loop bool, multiplier float64) (*Handle, error) {
	if multiplier <= 0 {
		multiplier = 1
	}
	voice, err := m.sink.NewVoice(a.buf, loop)
	if err != nil {
		return nil, fmt.Errorf("create voice for %s: %w", a.name, err)
	}
	return &Handle{
		id:         uuid.NewString(),
		name:       a.name,
		channel:    ch,
		voice:      voice,
		multiplier: multiplier,
		level:      1,
	}, nil
}

// stopLocked closes the voice and forgets the handle
func (m *Manager) stopLocked(h *Handle) {
	if h.done {
		return
	}
	h.voice.Pause()
	if err := h.voice.Close(); err != nil {
		m.log.Warn("failed to close voice",
			zap.String("handle", h.id),
			zap.Error(err))
	}
	h.done = true
	delete(m.handles, h.id)
	if m.music == h {
		m.music = nil
	}
	if m.outgoing == h {
		m.outgoing = nil
	}
}

// gainForLocked recomputes a handle's applied gain from scratch:
// channel effective gain times the per-handle multiplier times the
// current fade factor, floored to zero while muted.
func (m *Manager) gainForLocked(h *Handle) float64 {
	if m.muted {
		return 0
	}
	return m.effectiveGainLocked(h.channel) * h.multiplier * h.level
}
