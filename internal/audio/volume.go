package audio

import (
	"fmt"

	"go.uber.org/zap"
)

// SetLevel stores a channel level in [0,100] and pushes the resulting
// gain to every live voice immediately.
func (m *Manager) SetLevel(ch Channel, level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("%w: level %d not in [0,100]", ErrOutOfRange, level)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch ch {
	case ChannelMaster:
		m.masterLevel = level
	case ChannelMusic:
		m.musicLevel = level
	case ChannelSFX:
		m.sfxLevel = level
	default:
		return fmt.Errorf("%w: unknown channel %d", ErrOutOfRange, int(ch))
	}
	m.applyGainsLocked()

	m.log.Info("channel level set",
		zap.String("channel", ch.String()),
		zap.Int("level", level))
	return nil
}

// Level returns the stored level of a channel
func (m *Manager) Level(ch Channel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ch {
	case ChannelMaster:
		return m.masterLevel
	case ChannelMusic:
		return m.musicLevel
	case ChannelSFX:
		return m.sfxLevel
	default:
		return 0
	}
}

// EffectiveGain computes the fraction actually applied to output for a
// channel: level/100 for master, (level/100)*(master/100) for music and
// sfx. Always recomputed from the stored levels, never cached, so a
// master change reaches every live voice on the next tick.
func (m *Manager) EffectiveGain(ch Channel) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.effectiveGainLocked(ch)
}

func (m *Manager) effectiveGainLocked(ch Channel) float64 {
	master := float64(m.masterLevel) / 100
	switch ch {
	case ChannelMaster:
		return master
	case ChannelMusic:
		return float64(m.musicLevel) / 100 * master
	case ChannelSFX:
		return float64(m.sfxLevel) / 100 * master
	default:
		return 0
	}
}

// SetMuted forces applied gain to zero without touching the stored
// levels; unmuting restores them on the spot.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.muted = muted
	m.applyGainsLocked()

	if muted {
		m.log.Info("audio muted")
	} else {
		m.log.Info("audio unmuted")
	}
}

// Muted returns the current mute state
func (m *Manager) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// applyGainsLocked re-applies the current gain to every live voice
func (m *Manager) applyGainsLocked() {
	for _, h := range m.handles {
		h.voice.SetVolume(m.gainForLocked(h))
	}
}
