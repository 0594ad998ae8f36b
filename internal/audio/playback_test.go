package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const tick = 100 * time.Millisecond

func loadDecoded(t *testing.T, m *Manager, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, m.LoadDirect(context.Background(), name, &fakeSource{data: []byte(name)}))
	}
}

func TestPlayRequiresSink(t *testing.T) {
	m := NewManager(nil)
	m.AttachEngine(&fakeEngine{})
	loadDecoded(t, m, "a")

	_, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestPlayUnknownAsset(t *testing.T) {
	m, _, _ := newTestManager()
	_, err := m.Play("missing", ChannelMusic, PlayOptions{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPlayUndecodedAsset(t *testing.T) {
	m, _, _ := newTestManager()
	require.NoError(t, m.Preload(context.Background(), "a", &fakeSource{data: []byte("one")}))

	_, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestPlayMasterChannelRejected(t *testing.T) {
	m, _, _ := newTestManager()
	loadDecoded(t, m, "a")

	_, err := m.Play("a", ChannelMaster, PlayOptions{})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestMusicStopsCurrentByDefault(t *testing.T) {
	m, _, sink := newTestManager()
	loadDecoded(t, m, "a", "b")

	first, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.NoError(t, err)
	_, err = m.Play("b", ChannelMusic, PlayOptions{})
	require.NoError(t, err)

	require.False(t, m.Playing(first))
	require.True(t, sink.voice(0).isClosed())
	require.True(t, sink.voice(1).IsPlaying())

	m.Cleanup()
}

func TestMusicKeepCurrent(t *testing.T) {
	m, _, _ := newTestManager()
	loadDecoded(t, m, "a", "b")

	first, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.NoError(t, err)
	second, err := m.Play("b", ChannelMusic, PlayOptions{KeepCurrent: true})
	require.NoError(t, err)

	require.True(t, m.Playing(first))
	require.True(t, m.Playing(second))

	m.Cleanup()
}

func TestSFXUnboundedConcurrency(t *testing.T) {
	m, _, _ := newTestManager()
	loadDecoded(t, m, "blip")

	var handles []*Handle
	for i := 0; i < 8; i++ {
		h, err := m.Play("blip", ChannelSFX, PlayOptions{})
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		require.True(t, m.Playing(h))
	}
	require.Equal(t, 8, m.Info().ActiveHandles)

	m.Cleanup()
}

func TestVolumeMultiplier(t *testing.T) {
	m, _, sink := newTestManager()
	loadDecoded(t, m, "a")

	_, err := m.Play("a", ChannelSFX, PlayOptions{VolumeMultiplier: 0.5})
	require.NoError(t, err)
	require.Equal(t, 0.5, sink.voice(0).currentVolume())

	// zero means unscaled
	_, err = m.Play("a", ChannelSFX, PlayOptions{})
	require.NoError(t, err)
	require.Equal(t, 1.0, sink.voice(1).currentVolume())

	m.Cleanup()
}

func TestFadeInRampsFromSilence(t *testing.T) {
	m, _, sink := newTestManager()
	loadDecoded(t, m, "a")

	_, err := m.Play("a", ChannelMusic, PlayOptions{FadeIn: 1 * time.Second})
	require.NoError(t, err)

	v := sink.voice(0)
	require.Zero(t, v.currentVolume())

	var prev float64
	for i := 0; i < 10; i++ {
		m.Update(tick)
		cur := v.currentVolume()
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	require.Equal(t, 1.0, v.currentVolume())

	m.Cleanup()
}

func TestStopWithFadeOut(t *testing.T) {
	m, _, sink := newTestManager()
	loadDecoded(t, m, "a")

	h, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.NoError(t, err)

	m.Stop(h, 500*time.Millisecond)
	v := sink.voice(0)
	require.True(t, v.IsPlaying())

	for i := 0; i < 5; i++ {
		m.Update(tick)
	}
	require.False(t, m.Playing(h))
	require.True(t, v.isClosed())
	require.Zero(t, m.Info().ActiveHandles)

	// stopping again is a no-op
	m.Stop(h, 0)
}

func TestStopAllByChannel(t *testing.T) {
	m, _, _ := newTestManager()
	loadDecoded(t, m, "a", "b")

	_, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.NoError(t, err)
	sfx, err := m.Play("b", ChannelSFX, PlayOptions{})
	require.NoError(t, err)

	m.StopAll(ChannelMusic)
	require.Equal(t, 1, m.Info().ActiveHandles)
	require.True(t, m.Playing(sfx))

	m.StopAll(ChannelMaster)
	require.Zero(t, m.Info().ActiveHandles)
}

func TestFinishedVoiceIsReaped(t *testing.T) {
	m, _, sink := newTestManager()
	loadDecoded(t, m, "a")

	_, err := m.Play("a", ChannelSFX, PlayOptions{})
	require.NoError(t, err)

	// simulate the one-shot running out on the device
	sink.voice(0).Pause()
	m.Update(tick)

	require.Zero(t, m.Info().ActiveHandles)
	require.True(t, sink.voice(0).isClosed())
}

func TestUnloadDoesNotCutOffLiveHandle(t *testing.T) {
	m, _, _ := newTestManager()
	loadDecoded(t, m, "a")

	h, err := m.Play("a", ChannelMusic, PlayOptions{Loop: true})
	require.NoError(t, err)

	require.NoError(t, m.Unload("a"))
	m.Update(tick)
	require.True(t, m.Playing(h))

	// but new playback of the unloaded name fails
	_, err = m.Play("a", ChannelMusic, PlayOptions{KeepCurrent: true})
	require.ErrorIs(t, err, ErrNotFound)

	m.Cleanup()
}

func TestTransitionCausality(t *testing.T) {
	m, _, _ := newTestManager()
	loadDecoded(t, m, "a")

	_, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.NoError(t, err)

	// the incoming track must be Decoded before any voice is created
	_, err = m.Transition("missing", 2*time.Second, TransitionOptions{})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Preload(context.Background(), "raw", &fakeSource{data: []byte("x")}))
	_, err = m.Transition("raw", 2*time.Second, TransitionOptions{})
	require.ErrorIs(t, err, ErrInvalidState)

	// the failed transition left the current track alone
	require.Equal(t, 1, m.Info().ActiveHandles)

	m.Cleanup()
}

func TestTransitionCrossfadesWithoutSilenceGap(t *testing.T) {
	m, _, sink := newTestManager()
	loadDecoded(t, m, "a", "b")

	_, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.NoError(t, err)

	in, err := m.Transition("b", 2*time.Second, TransitionOptions{})
	require.NoError(t, err)

	out, inVoice := sink.voice(0), sink.voice(1)

	// both voices audible immediately: no discontinuity at the boundary
	require.Equal(t, 1.0, out.currentVolume())
	require.True(t, inVoice.IsPlaying())

	for i := 0; i < 20; i++ {
		m.Update(tick)
		combined := out.currentVolume() + inVoice.currentVolume()
		require.Positive(t, combined, "combined gain dropped to zero at tick %d", i)
	}

	// crossfade complete: outgoing disposed, incoming at target gain
	require.True(t, out.isClosed())
	require.Equal(t, 1.0, inVoice.currentVolume())
	require.True(t, m.Playing(in))
	require.Equal(t, 1, m.Info().ActiveHandles)

	m.Cleanup()
}

func TestTransitionWithNoCurrentTrack(t *testing.T) {
	m, _, sink := newTestManager()
	loadDecoded(t, m, "a")

	h, err := m.Transition("a", 1*time.Second, TransitionOptions{})
	require.NoError(t, err)
	require.True(t, m.Playing(h))

	for i := 0; i < 10; i++ {
		m.Update(tick)
	}
	require.Equal(t, 1.0, sink.voice(0).currentVolume())

	m.Cleanup()
}

func TestTransitionZeroDurationSwitchesImmediately(t *testing.T) {
	m, _, sink := newTestManager()
	loadDecoded(t, m, "a", "b")

	_, err := m.Play("a", ChannelMusic, PlayOptions{})
	require.NoError(t, err)
	_, err = m.Transition("b", 0, TransitionOptions{})
	require.NoError(t, err)

	require.True(t, sink.voice(0).isClosed())
	require.Equal(t, 1.0, sink.voice(1).currentVolume())
	require.Equal(t, 1, m.Info().ActiveHandles)

	m.Cleanup()
}
