package audio

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// asset is one registry entry. A freshly reserved entry (fetch still in
// flight) sits in StateUnloaded; raw is held only in StateRawLoaded and
// buf only in StateDecoded.
type asset struct {
	name  string
	state State
	raw   []byte
	buf   *Buffer

	// decoding marks a claim held while the engine runs unlocked.
	decoding bool
}

// Manager owns the asset registry, the three volume channels and all
// live playback handles. All exported methods are safe for concurrent
// use; fetches run outside the registry lock so a slow preload of one
// asset never blocks operations on another.
type Manager struct {
	mu     sync.Mutex
	assets map[string]*asset
	order  []string

	masterLevel int
	musicLevel  int
	sfxLevel    int
	muted       bool

	engine Engine
	sink   Sink

	handles  map[string]*Handle
	music    *Handle // current music track, at most one
	outgoing *Handle // music track fading out during a transition

	log *zap.Logger
}

// NewManager creates a manager with all channels at full level and no
// decode engine or output sink attached yet.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		assets:      make(map[string]*asset),
		handles:     make(map[string]*Handle),
		masterLevel: 100,
		musicLevel:  100,
		sfxLevel:    100,
		log:         log,
	}
}

// AttachEngine makes a decode engine available. Until this is called
// every decode attempt fails with ErrInvalidState.
func (m *Manager) AttachEngine(e Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine = e
	m.log.Info("decode engine attached")
}

// AttachSink makes an output sink available. Until this is called every
// play attempt fails with ErrInvalidState.
func (m *Manager) AttachSink(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = s
	m.log.Info("output sink attached")
}

// Update advances fades and re-applies channel gains to every live
// voice. Called once per tick by the engine loop; dt is the elapsed
// time since the previous call.
func (m *Manager) Update(dt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range m.handles {
		if h.fading {
			h.fadeElapsed += dt
			t := 1.0
			if h.fadeDur > 0 && h.fadeElapsed < h.fadeDur {
				t = float64(h.fadeElapsed) / float64(h.fadeDur)
			}
			h.level = h.fadeFrom + (h.fadeTo-h.fadeFrom)*t
			if t >= 1.0 {
				h.fading = false
				if h.stopOnFadeEnd {
					m.stopLocked(h)
					continue
				}
			}
		} else if !h.voice.IsPlaying() {
			// non-looping playback ran out
			m.stopLocked(h)
			continue
		}
		h.voice.SetVolume(m.gainForLocked(h))
	}
}

// Cleanup stops all playback and drops every asset
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range m.handles {
		m.stopLocked(h)
	}
	for _, a := range m.assets {
		a.raw = nil
		a.buf = nil
	}
	m.assets = make(map[string]*asset)
	m.order = nil

	m.log.Info("audio manager cleaned up")
}

// Info returns a snapshot of the registry, channel levels and live
// handle count for debugging and the CLI info command.
func (m *Manager) Info() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Levels: map[string]int{
			ChannelMaster.String(): m.masterLevel,
			ChannelMusic.String():  m.musicLevel,
			ChannelSFX.String():    m.sfxLevel,
		},
		Muted:         m.muted,
		ActiveHandles: len(m.handles),
	}
	for _, name := range m.order {
		a := m.assets[name]
		info := AssetInfo{
			Name:     a.name,
			State:    a.state.String(),
			RawBytes: len(a.raw),
		}
		if a.buf != nil {
			info.DecodedBytes = len(a.buf.PCM)
		}
		snap.MemoryUsage += info.RawBytes + info.DecodedBytes
		snap.Assets = append(snap.Assets, info)
	}
	return snap
}

// AssetState reports the state of a registered asset
func (m *Manager) AssetState(name string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[name]
	if !ok {
		return StateUnloaded, false
	}
	return a.state, true
}

// MemoryUsage returns the total bytes held by raw and decoded buffers
func (m *Manager) MemoryUsage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int
	for _, a := range m.assets {
		total += len(a.raw)
		if a.buf != nil {
			total += len(a.buf.PCM)
		}
	}
	return total
}
