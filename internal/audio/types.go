package audio

import (
	"context"
	"time"
)

// Audio constants
const (
	DefaultSampleRate = 44100
)

// State tracks how far an asset has progressed through the load pipeline.
// Transitions are forward-only: an asset never regresses from Decoded.
type State int

const (
	// StateUnloaded marks a reserved registry slot whose fetch has not
	// completed yet. Unregistered names have no state at all.
	StateUnloaded State = iota
	StateRawLoaded
	StateDecoded
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateRawLoaded:
		return "raw"
	case StateDecoded:
		return "decoded"
	default:
		return "unknown"
	}
}

// Channel identifies one of the volume controls
type Channel int

const (
	ChannelMaster Channel = iota
	ChannelMusic
	ChannelSFX
)

// String returns the channel name
func (c Channel) String() string {
	switch c {
	case ChannelMaster:
		return "master"
	case ChannelMusic:
		return "music"
	case ChannelSFX:
		return "sfx"
	default:
		return "unknown"
	}
}

// ParseChannel converts a channel name into a Channel
func ParseChannel(name string) (Channel, bool) {
	switch name {
	case "master":
		return ChannelMaster, true
	case "music", "bgm":
		return ChannelMusic, true
	case "sfx", "se", "sound":
		return ChannelSFX, true
	default:
		return ChannelMaster, false
	}
}

// Buffer holds decoded audio ready for playback: 16-bit little-endian
// stereo PCM. Immutable once an asset reaches Decoded.
type Buffer struct {
	PCM        []byte
	SampleRate int
}

// Source provides raw audio bytes for a locator (file, URL, in-memory).
// Implementations live in internal/fetch.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Engine decodes raw audio bytes into a playable buffer.
type Engine interface {
	Decode(data []byte) (*Buffer, error)
}

// Voice is one live stream on the output device. SetVolume applies
// immediately to currently audible output.
type Voice interface {
	Play()
	Pause()
	SetVolume(gain float64)
	IsPlaying() bool
	Close() error
}

// Sink turns decoded buffers into voices on the output device.
type Sink interface {
	NewVoice(buf *Buffer, loop bool) (Voice, error)
}

// PlayOptions configures a single playback
type PlayOptions struct {
	Loop bool

	// VolumeMultiplier scales the channel's effective gain for this
	// handle only. Values <= 0 are treated as 1.
	VolumeMultiplier float64

	// FadeIn ramps the handle's gain linearly from silence
	FadeIn time.Duration

	// KeepCurrent suppresses the music channel's stop-current-track
	// policy. Ignored on the SFX channel.
	KeepCurrent bool
}

// TransitionOptions configures a crossfade to a new music track
type TransitionOptions struct {
	Loop             bool
	VolumeMultiplier float64
}

// DecodeResult reports the outcome of decoding one asset during DecodeAll
type DecodeResult struct {
	Name string
	Err  error
}

// AssetInfo describes one registered asset for introspection
type AssetInfo struct {
	Name         string `json:"name"`
	State        string `json:"state"`
	RawBytes     int    `json:"raw_bytes"`
	DecodedBytes int    `json:"decoded_bytes"`
}

// Snapshot describes the whole manager state for introspection
type Snapshot struct {
	Assets        []AssetInfo    `json:"assets"`
	Levels        map[string]int `json:"levels"`
	Muted         bool           `json:"muted"`
	ActiveHandles int            `json:"active_handles"`
	MemoryUsage   int            `json:"memory_usage"`
}
