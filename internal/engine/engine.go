// Package engine wires the settings and audio subsystems together and
// drives the per-tick update loop that advances fades and gains.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"markaudio/internal/audio"
	"markaudio/internal/audio/ebitenaudio"
	"markaudio/internal/fetch"
	"markaudio/internal/settings"
)

// tickInterval is the gain update granularity
const tickInterval = 10 * time.Millisecond

// Engine owns the audio manager and its collaborators
type Engine struct {
	settings *settings.Manager
	audio    *audio.Manager
	log      *zap.Logger

	initialized bool
}

// New creates an engine reading configuration from configPath
func New(configPath string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		settings: settings.NewManager(configPath, log),
		log:      log,
	}
}

// Init initializes all subsystems with the production collaborators:
// the ebiten decode engine and output sink.
func (e *Engine) Init(ctx context.Context) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	sampleRate := cfg.SampleRate
	return e.initWith(ctx, cfg, ebitenaudio.NewEngine(sampleRate), ebitenaudio.NewSink(sampleRate))
}

// InitWith initializes the subsystems with caller-provided collaborators
func (e *Engine) InitWith(ctx context.Context, dec audio.Engine, sink audio.Sink) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	return e.initWith(ctx, cfg, dec, sink)
}

func (e *Engine) loadConfig() (*settings.Config, error) {
	if err := e.settings.Load(); err != nil {
		e.log.Warn("failed to load settings", zap.Error(err))
	}
	cfg, err := e.settings.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return cfg, nil
}

func (e *Engine) initWith(ctx context.Context, cfg *settings.Config, dec audio.Engine, sink audio.Sink) error {
	e.audio = audio.NewManager(e.log)
	e.audio.AttachEngine(dec)
	e.audio.AttachSink(sink)
	e.applyVolumes(cfg)

	// preload manifest failures are warnings, not fatal
	for name, locator := range cfg.Preload {
		resolved := resolveLocator(cfg.AssetsPath, locator)
		if err := e.audio.LoadDirect(ctx, name, fetch.Resolve(resolved)); err != nil {
			e.log.Warn("failed to preload asset",
				zap.String("name", name),
				zap.String("locator", resolved),
				zap.Error(err))
		}
	}

	e.settings.Watch(func(cfg *settings.Config) {
		e.applyVolumes(cfg)
	})

	e.initialized = true
	e.log.Info("audio engine initialized", zap.Int("sample_rate", cfg.SampleRate))
	return nil
}

// resolveLocator joins bare file names from the preload manifest onto
// the configured assets directory. URLs and explicit paths pass through.
func resolveLocator(assetsPath, locator string) string {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return locator
	}
	if filepath.IsAbs(locator) || strings.ContainsAny(locator, `/\`) {
		return locator
	}
	return filepath.Join(assetsPath, locator)
}

// applyVolumes pushes configured channel levels into the mixer
func (e *Engine) applyVolumes(cfg *settings.Config) {
	for ch, level := range map[audio.Channel]int{
		audio.ChannelMaster: cfg.MasterLevel,
		audio.ChannelMusic:  cfg.MusicLevel,
		audio.ChannelSFX:    cfg.SFXLevel,
	} {
		if err := e.audio.SetLevel(ch, level); err != nil {
			e.log.Warn("ignoring configured level",
				zap.String("channel", ch.String()),
				zap.Error(err))
		}
	}
	e.audio.SetMuted(cfg.Muted)
}

// Run drives Update ticks until the context is canceled, then cleans up
func (e *Engine) Run(ctx context.Context) error {
	if !e.initialized {
		return fmt.Errorf("engine not initialized")
	}
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.Cleanup()
			return ctx.Err()
		case now := <-ticker.C:
			e.audio.Update(now.Sub(last))
			last = now
		}
	}
}

// Audio returns the audio manager
func (e *Engine) Audio() *audio.Manager {
	return e.audio
}

// Settings returns the settings manager
func (e *Engine) Settings() *settings.Manager {
	return e.settings
}

// Cleanup releases all audio resources
func (e *Engine) Cleanup() {
	if e.audio != nil {
		e.audio.Cleanup()
	}
	e.log.Info("engine shut down")
}
