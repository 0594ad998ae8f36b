// Package settings loads and saves engine configuration through viper,
// with live reload of the volume settings when the config file changes
// on disk.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all engine configuration
type Config struct {
	SampleRate  int               `mapstructure:"sample_rate"`
	MasterLevel int               `mapstructure:"master_level"`
	MusicLevel  int               `mapstructure:"music_level"`
	SFXLevel    int               `mapstructure:"sfx_level"`
	Muted       bool              `mapstructure:"muted"`
	AssetsPath  string            `mapstructure:"assets_path"`
	Preload     map[string]string `mapstructure:"preload"`
	FadeSeconds float64           `mapstructure:"fade_seconds"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SampleRate:  44100,
		MasterLevel: 100,
		MusicLevel:  80,
		SFXLevel:    80,
		Muted:       false,
		AssetsPath:  "./assets/audio",
		Preload:     map[string]string{},
		FadeSeconds: 2.0,
	}
}

// FadeDuration returns fade_seconds as a duration for fades and
// crossfades.
func (c *Config) FadeDuration() time.Duration {
	return time.Duration(c.FadeSeconds * float64(time.Second))
}

// Manager handles configuration loading, saving and change watching
type Manager struct {
	mu         sync.Mutex
	v          *viper.Viper
	configPath string
	log        *zap.Logger
}

// NewManager creates a configuration manager for the given file path
func NewManager(configPath string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	def := DefaultConfig()
	v.SetDefault("sample_rate", def.SampleRate)
	v.SetDefault("master_level", def.MasterLevel)
	v.SetDefault("music_level", def.MusicLevel)
	v.SetDefault("sfx_level", def.SFXLevel)
	v.SetDefault("muted", def.Muted)
	v.SetDefault("assets_path", def.AssetsPath)
	v.SetDefault("preload", def.Preload)
	v.SetDefault("fade_seconds", def.FadeSeconds)

	return &Manager{
		v:          v,
		configPath: configPath,
		log:        log,
	}
}

// Load reads the config file, writing the defaults out first if the
// file does not exist yet.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.log.Info("config file not found, using defaults",
			zap.String("path", m.configPath))
		return m.saveLocked()
	}
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	m.log.Info("loaded configuration", zap.String("path", m.configPath))
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := m.v.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	m.log.Info("saved configuration", zap.String("path", m.configPath))
	return nil
}

// Config returns the current configuration
func (m *Manager) Config() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := DefaultConfig()
	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Watch reloads the config whenever the file changes and hands the new
// configuration to fn. Parse failures on reload are logged and skipped.
func (m *Manager) Watch(fn func(*Config)) {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		m.log.Info("config file changed", zap.String("event", e.Name))
		cfg, err := m.Config()
		if err != nil {
			m.log.Warn("ignoring invalid config change", zap.Error(err))
			return
		}
		fn(cfg)
	})
	m.v.WatchConfig()
}
