package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"markaudio/internal/audio"
	"markaudio/internal/engine"
	"markaudio/internal/fetch"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// play flags
	playChannel string
	playLoop    bool
	playVolume  float64
	playFade    time.Duration

	// Logger
	logger *zap.Logger
)

// trackDwell is how long each music track plays before the play
// command crossfades to the next locator
const trackDwell = 10 * time.Second

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "markaudio",
	Short: "markaudio - named-asset audio engine",
	Long: `markaudio manages named audio assets through a preload/decode
lifecycle and plays them on independent music and sfx channels under a
master/music/sfx volume hierarchy.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// playCmd loads one or more audio files and plays the first on the
// chosen channel until interrupted
var playCmd = &cobra.Command{
	Use:   "play [locator...]",
	Short: "Load audio and play it on a channel",
	Long: `Loads each locator (file path or URL) as a named asset and plays the
first one. Music playback keeps running until Ctrl-C; with extra music
locators, playback dwells on each track for a while and then crossfades
to the next one over the --fade duration (fade_seconds from the config
when --fade is not given).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

// preloadCmd fetches assets without decoding, then decodes them all
var preloadCmd = &cobra.Command{
	Use:   "preload [locator...]",
	Short: "Fetch assets, decode them in bulk and report per-item results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPreload,
}

// infoCmd prints the registry and mixer snapshot after loading the
// configured preload manifest
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print asset registry and volume levels as JSON",
	RunE:  runInfo,
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(configPath, logger)
	if err := eng.Init(ctx); err != nil {
		return err
	}

	cfg, err := eng.Settings().Config()
	if err != nil {
		return err
	}
	crossfade := playFade
	if crossfade <= 0 {
		crossfade = cfg.FadeDuration()
	}

	ch, ok := audio.ParseChannel(playChannel)
	if !ok || ch == audio.ChannelMaster {
		return fmt.Errorf("invalid playback channel %q", playChannel)
	}

	names := make([]string, 0, len(args))
	for _, locator := range args {
		name := assetName(locator)
		if err := eng.Audio().LoadDirect(ctx, name, fetch.Resolve(locator)); err != nil {
			return err
		}
		names = append(names, name)
	}

	handle, err := eng.Audio().Play(names[0], ch, audio.PlayOptions{
		Loop:             playLoop,
		VolumeMultiplier: playVolume,
		FadeIn:           playFade,
	})
	if err != nil {
		return err
	}
	logger.Info("playing", zap.String("asset", handle.Name()))

	// crossfade through the remaining tracks on the music channel
	if ch == audio.ChannelMusic && len(names) > 1 {
		go func() {
			for _, name := range names[1:] {
				select {
				case <-ctx.Done():
					return
				case <-time.After(trackDwell):
				}
				if _, err := eng.Audio().Transition(name, crossfade, audio.TransitionOptions{Loop: playLoop}); err != nil {
					logger.Warn("transition failed", zap.String("asset", name), zap.Error(err))
				}
			}
		}()
	}

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runPreload(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(configPath, logger)
	if err := eng.Init(ctx); err != nil {
		return err
	}
	defer eng.Cleanup()

	sources := make(map[string]audio.Source, len(args))
	for _, locator := range args {
		sources[assetName(locator)] = fetch.Resolve(locator)
	}
	results := eng.Audio().PreloadBatch(ctx, sources)
	for name, err := range results {
		if err != nil {
			fmt.Printf("preload %-30s FAILED: %v\n", name, err)
		}
	}

	all, decoded := eng.Audio().DecodeAll()
	for _, res := range decoded {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		fmt.Printf("decode  %-30s %s\n", res.Name, status)
	}
	if !all {
		return fmt.Errorf("some assets failed to decode")
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(configPath, logger)
	if err := eng.Init(ctx); err != nil {
		return err
	}
	defer eng.Cleanup()

	snap := eng.Audio().Info()
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// assetName derives a registry name from a locator
func assetName(locator string) string {
	base := filepath.Base(locator)
	ext := filepath.Ext(base)
	if ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return base
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config/markaudio.yaml", "path to config file")

	playCmd.Flags().StringVar(&playChannel, "channel", "music", "playback channel (music or sfx)")
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "loop playback")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1.0, "per-handle volume multiplier")
	playCmd.Flags().DurationVar(&playFade, "fade", 0, "fade-in and crossfade duration (config fade_seconds when unset)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(preloadCmd)
	rootCmd.AddCommand(infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
