// Package config loads kaiplay settings from an optional YAML file, a .env
// file and KAIPLAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ayusman/kaiplay/internal/capture"
	"github.com/ayusman/kaiplay/internal/detector"
	"github.com/ayusman/kaiplay/internal/game"
	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/interaction"
	"github.com/ayusman/kaiplay/internal/narration"
	"github.com/ayusman/kaiplay/internal/render"
)

// EnvPrefix prefixes every environment override, e.g. KAIPLAY_SERVER_ADDR.
const EnvPrefix = "KAIPLAY"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Camera      CameraConfig      `mapstructure:"camera"`
	Detector    DetectorConfig    `mapstructure:"detector"`
	Gesture     GestureConfig     `mapstructure:"gesture"`
	Interaction InteractionConfig `mapstructure:"interaction"`
	Games       GamesConfig       `mapstructure:"games"`
	Session     SessionConfig     `mapstructure:"session"`
	Render      RenderConfig      `mapstructure:"render"`
	Store       StoreConfig       `mapstructure:"store"`
	Words       WordsConfig       `mapstructure:"words"`
	Plugins     PluginsConfig     `mapstructure:"plugins"`
	Narration   NarrationConfig   `mapstructure:"narration"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type CameraConfig struct {
	Device int     `mapstructure:"device" validate:"gte=0"`
	Width  int     `mapstructure:"width" validate:"gt=0"`
	Height int     `mapstructure:"height" validate:"gt=0"`
	FPS    int     `mapstructure:"fps" validate:"gte=1,lte=120"`
	Mirror bool    `mapstructure:"mirror"`
	Blend  float64 `mapstructure:"blend" validate:"gte=0,lte=1"`
}

type DetectorConfig struct {
	Script          string  `mapstructure:"script"`
	MaxHands        int     `mapstructure:"max_hands" validate:"gte=1,lte=2"`
	MinConfidence   float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	MinTrackingConf float64 `mapstructure:"min_tracking" validate:"gte=0,lte=1"`
}

type GestureConfig struct {
	SmoothingWindow int     `mapstructure:"smoothing_window" validate:"gte=1"`
	AbsentFrames    int     `mapstructure:"absent_frames" validate:"gte=1"`
	VoteHistory     int     `mapstructure:"vote_history" validate:"gte=1"`
	StableFrames    int     `mapstructure:"stable_frames" validate:"gte=1"`
	PinchPixels     float64 `mapstructure:"pinch_pixels" validate:"gte=0"`
	PinchRatio      float64 `mapstructure:"pinch_ratio" validate:"gt=0,lt=1"`
	FistCompactness float64 `mapstructure:"fist_compactness" validate:"gte=0"`
	EdgeMargin      float64 `mapstructure:"edge_margin" validate:"gte=0,lt=0.5"`
}

type InteractionConfig struct {
	LostPolicy     string  `mapstructure:"lost_policy" validate:"oneof=hold cancel"`
	GrabConfidence float64 `mapstructure:"grab_confidence" validate:"gte=0,lte=1"`
	DwellFrames    int     `mapstructure:"dwell_frames" validate:"gte=1"`
	SnapRadius     float64 `mapstructure:"snap_radius" validate:"gt=0"`
	LostGrace      int     `mapstructure:"lost_grace" validate:"gte=1"`
	ReleaseFrames  int     `mapstructure:"release_frames" validate:"gte=1"`
	Reward         int     `mapstructure:"reward" validate:"gte=1"`
}

type GamesConfig struct {
	WordMatch   WordMatchConfig   `mapstructure:"wordmatch"`
	Fingers     FingersConfig     `mapstructure:"fingers"`
	Colors      ColorsConfig      `mapstructure:"colors"`
	Elimination EliminationConfig `mapstructure:"elimination"`
}

type WordMatchConfig struct {
	Mode  string `mapstructure:"mode" validate:"oneof=latched legacy"`
	Pairs int    `mapstructure:"pairs" validate:"gte=1,lte=4"`
}

type FingersConfig struct {
	StableFrames int `mapstructure:"stable_frames" validate:"gte=1"`
	Milestone    int `mapstructure:"milestone" validate:"gte=1"`
	Goal         int `mapstructure:"goal" validate:"gte=1"`
}

type ColorsConfig struct {
	StableFrames int `mapstructure:"stable_frames" validate:"gte=1"`
	SampleRadius int `mapstructure:"sample_radius" validate:"gte=1"`
	Goal         int `mapstructure:"goal" validate:"gte=1"`
}

type EliminationConfig struct {
	Count     int     `mapstructure:"count" validate:"gte=1,lte=50"`
	HitRadius float64 `mapstructure:"hit_radius" validate:"gt=0"`
	MaxStep   float64 `mapstructure:"max_step" validate:"gte=0"`
}

type SessionConfig struct {
	FrameDelay       time.Duration `mapstructure:"frame_delay" validate:"gte=0"`
	CompletionLinger time.Duration `mapstructure:"completion_linger" validate:"gte=0"`
	MaxDetectErrors  int           `mapstructure:"max_detect_errors" validate:"gte=1"`
}

type RenderConfig struct {
	FontFile    string  `mapstructure:"font_file"`
	FontSize    float64 `mapstructure:"font_size" validate:"gt=0"`
	JPEGQuality int     `mapstructure:"jpeg_quality" validate:"gte=1,lte=100"`
	Landmarks   bool    `mapstructure:"landmarks"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type WordsConfig struct {
	// File is an optional JSON word bank merged over the built-in words.
	File string `mapstructure:"file"`
}

type PluginsConfig struct {
	Dir       string `mapstructure:"dir"`
	TimeoutMs int    `mapstructure:"timeout_ms" validate:"gte=100"`
}

type NarrationConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	QueueSize int     `mapstructure:"queue_size" validate:"gte=1"`
	PerSecond float64 `mapstructure:"per_second" validate:"gte=0"`
	Lang      string  `mapstructure:"lang"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	File  string `mapstructure:"file"`
}

// DataDir is where kaiplay keeps its database and plugins by default.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kaiplay"
	}
	return filepath.Join(home, ".kaiplay")
}

func setDefaults(v *viper.Viper) {
	cam := capture.DefaultConfig()
	filter := capture.DefaultFilterOptions()
	det := detector.DefaultConfig()
	ges := gesture.DefaultConfig()
	in := interaction.DefaultConfig()
	games := game.DefaultConfig()
	narr := narration.DefaultConfig()
	rend := render.DefaultOptions()

	v.SetDefault("server.addr", "127.0.0.1:8765")

	v.SetDefault("camera.device", cam.Device)
	v.SetDefault("camera.width", cam.Width)
	v.SetDefault("camera.height", cam.Height)
	v.SetDefault("camera.fps", cam.FPS)
	v.SetDefault("camera.mirror", filter.Mirror)
	v.SetDefault("camera.blend", filter.Blend)

	v.SetDefault("detector.script", "")
	v.SetDefault("detector.max_hands", det.MaxHands)
	v.SetDefault("detector.min_confidence", det.MinConfidence)
	v.SetDefault("detector.min_tracking", det.MinTrackingConf)

	v.SetDefault("gesture.smoothing_window", ges.SmoothingWindow)
	v.SetDefault("gesture.absent_frames", ges.AbsentFrames)
	v.SetDefault("gesture.vote_history", ges.VoteHistory)
	v.SetDefault("gesture.stable_frames", ges.StableFrames)
	v.SetDefault("gesture.pinch_pixels", ges.PinchPixels)
	v.SetDefault("gesture.pinch_ratio", ges.PinchRatio)
	v.SetDefault("gesture.fist_compactness", ges.FistCompactness)
	v.SetDefault("gesture.edge_margin", ges.EdgeMargin)

	v.SetDefault("interaction.lost_policy", string(in.LostPolicy))
	v.SetDefault("interaction.grab_confidence", in.GrabConfidence)
	v.SetDefault("interaction.dwell_frames", in.DwellFrames)
	v.SetDefault("interaction.snap_radius", in.SnapRadius)
	v.SetDefault("interaction.lost_grace", in.LostGrace)
	v.SetDefault("interaction.release_frames", in.ReleaseFrames)
	v.SetDefault("interaction.reward", in.Reward)

	v.SetDefault("games.wordmatch.mode", string(games.WordMatch.Mode))
	v.SetDefault("games.wordmatch.pairs", games.WordMatch.Pairs)
	v.SetDefault("games.fingers.stable_frames", games.Fingers.StableFrames)
	v.SetDefault("games.fingers.milestone", games.Fingers.Milestone)
	v.SetDefault("games.fingers.goal", games.Fingers.Goal)
	v.SetDefault("games.colors.stable_frames", games.Colors.StableFrames)
	v.SetDefault("games.colors.sample_radius", games.Colors.SampleRadius)
	v.SetDefault("games.colors.goal", games.Colors.Goal)
	v.SetDefault("games.elimination.count", games.Elimination.Count)
	v.SetDefault("games.elimination.hit_radius", games.Elimination.HitRadius)
	v.SetDefault("games.elimination.max_step", games.Elimination.MaxStep)

	v.SetDefault("session.frame_delay", 18*time.Millisecond)
	v.SetDefault("session.completion_linger", 2*time.Second)
	v.SetDefault("session.max_detect_errors", 100)

	v.SetDefault("render.font_file", "")
	v.SetDefault("render.font_size", rend.FontSize)
	v.SetDefault("render.jpeg_quality", rend.JPEGQuality)
	v.SetDefault("render.landmarks", rend.Landmarks)

	v.SetDefault("store.path", filepath.Join(DataDir(), "kaiplay.db"))
	v.SetDefault("words.file", "")
	v.SetDefault("plugins.dir", filepath.Join(DataDir(), "plugins"))
	v.SetDefault("plugins.timeout_ms", 5000)

	v.SetDefault("narration.enabled", true)
	v.SetDefault("narration.queue_size", narr.QueueSize)
	v.SetDefault("narration.per_second", narr.PerSecond)
	v.SetDefault("narration.lang", narr.Lang)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads configuration. An explicit path must exist; without one,
// kaiplay.yaml is looked up in the working directory and DataDir and may be
// absent. A .env file in the working directory is applied first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("kaiplay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DataDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CameraSettings returns the capture configuration.
func (c *Config) CameraSettings() capture.Config {
	return capture.Config{
		Device: c.Camera.Device,
		Width:  c.Camera.Width,
		Height: c.Camera.Height,
		FPS:    c.Camera.FPS,
	}
}

// FilterOptions returns the frame preprocessing options.
func (c *Config) FilterOptions() capture.FilterOptions {
	return capture.FilterOptions{Mirror: c.Camera.Mirror, Blend: c.Camera.Blend}
}

// DetectorSettings returns the hand detector configuration.
func (c *Config) DetectorSettings() detector.Config {
	return detector.Config{
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConf,
		Script:          c.Detector.Script,
	}
}

// GestureSettings returns the smoothing and classification thresholds. The
// grab policy is chosen per game.
func (c *Config) GestureSettings() gesture.Config {
	g := gesture.DefaultConfig()
	g.SmoothingWindow = c.Gesture.SmoothingWindow
	g.AbsentFrames = c.Gesture.AbsentFrames
	g.VoteHistory = c.Gesture.VoteHistory
	g.StableFrames = c.Gesture.StableFrames
	g.PinchPixels = c.Gesture.PinchPixels
	g.PinchRatio = c.Gesture.PinchRatio
	g.FistCompactness = c.Gesture.FistCompactness
	g.EdgeMargin = c.Gesture.EdgeMargin
	return g
}

// GameSettings returns per-game tuning.
func (c *Config) GameSettings() game.Config {
	g := game.DefaultConfig()

	in := interaction.DefaultConfig()
	in.LostPolicy = interaction.LostPolicy(c.Interaction.LostPolicy)
	in.GrabConfidence = c.Interaction.GrabConfidence
	in.DwellFrames = c.Interaction.DwellFrames
	in.SnapRadius = c.Interaction.SnapRadius
	in.LostGrace = c.Interaction.LostGrace
	in.ReleaseFrames = c.Interaction.ReleaseFrames
	in.Reward = c.Interaction.Reward

	g.WordMatch.Mode = game.WordMatchMode(c.Games.WordMatch.Mode)
	g.WordMatch.Pairs = c.Games.WordMatch.Pairs
	g.WordMatch.Interaction = in

	g.Fingers.StableFrames = c.Games.Fingers.StableFrames
	g.Fingers.Milestone = c.Games.Fingers.Milestone
	g.Fingers.Goal = c.Games.Fingers.Goal
	g.Fingers.Reward = c.Interaction.Reward

	g.Colors.StableFrames = c.Games.Colors.StableFrames
	g.Colors.SampleRadius = c.Games.Colors.SampleRadius
	g.Colors.Goal = c.Games.Colors.Goal
	g.Colors.Reward = c.Interaction.Reward

	g.Elimination.Count = c.Games.Elimination.Count
	g.Elimination.HitRadius = c.Games.Elimination.HitRadius
	g.Elimination.MaxStep = c.Games.Elimination.MaxStep
	g.Elimination.Reward = c.Interaction.Reward
	return g
}

// NarrationSettings returns the narrator configuration.
func (c *Config) NarrationSettings() narration.Config {
	n := narration.DefaultConfig()
	n.QueueSize = c.Narration.QueueSize
	n.PerSecond = c.Narration.PerSecond
	n.Lang = c.Narration.Lang
	return n
}

// RenderSettings returns the overlay drawing options.
func (c *Config) RenderSettings() render.Options {
	return render.Options{
		FontFile:    c.Render.FontFile,
		FontSize:    c.Render.FontSize,
		JPEGQuality: c.Render.JPEGQuality,
		Landmarks:   c.Render.Landmarks,
	}
}
