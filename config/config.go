package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const PROGRAM_NAME = "GPU triangle"
const WINDOW_WIDTH, WINDOW_HEIGHT int32 = 1280, 720

// MAX_FRAMES_IN_FLIGHT bounds the frame ring depth a config may ask for.
const MAX_FRAMES_IN_FLIGHT = 8

// Config represents the application configuration
type Config struct {
	Window  WindowConfig  `mapstructure:"window"`
	Render  RenderConfig  `mapstructure:"render"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type WindowConfig struct {
	Title  string `mapstructure:"title"`
	Width  int32  `mapstructure:"width"`
	Height int32  `mapstructure:"height"`
}

type RenderConfig struct {
	// FramesInFlight is the number of command buffer/fence/semaphore sets cycled by the frame ring.
	// 1 keeps a single reusable command buffer and bounds pipelining to one frame.
	FramesInFlight   int       `mapstructure:"frames_in_flight"`
	Validation       bool      `mapstructure:"validation"`
	ValidationLayers []string  `mapstructure:"validation_layers"`
	VertexShader     string    `mapstructure:"vertex_shader"`
	FragmentShader   string    `mapstructure:"fragment_shader"`
	ClearColor       []float32 `mapstructure:"clear_color"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  PROGRAM_NAME,
			Width:  WINDOW_WIDTH,
			Height: WINDOW_HEIGHT,
		},
		Render: RenderConfig{
			FramesInFlight:   1,
			Validation:       true,
			ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
			// Compiled with: glslc shaders/triangle/triangle.vert -o shaders/triangle/vert.spv
			VertexShader:   "shaders/triangle/vert.spv",
			FragmentShader: "shaders/triangle/frag.spv",
			ClearColor:     []float32{0, 0, 0, 0},
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "",
			Console: true,
		},
	}
}

// Load loads configuration from defaults, an optional yaml file and RENDER_* environment variables.
// An empty cfgFile looks for ./config.yaml and silently keeps the defaults if there is none.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("RENDER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Render.FramesInFlight < 1 || c.Render.FramesInFlight > MAX_FRAMES_IN_FLIGHT {
		return fmt.Errorf("render.frames_in_flight must be between 1 and %d", MAX_FRAMES_IN_FLIGHT)
	}
	if c.Render.VertexShader == "" || c.Render.FragmentShader == "" {
		return errors.New("render.vertex_shader and render.fragment_shader must be set")
	}
	if len(c.Render.ClearColor) != 4 {
		return fmt.Errorf("render.clear_color needs 4 components, got %d", len(c.Render.ClearColor))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

// ActiveValidationLayers returns the layers to enable, none if validation is switched off.
func (c *Config) ActiveValidationLayers() []string {
	if !c.Render.Validation {
		return nil
	}
	return c.Render.ValidationLayers
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("window.title", cfg.Window.Title)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)

	v.SetDefault("render.frames_in_flight", cfg.Render.FramesInFlight)
	v.SetDefault("render.validation", cfg.Render.Validation)
	v.SetDefault("render.validation_layers", cfg.Render.ValidationLayers)
	v.SetDefault("render.vertex_shader", cfg.Render.VertexShader)
	v.SetDefault("render.fragment_shader", cfg.Render.FragmentShader)
	v.SetDefault("render.clear_color", cfg.Render.ClearColor)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
