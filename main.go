package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/veandco/go-sdl2/sdl"

	"GPU_render_layer/config"
	"GPU_render_layer/logging"
	"GPU_render_layer/model"
	"GPU_render_layer/renderer"
)

func init() {
	// SDL and the Vulkan surface expect to be driven from the main thread
	runtime.LockOSThread()
}

type options struct {
	cfgFile        string
	logLevel       string
	framesInFlight int
}

func newRootCmd(run func(cfg *config.Config) error) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "gpu-render-layer",
		Short: "Draws an indexed, vertex colored triangle with Vulkan",
		Long: `Opens a window and renders a triangle through the typed buffer, shader stage and
vertex layout builders. Frames are submitted through a ring of command buffers
whose depth is set with --frames-in-flight.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			logging.Infof("Starting %s using Go %s", cfg.Window.Title, runtime.Version())
			return run(cfg)
		},
	}
	cmd.Flags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "overrides logging.level (debug, info, warn, error)")
	cmd.Flags().IntVar(&opts.framesInFlight, "frames-in-flight", 0, "overrides render.frames_in_flight")
	return cmd
}

// loadConfig reads the config and applies the flags that were set explicitly on top of it.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if cmd.Flags().Changed("frames-in-flight") {
		cfg.Render.FramesInFlight = opts.framesInFlight
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func runTriangle(cfg *config.Config) error {
	core, err := renderer.NewRenderCore(cfg)
	if err != nil {
		return err
	}
	defer core.Destroy()

	if err := core.AddToScene(model.NewTriangleModel("triangle")); err != nil {
		return err
	}
	return core.Loop(onIteration, nil)
}

func onIteration(event sdl.Event, c *renderer.Core) {
	if ev, ok := event.(*sdl.KeyboardEvent); ok && ev.Type == sdl.KEYUP {
		logging.Debugf("Key released: %s", sdl.GetKeyName(ev.Keysym.Sym))
	}
}

func main() {
	if err := newRootCmd(runTriangle).Execute(); err != nil {
		os.Exit(1)
	}
}
