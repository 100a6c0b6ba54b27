package main

import (
	"context"
	"flag"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/chzchzchz/freqshow/config"
	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/radio"
	"github.com/chzchzchz/freqshow/store"
)

var (
	configPath string
	device     string
	winWidth   int
	winHeight  int
	fps        float64
	resizable  bool
	popup      bool
	saveDir    bool
)

var rootCmd = &cobra.Command{
	Use:   "fsscope [flags] [device]",
	Short: "A waterfall window for a tuner or IQ recording.",
	Args:  cobra.MaximumNArgs(1),
	Run:   func(cmd *cobra.Command, args []string) { scope(cmd, args) },
}

func init() {
	rootCmd.Flags().AddGoFlagSet(flag.CommandLine)
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")

	// UI
	rootCmd.Flags().IntVarP(&winWidth, "window-width", "w", 0, "Total FFT buckets / window width")
	rootCmd.Flags().IntVarP(&winHeight, "window-height", "r", 0, "Total FFT rows to display")
	rootCmd.Flags().Float64Var(&fps, "fps", 30, "Frames acquired per second")
	rootCmd.Flags().BoolVarP(&resizable, "resize", "R", true, "Window is resizable")
	rootCmd.Flags().BoolVarP(&popup, "popup", "p", false, "Window is a pop-up (i3 hack)")
	rootCmd.Flags().BoolVar(&saveDir, "save", true, "Save spectrograms (s key) to the capture directory")
}

func scope(cmd *cobra.Command, args []string) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			glog.Exit(err)
		}
	}
	if len(args) > 0 {
		cfg.Device = args[0]
	}
	if winWidth > 0 {
		cfg.Display.Width = winWidth
	}
	if winHeight > 0 {
		cfg.Display.Height = winHeight
	}

	t, err := radio.Open(cmd.Context(), cfg.Device)
	if err != nil {
		glog.Exit(err)
	}
	m, err := freqshow.NewModel(t, cfg.Display.Width, cfg.Display.Height, cfg.ModelOptions()...)
	if err != nil {
		t.Close()
		glog.Exit(err)
	}
	defer m.Close()
	if err := cfg.Apply(m); err != nil {
		glog.Warningf("applying %s: %v", configPath, err)
	}

	var files *store.FileStore
	if saveDir {
		if files, err = store.NewFileStore(cfg.Storage.Directory); err != nil {
			glog.Exit(err)
		}
	}
	fw, err := newFFTWindow(m, files)
	if err != nil {
		glog.Exit(err)
	}
	defer fw.Close()
	if err := fw.Run(); err != nil {
		glog.Error(err)
	}
}

func main() {
	defer glog.Flush()
	flag.CommandLine.Parse([]string{})
	if err := sdl.Init(sdl.INIT_TIMER | sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		glog.Exit(err)
	}
	defer sdl.Quit()
	rootCmd.ExecuteContext(context.Background())
}
