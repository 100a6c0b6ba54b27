package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/chzchzchz/freqshow/config"
	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/radio"
	"github.com/chzchzchz/freqshow/store"
)

var rootCmd = &cobra.Command{
	Use:   "freqshow",
	Short: "A spectrum display for rtl-sdr tuners.",
}

var (
	configPath string
	device     string
	centerStr  string
	rateStr    string
	gainStr    string
	offset     bool
	width      int
	height     int
	bandsPath  string
)

func init() {
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	pf.StringVarP(&device, "device", "d", "", "Tuner uri (rtl://0, rtltcp://host:port, file.iq8)")
	pf.StringVarP(&centerStr, "center", "f", "", "Center frequency (e.g. 145MHz)")
	pf.StringVarP(&rateStr, "rate", "s", "", "Sample rate (e.g. 2.4MHz)")
	pf.StringVarP(&gainStr, "gain", "g", "", "Gain in dB or AUTO")
	pf.BoolVar(&offset, "offset", false, "Tune with the upconverter offset")
	pf.IntVarP(&width, "width", "W", 0, "Frame width in bins")
	pf.IntVarP(&height, "height", "H", 0, "Waterfall height in rows")
	pf.StringVarP(&bandsPath, "bands", "b", "", "Band plan csv (center_hz; name; modulation; bandwidth_hz; comment)")
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if device != "" {
		cfg.Device = device
	}
	if centerStr != "" {
		hz, err := config.ParseHertz(centerStr)
		if err != nil {
			return nil, fmt.Errorf("--center: %w", err)
		}
		cfg.Tuner.CenterFrequency = hz
	}
	if rateStr != "" {
		hz, err := config.ParseHertz(rateStr)
		if err != nil {
			return nil, fmt.Errorf("--rate: %w", err)
		}
		cfg.Tuner.SampleRate = hz
	}
	if gainStr != "" {
		cfg.Tuner.Gain = gainStr
	}
	if cmd.Flags().Changed("offset") {
		cfg.Tuner.Offset = offset
	}
	if width > 0 {
		cfg.Display.Width = width
	}
	if height > 0 {
		cfg.Display.Height = height
	}
	return cfg, cfg.Validate()
}

// openModel opens the configured tuner, optionally wrapped, and tunes it.
func openModel(ctx context.Context, cfg *config.Config, wrap func(radio.Tuner) radio.Tuner) (*freqshow.Model, error) {
	t, err := radio.Open(ctx, cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Device, err)
	}
	if wrap != nil {
		t = wrap(t)
	}
	m, err := freqshow.NewModel(t, cfg.Display.Width, cfg.Display.Height, cfg.ModelOptions()...)
	if err != nil {
		t.Close()
		return nil, err
	}
	if err := cfg.Apply(m); err != nil {
		m.Close()
		return nil, err
	}
	glog.Infof("tuned %s to %.4fMHz at %.3fMHz, gain %s", cfg.Device, m.NominalCenterFreq(), m.SampleRate(), m.GainString())
	return m, nil
}

func openFrameStore(cfg *config.Config) (*store.FrameStore, error) {
	if cfg.Storage.Driver == "mysql" {
		mc, err := cfg.Storage.MySQL.Config()
		if err != nil {
			return nil, err
		}
		return store.OpenMySQLFrameStore(mc)
	}
	return store.OpenFrameStore(cfg.Storage.Path)
}

func loadBandPlan() *store.BandPlan {
	if bandsPath == "" {
		return nil
	}
	bp, err := store.LoadBandPlan(bandsPath)
	if err != nil {
		glog.Exitf("loading band plan: %v", err)
	}
	return bp
}

// setup loads the config and opens the model, exiting on failure.
func setup(ctx context.Context, cmd *cobra.Command, wrap func(radio.Tuner) radio.Tuner) (*config.Config, *freqshow.Model) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		glog.Exitf("bad configuration: %v", err)
	}
	m, err := openModel(ctx, cfg, wrap)
	if err != nil {
		glog.Exit(err)
	}
	return cfg, m
}

func main() {
	defer glog.Flush()
	flag.CommandLine.Parse([]string{})
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
