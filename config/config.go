package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/radio"
)

// Hertz is a frequency written with an optional SI prefix ("145MHz", "2.4M",
// "125000000").
type Hertz float64

func ParseHertz(s string) (Hertz, error) {
	v, unit, err := humanize.ParseSI(s)
	if err != nil {
		return 0, fmt.Errorf("bad frequency %q: %w", s, err)
	}
	if unit != "" && unit != "Hz" {
		return 0, fmt.Errorf("bad frequency %q: unit %q is not Hz", s, unit)
	}
	return Hertz(v), nil
}

func (h Hertz) MHz() float64 { return float64(h) / 1e6 }

func (h Hertz) String() string { return humanize.SIWithDigits(float64(h), 4, "Hz") }

func (h *Hertz) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseHertz(value.Value)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func (h Hertz) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

// Config is the startup configuration of a display. Tuning is applied once;
// later changes are not written back.
type Config struct {
	Device    string    `yaml:"device"`
	Display   Display   `yaml:"display"`
	Tuner     Tuner     `yaml:"tuner"`
	Intensity Intensity `yaml:"intensity"`
	Storage   Storage   `yaml:"storage"`
	Server    Server    `yaml:"server"`
}

type Display struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Tuner struct {
	CenterFrequency Hertz  `yaml:"centerFrequency"`
	SampleRate      Hertz  `yaml:"sampleRate"`
	Gain            string `yaml:"gain"`
	Offset          bool   `yaml:"offset"`
	OffsetFrequency Hertz  `yaml:"offsetFrequency"`
}

// Intensity bounds are "AUTO" or dB.
type Intensity struct {
	Min string `yaml:"min"`
	Max string `yaml:"max"`
}

// Storage selects where recorded frames go. Driver is "sqlite" or "mysql".
type Storage struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path"`
	Directory string `yaml:"directory"`
	MySQL     MySQL  `yaml:"mysql"`
}

type MySQL struct {
	Server       string `yaml:"server"`
	User         string `yaml:"user"`
	PasswordFile string `yaml:"passwordFile"`
	DBName       string `yaml:"dbName"`
}

// Config builds the driver configuration, reading the password file.
func (m MySQL) Config() (*mysql.Config, error) {
	cfg := mysql.NewConfig()
	cfg.Net, cfg.Addr, cfg.User, cfg.DBName = "tcp", m.Server, m.User, m.DBName
	if m.PasswordFile != "" {
		pass, err := os.ReadFile(m.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read MySQL password file %q: %w", m.PasswordFile, err)
		}
		cfg.Passwd = strings.TrimSpace(string(pass))
	}
	return cfg, nil
}

type Server struct {
	Listen string `yaml:"listen"`
}

func Default() *Config {
	return &Config{
		Device:  "rtl://0",
		Display: Display{Width: 320, Height: 240},
		Tuner: Tuner{
			CenterFrequency: freqshow.DefaultCenterMHz * 1e6,
			SampleRate:      freqshow.DefaultSampleRateHz,
			Gain:            "AUTO",
			OffsetFrequency: freqshow.DefaultOffsetHz,
		},
		Intensity: Intensity{Min: "AUTO", Max: "AUTO"},
		Storage: Storage{
			Driver:    "sqlite",
			Path:      "freqshow.db",
			Directory: "captures",
			MySQL:     MySQL{Server: "127.0.0.1:3306", DBName: "freqshow"},
		},
		Server: Server{Listen: ":8080"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Device == "" {
		errs = append(errs, errors.New("device: must be set"))
	}
	if c.Display.Width < 1 || c.Display.Height < 1 {
		errs = append(errs, fmt.Errorf("display: bad geometry %dx%d", c.Display.Width, c.Display.Height))
	}
	if c.Tuner.CenterFrequency <= 0 {
		errs = append(errs, fmt.Errorf("tuner.centerFrequency: must be positive, got %v", c.Tuner.CenterFrequency))
	}
	if rate := math.Round(float64(c.Tuner.SampleRate)); rate < 0 || rate > math.MaxUint32 || !radio.IsValidRate(uint32(rate)) {
		errs = append(errs, fmt.Errorf("tuner.sampleRate: %v outside 225.001-300kHz and 900.001kHz-3.2MHz", c.Tuner.SampleRate))
	}
	if c.Tuner.OffsetFrequency < 0 {
		errs = append(errs, fmt.Errorf("tuner.offsetFrequency: must not be negative"))
	}
	if _, err := freqshow.ParseGain(c.Tuner.Gain); err != nil {
		errs = append(errs, fmt.Errorf("tuner.gain: %w", err))
	}
	if _, err := freqshow.ParseBound(c.Intensity.Min); err != nil {
		errs = append(errs, fmt.Errorf("intensity.min: %w", err))
	}
	if _, err := freqshow.ParseBound(c.Intensity.Max); err != nil {
		errs = append(errs, fmt.Errorf("intensity.max: %w", err))
	}
	switch c.Storage.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: %q is not one of sqlite, mysql", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// ModelOptions are the construction options implied by the config.
func (c *Config) ModelOptions() []freqshow.Option {
	return []freqshow.Option{freqshow.WithOffsetHz(float64(c.Tuner.OffsetFrequency))}
}

// Apply tunes m to the configuration. The first failing setting is
// returned; a hardware failure leaves m at its defaults.
func (c *Config) Apply(m *freqshow.Model) error {
	gain, err := freqshow.ParseGain(c.Tuner.Gain)
	if err != nil {
		return err
	}
	lo, err := freqshow.ParseBound(c.Intensity.Min)
	if err != nil {
		return err
	}
	hi, err := freqshow.ParseBound(c.Intensity.Max)
	if err != nil {
		return err
	}
	m.SetMinIntensity(lo)
	m.SetMaxIntensity(hi)
	steps := []func() error{
		func() error { return m.SetOffsetted(c.Tuner.Offset) },
		func() error { return m.SetNominalCenterFreq(c.Tuner.CenterFrequency.MHz()) },
		func() error { return m.SetSampleRate(c.Tuner.SampleRate.MHz()) },
		func() error { return m.SetGain(gain) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
