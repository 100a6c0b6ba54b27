package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chzchzchz/freqshow/freqshow"
	"github.com/chzchzchz/freqshow/radio"
)

func TestParseHertz(t *testing.T) {
	tests := []struct {
		in  string
		out Hertz
		err bool
	}{
		{"145MHz", 145e6, false},
		{"2.4M", 2.4e6, false},
		{"250 kHz", 250e3, false},
		{"125000000", 125e6, false},
		{"1.09GHz", 1.09e9, false},
		{"10 dB", 0, true},
		{"fast", 0, true},
	}
	for _, tt := range tests {
		h, err := ParseHertz(tt.in)
		if (err != nil) != tt.err {
			t.Fatalf("%q: unexpected error %v", tt.in, err)
		}
		if !tt.err && h != tt.out {
			t.Fatalf("%q: expected %v, got %v", tt.in, float64(tt.out), float64(h))
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "freqshow.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
device: rtltcp://10.0.0.2:1234
display:
  width: 640
tuner:
  centerFrequency: 7.1MHz
  sampleRate: 250kHz
  gain: "19.7"
  offset: true
intensity:
  max: "-20"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "rtltcp://10.0.0.2:1234" {
		t.Fatalf("unexpected device %q", cfg.Device)
	}
	if cfg.Display.Width != 640 || cfg.Display.Height != 240 {
		t.Fatalf("expected defaults to fill in, got %+v", cfg.Display)
	}
	if cfg.Tuner.CenterFrequency != 7.1e6 || cfg.Tuner.SampleRate != 250e3 {
		t.Fatalf("unexpected tuning %+v", cfg.Tuner)
	}
	if cfg.Tuner.OffsetFrequency != freqshow.DefaultOffsetHz {
		t.Fatalf("unexpected offset %v", cfg.Tuner.OffsetFrequency)
	}
	if cfg.Intensity.Min != "AUTO" || cfg.Intensity.Max != "-20" {
		t.Fatalf("unexpected intensity %+v", cfg.Intensity)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, `
display:
  width: 0
tuner:
  sampleRate: 600k
  gain: loud
intensity:
  min: low
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"display", "tuner.sampleRate", "tuner.gain", "intensity.min"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %s in %q", field, err)
		}
	}
}

func TestLoadBadFrequency(t *testing.T) {
	if _, err := Load(writeConfig(t, "tuner:\n  centerFrequency: 10dB\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApply(t *testing.T) {
	cfg := Default()
	cfg.Tuner.CenterFrequency = 7.1e6
	cfg.Tuner.SampleRate = 1.024e6
	cfg.Tuner.Gain = "30"
	cfg.Tuner.Offset = true
	cfg.Tuner.OffsetFrequency = 100e6
	cfg.Intensity.Min = "-60"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	ft := radio.NewFileTuner(bytes.NewReader(make([]byte, 64)), 0, radio.HzBand{Center: 100e6, Width: 2048000})
	m, err := freqshow.NewModel(ft, 8, 8, cfg.ModelOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Apply(m); err != nil {
		t.Fatal(err)
	}
	if !m.IsOffsetted() || m.OffsetMHz() != 100 {
		t.Fatal("expected 100MHz offset")
	}
	if mhz := m.NominalCenterFreq(); mhz < 7.0999 || mhz > 7.1001 {
		t.Fatalf("expected 7.1MHz, got %v", mhz)
	}
	if ft.CenterFreq() < 107.0999e6 || ft.CenterFreq() > 107.1001e6 {
		t.Fatalf("expected tuner at 107.1MHz, got %v", ft.CenterFreq())
	}
	if m.SampleRate() != 1.024 || m.GainString() != "30.0" || m.MinString() != "-60" || m.MaxString() != "AUTO" {
		t.Fatalf("unexpected model state %v %s %s %s", m.SampleRate(), m.GainString(), m.MinString(), m.MaxString())
	}
}

func TestHertzString(t *testing.T) {
	if s := Hertz(145e6).String(); s != "145 MHz" {
		t.Fatalf("unexpected %q", s)
	}
	h, err := ParseHertz(Hertz(2.4e6).String())
	if err != nil || h != 2.4e6 {
		t.Fatalf("round trip failed: %v %v", h, err)
	}
}

func TestMySQLConfig(t *testing.T) {
	pw := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(pw, []byte("hunter2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(writeConfig(t, `
storage:
  driver: mysql
  mysql:
    server: db:3306
    user: radio
    passwordFile: `+pw+`
`))
	if err != nil {
		t.Fatal(err)
	}
	mc, err := cfg.Storage.MySQL.Config()
	if err != nil {
		t.Fatal(err)
	}
	if mc.Addr != "db:3306" || mc.User != "radio" || mc.Passwd != "hunter2" || mc.DBName != "freqshow" {
		t.Fatalf("unexpected mysql config %+v", mc)
	}
	cfg.Storage.Driver = "postgres"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "storage.driver") {
		t.Fatalf("expected storage.driver error, got %v", err)
	}
}
