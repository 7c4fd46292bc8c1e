package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/probe"
)

var testNow = time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func load(t *testing.T, fs *pflag.FlagSet) (Config, error) {
	t.Helper()
	return Load(LoadOptions{
		EnvFile: filepath.Join(t.TempDir(), "missing.env"),
		Flags:   fs,
		Now:     testNow,
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, flags(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Locations) != 1 || cfg.Locations[0] != DefaultLocation {
		t.Fatalf("locations wrong: %+v", cfg.Locations)
	}
	if cfg.SoundPath != DefaultSound || cfg.Interval != 3*time.Second || cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	if cfg.Endpoint != probe.DefaultEndpoint || cfg.StatusAddr != "" || cfg.FirstSlotOnly {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	if !cfg.Window.Start.Equal(testNow) || !cfg.Window.End.Equal(time.Date(2025, 7, 15, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("default window should be six months: %+v", cfg.Window)
	}
	if cfg.WindowDesc != "Using timeframe: 6 months" {
		t.Fatalf("desc=%q", cfg.WindowDesc)
	}
}

func TestLoad_Flags(t *testing.T) {
	fs := flags(t,
		"-l", "5020,5140", "-l", "5020",
		"-s", "/tmp/bell.wav",
		"-t", "7d",
		"-i", "30",
		"--request-timeout", "2s",
		"--first-slot-only",
		"--timezone", "America/Toronto",
		"--status-addr", "127.0.0.1:9090",
	)
	cfg, err := load(t, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []domain.LocationID{5020, 5140, 5020}
	if len(cfg.Locations) != len(want) {
		t.Fatalf("locations=%v want %v", cfg.Locations, want)
	}
	for i := range want {
		if cfg.Locations[i] != want[i] {
			t.Fatalf("locations=%v want %v", cfg.Locations, want)
		}
	}
	if cfg.SoundPath != "/tmp/bell.wav" || cfg.Interval != 30*time.Second || cfg.RequestTimeout != 2*time.Second {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !cfg.FirstSlotOnly || cfg.StatusAddr != "127.0.0.1:9090" || cfg.TimeZone.String() != "America/Toronto" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if got := cfg.Window.End.Sub(cfg.Window.Start); got != 7*24*time.Hour {
		t.Fatalf("window length %s", got)
	}
}

func TestLoad_EnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("SLOTWATCH_SOUND=from-dotenv.mp3\nSLOTWATCH_INTERVAL=9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLOTWATCH_LOCATIONS", "5020 5140")
	t.Setenv("SLOTWATCH_DATE_RANGE", "2025-03-01,2025-03-31")
	t.Setenv("SLOTWATCH_INTERVAL", "5")
	t.Cleanup(func() { os.Unsetenv("SLOTWATCH_SOUND") })

	cfg, err := Load(LoadOptions{EnvFile: envFile, Flags: flags(t), Now: testNow})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Locations) != 2 || cfg.Locations[1] != 5140 {
		t.Fatalf("locations from env wrong: %+v", cfg.Locations)
	}
	// real environment wins over the dotenv file
	if cfg.Interval != 5*time.Second || cfg.SoundPath != "from-dotenv.mp3" {
		t.Fatalf("env precedence wrong: %+v", cfg)
	}
	if cfg.WindowDesc != "Using date range: 2025-03-01 to 2025-03-31" {
		t.Fatalf("desc=%q", cfg.WindowDesc)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "slotwatch.yaml")
	yaml := "locations: [5140, 5444]\ntimeframe: 24h\nslack_webhook: https://hooks.slack.test/x\n"
	if err := os.WriteFile(p, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(LoadOptions{
		ConfigFile: p,
		EnvFile:    filepath.Join(t.TempDir(), "none.env"),
		Flags:      flags(t, "-t", "2h"),
		Now:        testNow,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Locations) != 2 || cfg.Locations[0] != 5140 || cfg.SlackWebhook == "" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// explicit flag beats the file
	if cfg.Window.End.Sub(cfg.Window.Start) != 2*time.Hour {
		t.Fatalf("flag should override file timeframe: %+v", cfg.Window)
	}
}

func TestLoad_ConfigurationErrors(t *testing.T) {
	cases := map[string][]string{
		"both window kinds":  {"-t", "7d", "-d", "2025-03-01,2025-03-02"},
		"inverted range":     {"-d", "2025-03-02,2025-03-01"},
		"bad date":           {"-d", "2025-3-1,2025-03-02"},
		"bad timeframe":      {"-t", "10x"},
		"zero interval":      {"-i", "0"},
		"negative location":  {"--locations=-4"},
		"bad timezone":       {"--timezone", "Mars/Olympus"},
		"relative endpoint":  {"--endpoint", "/slots?id={location}"},
		"zero req timeout":   {"--request-timeout", "0s"},
		"three range values": {"-d", "2025-03-01,2025-03-02,2025-03-03"},
		"empty timeframe":    {"--timeframe="},
		"huge timeframe":     {"-t", "5124096h"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, flags(t, args...))
			var ce *domain.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("want ConfigurationError, got %v", err)
			}
		})
	}
}

func TestLoad_EmptyTimeframeInFileIsError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "slotwatch.yaml")
	if err := os.WriteFile(p, []byte("timeframe: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(LoadOptions{
		ConfigFile: p,
		EnvFile:    filepath.Join(t.TempDir(), "none.env"),
		Flags:      flags(t),
		Now:        testNow,
	})
	var ce *domain.ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "timeframe" {
		t.Fatalf("want timeframe ConfigurationError, got %v", err)
	}
}

func TestLoad_MissingConfigFileIsError(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"),
		EnvFile:    filepath.Join(t.TempDir(), "none.env"),
		Now:        testNow,
	})
	var ce *domain.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
}
