package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/probe"
	"github.com/hamed0406/slotwatch/internal/window"
)

// EnvPrefix is prepended to every key read from the environment,
// e.g. SLOTWATCH_LOCATIONS or SLOTWATCH_REQUEST_TIMEOUT.
const EnvPrefix = "SLOTWATCH"

const (
	DefaultLocation = 5020
	DefaultSound    = "alarm.mp3"
	DefaultInterval = 3 // seconds
)

// Config is resolved once at startup and never modified afterwards.
type Config struct {
	Locations      []domain.LocationID
	Window         domain.Window
	WindowDesc     string        // startup banner, e.g. "Using timeframe: 6 months"
	Interval       time.Duration // sleep between cycles
	RequestTimeout time.Duration // per-location fetch timeout
	FirstSlotOnly  bool
	Endpoint       string
	TimeZone       *time.Location

	SoundPath    string
	SoundPlayer  string
	SlackWebhook string

	LogDir     string
	LogLevel   string
	StatusAddr string // empty disables the status server
}

type LoadOptions struct {
	ConfigFile string // optional YAML file
	EnvFile    string // optional dotenv file, ".env" when empty
	Flags      *pflag.FlagSet
	Now        time.Time
}

// flag name -> viper key
var flagKeys = map[string]string{
	"locations":       "locations",
	"sound":           "sound",
	"sound-player":    "sound_player",
	"timeframe":       "timeframe",
	"date-range":      "date_range",
	"interval":        "interval",
	"request-timeout": "request_timeout",
	"first-slot-only": "first_slot_only",
	"endpoint":        "endpoint",
	"timezone":        "timezone",
	"slack-webhook":   "slack_webhook",
	"log-dir":         "log_dir",
	"log-level":       "log_level",
	"status-addr":     "status_addr",
}

// RegisterFlags adds the watcher flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntSliceP("locations", "l", []int{DefaultLocation}, "Location IDs to check")
	fs.StringP("sound", "s", DefaultSound, "Sound file to play when an appointment is found")
	fs.String("sound-player", "", "Command used to play the sound (default: first of afplay, mpg123, ffplay, paplay, aplay)")
	fs.StringP("timeframe", "t", "", `Look-ahead from now, e.g. "24h", "7d" or "3m" (default "6m")`)
	fs.StringSliceP("date-range", "d", nil, "Explicit date range START_DATE,END_DATE (YYYY-MM-DD)")
	fs.IntP("interval", "i", DefaultInterval, "Check interval in seconds")
	fs.Duration("request-timeout", 10*time.Second, "Timeout for each slot query")
	fs.Bool("first-slot-only", false, "Only match the soonest returned slot")
	fs.String("endpoint", probe.DefaultEndpoint, "Slot API URL template; {location} is replaced by the location ID")
	fs.String("timezone", "", "IANA time zone for dates and slot times (default: local)")
	fs.String("slack-webhook", "", "Also post found appointments to this Slack webhook")
	fs.String("log-dir", "logs", "Directory for the rotating log file")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("status-addr", "", `Serve /healthz, /metrics and /api/status on this address, e.g. "127.0.0.1:9090"`)
}

// Load reads defaults, the optional config file, the environment (after
// applying the dotenv file) and flags, in increasing priority, and resolves
// the time window.
func Load(opts LoadOptions) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &domain.ConfigurationError{Field: "config", Reason: err.Error()}
		}
	}

	v.SetDefault("locations", []int{DefaultLocation})
	v.SetDefault("sound", DefaultSound)
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("first_slot_only", false)
	v.SetDefault("endpoint", probe.DefaultEndpoint)
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	return build(v, opts.Now)
}

func build(v *viper.Viper, now time.Time) (Config, error) {
	locs, err := toLocations(v.Get("locations"))
	if err != nil {
		return Config{}, err
	}

	tz := time.Local
	if name := strings.TrimSpace(v.GetString("timezone")); name != "" {
		if tz, err = time.LoadLocation(name); err != nil {
			return Config{}, &domain.ConfigurationError{Field: "timezone", Reason: err.Error()}
		}
	}

	if now.IsZero() {
		now = time.Now()
	}
	timeframe := v.GetString("timeframe")
	// Resolve reads "" as unset; an explicitly empty value is malformed.
	if v.IsSet("timeframe") && strings.TrimSpace(timeframe) == "" {
		if _, err := window.ParseTimeframe(timeframe); err != nil {
			return Config{}, err
		}
	}
	win, err := window.Resolve(now, timeframe, toStrings(v.Get("date_range")), tz)
	if err != nil {
		return Config{}, err
	}

	interval := v.GetInt("interval")
	if interval < 1 {
		return Config{}, &domain.ConfigurationError{Field: "interval", Reason: "must be at least 1 second"}
	}
	timeout := v.GetDuration("request_timeout")
	if timeout <= 0 {
		return Config{}, &domain.ConfigurationError{Field: "request_timeout", Reason: "must be positive"}
	}

	endpoint := strings.TrimSpace(v.GetString("endpoint"))
	if probe.EndpointHost(endpoint) == "" {
		return Config{}, &domain.ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("%q is not an absolute URL", endpoint)}
	}

	sound := strings.TrimSpace(v.GetString("sound"))
	if sound == "" {
		return Config{}, &domain.ConfigurationError{Field: "sound", Reason: "path is empty"}
	}

	return Config{
		Locations:      locs,
		Window:         win.Window,
		WindowDesc:     win.Description,
		Interval:       time.Duration(interval) * time.Second,
		RequestTimeout: timeout,
		FirstSlotOnly:  v.GetBool("first_slot_only"),
		Endpoint:       endpoint,
		TimeZone:       tz,
		SoundPath:      sound,
		SoundPlayer:    strings.TrimSpace(v.GetString("sound_player")),
		SlackWebhook:   strings.TrimSpace(v.GetString("slack_webhook")),
		LogDir:         v.GetString("log_dir"),
		LogLevel:       v.GetString("log_level"),
		StatusAddr:     strings.TrimSpace(v.GetString("status_addr")),
	}, nil
}

// toLocations accepts the shapes locations arrive in: []int from flags,
// []any from YAML and a comma or space separated string from env.
func toLocations(raw any) ([]domain.LocationID, error) {
	var items []string
	switch t := raw.(type) {
	case []int:
		for _, n := range t {
			items = append(items, strconv.Itoa(n))
		}
	case int:
		items = []string{strconv.Itoa(t)}
	default:
		items = toStrings(raw)
	}
	if len(items) == 0 {
		return nil, &domain.ConfigurationError{Field: "locations", Reason: "at least one location id is required"}
	}
	out := make([]domain.LocationID, 0, len(items))
	for _, s := range items {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, &domain.ConfigurationError{Field: "locations", Reason: fmt.Sprintf("%q is not a location id", s)}
		}
		out = append(out, domain.LocationID(n))
	}
	return out, nil
}

func toStrings(raw any) []string {
	var parts []string
	switch t := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	case []string:
		parts = t
	case []any:
		for _, x := range t {
			parts = append(parts, fmt.Sprint(x))
		}
	default:
		parts = []string{fmt.Sprint(t)}
	}
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
