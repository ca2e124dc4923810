package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	appLog "fitcal/internal/log"
	"fitcal/internal/recommend"
	"fitcal/internal/recur"
)

// InputsConfig points at the three raw tables. Calendar may be a .csv
// export or an .ics file; the others are CSV.
type InputsConfig struct {
	Calendar string `yaml:"calendar" json:"calendar"`
	Listings string `yaml:"listings" json:"listings"`
	Classes  string `yaml:"classes" json:"classes"`
}

// OutputsConfig lists where -once writes its exports. Blank entries are
// skipped.
type OutputsConfig struct {
	CSV             string `yaml:"csv" json:"csv"`
	ICS             string `yaml:"ics" json:"ics"`
	Recommendations string `yaml:"recommendations" json:"recommendations"`
	Schedule        string `yaml:"schedule" json:"schedule"`
}

// PreferencesConfig is the YAML form of recommend.Preferences.
type PreferencesConfig struct {
	// DayParts: any of morning, afternoon, evening, night.
	DayParts []string `yaml:"day_parts" json:"day_parts"`
	// Weekdays: "Monday" or "Mon" style names.
	Weekdays []string `yaml:"weekdays" json:"weekdays"`
	// ClassTypes are title keywords; empty means no filter.
	ClassTypes        []string `yaml:"class_types" json:"class_types"`
	MaxClassesPerWeek int      `yaml:"max_classes_per_week" json:"max_classes_per_week"`
	// MinGap is a Go duration string, e.g. "1h" or "90m".
	MinGap string `yaml:"min_gap" json:"min_gap"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone scraped wall-clock text is read in and the
	// timeline is displayed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron schedule for re-running the pipeline in server
	// mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// TopN bounds the recommendation list.
	TopN int `yaml:"top_n" json:"top_n"`

	// CalendarHorizonDays bounds recurrence expansion of .ics inputs.
	CalendarHorizonDays int `yaml:"calendar_horizon_days" json:"calendar_horizon_days"`

	Inputs      InputsConfig      `yaml:"inputs" json:"inputs"`
	Outputs     OutputsConfig     `yaml:"outputs" json:"outputs"`
	Preferences PreferencesConfig `yaml:"preferences" json:"preferences"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen   = "127.0.0.1:8080"
	defaultTimezone = "America/New_York"
	defaultRefresh  = "*/30 * * * *"
	defaultTopN     = 10
	defaultHorizon  = 14
	defaultMinGap   = "1h"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              defaultListen,
		Timezone:            defaultTimezone,
		RefreshCron:         defaultRefresh,
		TopN:                defaultTopN,
		CalendarHorizonDays: defaultHorizon,
		Inputs: InputsConfig{
			Calendar: "data/calendar.csv",
			Listings: "data/listings.csv",
			Classes:  "data/classes.csv",
		},
		Outputs: OutputsConfig{
			CSV: "out/schedule.csv",
			ICS: "out/schedule.ics",
		},
		Preferences: PreferencesConfig{
			DayParts:          []string{"morning", "afternoon", "evening", "night"},
			Weekdays:          []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
			ClassTypes:        []string{},
			MaxClassesPerWeek: 5,
			MinGap:            defaultMinGap,
		},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.TopN <= 0 {
		c.TopN = defaultTopN
	}
	if c.CalendarHorizonDays <= 0 {
		c.CalendarHorizonDays = defaultHorizon
	}
	if c.Preferences.MaxClassesPerWeek <= 0 {
		c.Preferences.MaxClassesPerWeek = 5
	}
	if c.Preferences.MinGap == "" {
		c.Preferences.MinGap = defaultMinGap
	}
	if c.Preferences.ClassTypes == nil {
		c.Preferences.ClassTypes = []string{}
	}
}

// Location resolves Timezone, falling back to America/New_York.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to default", err, "name", c.Timezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	return loc
}

// RecommendPreferences converts the YAML preferences into the value the
// recommender takes. Unknown day-part or weekday names are logged and
// ignored.
func (c *Config) RecommendPreferences() recommend.Preferences {
	p := recommend.Preferences{
		ClassTypes:        append([]string(nil), c.Preferences.ClassTypes...),
		MaxClassesPerWeek: c.Preferences.MaxClassesPerWeek,
		MinGap:            time.Hour,
		Location:          c.Location(),
	}

	for _, name := range c.Preferences.DayParts {
		part := recommend.DayPart(strings.ToLower(strings.TrimSpace(name)))
		switch part {
		case recommend.Morning, recommend.Afternoon, recommend.Evening, recommend.Night:
			p.DayParts = append(p.DayParts, part)
		default:
			appLog.Warn("ignoring unknown day part", "value", name)
		}
	}
	for _, name := range c.Preferences.Weekdays {
		wd, ok := recur.ParseWeekday(name)
		if !ok {
			appLog.Warn("ignoring unknown weekday", "value", name)
			continue
		}
		p.Weekdays = append(p.Weekdays, wd)
	}
	if d, err := time.ParseDuration(c.Preferences.MinGap); err == nil && d >= 0 {
		p.MinGap = d
	} else if c.Preferences.MinGap != "" {
		appLog.Warn("invalid min_gap; using 1h", "value", c.Preferences.MinGap)
	}

	return p.Normalize()
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config (0600) and
//     return it.
//   - Otherwise unmarshal it and normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".fitcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
