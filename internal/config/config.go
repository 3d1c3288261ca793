package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"schedview/internal/layout"
	"schedview/internal/model"
	"schedview/internal/timeutil"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS endpoint. file:// URLs and bare paths are read from disk.
	URL string `yaml:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name"`
	// Category is assigned to schedules that carry no CATEGORIES of their own.
	Category string `yaml:"category,omitempty"`
}

// WorkHoursConfig is the work day as "HH:MM" strings.
type WorkHoursConfig struct {
	Start      string `yaml:"start"`
	PauseStart string `yaml:"pause_start"`
	PauseEnd   string `yaml:"pause_end"`
	End        string `yaml:"end"`
}

// SurfaceConfig is the size of the rendered page in pixels.
type SurfaceConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Mono reduces the output to black/red/white for e-paper panels.
	Mono bool `yaml:"mono"`
	// Planes also writes packed 1bpp black/red planes next to each page.
	Planes bool `yaml:"planes"`
}

// BasicAuthConfig protects the preview server. Empty fields disable auth.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the preview server address (e.g. "0.0.0.0:8080"). Empty
	// disables the server.
	Listen string `yaml:"listen"`

	// BasicAuth is optional; nil leaves the preview server open.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Timezone is the IANA timezone schedules are displayed in (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone"`

	// View is the period unit: daily, weekly or monthly.
	View string `yaml:"view"`
	// Style is the orientation: vertical or horizontal.
	Style string `yaml:"style"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start"`

	// PeriodCount is how many consecutive periods are shown side by side.
	PeriodCount int `yaml:"period_count"`

	// ShowOnlyWorkHours drops the pause from the time axis.
	ShowOnlyWorkHours bool            `yaml:"show_only_work_hours"`
	WorkHours         WorkHoursConfig `yaml:"work_hours"`

	// PeriodWidth is the day column width in horizontal style.
	PeriodWidth float64 `yaml:"period_width"`

	// Grouping selects the collision strategy: transitive or chain.
	Grouping string `yaml:"grouping"`

	// Drawer selects the renderer: base (geometry only) or raster.
	Drawer string `yaml:"drawer"`

	// Palette maps categories to "#rrggbb" colors. Missing categories keep
	// the built-in colors.
	Palette map[string]string `yaml:"palette"`

	Surface SurfaceConfig `yaml:"surface"`

	// OutputDir receives one PNG per rendered page.
	OutputDir string `yaml:"output_dir"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic refresh.
	RefreshCron string `yaml:"refresh"`

	// CacheDir holds fetched ICS bodies with their validators.
	CacheDir string `yaml:"cache_dir"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		Timezone:          "Local",
		View:              "weekly",
		Style:             "vertical",
		WeekStart:         "monday",
		PeriodCount:       1,
		ShowOnlyWorkHours: true,
		WorkHours: WorkHoursConfig{
			Start:      "08:00",
			PauseStart: "13:00",
			PauseEnd:   "14:00",
			End:        "18:00",
		},
		PeriodWidth: layout.DaySizeMin.W,
		Grouping:    "transitive",
		Drawer:      "raster",
		Palette:     map[string]string{},
		Surface:     SurfaceConfig{Width: 1304, Height: 984},
		OutputDir:   "out",
		RefreshCron: "*/15 * * * *",
		CacheDir:    "cache",
		ICS:         []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.View == "" {
		c.View = def.View
	}
	if c.Style == "" {
		c.Style = def.Style
	}
	// WeekStart default & validation.
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = def.WeekStart
	}
	if c.PeriodCount <= 0 {
		c.PeriodCount = def.PeriodCount
	}
	if c.WorkHours == (WorkHoursConfig{}) {
		c.WorkHours = def.WorkHours
	}
	if c.PeriodWidth < layout.MinPeriodWidth {
		c.PeriodWidth = def.PeriodWidth
	}
	if c.Grouping == "" {
		c.Grouping = def.Grouping
	}
	if c.Drawer == "" {
		c.Drawer = def.Drawer
	}
	if c.Palette == nil {
		c.Palette = map[string]string{}
	}
	if c.Surface.Width <= 0 || c.Surface.Height <= 0 {
		c.Surface.Width, c.Surface.Height = def.Surface.Width, def.Surface.Height
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Validate parses every enumerated and structured field so that a bad
// config fails at load time rather than at the first render.
func (c *Config) Validate() error {
	if _, err := c.ViewType(); err != nil {
		return err
	}
	if _, err := c.LayoutStyle(); err != nil {
		return err
	}
	if _, err := c.Strategy(); err != nil {
		return err
	}
	if _, err := c.Hours(); err != nil {
		return err
	}
	if _, err := c.CategoryPalette(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: refresh %q: %w", c.RefreshCron, err)
	}
	return nil
}

func (c *Config) ViewType() (layout.ViewType, error) {
	return layout.ParseViewType(c.View)
}

func (c *Config) LayoutStyle() (layout.Style, error) {
	return layout.ParseStyle(c.Style)
}

func (c *Config) Strategy() (layout.Strategy, error) {
	return layout.ParseStrategy(c.Grouping)
}

func (c *Config) FirstWeekday() timeutil.WeekStart {
	if c.WeekStart == "sunday" {
		return timeutil.WeekStartSunday
	}
	return timeutil.WeekStartMonday
}

// Location resolves Timezone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Hours converts the work_hours strings into validated work hours.
func (c *Config) Hours() (layout.WorkHours, error) {
	var w layout.WorkHours
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"start", c.WorkHours.Start, &w.Start},
		{"pause_start", c.WorkHours.PauseStart, &w.PauseStart},
		{"pause_end", c.WorkHours.PauseEnd, &w.PauseEnd},
		{"end", c.WorkHours.End, &w.End},
	}
	for _, f := range fields {
		d, err := ParseClock(f.raw)
		if err != nil {
			return layout.WorkHours{}, fmt.Errorf("config: work_hours.%s: %w", f.name, err)
		}
		*f.dst = d
	}
	if err := w.Validate(); err != nil {
		return layout.WorkHours{}, fmt.Errorf("config: work_hours: %w", err)
	}
	return w, nil
}

// ParseClock parses "HH:MM" into an offset from midnight. "24:00" is
// accepted as the end of the day.
func ParseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// CategoryPalette overlays the configured colors on the default palette.
func (c *Config) CategoryPalette() (model.CategoryPalette, error) {
	p := model.DefaultPalette()
	for category, hex := range c.Palette {
		col, err := model.ParseHexColor(hex)
		if err != nil {
			return model.CategoryPalette{}, fmt.Errorf("config: palette %q: %w", category, err)
		}
		p.Colors[category] = col
	}
	return p, nil
}

// SurfaceSize is the page size as layout geometry.
func (c *Config) SurfaceSize() layout.Size {
	return layout.Size{W: float64(c.Surface.Width), H: float64(c.Surface.Height)}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".schedview-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
