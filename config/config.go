// Package config loads the face's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakaisatoru/go_sunshine_face/displaymodel"
	"github.com/sakaisatoru/go_sunshine_face/modectl"
	"github.com/sakaisatoru/go_sunshine_face/snapshot"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Display kinds.
const (
	DisplayLCD    = "lcd"
	DisplayEPaper = "epaper"
	DisplayLog    = "log"
)

type Config struct {
	Display Display `yaml:"display"`
	Layout  Layout  `yaml:"layout"`
	Weather Weather `yaml:"weather"`
	Control Control `yaml:"control"`
	GPIO    GPIO    `yaml:"gpio"`
	IR      IR      `yaml:"ir"`
	Log     Log     `yaml:"log"`
}

type Display struct {
	Kind          string `yaml:"kind"`
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	Round         bool   `yaml:"round"`
	LowBitAmbient bool   `yaml:"low_bit_ambient"`
	// AmbientAfter drops the face into ambient mode after this long
	// without input. Zero disables it.
	AmbientAfter time.Duration `yaml:"ambient_after"`
	I2CBus       int           `yaml:"i2c_bus"`
	I2CAddr      int           `yaml:"i2c_addr"`
	SPIPort      string        `yaml:"spi_port"`
}

type Layout struct {
	displaymodel.Layout `yaml:",inline"`
	Sizes               modectl.TextSizes `yaml:"text_sizes"`
	IconSize            float64           `yaml:"icon_size"`
}

type Weather struct {
	DB              string            `yaml:"db"`
	DefaultLocation string            `yaml:"default_location"`
	Units           string            `yaml:"units"`
	Fallback        snapshot.Fallback `yaml:"fallback"`
	URL             string            `yaml:"url"`
	APIKey          string            `yaml:"api_key"`
	Interval        time.Duration     `yaml:"interval"`
	Days            int               `yaml:"days"`
}

// Metric reports whether temperatures are shown in Celsius.
func (w Weather) Metric() bool { return w.Units != "imperial" }

type Control struct {
	Socket string `yaml:"socket"`
}

// GPIO pins are BCM numbers; zero leaves the button unused.
type GPIO struct {
	Enabled    bool `yaml:"enabled"`
	VisiblePin int  `yaml:"visible_pin"`
	AmbientPin int  `yaml:"ambient_pin"`
}

type IR struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"`
}

type Log struct {
	Level string `yaml:"level"`
}

// SlogLevel returns the configured level. Validate has already rejected
// unknown names.
func (l Log) SlogLevel() slog.Level {
	var lv slog.Level
	lv.UnmarshalText([]byte(l.Level))
	return lv
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// Override changes a decoded configuration before defaults are filled in,
// so defaults that depend on it (the canvas size on the display kind)
// follow the override. Command-line flags use it.
type Override func(*Config)

// WithDisplayKind overrides display.kind when kind is not empty.
func WithDisplayKind(kind string) Override {
	return func(c *Config) {
		if kind != "" {
			c.Display.Kind = kind
		}
	}
}

// WithSocket overrides control.socket when path is not empty.
func WithSocket(path string) Override {
	return func(c *Config) {
		if path != "" {
			c.Control.Socket = path
		}
	}
}

// Load reads path, applies overrides, fills unset fields with defaults and
// validates the result. An empty path starts from an empty file.
func Load(path string, overrides ...Override) (Config, error) {
	var raw []byte
	if path != "" {
		var err error
		if raw, err = os.ReadFile(path); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	return Parse(raw, overrides...)
}

// Parse decodes YAML bytes like Load.
func Parse(raw []byte, overrides ...Override) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	for _, o := range overrides {
		o(&c)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	d := &c.Display
	if d.Kind == "" {
		d.Kind = DisplayLCD
	}
	if d.Width <= 0 || d.Height <= 0 {
		switch d.Kind {
		case DisplayEPaper:
			// 2.13" HAT in landscape.
			d.Width, d.Height = 250, 122
		default:
			d.Width, d.Height = 320, 320
		}
	}
	if d.I2CBus == 0 {
		d.I2CBus = 1
	}
	if d.I2CAddr == 0 {
		d.I2CAddr = 0x3c
	}

	l := &c.Layout
	if l.YOffset == 0 {
		l.YOffset = float64(d.Height) * 0.3
	}
	if l.DateMargin == 0 {
		l.DateMargin = 10
	}
	if l.LineWidth == 0 {
		l.LineWidth = 60
	}
	if l.Sizes.Default == 0 {
		l.Sizes.Default = 40
	}
	if l.Sizes.Round == 0 {
		l.Sizes.Round = 45
	}
	if l.Sizes.Small == 0 {
		l.Sizes.Small = 20
	}
	if l.IconSize == 0 {
		l.IconSize = 24
	}

	w := &c.Weather
	if w.DB == "" {
		w.DB = "/var/lib/sunshine-face/weather.db"
	}
	if w.DefaultLocation == "" {
		w.DefaultLocation = "94043"
	}
	if w.Units == "" {
		w.Units = "metric"
	}
	if w.Fallback == (snapshot.Fallback{}) {
		w.Fallback = snapshot.DefaultFallback()
	}
	if w.URL == "" {
		w.URL = "https://api.openweathermap.org/data/2.5/forecast/daily"
	}
	if w.Interval == 0 {
		w.Interval = 3 * time.Hour
	}
	if w.Days == 0 {
		w.Days = 14
	}

	if c.Control.Socket == "" {
		c.Control.Socket = "/run/sunshine-face/control.sock"
	}
	if c.IR.Device == "" {
		c.IR.Device = "/dev/lirc0"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field values after defaults are applied.
func (c Config) Validate() error {
	switch c.Display.Kind {
	case DisplayLCD, DisplayEPaper, DisplayLog:
	default:
		return fmt.Errorf("%w: display.kind %q", ErrInvalid, c.Display.Kind)
	}
	switch c.Weather.Units {
	case "metric", "imperial":
	default:
		return fmt.Errorf("%w: weather.units %q", ErrInvalid, c.Weather.Units)
	}
	if c.Weather.Interval < time.Minute {
		return fmt.Errorf("%w: weather.interval %s is under a minute", ErrInvalid, c.Weather.Interval)
	}
	if c.Weather.Days < 1 || c.Weather.Days > 16 {
		return fmt.Errorf("%w: weather.days %d out of range 1..16", ErrInvalid, c.Weather.Days)
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}
