// Package config loads engine settings from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/AnatoleLucet/sigl/log"
	"github.com/AnatoleLucet/sigl/scene"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Log    Log    `toml:"log"`
	Engine Engine `toml:"engine"`
	Render Render `toml:"render"`
}

type Log struct {
	Level string `toml:"level" comment:"debug, info, warn or error"`
	Dir   string `toml:"dir" comment:"empty means the user config directory"`
}

type Engine struct {
	MaxSettlePasses int `toml:"max_settle_passes"`
}

type Render struct {
	ClearColor       [4]float32 `toml:"clear_color"`
	ProgramCacheSize int        `toml:"program_cache_size"`
	// Viewport is x, y, width, height; all zeros follows the surface size.
	Viewport [4]int `toml:"viewport"`

	TraceFile  string `toml:"trace_file" comment:"empty disables action tracing"`
	TraceLimit int    `toml:"trace_limit"`
}

func Default() Config {
	return Config{
		Log: Log{
			Level: "info",
		},
		Engine: Engine{
			MaxSettlePasses: 8,
		},
		Render: Render{
			ClearColor:       [4]float32{0, 0, 0, 1},
			ProgramCacheSize: scene.DefaultProgramCacheSize,
			TraceLimit:       4096,
		},
	}
}

// Load reads the file at path over the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(r io.Reader) (Config, error) {
	c := Default()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).SetIndentTables(true).Encode(c)
}

// Validate reports every invalid value, joined.
func (c Config) Validate() error {
	var errs []error
	invalid := func(key string, v any) {
		errs = append(errs, fmt.Errorf("%w: %s = %v", ErrInvalid, key, v))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		invalid("log.level", c.Log.Level)
	}
	if c.Engine.MaxSettlePasses < 1 {
		invalid("engine.max_settle_passes", c.Engine.MaxSettlePasses)
	}
	if c.Render.ProgramCacheSize < 1 {
		invalid("render.program_cache_size", c.Render.ProgramCacheSize)
	}
	for _, v := range c.Render.ClearColor {
		if v < 0 || v > 1 {
			invalid("render.clear_color", c.Render.ClearColor)
			break
		}
	}
	for _, v := range c.Render.Viewport {
		if v < 0 {
			invalid("render.viewport", c.Render.Viewport)
			break
		}
	}
	if c.Render.TraceLimit < 0 {
		invalid("render.trace_limit", c.Render.TraceLimit)
	}

	return errors.Join(errs...)
}

// Logger opens the rotating log configured in [log].
func (c Config) Logger() *log.Logger {
	return log.New(c.Log.Level, c.Log.Dir)
}

// SceneOptions returns the scene settings of c.
func (c Config) SceneOptions(lg *log.Logger) scene.Options {
	return scene.Options{
		Logger:           lg,
		MaxSettlePasses:  c.Engine.MaxSettlePasses,
		ProgramCacheSize: c.Render.ProgramCacheSize,
	}
}
