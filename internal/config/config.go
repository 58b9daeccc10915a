// Package config loads and saves the YAML settings shared by the stde
// command and the terminal editor.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ha1tch/webstde/internal/logging"
	"github.com/ha1tch/webstde/pkg/editor"
	"github.com/ha1tch/webstde/pkg/stde"
	"github.com/ha1tch/webstde/pkg/stdefile"
)

// Config holds persistent settings.
type Config struct {
	Editor   EditorConfig `yaml:"editor"`
	Render   RenderConfig `yaml:"render"`
	Server   ServerConfig `yaml:"server"`
	LogLevel string       `yaml:"log_level"`
	LastDir  string       `yaml:"last_dir,omitempty"`
}

// EditorConfig controls interactive editing.
type EditorConfig struct {
	SnapEnabled   bool    `yaml:"snap_enabled"`
	SnapTolerance float64 `yaml:"snap_tolerance"`
	StateWidth    float64 `yaml:"state_width"`
	StateHeight   float64 `yaml:"state_height"`
}

// RenderConfig controls SVG and PNG output.
type RenderConfig struct {
	Format   string `yaml:"format"` // "png" or "svg"
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Padding  int    `yaml:"padding"`
	FontSize int    `yaml:"font_size"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Editor: EditorConfig{
			SnapEnabled:   true,
			SnapTolerance: stde.DefaultSnapTolerance,
			StateWidth:    stde.DefaultStateWidth,
			StateHeight:   stde.DefaultStateHeight,
		},
		Render: RenderConfig{
			Format:   "png",
			Width:    1200,
			Height:   800,
			Padding:  40,
			FontSize: 24,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns ~/.stde.yaml, or .stde.yaml when there is no home
// directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stde.yaml"
	}
	return filepath.Join(home, ".stde.yaml")
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	content := append([]byte("# stde configuration\n"), data...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects settings no component can use.
func (c Config) Validate() error {
	switch {
	case c.Editor.SnapTolerance < 0:
		return &stde.ValidationError{Field: "editor.snap_tolerance", Value: fmt.Sprint(c.Editor.SnapTolerance), Reason: "must not be negative"}
	case c.Editor.StateWidth <= 0 || c.Editor.StateHeight <= 0:
		return &stde.ValidationError{Field: "editor.state_width/state_height", Reason: "must be positive"}
	case c.Render.Format != "png" && c.Render.Format != "svg":
		return &stde.ValidationError{Field: "render.format", Value: c.Render.Format, Reason: "must be png or svg"}
	case c.Render.Width <= 0 || c.Render.Height <= 0:
		return &stde.ValidationError{Field: "render.width/height", Reason: "must be positive"}
	case c.Render.Padding < 0:
		return &stde.ValidationError{Field: "render.padding", Reason: "must not be negative"}
	case c.Render.FontSize <= 4:
		return &stde.ValidationError{Field: "render.font_size", Value: fmt.Sprint(c.Render.FontSize), Reason: "too small"}
	case c.Server.MaxBodyBytes <= 0:
		return &stde.ValidationError{Field: "server.max_body_bytes", Reason: "must be positive"}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &stde.ValidationError{Field: "log_level", Value: c.LogLevel, Reason: err.Error()}
	}
	return nil
}

// SessionOptions converts the editor settings for editor.New.
func (c Config) SessionOptions() editor.Options {
	opts := editor.DefaultOptions()
	opts.SnapEnabled = c.Editor.SnapEnabled
	opts.SnapTolerance = c.Editor.SnapTolerance
	opts.StateWidth = c.Editor.StateWidth
	opts.StateHeight = c.Editor.StateHeight
	return opts
}

// SVGOptions converts the render settings for stdefile.RenderSVG.
func (c Config) SVGOptions() stdefile.SVGOptions {
	opts := stdefile.DefaultSVGOptions()
	opts.Width, opts.Height = c.Render.Width, c.Render.Height
	opts.Padding = c.Render.Padding
	opts.FontSize = c.Render.FontSize
	opts.LabelSize = c.Render.FontSize - 4
	return opts
}

// PNGOptions converts the render settings for stdefile.RenderPNG.
func (c Config) PNGOptions() stdefile.PNGOptions {
	opts := stdefile.DefaultPNGOptions()
	opts.Width, opts.Height = c.Render.Width, c.Render.Height
	opts.Padding = c.Render.Padding
	opts.FontSize = c.Render.FontSize
	opts.LabelSize = c.Render.FontSize - 4
	return opts
}
