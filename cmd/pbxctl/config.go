// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/GermanBionicSystems/pixelblaze/expander"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// consolePort selects the terminal emulator instead of a serial device.
const consolePort = "console"

// Config is the merged result of flags, PBX_ environment variables and the
// optional config file, in that order of precedence.
type Config struct {
	Port     string        `mapstructure:"port"`
	Channel  int           `mapstructure:"channel"`
	LEDs     int           `mapstructure:"leds"`
	Width    int           `mapstructure:"width"`
	Height   int           `mapstructure:"height"`
	BPP      int           `mapstructure:"bpp"`
	Order    string        `mapstructure:"order"`
	Delay    time.Duration `mapstructure:"delay"`
	Darken   int           `mapstructure:"darken"`
	Rotation float64       `mapstructure:"rotation"`
	Scale    bool          `mapstructure:"scale"`
	Loops    int           `mapstructure:"loops"`
	LogLevel string        `mapstructure:"log-level"`
	LogFile  string        `mapstructure:"log-file"`
}

var orders = map[string]expander.ColorOrder{
	"grb":  expander.GRB,
	"rgb":  expander.RGB,
	"grbw": expander.GRBW,
	"rgbw": expander.RGBW,
}

// ColorOrder returns the wire order named by Order.
func (c *Config) ColorOrder() expander.ColorOrder {
	return orders[strings.ToLower(c.Order)]
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("pbxctl", pflag.ContinueOnError)
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("port", "", "serial device, or \"console\" for the terminal emulator; defaults to the GPIO header UART")
	fs.Int("channel", 0, "expander channel, 0 to 7")
	fs.Int("leds", 11, "number of LEDs on the strip")
	fs.Int("width", 32, "matrix width")
	fs.Int("height", 8, "matrix height")
	fs.Int("bpp", 0, "bytes per pixel, 3 or 4; derived from --order when 0")
	fs.String("order", "grb", "color order: grb, rgb, grbw or rgbw")
	fs.Duration("delay", 250*time.Millisecond, "time between frames")
	fs.Int("darken", 0, "darken images by this many steps of 30%")
	fs.Float64("rotation", 0, "rotate images clockwise, in degrees")
	fs.Bool("scale", false, "shrink images larger than the matrix")
	fs.Int("loops", 1, "number of times text scrolls by")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("log-file", "", "also write JSON logs to this rotated file")
	return fs
}

// loadConfig parses args and returns the configuration and the remaining
// positional arguments.
func loadConfig(args []string) (*Config, []string, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, nil, err
	}
	v.SetEnvPrefix("PBX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, nil, err
	}
	return &cfg, fs.Args(), nil
}

func (c *Config) check() error {
	o, ok := orders[strings.ToLower(c.Order)]
	if !ok {
		return fmt.Errorf("unknown color order %q", c.Order)
	}
	if c.BPP == 0 {
		c.BPP = 3
		if o.W != 0 {
			c.BPP = 4
		}
	}
	if c.BPP != 3 && c.BPP != 4 {
		return fmt.Errorf("bytes per pixel must be 3 or 4, got %d", c.BPP)
	}
	if c.BPP == 4 && o.W == 0 {
		return fmt.Errorf("color order %q has no white LED", c.Order)
	}
	if c.Channel < 0 || c.Channel > 7 {
		return fmt.Errorf("channel must be between 0 and 7, got %d", c.Channel)
	}
	if c.LEDs <= 0 || c.LEDs > expander.MaxPixels {
		return fmt.Errorf("invalid number of LEDs %d", c.LEDs)
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width*c.Height > expander.MaxPixels {
		return fmt.Errorf("invalid matrix size %dx%d", c.Width, c.Height)
	}
	if c.Delay < 0 {
		return fmt.Errorf("invalid delay %s", c.Delay)
	}
	return nil
}
