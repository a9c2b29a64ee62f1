// Package config loads the drive layout and settings of a redirector from a
// YAML file.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/soypat/mfs"
	"gopkg.in/yaml.v3"
)

// Config is the top level of a redirector configuration file.
type Config struct {
	// CodePage is the OEM code page of guest names.
	CodePage int `yaml:"codepage"`
	// LastDrive is the highest drive letter the guest may use.
	LastDrive string `yaml:"last_drive"`
	// CurrentDrive is the drive letter selected at start.
	CurrentDrive string `yaml:"current_drive"`
	// TimeZone names the zone DOS timestamps are expressed in, "Local" or an
	// IANA name.
	TimeZone string  `yaml:"timezone"`
	LogLevel string  `yaml:"log_level"`
	Drives   []Drive `yaml:"drives"`
}

// Drive is one redirected drive.
type Drive struct {
	Letter   string `yaml:"letter"`
	Root     string `yaml:"root"`
	ReadOnly bool   `yaml:"read_only"`
	Label    string `yaml:"label"`
	Cwd      string `yaml:"cwd"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		CodePage:     437,
		LastDrive:    "Z",
		CurrentDrive: "C",
		TimeZone:     "Local",
		LogLevel:     "info",
	}
}

// Load reads and validates the configuration file at path. Missing keys
// keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes and validates YAML configuration data.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks letters, roots and names for consistency.
func (c *Config) Validate() error {
	if _, err := mfs.NewCodec(c.CodePage); err != nil {
		return err
	}
	last, err := letterIndex(c.LastDrive)
	if err != nil {
		return errors.Wrap(err, "last_drive")
	}
	cur, err := letterIndex(c.CurrentDrive)
	if err != nil {
		return errors.Wrap(err, "current_drive")
	}
	if cur > last {
		return errors.Errorf("current drive %s beyond last drive %s", c.CurrentDrive, c.LastDrive)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	seen := make(map[int]bool)
	for i, d := range c.Drives {
		idx, err := letterIndex(d.Letter)
		if err != nil {
			return errors.Wrapf(err, "drives[%d]", i)
		}
		if seen[idx] {
			return errors.Errorf("drives[%d]: drive %s mounted twice", i, d.Letter)
		}
		seen[idx] = true
		if idx > last {
			return errors.Errorf("drives[%d]: drive %s beyond last drive %s", i, d.Letter, c.LastDrive)
		}
		if d.Root == "" {
			return errors.Errorf("drives[%d]: drive %s has no root", i, d.Letter)
		}
		if len(d.Label) > 11 {
			return errors.Errorf("drives[%d]: label %q longer than 11 characters", i, d.Label)
		}
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.TimeZone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrap(err, "timezone")
	}
	return loc, nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, errors.Wrap(err, "log_level")
	}
	return lvl, nil
}

// DriveMap builds the drive table described by c.
func (c *Config) DriveMap() (*mfs.DriveMap, error) {
	m := mfs.NewDriveMap()
	last, err := letterIndex(c.LastDrive)
	if err != nil {
		return nil, err
	}
	if err := m.SetLastDrive(last + 1); err != nil {
		return nil, err
	}
	for _, d := range c.Drives {
		idx, err := letterIndex(d.Letter)
		if err != nil {
			return nil, err
		}
		err = m.Mount(byte('A'+idx), mfs.Drive{
			Root:     d.Root,
			ReadOnly: d.ReadOnly,
			Label:    d.Label,
			Cwd:      d.Cwd,
		})
		if err != nil {
			return nil, err
		}
	}
	cur, err := letterIndex(c.CurrentDrive)
	if err != nil {
		return nil, err
	}
	if err := m.SetCurrentDrive(cur); err != nil {
		return nil, err
	}
	return m, nil
}

func letterIndex(s string) (int, error) {
	s = strings.TrimSuffix(s, ":")
	if len(s) != 1 {
		return 0, errors.Errorf("invalid drive letter %q", s)
	}
	return mfs.DriveIndex(s[0])
}
