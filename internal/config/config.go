package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional fstk configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults. Unset keys stay nil so
// callers can tell them apart from zero values.
type DefaultsConfig struct {
	Store    *string `toml:"store"`
	Workers  *int    `toml:"workers"`
	HashRate *string `toml:"hash_rate"`
	SafeLink *bool   `toml:"safe_link"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "fstk", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path. A missing file yields a zero
// Config. Unknown keys are rejected so typos do not pass silently.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, &UnknownKeyError{Key: undecoded[0].String(), Path: path}
	}
	return cfg, nil
}

// UnknownKeyError reports a config key fstk does not understand.
type UnknownKeyError struct {
	Key  string
	Path string
}

func (e *UnknownKeyError) Error() string {
	return "unknown config key " + e.Key + " in " + e.Path
}
