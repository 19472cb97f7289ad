// Package config handles jsos.toml kernel configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "jsos.toml"

// Config represents a jsos.toml configuration.
type Config struct {
	Kernel  Kernel  `toml:"kernel"`
	Modules Modules `toml:"modules"`
	Heap    Heap    `toml:"heap"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the jsos.toml file (set at load time).
	Dir string `toml:"-"`
}

// Kernel configures boot.
type Kernel struct {
	// Init names the module executed at boot.
	Init         string `toml:"init"`
	Seed         uint64 `toml:"seed"`
	MaxCallDepth int    `toml:"max-call-depth"`
}

// Modules configures the module registry.
type Modules struct {
	Dirs []string `toml:"dirs"`
}

// Heap configures the collector.
type Heap struct {
	// Limit caps heap usage in bytes; 0 means unlimited.
	Limit uint64 `toml:"limit"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Defaults
const (
	DefaultInit         = "/kernel/init.jmg"
	DefaultMaxCallDepth = 1024
	DefaultModuleDir    = "modules"
)

// Default returns the configuration used when no jsos.toml exists, rooted
// at dir.
func Default(dir string) *Config {
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Kernel.Init == "" {
		c.Kernel.Init = DefaultInit
	}
	if c.Kernel.MaxCallDepth <= 0 {
		c.Kernel.MaxCallDepth = DefaultMaxCallDepth
	}
	if len(c.Modules.Dirs) == 0 {
		c.Modules.Dirs = []string{DefaultModuleDir}
	}
}

// Load parses a jsos.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return parse(dir, path, data)
}

func parse(dir, path string, data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse error in %s: unknown key %s", path, undecoded[0])
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a jsos.toml file,
// then loads and returns the config. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// ModuleDirPaths returns absolute paths for the configured module directories.
func (c *Config) ModuleDirPaths() []string {
	var paths []string
	for _, d := range c.Modules.Dirs {
		if filepath.IsAbs(d) {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(c.Dir, d))
	}
	return paths
}

// LogFile returns the configured log file path, or nil for stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Log.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.Dir, path)
	}
	return &path
}
