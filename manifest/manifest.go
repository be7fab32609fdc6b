// Package manifest handles mruby.toml project configuration: optional
// per-project defaults for compile and embed options, overridden by
// command-line flags.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Filename is the manifest file looked up in the working directory and
// its ancestors.
const Filename = "mruby.toml"

// Manifest represents an mruby.toml project configuration.
type Manifest struct {
	Compile Compile `toml:"compile"`
	Embed   Embed   `toml:"embed"`

	// Dir is the directory containing the mruby.toml file (set at load time).
	Dir string `toml:"-"`
}

// Compile holds default compiler switches.
type Compile struct {
	Debug      bool `toml:"debug"`
	NoExtOps   bool `toml:"no-ext-ops"`
	NoOptimize bool `toml:"no-optimize"`
}

// Embed holds defaults for the embeddable C output forms.
type Embed struct {
	Symbol   string `toml:"symbol"`
	Struct   bool   `toml:"struct"`
	Static   bool   `toml:"static"`
	Octal    bool   `toml:"octal"`
	LineSize int    `toml:"line-size"`
}

// Load parses an mruby.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Embed.LineSize != 0 && (m.Embed.LineSize < 1 || m.Embed.LineSize > 255) {
		return nil, fmt.Errorf("%s: line-size out of bounds (%d)", path, m.Embed.LineSize)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an mruby.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, Filename)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}
