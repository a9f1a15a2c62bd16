package models

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
)

const ConfigFile = "config.json"

// Config carries the command line defaults. Values found in config.json
// under the user or system config folder override the built-in ones, and
// flags override both.
type Config struct {
	Arch            string `json:"arch"`
	Tracer          string `json:"tracer"`
	MaxInstructions uint64 `json:"max_instructions"`
	LimitedMemory   bool   `json:"limited_memory"`
	ForceA72        bool   `json:"force_a72"`
	Workers         int    `json:"workers"`
	Color           bool   `json:"color"`
	Verbose         bool   `json:"verbose"`

	Output io.Writer `json:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Arch:            HostArchID().String(),
		Tracer:          "unicorn",
		MaxInstructions: 10000,
		Workers:         4,
		Output:          os.Stderr,
	}
}

func configDirs() configdir.ConfigDir {
	return configdir.New("snaptrace", "snaptrace")
}

// LoadConfig returns the defaults overlaid with the first config.json found.
func LoadConfig() (*Config, error) {
	c := DefaultConfig()
	folder := configDirs().QueryFolderContainsFile(ConfigFile)
	if folder == nil {
		return c, nil
	}
	data, err := folder.ReadFile(ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read "+ConfigFile)
	}
	if err := c.Decode(data); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s in %s", ConfigFile, folder.Path)
	}
	return c, nil
}

func (c *Config) Decode(data []byte) error {
	return json.Unmarshal(data, c)
}

func (c *Config) TracerConfig() TracerConfig {
	return TracerConfig{ForceA72: c.ForceA72}
}
