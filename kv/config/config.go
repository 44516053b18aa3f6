package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

type Config struct {
	LogLevel string `toml:"log-level"`

	DBPath string `toml:"db-path"` // Directory to store the data in. Should exist and be writable.

	Engine Engine `toml:"engine"`
}

// Engine carries the badger tuning knobs.
type Engine struct {
	ValueThreshold   int   `toml:"value-threshold"`
	VlogFileSize     int64 `toml:"vlog-file-size"`
	MaxTableSize     int64 `toml:"max-table-size"`
	NumMemTables     int   `toml:"num-mem-tables"`
	NumL0Tables      int   `toml:"num-level-zero-tables"`
	NumL0TablesStall int   `toml:"num-level-zero-tables-stall"`
	NumCompactors    int   `toml:"num-compactors"`
	SyncWrites       bool  `toml:"sync-writes"`
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db-path must not be empty")
	}
	if c.Engine.NumMemTables <= 0 {
		return errors.New("num-mem-tables must be greater than 0")
	}
	if c.Engine.NumL0TablesStall < c.Engine.NumL0Tables {
		return errors.New("num-level-zero-tables-stall must not be less than num-level-zero-tables")
	}
	return nil
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: getLogLevel(),
		DBPath:   "/tmp/pumpkindb",
		Engine: Engine{
			ValueThreshold:   20,
			VlogFileSize:     256 * 1024 * 1024,
			MaxTableSize:     64 * 1024 * 1024,
			NumMemTables:     3,
			NumL0Tables:      4,
			NumL0TablesStall: 8,
			NumCompactors:    1,
			SyncWrites:       true,
		},
	}
}

// FromFile overlays the TOML file at path onto the defaults.
func FromFile(path string) (*Config, error) {
	c := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.Trace(err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
