package nssdb

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config maps dataset identities to database files.
type Config struct {
	// Dir is the directory holding the database files.
	Dir string `json:"dir"`

	// Databases maps a dataset identity to the basename of its database
	// file within Dir, e.g. "passwd" -> "passwd.mcdb".
	Databases map[string]string `json:"databases"`
}

// DefaultConfig returns the conventional dataset layout under dir.
func DefaultConfig(dir string) Config {
	dbs := make(map[string]string, len(registry))
	for name := range registry {
		dbs[name] = name + ".mcdb"
	}

	return Config{Dir: dir, Databases: dbs}
}

// LoadConfig reads a JSONC config file. Comments and trailing commas are
// permitted; the file is standardized to plain JSON before decoding.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	for dataset := range cfg.Databases {
		if _, ok := registry[dataset]; !ok {
			return Config{}, fmt.Errorf("unknown dataset %q in %s", dataset, path)
		}
	}

	return cfg, nil
}
