// Package toml loads differ configuration files.
package toml

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/fwojciec/differ"
)

// Load reads the config file at path, overlaying it onto the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func Load(path string) (differ.Config, error) {
	cfg := differ.DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, differ.OpError("load-config", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return differ.DefaultConfig(), differ.OpError("load-config", path, err)
	}
	return cfg, nil
}
