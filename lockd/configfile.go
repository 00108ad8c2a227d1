package lockd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of an optional daemon config file,
// merged onto DefaultConfig() before CLI flags are applied on top.
type FileConfig struct {
	Network              string        `yaml:"network"`
	Address              string        `yaml:"address"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	MaxRequestsPerSecond int           `yaml:"max_requests_per_second"`
	RequestBurst         int           `yaml:"request_burst"`
	MetricsAddress       string        `yaml:"metrics_address"`
}

// LoadConfigFile reads a YAML FileConfig from path and merges its
// non-zero fields onto base, returning the merged Config. MetricsAddress
// is parsed but not merged: Config has no metrics address field.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("lockd: read config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("lockd: parse config file %s: %w", path, err)
	}

	if fc.Network != "" {
		base.Network = fc.Network
	}
	if fc.Address != "" {
		base.Address = fc.Address
	}
	if fc.IdleTimeout > 0 {
		base.IdleTimeout = fc.IdleTimeout
	}
	if fc.MaxRequestsPerSecond > 0 {
		base.MaxRequestsPerSecond = fc.MaxRequestsPerSecond
	}
	if fc.RequestBurst > 0 {
		base.RequestBurst = fc.RequestBurst
	}
	return base, nil
}
