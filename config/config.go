package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"pvkey-address/log"
	"pvkey-address/pkg"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config env tags carry the full PVKEY_ name. envconfig falls back to the
// bare tag when a prefix is given, so ApplyEnv processes without one.
type Config struct {
	KeysFile     string        `yaml:"keysFile" envconfig:"PVKEY_KEYS_FILE"`
	ProviderURLs []string      `yaml:"providerUrls" envconfig:"PVKEY_PROVIDER_URLS"`
	Concurrency  int           `yaml:"concurrency" envconfig:"PVKEY_CONCURRENCY"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"PVKEY_TIMEOUT"`
	LogLevel     string        `yaml:"logLevel" envconfig:"PVKEY_LOG_LEVEL"`
	LogJSON      bool          `yaml:"logJson" envconfig:"PVKEY_LOG_JSON"`
}

func Default() *Config {
	return &Config{
		KeysFile:    pkg.DefaultKeysFile,
		Concurrency: GetMaxConcurrency(runtime.NumCPU()),
		Timeout:     10 * time.Second,
		LogLevel:    "warn",
	}
}

// LoadConfig returns the defaults overlaid with the YAML file at configPath.
// An empty path returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	log.Config.Debug().Str("path", configPath).Msg("Loaded config file")
	return config, nil
}

// ApplyEnv overlays PVKEY_* environment variables. Unset variables leave the
// current values alone.
func ApplyEnv(c *Config) error {
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("error reading environment: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.KeysFile == "" {
		return fmt.Errorf("keys-file is required")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	for i, url := range c.ProviderURLs {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("provider-urls[%d] is empty", i)
		}
	}
	if !log.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unknown log-level %q", c.LogLevel)
	}
	return nil
}

// SplitProviderURLs parses a comma-separated provider list, dropping empty
// entries.
func SplitProviderURLs(s string) []string {
	var urls []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func GetMaxConcurrency(cpuCores int) int {
	return cpuCores * 4
}
