// CLAUDE:SUMMARY Service configuration: YAML file loading with defaults.
package triage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/triage/embedding"
)

// Config holds triage service configuration.
type Config struct {
	DBPath         string           `yaml:"db_path"`
	HTTPAddr       string           `yaml:"http_addr"`
	LogLevel       string           `yaml:"log_level"`
	DefaultUser    string           `yaml:"default_user"`
	RankLimit      int              `yaml:"rank_limit"`
	EmbedBatchSize int              `yaml:"embed_batch_size"`
	Embedding      embedding.Config `yaml:"embedding"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "triage.db"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8470"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DefaultUser == "" {
		c.DefaultUser = "local"
	}
	if c.RankLimit == 0 {
		c.RankLimit = 50
	}
	if c.EmbedBatchSize == 0 {
		c.EmbedBatchSize = 32
	}
}

func defaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}

// LoadConfig reads a YAML config file and applies defaults. An empty
// path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("triage: read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("triage: parse config %s: %w", path, err)
	}
	c.defaults()
	return &c, nil
}
