package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration loaded from config.yaml. Secrets come
// from the environment (OPENAI_API_KEY, REDIS_URL), not the file.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Redis struct {
		URL        string `yaml:"url"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"redis"`

	Model struct {
		Name        string  `yaml:"name"`
		BaseURL     string  `yaml:"base_url"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"model"`

	Generation struct {
		MaxCycles int `yaml:"max_cycles"`
	} `yaml:"generation"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

// Load reads configuration from path, falling back to defaults when the file
// is absent. REDIS_URL overrides the configured Redis URL.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.Redis.TTLMinutes = 40
	cfg.Model.Name = "gpt-4o-mini"
	cfg.Model.MaxTokens = 2000
	cfg.Model.Temperature = 0.3
	cfg.Generation.MaxCycles = 3
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	cfg.Log.Output = "stdout"
	return cfg
}
