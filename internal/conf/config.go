package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

type Config struct {
	DataDir         string   `yaml:"data_dir"`
	Listen          string   `yaml:"listen"`
	NodeID          string   `yaml:"node_id"`
	LongName        string   `yaml:"long_name"`
	ShortName       string   `yaml:"short_name"`
	Admins          []string `yaml:"admins"`
	PeriodicSeconds int      `yaml:"periodic_seconds"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DataDir:         "./data",
		Listen:          "127.0.0.1:4403",
		NodeID:          "!00000001",
		LongName:        "meshdoor",
		ShortName:       "door",
		PeriodicSeconds: 60,
	}
}

func LoadConfig() (*Config, error) {
	cfg := Default()

	// Try multiple possible paths
	configPaths := []string{
		"/etc/meshdoor/meshdoor.yaml",
		"./config/meshdoor.yaml",
		"./meshdoor.yaml",
		"config/meshdoor.yaml",
	}

	var data []byte
	var err error
	for _, path := range configPaths {
		data, err = os.ReadFile(filepath.Clean(path))
		if err == nil {
			break
		}
	}
	if err != nil {
		applyEnv(cfg)
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv lets environment variables override file settings.
func applyEnv(cfg *Config) {
	cfg.DataDir = getEnvString("MESHDOOR_DATA_DIR", cfg.DataDir)
	cfg.Listen = getEnvString("MESHDOOR_LISTEN", cfg.Listen)
	cfg.NodeID = getEnvString("MESHDOOR_NODE_ID", cfg.NodeID)
	cfg.PeriodicSeconds = getEnvInt("MESHDOOR_PERIODIC_SECONDS", cfg.PeriodicSeconds)
	if admins := getEnvString("MESHDOOR_ADMINS", ""); admins != "" {
		cfg.Admins = strings.Split(strings.ReplaceAll(admins, " ", ""), ",")
	}
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}
