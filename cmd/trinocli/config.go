package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the CLI's persisted configuration, loaded from TOML files
// before flags and environment variables are applied on top.
type Config struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	User    string `toml:"user"`
	Catalog string `toml:"catalog"`
	Schema  string `toml:"schema"`
	Format  string `toml:"format"`
}

// DefaultConfig returns the CLI's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:   "localhost",
		Port:   8080,
		User:   "trinocli",
		Format: "table",
	}
}

// LoadConfig loads configuration from TOML files, current directory
// taking priority over the home directory.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	if homeConfig, err := loadConfigFromHome(); err == nil {
		mergeConfig(config, homeConfig)
	}
	if localConfig, err := loadConfigFromFile("trinocli.toml"); err == nil {
		mergeConfig(config, localConfig)
	}

	return config, nil
}

func loadConfigFromHome() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return loadConfigFromFile(filepath.Join(homeDir, ".trinocli", "trinocli.toml"))
}

func loadConfigFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, err
	}
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func mergeConfig(target, source *Config) {
	if source.Host != "" {
		target.Host = source.Host
	}
	if source.Port != 0 {
		target.Port = source.Port
	}
	if source.User != "" {
		target.User = source.User
	}
	if source.Catalog != "" {
		target.Catalog = source.Catalog
	}
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Format != "" {
		target.Format = source.Format
	}
}
