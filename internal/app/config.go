package app

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the service.
type Config struct {
	// Search
	SerperKey  string
	SearchFile string // offline file provider, used when set

	// LLM (optional; without it the service returns raw pipeline output)
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Behavior
	HistoryPath string
	Listen      string
	Verbose     bool
}

// FileConfig is the single-file YAML configuration schema. Explicit flags
// take precedence over file values.
type FileConfig struct {
	Serper struct {
		Key string `yaml:"key"`
	} `yaml:"serper"`
	Search struct {
		File string `yaml:"file"`
	} `yaml:"search"`
	LLM struct {
		BaseURL string `yaml:"base"`
		Model   string `yaml:"model"`
		APIKey  string `yaml:"key"`
	} `yaml:"llm"`
	History string `yaml:"history"`
	Listen  string `yaml:"listen"`
	Verbose bool   `yaml:"verbose"`
}

// LoadFileConfig reads and parses a YAML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

// Merge fills empty Config fields from the file config.
func (c *Config) Merge(fc FileConfig) {
	if c.SerperKey == "" {
		c.SerperKey = fc.Serper.Key
	}
	if c.SearchFile == "" {
		c.SearchFile = fc.Search.File
	}
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = fc.LLM.BaseURL
	}
	if c.LLMModel == "" {
		c.LLMModel = fc.LLM.Model
	}
	if c.LLMAPIKey == "" {
		c.LLMAPIKey = fc.LLM.APIKey
	}
	if c.HistoryPath == "" {
		c.HistoryPath = fc.History
	}
	if c.Listen == "" {
		c.Listen = fc.Listen
	}
	if fc.Verbose {
		c.Verbose = true
	}
}
