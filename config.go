package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogFile        string  `yaml:"log"`
	DocRoot        string  `yaml:"doc_root"`
	MergeEventsMs  int     `yaml:"write_debounce_ms"`
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	BatchSize      int     `yaml:"batch_size"`
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float32 `yaml:"score_threshold"`
	LLMTimeoutSec  int     `yaml:"llm_timeout_sec"`
	ServerAddr     string  `yaml:"server_addr"`
	ChromaAddr     string  `yaml:"chroma_addr"`
	Collection     string  `yaml:"collection"`
	Gemini         *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"gemini"`
	OpenAI *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"open_ai"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 2000
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 300
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = 0.4
	}
	if c.LLMTimeoutSec <= 0 {
		c.LLMTimeoutSec = 30
	}
	if c.MergeEventsMs <= 0 {
		c.MergeEventsMs = 500
	}
	if c.Collection == "" {
		c.Collection = "legal-documents"
	}
	if c.ChromaAddr == "" {
		c.ChromaAddr = "http://localhost:8000"
	}
}

// API keys can come from the environment (or a .env file loaded at
// startup) instead of the config file.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Gemini != nil {
		c.Gemini.ApiKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.OpenAI != nil {
		c.OpenAI.ApiKey = key
	}
}
