// Package config loads the maskctl YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/maskgate/internal/common"
	"example.com/maskgate/internal/message"
)

const (
	DefaultInput  = "data_in.txt"
	DefaultOutput = "data_out.txt"
)

type LogConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
	Level      string `yaml:"level"`
}

type DecodeConfig struct {
	LenientHex bool `yaml:"lenientHex"`
}

type TransformConfig struct {
	Padding string `yaml:"padding"`
}

type OutputConfig struct {
	Append bool `yaml:"append"`
}

type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
	CacheSize   int `yaml:"cacheSize"`
}

type ReportConfig struct {
	Lang string `yaml:"lang"`
}

// Config is the on-disk configuration. Zero values are replaced by defaults
// in Load and Default.
type Config struct {
	Input      string          `yaml:"input"`
	Output     string          `yaml:"output"`
	Summary    string          `yaml:"summary"`
	Audit      string          `yaml:"audit"`
	Decode     DecodeConfig    `yaml:"decode"`
	Transform  TransformConfig `yaml:"transform"`
	OutputMode OutputConfig    `yaml:"output_mode"`
	Logs       LogConfig       `yaml:"logs"`
	Batch      BatchConfig     `yaml:"batch"`
	Report     ReportConfig    `yaml:"report"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path. Relative paths inside it are resolved
// against the file's directory.
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	cfg.Input = resolvePath(cfg.Input)
	cfg.Output = resolvePath(cfg.Output)
	cfg.Summary = resolvePath(cfg.Summary)
	cfg.Audit = resolvePath(cfg.Audit)
	cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Input == "" {
		cfg.Input = DefaultInput
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.Transform.Padding == "" {
		cfg.Transform.Padding = message.PadRemainder.String()
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	if cfg.Logs.Level == "" {
		cfg.Logs.Level = "info"
	}
	if cfg.Batch.Concurrency <= 0 {
		cfg.Batch.Concurrency = runtime.NumCPU()
	}
	if cfg.Batch.CacheSize <= 0 {
		cfg.Batch.CacheSize = 1024
	}
	if cfg.Report.Lang == "" {
		cfg.Report.Lang = "en"
	}
}

// Validate checks values that cannot be defaulted.
func (cfg Config) Validate() error {
	if _, err := message.ParsePadMode(cfg.Transform.Padding); err != nil {
		return err
	}
	if cfg.Input == cfg.Output {
		return errors.New("input and output must differ")
	}
	return nil
}

// DecodeOptions converts the decode section.
func (cfg Config) DecodeOptions() message.DecodeOptions {
	return message.DecodeOptions{LenientHex: cfg.Decode.LenientHex}
}

// TransformOptions converts the transform section. Validate has already
// rejected unknown padding modes.
func (cfg Config) TransformOptions() message.TransformOptions {
	mode, _ := message.ParsePadMode(cfg.Transform.Padding)
	return message.TransformOptions{Padding: mode}
}

// LogOptions converts the logs section.
func (cfg Config) LogOptions() common.LogOptions {
	return common.LogOptions{
		Directory:  cfg.Logs.Directory,
		FileName:   "maskctl.log",
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxAgeDays: cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
		Level:      cfg.Logs.Level,
	}
}
