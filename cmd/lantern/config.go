package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the lantern configuration file
// (~/.config/lantern/config.yaml). Pointer fields distinguish "not set"
// from zero values so flags keep precedence.
type Config struct {
	Model       string `yaml:"model"`
	LibraryPath string `yaml:"library_path"`

	// Sampling defaults
	Temperature   *float64 `yaml:"temperature"`
	TopK          *int64   `yaml:"top_k"`
	TopP          *float64 `yaml:"top_p"`
	MinP          *float64 `yaml:"min_p"`
	RepeatPenalty *float64 `yaml:"repeat_penalty"`
	RepeatLastN   *int64   `yaml:"repeat_last_n"`
	Seed          *int64   `yaml:"seed"`

	// Generation
	MaxTokens     *int64 `yaml:"max_tokens"`
	ContextLength *int64 `yaml:"context_length"`

	// Output
	StreamMode string `yaml:"stream_mode"`
	LogLevel   string `yaml:"log_level"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lantern", "config.yaml")
}

// LoadConfig reads the default config file. Missing or unparseable
// files yield a zero Config; the CLI must work without one.
func LoadConfig() Config {
	return LoadConfigFrom(configPath())
}

func LoadConfigFrom(path string) Config {
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyRunConfig copies config file values into run command variables
// for every flag the user did not set explicitly.
func applyRunConfig(c *cli.Command, cfg Config,
	modelPath *string, libPath *string, temp *float64, topK *int64,
	topP *float64, minP *float64, repeatPenalty *float64, repeatLastN *int64,
	seed *int64, maxTokens *int64, contextLen *int64, streamMode *string,
	logLevel *string,
) {
	if cfg.Model != "" && !c.IsSet("model") {
		*modelPath = cfg.Model
	}
	if cfg.LibraryPath != "" && !c.IsSet("lib") {
		*libPath = cfg.LibraryPath
	}
	if cfg.Temperature != nil && !c.IsSet("temp") {
		*temp = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") {
		*topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") {
		*topP = *cfg.TopP
	}
	if cfg.MinP != nil && !c.IsSet("min-p") {
		*minP = *cfg.MinP
	}
	if cfg.RepeatPenalty != nil && !c.IsSet("repeat-penalty") {
		*repeatPenalty = *cfg.RepeatPenalty
	}
	if cfg.RepeatLastN != nil && !c.IsSet("repeat-last-n") {
		*repeatLastN = *cfg.RepeatLastN
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
	if cfg.MaxTokens != nil && !c.IsSet("max-tokens") {
		*maxTokens = *cfg.MaxTokens
	}
	if cfg.ContextLength != nil && !c.IsSet("context") {
		*contextLen = *cfg.ContextLength
	}
	if cfg.StreamMode != "" && !c.IsSet("stream-mode") {
		*streamMode = cfg.StreamMode
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		*logLevel = cfg.LogLevel
	}
}
