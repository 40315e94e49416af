// Package config loads the assistant settings: defaults, then an optional
// YAML config file, then AI_ASSISTANT_* environment variables, then flags
// bound by the commands. A .env file is honored first for parity with
// server deployments.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration shared by the agent commands.
type Config struct {
	// ASR (Wyoming) server
	ASRHost string `mapstructure:"asr_host"`
	ASRPort int    `mapstructure:"asr_port"`
	// TTS (Wyoming) server
	TTSHost string `mapstructure:"tts_host"`
	TTSPort int    `mapstructure:"tts_port"`
	// Wake word (Wyoming) server
	WakeHost string `mapstructure:"wake_host"`
	WakePort int    `mapstructure:"wake_port"`
	WakeWord string `mapstructure:"wake_word"`
	// LLM
	OllamaHost string `mapstructure:"ollama_host"`
	Model      string `mapstructure:"model"`
	// TTS voice
	Voice    string `mapstructure:"voice"`
	Language string `mapstructure:"language"`
	Speaker  string `mapstructure:"speaker"`
	// History
	HistoryDir string `mapstructure:"history_dir"`
}

// DefaultDir is the per-user configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ai-assistant")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("asr_host", "localhost")
	v.SetDefault("asr_port", 10300)
	v.SetDefault("tts_host", "localhost")
	v.SetDefault("tts_port", 10200)
	v.SetDefault("wake_host", "localhost")
	v.SetDefault("wake_port", 10400)
	v.SetDefault("wake_word", "ok_nabu")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("model", "qwen3:4b")
	// Empty defaults keep these keys visible to AutomaticEnv; without a
	// default viper never consults the AI_ASSISTANT_* variable on Unmarshal.
	v.SetDefault("voice", "")
	v.SetDefault("language", "")
	v.SetDefault("speaker", "")
	v.SetDefault("history_dir", filepath.Join(DefaultDir(), "history"))
}

// Load reads configuration. cfgFile overrides the default config file path;
// a missing default config file is not an error.
func Load(cfgFile string) (Config, error) {
	// .env support mirrors the server-side deployments; absence is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AI_ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
