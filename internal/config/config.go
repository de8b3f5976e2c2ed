// Package config loads the bot's YAML configuration and edits it for the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides: CHATCAL_LLM__MODEL sets llm.model.
const EnvPrefix = "CHATCAL_"

type Config struct {
	DataDir       string   `koanf:"data_dir" yaml:"data_dir"`
	LogLevel      string   `koanf:"log_level" yaml:"log_level"`
	Timezone      string   `koanf:"timezone" yaml:"timezone"`
	MaxConcurrent int      `koanf:"max_concurrent" yaml:"max_concurrent"`
	LLM           LLM      `koanf:"llm" yaml:"llm"`
	Telegram      Telegram `koanf:"telegram" yaml:"telegram"`
	Google        Google   `koanf:"google" yaml:"google"`
	HTTP          HTTP     `koanf:"http" yaml:"http"`
}

type LLM struct {
	BaseURL        string   `koanf:"base_url" yaml:"base_url"`
	APIKey         string   `koanf:"api_key" yaml:"api_key"`
	Model          string   `koanf:"model" yaml:"model"`
	MaxTokens      int      `koanf:"max_tokens" yaml:"max_tokens"`
	Temperature    *float32 `koanf:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxInputTokens int      `koanf:"max_input_tokens" yaml:"max_input_tokens"`
	TimeoutSeconds int      `koanf:"timeout_seconds" yaml:"timeout_seconds"`
}

type Telegram struct {
	Token string `koanf:"token" yaml:"token"`
}

type Google struct {
	ClientID       string `koanf:"client_id" yaml:"client_id"`
	ClientSecret   string `koanf:"client_secret" yaml:"client_secret"`
	RedirectURL    string `koanf:"redirect_url" yaml:"redirect_url"`
	CalendarID     string `koanf:"calendar_id" yaml:"calendar_id"`
	TimeoutSeconds int    `koanf:"timeout_seconds" yaml:"timeout_seconds"`
}

type HTTP struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Listen  string `koanf:"listen" yaml:"listen"`
}

// DefaultPath returns ~/.chatcal/config.yaml.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".chatcal", "config.yaml")
}

// Defaults returns the configuration used for keys the file and the
// environment leave unset.
func Defaults() *Config {
	return &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".chatcal"),
		LogLevel:      "info",
		Timezone:      "Asia/Seoul",
		MaxConcurrent: 2,
		LLM: LLM{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			MaxTokens:      500,
			MaxInputTokens: 2000,
			TimeoutSeconds: 60,
		},
		Google: Google{
			RedirectURL:    "http://localhost",
			CalendarID:     "primary",
			TimeoutSeconds: 30,
		},
		HTTP: HTTP{
			Listen: "127.0.0.1:8484",
		},
	}
}

// Load reads the config at path, writing the defaults there first if the
// file does not exist. Precedence, lowest first: defaults, file,
// CHATCAL_ variables, well-known provider variables.
func Load(path string) (*Config, error) {
	k, err := load(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Override from env (highest precedence)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		cfg.Google.ClientID = clientID
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		cfg.Google.ClientSecret = secret
	}

	return &cfg, nil
}

func load(path string) (*koanf.Koanf, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, Defaults()); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "__", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	return k, nil
}

// Save writes cfg to path as YAML, creating the directory if needed. The
// file is replaced atomically.
func Save(path string, cfg *Config) error {
	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ListValues returns every key with its value in cfg, masking secrets if
// asked. Unset optional keys map to nil.
func ListValues(cfg *Config, maskSecrets bool) (map[string]any, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}
	out := make(map[string]any, len(keyKinds))
	for _, key := range Keys() {
		out[key] = plain(k.Get(key))
	}
	if maskSecrets {
		out = MaskSecrets(out)
	}
	return out, nil
}

// GetValue returns the effective value of a dot-separated key, as Load
// would see it. An unset optional key gives nil.
func GetValue(path, key string) (any, error) {
	if _, err := checkKey(key); err != nil {
		return nil, err
	}
	k, err := load(path)
	if err != nil {
		return nil, err
	}
	return plain(k.Get(key)), nil
}

// SetValue writes one key into the file at path after converting value to
// the key's type. Other keys in the file are kept as written. The file must
// already exist.
func SetValue(path, key, value string) error {
	v, err := coerce(key, value)
	if err != nil {
		return err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := k.Set(key, v); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	out, err := yamlv3.Marshal(k.Raw())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, out)
}
