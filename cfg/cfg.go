package cfg

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kittynXR/mewbot/internal/app/api"
	"github.com/kittynXR/mewbot/internal/app/history"
	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/llm"
	"github.com/kittynXR/mewbot/pkg/osc"
	"github.com/kittynXR/mewbot/pkg/twitch"
)

type Config struct {
	Api api.Config `yaml:"api"`

	Twitch twitch.Config `yaml:"twitch"`

	Engine redeems.Config `yaml:"engine"`

	LLM llm.Config `yaml:"llm"`

	OSC osc.Config `yaml:"osc"`

	History history.Config `yaml:"history"`
}

// Load reads the yaml config and overlays secrets from the environment.
// A .env file next to the binary is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
	}

	cfg.applyEnv()

	return cfg, nil
}

func (cfg *Config) applyEnv() {
	overlay(&cfg.Twitch.ClientID, "TWITCH_CLIENT_ID")
	overlay(&cfg.Twitch.Secret, "TWITCH_SECRET")
	overlay(&cfg.Twitch.AccessToken, "TWITCH_ACCESS_TOKEN")
	overlay(&cfg.Twitch.RefreshToken, "TWITCH_REFRESH_TOKEN")
	overlay(&cfg.LLM.AccessToken, "LLM_ACCESS_TOKEN")
}

func overlay(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
