package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, sourced from the environment.
type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,notEmpty"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`

	// media resolver options
	AudioFormat string `env:"AUDIO_FORMAT" envDefault:"bestaudio/best"`
	SearchMode  string `env:"SEARCH_MODE" envDefault:"auto"`

	// transport reconnection policy, passed to the transcoder
	ReconnectOnDrop      bool `env:"RECONNECT_ON_DROP" envDefault:"true"`
	MaxReconnectDelaySec int  `env:"MAX_RECONNECT_DELAY" envDefault:"5"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
}

// Load reads an optional .env file and the process environment. A missing
// DISCORD_TOKEN is a startup failure, not a per-request one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: create data dir: %w", err)
	}
	return cfg, nil
}
