package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

var ErrDiscordTokenNotSet = errors.New("DISCORD_TOKEN is not set")

type Config struct {
	DiscordToken  string
	CommandPrefix string
	MetricsDBPath string
}

func LoadConfig() (*Config, error) {
	// Load environment variables from a .env file when one exists.
	// Deployments that inject real environment variables run without one.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	discordToken := os.Getenv("DISCORD_TOKEN")
	if discordToken == "" {
		return nil, ErrDiscordTokenNotSet
	}

	prefix := os.Getenv("COMMAND_PREFIX")
	if prefix == "" {
		prefix = "!"
	}

	dbPath := os.Getenv("METRICS_DB_PATH")
	if dbPath == "" {
		dbPath = "seiun.db"
	}

	return &Config{
		DiscordToken:  discordToken,
		CommandPrefix: prefix,
		MetricsDBPath: dbPath,
	}, nil
}
