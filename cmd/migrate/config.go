package main

import (
	"librarydesk/internal/config"
)

type settings struct {
	DSN       string
	Dir       string
	LogLevel  string
	LogFormat string
}

// loadSettings reads the dotenv files, without overriding variables the
// runtime already set, and picks out what migrations need.
func loadSettings() (settings, error) {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return settings{}, err
	}
	return settings{
		DSN:       cfg.DatabaseDSN,
		Dir:       cfg.MigrationsDir,
		LogLevel:  cfg.LogLevel,
		LogFormat: cfg.LogFormat,
	}, nil
}
