package config

import (
	"os"
	"strconv"
)

func loadDevelopmentConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.CoverDir = "./tmp/covers"
	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.JWTSecret = "development-secret"
	cfg.ServerHost = "127.0.0.1"
}
