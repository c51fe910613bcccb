package config

import (
	"os"
	"strconv"
)

func loadProductionConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	if v := os.Getenv("CATALOG_BASE_URL"); v != "" {
		cfg.CatalogBaseURL = v
	}
	if v := os.Getenv("CATALOG_COVERS_BASE_URL"); v != "" {
		cfg.CatalogCoversBaseURL = v
	}

	cfg.CoverDir = os.Getenv("COVER_DIRECTORY")
	if cfg.CoverDir == "" {
		cfg.CoverDir = "/data/covers"
	}
	cfg.DatabaseFilePath = os.Getenv("DATABASE_FILE_PATH")
	if cfg.DatabaseFilePath == "" {
		cfg.DatabaseFilePath = "/data/data.sqlite"
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
}
