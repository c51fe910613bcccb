package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	CatalogBaseURL            string
	CatalogCoversBaseURL      string
	CatalogRequestTimeout     time.Duration
	CatalogRequestsPerSecond  int
	CoverDir                  string
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int
	DatabaseBusyTimeout       time.Duration
	Hostname                  string
	JWTSecret                 string
	ServerHost                string
	ServerPort                int
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		CatalogBaseURL:            "https://openlibrary.org",
		CatalogCoversBaseURL:      "https://covers.openlibrary.org",
		CatalogRequestTimeout:     5 * time.Second,
		CatalogRequestsPerSecond:  3,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		DatabaseBusyTimeout:       5 * time.Second,
		Hostname:                  hostname,
		ServerPort:                4270,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	return cfg, nil
}

// NewForTest returns a config suitable for unit tests, independent of the
// ENVIRONMENT variable.
func NewForTest() *Config {
	cfg := &Config{
		CatalogBaseURL:            "https://openlibrary.org",
		CatalogCoversBaseURL:      "https://covers.openlibrary.org",
		CatalogRequestTimeout:     5 * time.Second,
		CatalogRequestsPerSecond:  3,
		DatabaseConnectRetryCount: 1,
		DatabaseConnectRetryDelay: 10 * time.Millisecond,
		DatabaseMaxRetries:        5,
		DatabaseBusyTimeout:       5 * time.Second,
		ServerPort:                0,
	}
	loadTestConfig(cfg)
	return cfg
}
