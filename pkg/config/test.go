package config

func loadTestConfig(cfg *Config) {
	cfg.CoverDir = "./tmp/test-covers"
	cfg.DatabaseFilePath = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
}
