package config

import "os"

type Config struct {
	Addr     string
	DataDir  string
	RedisURL string // optional; empty disables event publishing
}

func Load() Config {
	return Config{
		Addr:     getenv("TRADEMATCH_ADDR", ":8080"),
		DataDir:  getenv("TRADEMATCH_DATA_DIR", "local-data"),
		RedisURL: os.Getenv("TRADEMATCH_REDIS_URL"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
