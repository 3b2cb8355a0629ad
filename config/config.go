// Package config reads settings from the environment, after loading a .env
// file when one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/siegeai/jsonstruct/sink"
)

type Config struct {
	LogLevel  string
	Addr      string
	Server    string
	CacheSize int
	S3        sink.S3Config
}

// S3Enabled reports whether an S3 endpoint was configured.
func (c *Config) S3Enabled() bool {
	return c.S3.Endpoint != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cacheSize, err := strconv.Atoi(getEnv("JSONSTRUCT_CACHE_SIZE", "256"))
	if err != nil || cacheSize < 1 {
		return nil, fmt.Errorf("JSONSTRUCT_CACHE_SIZE must be a positive integer")
	}
	useSSL, err := strconv.ParseBool(getEnv("JSONSTRUCT_S3_USE_SSL", "false"))
	if err != nil {
		return nil, fmt.Errorf("JSONSTRUCT_S3_USE_SSL: %w", err)
	}

	return &Config{
		LogLevel:  getEnv("JSONSTRUCT_LOG", "info"),
		Addr:      getEnv("JSONSTRUCT_ADDR", ":8080"),
		Server:    getEnv("JSONSTRUCT_SERVER", ""),
		CacheSize: cacheSize,
		S3: sink.S3Config{
			Endpoint:  getEnv("JSONSTRUCT_S3_ENDPOINT", ""),
			Region:    getEnv("JSONSTRUCT_S3_REGION", "us-east-1"),
			AccessKey: getEnv("JSONSTRUCT_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("JSONSTRUCT_S3_SECRET_KEY", ""),
			Bucket:    getEnv("JSONSTRUCT_S3_BUCKET", "jsonstruct"),
			UseSSL:    useSSL,
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}
