package config

import (
	"os"
)

type Config struct {
	HTTP_PORT           string `env:"HTTP_PORT"`
	DB_STRING           string `env:"DB_STRING"`
	REDIS_ADDR          string `env:"REDIS_ADDR"`
	KAFKA_BROKERS       string `env:"KAFKA_BROKERS"`
	KAFKA_TOPIC         string `env:"KAFKA_TOPIC"`
	RAZORPAY_KEY_ID     string `env:"RAZORPAY_KEY_ID"`
	RAZORPAY_KEY_SECRET string `env:"RAZORPAY_KEY_SECRET"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTP_PORT:           os.Getenv("HTTP_PORT"),
		DB_STRING:           os.Getenv("DB_STRING"),
		REDIS_ADDR:          os.Getenv("REDIS_ADDR"),
		KAFKA_BROKERS:       os.Getenv("KAFKA_BROKERS"),
		KAFKA_TOPIC:         os.Getenv("KAFKA_TOPIC"),
		RAZORPAY_KEY_ID:     os.Getenv("RAZORPAY_KEY_ID"),
		RAZORPAY_KEY_SECRET: os.Getenv("RAZORPAY_KEY_SECRET"),
	}

	if cfg.HTTP_PORT == "" {
		cfg.HTTP_PORT = "8080"
	}
	if cfg.REDIS_ADDR == "" {
		cfg.REDIS_ADDR = "localhost:6379"
	}
	if cfg.KAFKA_TOPIC == "" {
		cfg.KAFKA_TOPIC = "nearkart.orders"
	}

	return cfg, nil
}
