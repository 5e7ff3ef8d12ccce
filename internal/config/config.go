package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// External mail collaborator used for offline-message notifications.
	MailServiceURL    string `mapstructure:"MAIL_SERVICE_URL"`
	MailServiceAPIKey string `mapstructure:"MAIL_SERVICE_API_KEY"`

	// Minimum minutes between notification emails for one sender/recipient
	// pair. Zero disables the debounce.
	MailDebounceMinutes int `mapstructure:"MAIL_DEBOUNCE_MINUTES"`
}

var AppConfig *Config

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MAIL_DEBOUNCE_MINUTES", 15)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
}
