package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the struct that holds the configuration of the application
type Config struct {
	App        AppConfig        `json:"app"`
	Auth       AuthConfig       `json:"auth"`
	Downloader DownloaderConfig `json:"downloader"`
	Server     ServerConfig     `json:"server"`
	RabbitMq   RabbitMQConfig   `json:"rabbitmq"`
}

type AppConfig struct {
	Name     string `json:"name"`
	LogLevel int    `json:"logLevel"`
	Env      string `json:"env"`
}

type AuthConfig struct {
	CookieFile string `json:"cookieFile"`
	UserAgent  string `json:"userAgent"`
}

type DownloaderConfig struct {
	OutputDir        string `json:"outputDir"`
	Quality          string `json:"quality"`
	FFmpegPath       string `json:"ffmpegPath"`
	AssumedSizeBytes int64  `json:"assumedSizeBytes"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type RabbitMQConfig struct {
	URL              string `json:"url"`
	Exchange         string `json:"exchange"`
	TaskEventQueue   string `json:"taskEventQueue"`
	ReconnectRetries int    `json:"reconnectRetries"`
	ReconnectTimeout int    `json:"reconnectTimeout"`
}

// Load config from config.json
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override from environment variable if set
	if envURL := os.Getenv("RABBITMQ_URL"); envURL != "" {
		config.RabbitMq.URL = envURL
	}
	if envCookies := os.Getenv("LENSDL_COOKIE_FILE"); envCookies != "" {
		config.Auth.CookieFile = envCookies
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lensdl")
	v.SetDefault("app.logLevel", 4) // logrus.InfoLevel
	v.SetDefault("app.env", "development")
	v.SetDefault("auth.cookieFile", "cookies.json")
	v.SetDefault("auth.userAgent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("downloader.outputDir", "downloads")
	v.SetDefault("downloader.quality", "hd")
	v.SetDefault("downloader.ffmpegPath", "ffmpeg")
	v.SetDefault("downloader.assumedSizeBytes", 50*1024*1024)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5124)
	v.SetDefault("rabbitmq.exchange", "lensdl")
	v.SetDefault("rabbitmq.taskEventQueue", "lensdl_task_events")
	v.SetDefault("rabbitmq.reconnectRetries", 5)
	v.SetDefault("rabbitmq.reconnectTimeout", 2000)
}

// Get config for app
func (c *Config) GetAppConfig() *AppConfig {
	return &c.App
}

// Get config for the authenticated session
func (c *Config) GetAuthConfig() *AuthConfig {
	return &c.Auth
}

// Get config for downloader
func (c *Config) GetDownloaderConfig() *DownloaderConfig {
	return &c.Downloader
}

// Get config for the API server
func (c *Config) GetServerConfig() *ServerConfig {
	return &c.Server
}

// Get config for RabbitMQ
func (c *Config) GetRabbitMQConfig() *RabbitMQConfig {
	return &c.RabbitMq
}
