package config

import (
	"fmt"
	"time"

	"github.com/Brownie44l1/mood-api/internal/model"
	"github.com/Brownie44l1/mood-api/internal/preprocess"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Model  model.Config
	Image  ImageConfig
	Logger LoggerConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	MaxUploadBytes  int64
	StaticDir       string
	ShutdownTimeout time.Duration
}

type ImageConfig struct {
	Size      int
	Filter    string
	MaxPixels int64
}

type LoggerConfig struct {
	Level  string
	Format string
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, continuing with environment variables")
	}

	v := viper.New()

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MODEL_PATH", "happy_sad_model.onnx")
	v.SetDefault("MODEL_INPUT_NAME", "")
	v.SetDefault("MODEL_OUTPUT_NAME", "")
	v.SetDefault("MODEL_ACTIVATION", string(model.ActivationNone))
	v.SetDefault("ONNXRUNTIME_LIB", "")
	v.SetDefault("IMAGE_SIZE", preprocess.DefaultSize)
	v.SetDefault("RESIZE_FILTER", "bicubic")
	v.SetDefault("MAX_IMAGE_PIXELS", preprocess.DefaultMaxPixels)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.AutomaticEnv()

	port := v.GetInt("PORT")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", v.GetString("PORT"))
	}

	timeout, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", v.GetString("SHUTDOWN_TIMEOUT"))
	}

	activation := model.Activation(v.GetString("MODEL_ACTIVATION"))
	if activation != model.ActivationNone && activation != model.ActivationSigmoid {
		return nil, fmt.Errorf("invalid MODEL_ACTIVATION %q", activation)
	}

	filter := v.GetString("RESIZE_FILTER")
	if _, err := preprocess.ParseFilter(filter); err != nil {
		return nil, fmt.Errorf("invalid RESIZE_FILTER: %w", err)
	}

	size := v.GetInt("IMAGE_SIZE")
	if size <= 0 {
		return nil, fmt.Errorf("invalid IMAGE_SIZE %q", v.GetString("IMAGE_SIZE"))
	}

	maxPixels := v.GetInt64("MAX_IMAGE_PIXELS")
	if maxPixels < 0 {
		return nil, fmt.Errorf("invalid MAX_IMAGE_PIXELS %q", v.GetString("MAX_IMAGE_PIXELS"))
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("HOST"),
			Port:            port,
			MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),
			StaticDir:       v.GetString("STATIC_DIR"),
			ShutdownTimeout: timeout,
		},
		Model: model.Config{
			Path:        v.GetString("MODEL_PATH"),
			InputName:   v.GetString("MODEL_INPUT_NAME"),
			OutputName:  v.GetString("MODEL_OUTPUT_NAME"),
			LibraryPath: v.GetString("ONNXRUNTIME_LIB"),
			Activation:  activation,
		},
		Image: ImageConfig{
			Size:      size,
			Filter:    filter,
			MaxPixels: maxPixels,
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}
