package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type Config struct {
	DatabaseURL       string `validate:"required"`
	RadiusDatabaseURL string

	RadiusVendor        string `validate:"oneof=mikrotik ubiquiti juniper cisco generic"`
	PPPFraming          bool
	DefaultDownloadMbps float64 `validate:"gt=0"`
	DefaultUploadMbps   float64 `validate:"gt=0"`
	PasswordLength      int     `validate:"gte=8,lte=64"`

	FallbackUsername string `validate:"required,alphanum"`
	FallbackPassword string `validate:"required"`

	CustomerID uint
	LogLevel   string

	ElasticAPMServerURL   string
	ElasticAPMServiceName string
	ElasticAPMEnvironment string
}

func LoadConfig() (*Config, error) {
	// a missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()

	var parseErr error
	collect := func(err error) {
		parseErr = multierr.Append(parseErr, err)
	}

	config := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RadiusDatabaseURL: os.Getenv("RADIUS_DATABASE_URL"),

		RadiusVendor: strings.ToLower(getEnv("RADIUS_VENDOR", "mikrotik")),

		FallbackUsername: getEnv("FALLBACK_USERNAME", "testuser"),
		FallbackPassword: getEnv("FALLBACK_PASSWORD", "testpass123"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		ElasticAPMServerURL:   os.Getenv("ELASTIC_APM_SERVER_URL"),
		ElasticAPMServiceName: os.Getenv("ELASTIC_APM_SERVICE_NAME"),
		ElasticAPMEnvironment: os.Getenv("ELASTIC_APM_ENVIRONMENT"),
	}

	var err error
	config.PPPFraming, err = getEnvBool("RADIUS_PPP_FRAMING", false)
	collect(err)
	config.DefaultDownloadMbps, err = getEnvFloat("DEFAULT_DOWNLOAD_MBPS", 10)
	collect(err)
	config.DefaultUploadMbps, err = getEnvFloat("DEFAULT_UPLOAD_MBPS", 10)
	collect(err)
	config.PasswordLength, err = getEnvInt("PPPOE_PASSWORD_LENGTH", 12)
	collect(err)
	config.CustomerID, err = getEnvUint("PROVISION_CUSTOMER_ID", 0)
	collect(err)

	if parseErr != nil {
		return nil, errors.Wrap(parseErr, "invalid configuration")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func getEnvUint(key string, defaultValue uint) (uint, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, errors.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return uint(n), nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Errorf("%s must be a number, got %q", key, value)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.Errorf("%s must be true or false, got %q", key, value)
	}
	return b, nil
}
