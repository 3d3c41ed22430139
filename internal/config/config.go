package config

import (
	"fmt"
	"os"
	"strconv"

	"benritz/bonds/internal/types"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML). Every field may also be
// set from the environment, which takes precedence over the file.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
	API    APIConfig    `yaml:"api"`
	Store  StoreConfig  `yaml:"store"`
}

type EngineConfig struct {
	TaxRate       float64 `yaml:"tax_rate"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	MinDerivative float64 `yaml:"min_derivative"`
	FloorFactor   float64 `yaml:"floor_factor"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type APIConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type StoreConfig struct {
	BucketName   string `yaml:"bucket_name"`
	BucketPrefix string `yaml:"bucket_prefix"`
	AWSProfile   string `yaml:"aws_profile"`
}

func Default() *Config {
	p := types.DefaultParams()

	return &Config{
		Engine: EngineConfig{
			TaxRate:       p.TaxRate,
			MaxIterations: p.MaxIterations,
			Tolerance:     p.Tolerance,
			MinDerivative: p.MinDerivative,
			FloorFactor:   p.FloorFactor,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			Port: "8080",
			Env:  "development",
		},
		Store: StoreConfig{
			AWSProfile: "default",
		},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) applyEnv() error {
	var err error

	if c.Engine.TaxRate, err = getEnvFloat("BOND_TAX_RATE", c.Engine.TaxRate); err != nil {
		return err
	}
	if c.Engine.MaxIterations, err = getEnvInt("BOND_MAX_ITERATIONS", c.Engine.MaxIterations); err != nil {
		return err
	}
	if c.Engine.Tolerance, err = getEnvFloat("BOND_TOLERANCE", c.Engine.Tolerance); err != nil {
		return err
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.API.Port = getEnv("API_PORT", c.API.Port)
	c.API.Env = getEnv("API_ENV", c.API.Env)
	c.Store.BucketName = getEnv("BONDS_DATA_BUCKET_NAME", c.Store.BucketName)
	c.Store.BucketPrefix = getEnv("BONDS_DATA_BUCKET_PREFIX", c.Store.BucketPrefix)
	c.Store.AWSProfile = getEnv("AWS_PROFILE", c.Store.AWSProfile)

	return nil
}

func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.API.Port == "" {
		return fmt.Errorf("api.port is required")
	}

	return nil
}

// Params returns the engine section as valuation parameters.
func (c *Config) Params() types.Params {
	return types.Params{
		TaxRate:       c.Engine.TaxRate,
		MaxIterations: c.Engine.MaxIterations,
		Tolerance:     c.Engine.Tolerance,
		MinDerivative: c.Engine.MinDerivative,
		FloorFactor:   c.Engine.FloorFactor,
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}
