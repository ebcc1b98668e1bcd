package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL          string   `mapstructure:"REDIS_URL"`
	SessionSecret     string   `mapstructure:"SESSION_SECRET"`
	SessionSecretFile string   `mapstructure:"SESSION_SECRET_FILE"`
	CredentialIssuer  string   `mapstructure:"CREDENTIAL_ISSUER"`
	PatientClientID   string   `mapstructure:"PATIENT_CLIENT_ID"`
	DoctorClientID    string   `mapstructure:"DOCTOR_CLIENT_ID"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	MigrationsDir     string   `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("SESSION_SECRET_FILE")
	v.BindEnv("CREDENTIAL_ISSUER")
	v.BindEnv("PATIENT_CLIENT_ID")
	v.BindEnv("DOCTOR_CLIENT_ID")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production a
// session secret source and both upstream app client ids must be present:
// without them every login is rejected as coming from an unrecognized client.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.SessionSecret == "" && c.SessionSecretFile == "" {
			return fmt.Errorf("SESSION_SECRET or SESSION_SECRET_FILE is required in production")
		}
		if c.PatientClientID == "" || c.DoctorClientID == "" {
			return fmt.Errorf("PATIENT_CLIENT_ID and DOCTOR_CLIENT_ID are required in production")
		}
	}
	return nil
}
