package config

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort int `mapstructure:"api_port"`

	DatabaseType            string `mapstructure:"database_type"` // "sqlite" or "postgres"
	DatabasePath            string `mapstructure:"database_path"`
	DatabaseHost            string `mapstructure:"database_host"`
	DatabasePort            string `mapstructure:"database_port"`
	DatabaseName            string `mapstructure:"database_name"`
	DatabaseUser            string `mapstructure:"database_user"`
	DatabasePassword        string `mapstructure:"database_password"`
	DatabaseSSLMode         string `mapstructure:"database_sslmode"`
	DatabaseMaxConns        int    `mapstructure:"database_max_conns"`
	DatabaseMaxIdle         int    `mapstructure:"database_max_idle"`
	DatabaseConnMaxLifetime string `mapstructure:"database_conn_max_lifetime"`

	JWTSecret           string `mapstructure:"jwt_secret"`
	AccessTokenTTLMin   int    `mapstructure:"access_token_ttl_min"`
	RefreshTTLDays      int    `mapstructure:"refresh_ttl_days"`
	BcryptCost          int    `mapstructure:"bcrypt_cost"`
	PendingCooldownDays int    `mapstructure:"pending_cooldown_days"`
	DenialCooldownDays  int    `mapstructure:"denial_cooldown_days"`

	NotifySender string `mapstructure:"notify_sender"` // "log" or "smtp"
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	MailFrom     string `mapstructure:"mail_from"`
	OpsEmail     string `mapstructure:"ops_email"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SecureCookies  bool     `mapstructure:"secure_cookies"`
}

// ErrMissingJWTSecret is returned when no signing secret is configured. A
// missing secret is a configuration error and fatal at startup.
var ErrMissingJWTSecret = errors.New("jwt_secret is not configured")

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("JOBTRAIL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: could not read config file %s: %v. Using defaults and environment variables.", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Env vars don't round-trip through Unmarshal for keys absent from the
	// file, so pull the secret explicitly before validating.
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = v.GetString("jwt_secret")
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("api_port not specified, using default 8081")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = "sqlite"
	}
	if cfg.DatabaseType == "sqlite" && cfg.DatabasePath == "" {
		cfg.DatabasePath = "jobtrail.db"
		log.Println("database_path not specified, using default jobtrail.db")
	}
	if cfg.DatabaseSSLMode == "" {
		cfg.DatabaseSSLMode = "disable"
	}
	if cfg.AccessTokenTTLMin == 0 {
		cfg.AccessTokenTTLMin = 60
	}
	if cfg.RefreshTTLDays == 0 {
		cfg.RefreshTTLDays = 30
	}
	if cfg.PendingCooldownDays == 0 {
		cfg.PendingCooldownDays = 7
	}
	if cfg.DenialCooldownDays == 0 {
		cfg.DenialCooldownDays = 14
	}
	if cfg.NotifySender == "" {
		cfg.NotifySender = "log"
	}
	if cfg.OpsEmail == "" {
		cfg.OpsEmail = "ops@jobtrail.io"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
		log.Println("allowed_origins not specified, allowing localhost only")
	}
}
