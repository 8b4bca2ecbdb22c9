package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		BaseURL            string   `mapstructure:"base_url"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Paystack struct {
		SecretKey   string `mapstructure:"secret_key"`
		PublicKey   string `mapstructure:"public_key"`
		CallbackURL string `mapstructure:"callback_url"`
	} `mapstructure:"paystack"`

	Flutterwave struct {
		SecretKey     string `mapstructure:"secret_key"`
		WebhookSecret string `mapstructure:"webhook_secret"`
		RedirectURL   string `mapstructure:"redirect_url"`
	} `mapstructure:"flutterwave"`

	Payments struct {
		Currency          string `mapstructure:"currency"`
		Provider          string `mapstructure:"provider"`
		ReceiptSecret     string `mapstructure:"receipt_secret"`
		LockTTLSeconds    int    `mapstructure:"lock_ttl_seconds"`
		PayoutMaxRetries  int    `mapstructure:"payout_max_retries"`
		ReceiptPDFDir     string `mapstructure:"receipt_pdf_dir"`
		ProofDailyQuota   int    `mapstructure:"proof_daily_quota"`
		ProofPerProperty  int    `mapstructure:"proof_per_property"`
	} `mapstructure:"payments"`

	Termii struct {
		APIKey   string `mapstructure:"api_key"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"termii"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
		FromName string `mapstructure:"from_name"`
	} `mapstructure:"smtp"`

	R2 struct {
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
		PublicURL string `mapstructure:"public_url"`
	} `mapstructure:"r2"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "estate-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "estate_db")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("payments.currency", "NGN")
	v.SetDefault("payments.provider", "paystack")
	v.SetDefault("payments.lock_ttl_seconds", 60)
	v.SetDefault("payments.payout_max_retries", 3)
	v.SetDefault("payments.receipt_pdf_dir", "/tmp/receipts")
	v.SetDefault("payments.proof_daily_quota", 5)
	v.SetDefault("payments.proof_per_property", 3)
	v.SetDefault("r2.region", "auto")
	v.SetDefault("smtp.port", 587)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	// Redis overrides (K8s sets REDIS_SERVICE_HOST/PORT for services)
	if host := os.Getenv("REDIS_SERVICE_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_SERVICE_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Redis.Port = n
		}
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" {
			log.Fatal("JWT_SECRET not found in environment or config file")
		}
	}

	// Provider credentials always come from the environment when set
	if key := os.Getenv("PAYSTACK_SECRET_KEY"); key != "" {
		cfg.Paystack.SecretKey = key
	}
	if key := os.Getenv("PAYSTACK_PUBLIC_KEY"); key != "" {
		cfg.Paystack.PublicKey = key
	}
	if key := os.Getenv("FLW_SECRET_KEY"); key != "" {
		cfg.Flutterwave.SecretKey = key
	}
	if key := os.Getenv("FLW_WEBHOOK_SECRET"); key != "" {
		cfg.Flutterwave.WebhookSecret = key
	}
	if key := os.Getenv("RECEIPT_SECRET"); key != "" {
		cfg.Payments.ReceiptSecret = key
	}
	if key := os.Getenv("TERMII_API_KEY"); key != "" {
		cfg.Termii.APIKey = key
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		cfg.SMTP.Password = pass
	}
	if key := os.Getenv("R2_ACCESS_KEY"); key != "" {
		cfg.R2.AccessKey = key
	}
	if key := os.Getenv("R2_SECRET_KEY"); key != "" {
		cfg.R2.SecretKey = key
	}
	if ep := os.Getenv("R2_ENDPOINT"); ep != "" {
		cfg.R2.Endpoint = ep
	}
	if b := os.Getenv("R2_BUCKET"); b != "" {
		cfg.R2.Bucket = b
	}

	if cfg.Payments.ReceiptSecret == "" {
		// Barcode references fall back to the JWT secret rather than failing startup
		cfg.Payments.ReceiptSecret = cfg.JWT.Secret
	}

	return &cfg
}

// DSN builds the Postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
