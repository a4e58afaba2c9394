package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env         string
	Port        string
	LogLevel    string
	FrontendURL string
	CORSOrigins []string

	DB       DBConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Google   GoogleConfig
	Gemini   GeminiConfig
	Outbox   time.Duration
	Cleanup  time.Duration
	MaxBytes int64

	SuperAdminEmail    string
	SuperAdminPassword string
}

type DBConfig struct {
	Driver   string // postgres | memory
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=Asia/Ho_Chi_Minh",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type JWTConfig struct {
	Secret     string
	Expiry     time.Duration
	CookieName string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type StorageConfig struct {
	Driver         string // local | supabase | gridfs
	LocalDir       string
	PublicURL      string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
	MongoURI       string
	MongoDB        string
}

type RedisConfig struct {
	Addr           string
	Password       string
	LoginPerMinute int64
}

type GoogleConfig struct {
	ClientID string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "code_review")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_EXPIRY", "24h")
	v.SetDefault("AUTH_COOKIE_NAME", "auth_token")

	v.SetDefault("SMTP_PORT", 587)

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("SUPABASE_BUCKET", "uploads")
	v.SetDefault("MONGO_DB", "code_review")

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("OUTBOX_INTERVAL", "5s")
	v.SetDefault("CLEANUP_INTERVAL", "6h")
}

// Load đọc .env (nếu có) rồi lấy cấu hình từ biến môi trường qua viper.
func Load() (*Config, error) {
	// Thiếu .env là bình thường khi chạy trong container
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Env:         v.GetString("APP_ENV"),
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		FrontendURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		DB: DBConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiry:     v.GetDuration("JWT_EXPIRY"),
			CookieName: v.GetString("AUTH_COOKIE_NAME"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(v.GetString("STORAGE_DRIVER")),
			LocalDir:       v.GetString("STORAGE_LOCAL_DIR"),
			PublicURL:      v.GetString("STORAGE_PUBLIC_URL"),
			SupabaseURL:    v.GetString("SUPABASE_URL"),
			SupabaseKey:    v.GetString("SUPABASE_KEY"),
			SupabaseBucket: v.GetString("SUPABASE_BUCKET"),
			MongoURI:       v.GetString("MONGO_URI"),
			MongoDB:        v.GetString("MONGO_DB"),
		},
		Redis: RedisConfig{
			Addr:           v.GetString("REDIS_ADDR"),
			Password:       v.GetString("REDIS_PASSWORD"),
			LoginPerMinute: v.GetInt64("RATE_LIMIT_PER_MINUTE"),
		},
		Google: GoogleConfig{ClientID: v.GetString("GOOGLE_CLIENT_ID")},
		Gemini: GeminiConfig{
			APIKey: v.GetString("GEMINI_API_KEY"),
			Model:  v.GetString("GEMINI_MODEL"),
		},
		Outbox:   v.GetDuration("OUTBOX_INTERVAL"),
		Cleanup:  v.GetDuration("CLEANUP_INTERVAL"),
		MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),

		SuperAdminEmail:    v.GetString("SUPERADMIN_EMAIL"),
		SuperAdminPassword: v.GetString("SUPERADMIN_PASSWORD"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWT.Secret = "dev_secret_change_me"
	}
	switch c.DB.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Storage.Driver {
	case "local", "supabase", "gridfs":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "gridfs" && c.Storage.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required for the gridfs storage driver")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
