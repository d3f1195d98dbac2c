package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	Telegram  Telegram
	JWT       JWT
	Auth      Auth
	RateLimit RateLimit
	Upload    Upload
	CORS      CORS
	Metrics   Metrics
	LogLevel  string
}

type Server struct {
	Host string
	Port int
	Env  string
}

func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s Server) IsDevelopment() bool {
	return s.Env == "development"
}

type Database struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d Database) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type Redis struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type Telegram struct {
	Token        string
	Polling      bool
	AdminContact string
}

// Enabled reports whether the bot should poll for updates.
func (t Telegram) Enabled() bool {
	return t.Token != "" && t.Polling
}

type JWT struct {
	Secret    string
	ExpiresIn time.Duration
}

type Auth struct {
	Enabled       bool
	AdminUsername string
	AdminPassword string
}

type RateLimit struct {
	Window time.Duration
	Max    int
}

type Upload struct {
	Driver       string
	Dir          string
	MaxSize      int64
	AllowedTypes []string
	S3           S3
}

type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type CORS struct {
	Origins []string
}

// Metrics restricts /metrics to scrapers inside AllowedCIDRs.
type Metrics struct {
	AllowedCIDRs []string
}

const defaultMetricsCIDRs = "127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,::1/128"

const defaultOrigins = "http://localhost:3000,http://localhost:5173,http://localhost:3001,http://127.0.0.1:3000,http://127.0.0.1:5173"

// LoadConfig reads the process environment, optionally seeded from a .env file.
func LoadConfig() (Config, error) {
	// A missing .env is fine, the environment may be set by the supervisor.
	_ = godotenv.Load()

	p := &parser{}
	cfg := Config{
		Server: Server{
			Host: getEnv("HOST", "0.0.0.0"),
			Port: p.int("PORT", 8000),
			Env:  getEnv("NODE_ENV", "development"),
		},
		Database: Database{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "invest_bot_db"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			Enabled:  p.bool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.int("REDIS_DB", 0),
		},
		Telegram: Telegram{
			Token:        getEnv("TELEGRAM_BOT_TOKEN", ""),
			Polling:      getEnv("TELEGRAM_POLLING", "true") != "false",
			AdminContact: getEnv("TELEGRAM_ADMIN_CONTACT", "@admin_username"),
		},
		JWT: JWT{
			Secret:    getEnv("JWT_SECRET", "change-me"),
			ExpiresIn: p.duration("JWT_EXPIRES_IN", 24*time.Hour),
		},
		Auth: Auth{
			Enabled:       p.bool("API_AUTH_ENABLED", true),
			AdminUsername: getEnv("ADMIN_USERNAME", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		RateLimit: RateLimit{
			Window: p.duration("RATE_LIMIT_WINDOW", 15*time.Minute),
			Max:    p.int("RATE_LIMIT_MAX", 100),
		},
		Upload: Upload{
			Driver:       getEnv("UPLOAD_DRIVER", "local"),
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxSize:      int64(p.int("UPLOAD_MAX_SIZE", 5*1024*1024)),
			AllowedTypes: getList("UPLOAD_ALLOWED_TYPES", "image/jpeg,image/png,image/gif"),
			S3: S3{
				Bucket:    getEnv("S3_BUCKET", ""),
				Region:    getEnv("S3_REGION", "auto"),
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				PublicURL: getEnv("S3_PUBLIC_URL", ""),
			},
		},
		CORS: CORS{
			Origins: getList("CORS_ORIGINS", defaultOrigins),
		},
		Metrics: Metrics{
			AllowedCIDRs: getList("METRICS_ALLOWED_CIDRS", defaultMetricsCIDRs),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.Upload.Driver != "local" && cfg.Upload.Driver != "s3" {
		return Config{}, fmt.Errorf("invalid UPLOAD_DRIVER %q: want local or s3", cfg.Upload.Driver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getList(key, fallback string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, fallback), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parser keeps the first typed-value error so LoadConfig can report it.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) int(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) bool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}
