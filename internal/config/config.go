package config

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/soaringjerry/pregate/internal/utils"
)

type (
	Config struct {
		App       App
		Security  Security
		Screening Screening
		Storage   Storage
		Redis     Redis
		Mongo     Mongo
		Logger    Logger
		Bootstrap Bootstrap
	}

	App struct {
		Env             string
		Port            string
		Version         string
		CORSOrigins     []string
		RateLimitWindow time.Duration
		RateLimitMax    int
		ShutdownTimeout time.Duration
		BodyLimitBytes  int64

		// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP. Only set it
		// behind a proxy that overwrites those headers.
		TrustProxy bool
	}

	Security struct {
		JWTSecret string
		JWTTTL    time.Duration
		// LoginAttemptsPerMinute and LoginBlock tune the per-IP admin login guard.
		LoginAttemptsPerMinute int
		LoginBlock             time.Duration
	}

	Screening struct {
		MinSubmissionTime time.Duration
		SessionTTL        time.Duration
	}

	Storage struct {
		SQLitePath    string // empty: in-memory store
		MigrationsDir string
	}

	Redis struct {
		Addr     string // empty: in-process session bindings
		Password string
		DB       int
	}

	Mongo struct {
		URI      string // set: submissions are written to MongoDB
		Database string
	}

	Logger struct {
		Level    string
		File     string
		MaxSizeM int
		MaxDays  int
	}

	Bootstrap struct {
		AdminEmail        string
		AdminPassword     string
		SeedQuestionsFile string
	}
)

type envDefaults struct {
	logLevel        string
	corsOrigins     []string
	rateLimitWindow time.Duration
	rateLimitMax    int
	minSubmission   time.Duration
}

var defaultsByEnv = map[string]envDefaults{
	"development": {
		logLevel:        "debug",
		corsOrigins:     []string{"http://localhost:5173"},
		rateLimitWindow: 15 * time.Minute,
		rateLimitMax:    100,
		minSubmission:   5 * time.Second,
	},
	"uat": {
		logLevel:        "info",
		corsOrigins:     []string{"https://pregate-uat.example.com"},
		rateLimitWindow: time.Hour,
		rateLimitMax:    60,
		minSubmission:   10 * time.Second,
	},
	"production": {
		logLevel:        "warn",
		corsOrigins:     []string{"https://pregate.example.com"},
		rateLimitWindow: time.Hour,
		rateLimitMax:    30,
		minSubmission:   15 * time.Second,
	},
}

// Load reads .env (if present) and the process environment. Unknown APP_ENV values fall back
// to development defaults but keep the given name.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() *Config {
	env := utils.SafeEnv("APP_ENV", "development")
	def, ok := defaultsByEnv[env]
	if !ok {
		def = defaultsByEnv["development"]
	}
	minSeconds := utils.EnvInt("MIN_SUBMISSION_TIME_SECONDS", int(def.minSubmission/time.Second))
	if minSeconds < 0 {
		minSeconds = 0
	}
	return &Config{
		App: App{
			Env:             env,
			Port:            utils.SafeEnv("PORT", "3000"),
			Version:         utils.SafeEnv("APP_VERSION", "1.0.0"),
			CORSOrigins:     utils.EnvList("CORS_ORIGINS", def.corsOrigins),
			RateLimitWindow: utils.EnvDuration("RATE_LIMIT_WINDOW", def.rateLimitWindow),
			RateLimitMax:    utils.EnvInt("RATE_LIMIT_MAX", def.rateLimitMax),
			ShutdownTimeout: utils.EnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			BodyLimitBytes:  int64(utils.EnvInt("BODY_LIMIT_BYTES", 1<<20)),
			TrustProxy:      utils.EnvBool("TRUST_PROXY", false),
		},
		Security: Security{
			JWTSecret:              utils.SafeEnv("JWT_SECRET", ""),
			JWTTTL:                 utils.EnvDuration("JWT_TTL", 8*time.Hour),
			LoginAttemptsPerMinute: utils.EnvInt("LOGIN_ATTEMPTS_PER_MINUTE", 5),
			LoginBlock:             utils.EnvDuration("LOGIN_BLOCK", 15*time.Minute),
		},
		Screening: Screening{
			MinSubmissionTime: time.Duration(minSeconds) * time.Second,
			SessionTTL:        utils.EnvDuration("SESSION_TTL", 2*time.Hour),
		},
		Storage: Storage{
			SQLitePath:    utils.SafeEnv("SQLITE_PATH", ""),
			MigrationsDir: utils.SafeEnv("MIGRATIONS_DIR", ""),
		},
		Redis: Redis{
			Addr:     utils.SafeEnv("REDIS_ADDR", ""),
			Password: utils.SafeEnv("REDIS_PASSWORD", ""),
			DB:       utils.EnvInt("REDIS_DB", 0),
		},
		Mongo: Mongo{
			URI:      utils.SafeEnv("MONGODB_URI", ""),
			Database: utils.SafeEnv("MONGODB_DATABASE", "pregate"),
		},
		Logger: Logger{
			Level:    utils.SafeEnv("LOG_LEVEL", def.logLevel),
			File:     utils.SafeEnv("LOG_FILE", "logs/pregate.log"),
			MaxSizeM: utils.EnvInt("LOG_MAX_SIZE_MB", 50),
			MaxDays:  utils.EnvInt("LOG_MAX_DAYS", 14),
		},
		Bootstrap: Bootstrap{
			AdminEmail:        utils.SafeEnv("ADMIN_EMAIL", ""),
			AdminPassword:     utils.SafeEnv("ADMIN_PASSWORD", ""),
			SeedQuestionsFile: utils.SafeEnv("SEED_QUESTIONS_FILE", ""),
		},
	}
}

// IsDevelopment reports whether cookies may be same-site only.
func (c *Config) IsDevelopment() bool { return c.App.Env == "development" }

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.App.Port }
