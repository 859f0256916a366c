package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendFirebase = "firebase"
	BackendMemory   = "memory"
	BackendB2       = "b2"
	BackendBolt     = "bolt"
	BackendRedis    = "redis"
)

// ServerConfig is a struct that contains configuration values for the app backend.
type ServerConfig struct {
	Env string
	// Port is the port the local API should run on.
	Port int
	// AllowedOrigins is a list of URLs that the server will accept requests from.
	AllowedOrigins []string
	// AllowedEmailDomains is a list of email domains that the server will allow account registrations from. If empty,
	// all domains will be allowed.
	AllowedEmailDomains []string
	// Backend selects where users and courses live: firebase or memory.
	Backend string
	// PasswordHasher names the scheme new password digests are written with: sha256 or bcrypt.
	PasswordHasher string
	// ShutdownTimeout bounds how long in-flight requests may take once the process is asked to stop.
	ShutdownTimeout time.Duration

	Log      LogConfig
	Firebase FirebaseConfig
	Blob     BlobConfig
	Session  SessionConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
	StorageBucket   string
}

// BlobConfig selects where uploaded resource files are written: firebase, b2 or memory.
type BlobConfig struct {
	Backend     string
	B2AccountID string
	B2AppKey    string
	B2Bucket    string
}

// SessionConfig selects where the device's session token is persisted: bolt, redis or memory.
type SessionConfig struct {
	Backend       string
	Path          string
	Key           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Env:                 EnvDevelopment,
		Port:                8080,
		AllowedOrigins:      []string{"http://localhost:8081"},
		AllowedEmailDomains: nil,
		Backend:             BackendFirebase,
		PasswordHasher:      "sha256",
		ShutdownTimeout:     10 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Firebase: FirebaseConfig{
			CredentialsFile: "firebase-config.json",
		},
		Blob: BlobConfig{
			Backend: BackendFirebase,
		},
		Session: SessionConfig{
			Backend:   BackendBolt,
			Path:      "data/session.db",
			Key:       "token",
			RedisAddr: "localhost:6379",
		},
	}
}

// Load reads configuration from the environment and an optional .env file in the working directory.
func Load() (*ServerConfig, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file. A missing file is not an error.
func LoadFile(envFile string) (*ServerConfig, error) {
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &ServerConfig{
		Env:                 v.GetString("ENV"),
		Port:                v.GetInt("PORT"),
		AllowedOrigins:      splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		AllowedEmailDomains: splitAndTrim(v.GetString("ALLOWED_EMAIL_DOMAINS")),
		Backend:             strings.ToLower(v.GetString("BACKEND")),
		PasswordHasher:      strings.ToLower(v.GetString("PASSWORD_HASHER")),
		ShutdownTimeout:     parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Firebase = FirebaseConfig{
		CredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
		ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		StorageBucket:   v.GetString("FIREBASE_STORAGE_BUCKET"),
	}

	cfg.Blob = BlobConfig{
		Backend:     strings.ToLower(v.GetString("BLOB_BACKEND")),
		B2AccountID: v.GetString("B2_ACCOUNT_ID"),
		B2AppKey:    v.GetString("B2_APPLICATION_KEY"),
		B2Bucket:    v.GetString("B2_BUCKET"),
	}

	cfg.Session = SessionConfig{
		Backend:       strings.ToLower(v.GetString("SESSION_BACKEND")),
		Path:          v.GetString("SESSION_PATH"),
		Key:           v.GetString("SESSION_KEY"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *ServerConfig) {
	v.SetDefault("ENV", d.Env)
	v.SetDefault("PORT", d.Port)
	v.SetDefault("ALLOWED_ORIGINS", strings.Join(d.AllowedOrigins, ","))
	v.SetDefault("ALLOWED_EMAIL_DOMAINS", "")
	v.SetDefault("BACKEND", d.Backend)
	v.SetDefault("PASSWORD_HASHER", d.PasswordHasher)
	v.SetDefault("SHUTDOWN_TIMEOUT", d.ShutdownTimeout.String())

	v.SetDefault("LOG_LEVEL", d.Log.Level)
	v.SetDefault("LOG_FORMAT", d.Log.Format)

	v.SetDefault("FIREBASE_CREDENTIALS_FILE", d.Firebase.CredentialsFile)
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_STORAGE_BUCKET", "")

	v.SetDefault("BLOB_BACKEND", d.Blob.Backend)
	v.SetDefault("B2_ACCOUNT_ID", "")
	v.SetDefault("B2_APPLICATION_KEY", "")
	v.SetDefault("B2_BUCKET", "")

	v.SetDefault("SESSION_BACKEND", d.Session.Backend)
	v.SetDefault("SESSION_PATH", d.Session.Path)
	v.SetDefault("SESSION_KEY", d.Session.Key)
	v.SetDefault("REDIS_ADDR", d.Session.RedisAddr)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
