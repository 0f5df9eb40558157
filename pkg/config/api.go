package config

import "strings"

// Supported values for APIConfig.StoreDriver.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// APIConfig holds runtime configuration for the registration API.
type APIConfig struct {
	Environment   string
	Addr          string
	LogLevel      string
	StoreDriver   string
	SQLitePath    string
	DatabaseURL   string
	AutoMigrate   bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	BcryptCost    int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:   GetString("APP_ENV", "development"),
		Addr:          GetString("API_ADDR", ":5000"),
		LogLevel:      GetString("LOG_LEVEL", "info"),
		StoreDriver:   strings.ToLower(strings.TrimSpace(GetString("STORE_DRIVER", StoreSQLite))),
		SQLitePath:    GetString("SQLITE_PATH", "users.db"),
		DatabaseURL:   GetString("DATABASE_URL", "postgres://signup:signup@db:5432/signup?sslmode=disable"),
		AutoMigrate:   GetBool("AUTO_MIGRATE", true),
		RedisAddr:     GetString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetString("REDIS_PASSWORD", ""),
		RedisDB:       GetInt("REDIS_DB", 0),
		RedisPrefix:   GetString("REDIS_PREFIX", "signup:"),
		BcryptCost:    GetInt("BCRYPT_COST", 12),
	}
}
