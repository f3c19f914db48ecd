package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables

	"github.com/joho/godotenv" // godotenv loads a local .env file during development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Redis, rate-limit and cache settings have their
// own loaders in this package because they are optional and carry defaults.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify bearer tokens
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // best effort; real environments set variables directly
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
