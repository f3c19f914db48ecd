package config

import "time"

// DBPoolConfig tunes the database/sql connection pool.  The defaults suit a
// single API instance in front of a small MySQL; larger deployments raise
// them per instance via environment variables.
type DBPoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// LoadDBPoolConfig reads pool settings from DB_MAX_OPEN_CONNS,
// DB_MAX_IDLE_CONNS, DB_CONN_MAX_LIFETIME and DB_PING_TIMEOUT, applying
// defaults and clamping values into a usable range.
func LoadDBPoolConfig() DBPoolConfig {
	cfg := DBPoolConfig{
		MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		PingTimeout:     envDur("DB_PING_TIMEOUT", 5*time.Second),
	}
	if cfg.MaxOpenConns < 1 {
		cfg.MaxOpenConns = 1
	}
	if cfg.MaxIdleConns < 0 {
		cfg.MaxIdleConns = 0
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	return cfg
}
