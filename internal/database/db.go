// Package database opens the MySQL connection pool used by every
// repository in this service.
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/hiromu1018ks/official-car-app/internal/config"
)

// Open connects to MySQL, applies the pool settings and verifies the
// connection with a bounded ping.
//
// Two driver options carry repository semantics and must not be changed
// independently: ParseTime/Loc keep every stored and compared instant in
// UTC, and ClientFoundRows makes UPDATE report matched rows rather than
// changed rows, which the status-guarded writes rely on to tell "row left
// SCHEDULED" apart from "edit changed nothing".
func Open(user, pass, host, port, name string, pool config.DBPoolConfig) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = user
	mc.Passwd = pass
	mc.Net = "tcp"
	mc.Addr = host + ":" + port
	mc.DBName = name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pool.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
