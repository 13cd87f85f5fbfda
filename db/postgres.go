package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"profile-service/config"

	_ "github.com/lib/pq" // Postgres driver
)

var (
	DB     *sql.DB
	openDB = sql.Open
)

// Connect opens the shared pool. database/sql checks a connection out per
// statement, so DB is safe for concurrent handlers.
func Connect(cfg config.DatabaseConfig) error {
	if cfg.Engine != "postgres" {
		return fmt.Errorf("unsupported database engine: %s", cfg.Engine)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Name, cfg.SSLMode)

	pool, err := openDB("postgres", connStr)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return fmt.Errorf("error connecting to the database: %w", err)
	}

	DB = pool
	log.Printf("Successfully connected to the Postgres database host=%s db=%s", cfg.Host, cfg.Name)
	return nil
}
