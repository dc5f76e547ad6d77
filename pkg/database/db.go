package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nzyazin/ledger/internal/core/logger"
	"github.com/Nzyazin/ledger/pkg/config"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var ErrPool = errors.New("connection pool unavailable")

type Database struct {
	log logger.Logger
	*sqlx.DB
}

// NewDatabase builds the process-wide pool and pings it once; callers treat failure as fatal.
func NewDatabase(cfg config.DBConfig, log logger.Logger) (*Database, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: error opening database: %v", ErrPool, err)
	}

	maxOpen, maxIdle, lifetime := cfg.PoolLimits()
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: error connecting to the database: %v", ErrPool, err)
	}

	log.Info("Database connection established",
		logger.StringField("driver", cfg.Driver),
		logger.IntField("max_open_conns", maxOpen),
		logger.IntField("max_idle_conns", maxIdle),
	)

	return &Database{log: log, DB: db}, nil
}

func (db *Database) Close() error {
	db.log.Info("Closing database connection")
	return db.DB.Close()
}

func (db *Database) StatsSummary() string {
	s := db.DB.Stats()
	return fmt.Sprintf("open=%d in_use=%d idle=%d wait_count=%d wait=%s",
		s.OpenConnections, s.InUse, s.Idle, s.WaitCount, s.WaitDuration.Round(time.Millisecond))
}
