package sqlstore

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const transactionsTable = "transactions"

// Dialect carries the driver-specific parts of the ledger store.
type Dialect struct {
	Name        string
	Schema      []string
	TablesQuery string
	// Retryable reports transient conflicts worth re-running the whole write transaction for.
	Retryable func(err error) bool
}

var dialects = map[string]Dialect{
	"postgres": {
		Name: "postgres",
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				wallet_address TEXT NOT NULL CHECK (wallet_address <> ''),
				transaction_type VARCHAR(16) NOT NULL,
				amount BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_wallet_address ON transactions (wallet_address)`,
		},
		TablesQuery: `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`,
		Retryable: func(err error) bool {
			// 40001 - serialization failure, 40P01 - deadlock detected
			var pqErr *pq.Error
			if errors.As(err, &pqErr) {
				return pqErr.Code == "40001" || pqErr.Code == "40P01"
			}
			return false
		},
	},
	"sqlite3": {
		Name: "sqlite3",
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				wallet_address TEXT NOT NULL CHECK (wallet_address <> ''),
				transaction_type TEXT NOT NULL,
				amount INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_wallet_address ON transactions (wallet_address)`,
		},
		TablesQuery: `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		Retryable: func(err error) bool {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) {
				return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
			}
			return false
		},
	},
	"mysql": {
		Name: "mysql",
		Schema: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				wallet_address VARCHAR(255) NOT NULL,
				transaction_type VARCHAR(16) NOT NULL,
				amount BIGINT NOT NULL,
				INDEX idx_transactions_wallet_address (wallet_address),
				CHECK (wallet_address <> '')
			)`,
		},
		TablesQuery: `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name`,
		Retryable: func(err error) bool {
			// 1213 - deadlock found, 1205 - lock wait timeout exceeded
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) {
				return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
			}
			return false
		},
	},
}

func DialectFor(driverName string) (Dialect, error) {
	d, ok := dialects[driverName]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driverName)
	}
	return d, nil
}

func SupportedDrivers() []string {
	return []string{"postgres", "sqlite3", "mysql"}
}
