package sqlstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	for _, name := range SupportedDrivers() {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name)
		assert.NotEmpty(t, d.Schema)
		assert.NotEmpty(t, d.TablesQuery)
	}

	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestDialect_Retryable(t *testing.T) {
	tests := []struct {
		driver string
		err    error
		want   bool
	}{
		{"postgres", &pq.Error{Code: "40001"}, true},
		{"postgres", fmt.Errorf("insert: %w", &pq.Error{Code: "40P01"}), true},
		{"postgres", &pq.Error{Code: "23505"}, false},
		{"sqlite3", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite3", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"sqlite3", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"mysql", &mysql.MySQLError{Number: 1213}, true},
		{"mysql", &mysql.MySQLError{Number: 1205}, true},
		{"mysql", &mysql.MySQLError{Number: 1062}, false},
		{"mysql", errors.New("plain"), false},
	}

	for _, tt := range tests {
		d, err := DialectFor(tt.driver)
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Retryable(tt.err), "%s: %v", tt.driver, tt.err)
	}
}
