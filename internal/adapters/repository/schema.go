package repository

import (
	"strconv"
	"strings"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type dialect struct {
	driver string
	schema []string
}

var sqliteDialect = dialect{
	driver: DriverSQLite,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT UNIQUE NOT NULL,
			user_id TEXT NOT NULL,
			amount REAL NOT NULL,
			merchant TEXT,
			is_fraud INTEGER NOT NULL DEFAULT 0,
			fraud_probability REAL NOT NULL DEFAULT 0,
			risk_level TEXT NOT NULL DEFAULT 'low',
			model_version TEXT,
			features BLOB,
			processed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id)`,
		`CREATE TABLE IF NOT EXISTS fraud_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL REFERENCES transactions (transaction_id),
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT,
			status TEXT NOT NULL DEFAULT 'open',
			created_at INTEGER NOT NULL,
			resolved_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fraud_alerts_status ON fraud_alerts (status)`,
	},
}

var postgresDialect = dialect{
	driver: DriverPostgres,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			transaction_id TEXT UNIQUE NOT NULL,
			user_id TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			merchant TEXT,
			is_fraud INTEGER NOT NULL DEFAULT 0,
			fraud_probability DOUBLE PRECISION NOT NULL DEFAULT 0,
			risk_level TEXT NOT NULL DEFAULT 'low',
			model_version TEXT,
			features BYTEA,
			processed_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id)`,
		`CREATE TABLE IF NOT EXISTS fraud_alerts (
			id BIGSERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL REFERENCES transactions (transaction_id),
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT,
			status TEXT NOT NULL DEFAULT 'open',
			created_at BIGINT NOT NULL,
			resolved_at BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fraud_alerts_status ON fraud_alerts (status)`,
	},
}

func dialectFor(driver string) (dialect, bool) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect, true
	case DriverPostgres:
		return postgresDialect, true
	}
	return dialect{}, false
}

// rebind rewrites ? placeholders into the driver's native form.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
