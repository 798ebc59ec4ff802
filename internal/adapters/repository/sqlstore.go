package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/pkg/metrics"
)

const (
	insertTransactionSQL = `INSERT INTO transactions (
			transaction_id, user_id, amount, merchant, is_fraud,
			fraud_probability, risk_level, model_version, features, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO NOTHING`

	createAlertSQL = `INSERT INTO fraud_alerts (
			transaction_id, alert_type, severity, message, status, created_at
		) SELECT ?, ?, ?, ?, ?, CAST(? AS BIGINT)
		WHERE EXISTS (SELECT 1 FROM transactions WHERE transaction_id = ?)
		RETURNING id`

	recentSQL = `SELECT transaction_id, user_id, amount, merchant, is_fraud,
			fraud_probability, risk_level, model_version, features, processed_at
		FROM transactions ORDER BY id DESC LIMIT ?`

	statsSQL = `SELECT COUNT(*),
			COALESCE(SUM(is_fraud), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'high' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(fraud_probability), 0)
		FROM transactions`

	openAlertCountSQL = `SELECT COUNT(*) FROM fraud_alerts WHERE status = 'open'`

	openAlertsSQL = `SELECT a.id, a.transaction_id, a.alert_type, a.severity, a.message,
			a.status, a.created_at, t.user_id, t.amount, t.fraud_probability
		FROM fraud_alerts a
		JOIN transactions t ON a.transaction_id = t.transaction_id
		WHERE a.status = 'open'
		ORDER BY a.id DESC`

	resolveAlertSQL = `UPDATE fraud_alerts SET status = 'resolved', resolved_at = ?
		WHERE id = ? AND status = 'open'`
)

// SQLStore is a Store backed by database/sql (sqlite3 or postgres).
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	opts    options

	insertSQL     string
	alertSQL      string
	recentSQL     string
	resolveSQL    string
	statsSQL      string
	openCountSQL  string
	openAlertsSQL string
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens dsn with driver, creates the schema when missing and
// returns a ready store.
func NewSQLStore(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	d, ok := dialectFor(driver)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if d.driver == DriverSQLite {
		// single writer; also keeps ":memory:" databases on one connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(o.maxOpenConns)
		db.SetMaxIdleConns(o.maxIdleConns)
		db.SetConnMaxLifetime(o.connMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &SQLStore{
		db:            db,
		dialect:       d,
		opts:          o,
		insertSQL:     d.rebind(insertTransactionSQL),
		alertSQL:      d.rebind(createAlertSQL),
		recentSQL:     d.rebind(recentSQL),
		resolveSQL:    d.rebind(resolveAlertSQL),
		statsSQL:      statsSQL,
		openCountSQL:  openAlertCountSQL,
		openAlertsSQL: openAlertsSQL,
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// InsertTransaction inserts rec; a conflicting transaction id is a no-op.
func (s *SQLStore) InsertTransaction(ctx context.Context, rec model.TransactionRecord) (bool, error) { //nolint:gocritic // value semantics
	defer observe("insert", time.Now())

	blob, err := encodeFeatures(rec.Features, rec.Tags)
	if err != nil {
		return false, err
	}
	isFraud := 0
	if rec.IsFraud {
		isFraud = 1
	}

	res, err := s.db.ExecContext(ctx, s.insertSQL,
		rec.TransactionID, rec.UserID, rec.Amount, nullString(rec.Merchant), isFraud,
		rec.FraudProbability, string(rec.RiskLevel), nullString(rec.ModelVersion), blob,
		rec.ProcessedAt.UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("insert transaction %s: %w", rec.TransactionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert transaction %s: %w", rec.TransactionID, err)
	}
	return n > 0, nil
}

// CreateAlert inserts an alert only if its transaction exists.
func (s *SQLStore) CreateAlert(ctx context.Context, alert model.AlertRecord) (int64, error) { //nolint:gocritic // value semantics
	defer observe("create_alert", time.Now())

	status := alert.Status
	if status == "" {
		status = model.AlertOpen
	}
	created := alert.CreatedAt
	if created.IsZero() {
		created = s.opts.clock()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.alertSQL,
		alert.TransactionID, alert.Type, alert.Severity, alert.Message, string(status),
		created.UnixNano(), alert.TransactionID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrTransactionNotFound, alert.TransactionID)
	}
	if err != nil {
		return 0, fmt.Errorf("create alert for %s: %w", alert.TransactionID, err)
	}
	return id, nil
}

// GetRecent returns up to limit transactions, newest first.
func (s *SQLStore) GetRecent(ctx context.Context, limit int) ([]model.TransactionRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	defer observe("recent", time.Now())

	rows, err := s.db.QueryContext(ctx, s.recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	out := make([]model.TransactionRecord, 0, limit)
	for rows.Next() {
		var (
			rec               model.TransactionRecord
			merchant, version sql.NullString
			isFraud           int
			level             string
			blob              []byte
			processed         int64
		)
		if err := rows.Scan(&rec.TransactionID, &rec.UserID, &rec.Amount, &merchant, &isFraud,
			&rec.FraudProbability, &level, &version, &blob, &processed); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		rec.Merchant = merchant.String
		rec.ModelVersion = version.String
		rec.IsFraud = isFraud != 0
		rec.RiskLevel = model.RiskLevel(level)
		rec.ProcessedAt = time.Unix(0, processed)
		if rec.Features, rec.Tags, err = decodeFeatures(blob); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", rec.TransactionID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent: %w", err)
	}
	return out, nil
}

// GetStatistics summarises the store.
func (s *SQLStore) GetStatistics(ctx context.Context) (model.StoreStatistics, error) {
	defer observe("statistics", time.Now())

	var st model.StoreStatistics
	if err := s.db.QueryRowContext(ctx, s.statsSQL).Scan(
		&st.TotalTransactions, &st.FraudTransactions, &st.HighRiskTransactions, &st.AvgFraudProbability,
	); err != nil {
		return model.StoreStatistics{}, fmt.Errorf("query statistics: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, s.openCountSQL).Scan(&st.OpenAlerts); err != nil {
		return model.StoreStatistics{}, fmt.Errorf("count open alerts: %w", err)
	}
	st.FraudRate = model.FraudRate(st.FraudTransactions, st.TotalTransactions)
	return st, nil
}

// GetOpenAlerts returns open alerts joined with their transactions.
func (s *SQLStore) GetOpenAlerts(ctx context.Context) ([]model.OpenAlert, error) {
	defer observe("open_alerts", time.Now())

	rows, err := s.db.QueryContext(ctx, s.openAlertsSQL)
	if err != nil {
		return nil, fmt.Errorf("query open alerts: %w", err)
	}
	defer rows.Close()

	var out []model.OpenAlert
	for rows.Next() {
		var (
			a       model.OpenAlert
			message sql.NullString
			status  string
			created int64
		)
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.Type, &a.Severity, &message,
			&status, &created, &a.UserID, &a.Amount, &a.FraudProbability); err != nil {
			return nil, fmt.Errorf("scan open alert: %w", err)
		}
		a.Message = message.String
		a.Status = model.AlertStatus(status)
		a.CreatedAt = time.Unix(0, created)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open alerts: %w", err)
	}
	return out, nil
}

// ResolveAlert marks an open alert resolved.
func (s *SQLStore) ResolveAlert(ctx context.Context, id int64) error {
	defer observe("resolve_alert", time.Now())

	res, err := s.db.ExecContext(ctx, s.resolveSQL, s.opts.clock().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("resolve alert %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve alert %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrAlertNotFound, id)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
