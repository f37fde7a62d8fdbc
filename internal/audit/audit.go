// Package audit appends a durable record of every Cover() invocation to
// MySQL: polygon envelope, precision, criterion, cell count, and
// duration. The log is observational only; a write failure never affects
// the Cover() call it records.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"github.com/flybeeper/geocover/internal/config"
	"github.com/flybeeper/geocover/internal/metrics"
)

// Record is one audited Cover() invocation.
type Record struct {
	MinLng, MinLat, MaxLng, MaxLat float64
	Precision                      int
	Criterion                      string
	CellCount                      int
	Duration                       time.Duration
	Err                            string
	CreatedAt                      time.Time
}

// Log appends Cover() call records to a MySQL table.
type Log struct {
	db     *sql.DB
	logger *logrus.Entry
}

const createTableDDL = `
CREATE TABLE IF NOT EXISTS cover_calls (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	min_lng DOUBLE NOT NULL,
	min_lat DOUBLE NOT NULL,
	max_lng DOUBLE NOT NULL,
	max_lat DOUBLE NOT NULL,
	precision_level TINYINT NOT NULL,
	criterion VARCHAR(16) NOT NULL,
	cell_count INT NOT NULL,
	duration_ms BIGINT NOT NULL,
	error_message VARCHAR(255) NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
)`

// Open connects to the MySQL instance described by cfg and ensures the
// audit table exists.
func Open(ctx context.Context, cfg config.MySQLConfig, logger *logrus.Entry) (*Log, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("audit: MySQL DSN is required")
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("audit: open mysql connection: %w", err)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if _, err := db.ExecContext(ctx, createTableDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create table: %w", err)
	}

	return &Log{db: db, logger: logger.WithField("component", "audit")}, nil
}

// Ping verifies connectivity to the backing MySQL instance.
func (l *Log) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (l *Log) Close() error {
	return l.db.Close()
}

// Write appends one Cover() call record. A write failure is logged but
// never propagated to the caller: the audit log is observational and
// must not affect the outcome of a Cover() call.
func (l *Log) Write(ctx context.Context, rec Record) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO cover_calls
			(min_lng, min_lat, max_lng, max_lat, precision_level, criterion, cell_count, duration_ms, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.MinLng, rec.MinLat, rec.MaxLng, rec.MaxLat,
		rec.Precision, rec.Criterion, rec.CellCount, rec.Duration.Milliseconds(), rec.Err, rec.CreatedAt,
	)
	if err != nil {
		metrics.AuditWritesTotal.WithLabelValues("error").Inc()
		l.logger.WithError(err).Warn("failed to write cover-call audit record")
		return
	}
	metrics.AuditWritesTotal.WithLabelValues("ok").Inc()
}
