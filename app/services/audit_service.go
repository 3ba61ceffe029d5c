package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/competitor-scanner/app/models"
)

// AuditService keeps a local SQLite log of flagged scans so operators can
// review what was redacted and why. An empty path disables the log; every
// method then no-ops.
type AuditService struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditService opens (or creates) the audit database at path.
func NewAuditService(path string, logger *zap.Logger) (*AuditService, error) {
	if path == "" {
		logger.Info("audit log disabled")
		return &AuditService{logger: logger}, nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	as := &AuditService{db: db, logger: logger}
	if err := as.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit log opened", zap.String("path", path))
	return as, nil
}

// Enabled reports whether flagged scans are being recorded.
func (as *AuditService) Enabled() bool {
	return as.db != nil
}

func (as *AuditService) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS flagged_scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		scanner TEXT NOT NULL,
		risk_score REAL NOT NULL,
		match_count INTEGER NOT NULL,
		competitors TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_flagged_scans_created ON flagged_scans(created_at);
	CREATE INDEX IF NOT EXISTS idx_flagged_scans_fingerprint ON flagged_scans(fingerprint);
	`

	if _, err := as.db.Exec(schema); err != nil {
		return fmt.Errorf("init audit schema: %w", err)
	}
	return nil
}

// InsertScan records one flagged scan.
func (as *AuditService) InsertScan(ctx context.Context, record *models.ScanRecord) error {
	if as.db == nil {
		return nil
	}

	_, err := as.db.ExecContext(ctx, `
		INSERT INTO flagged_scans (scan_id, fingerprint, scanner, risk_score, match_count, competitors)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ScanID,
		record.Fingerprint,
		record.Scanner,
		record.RiskScore,
		record.MatchCount,
		strings.Join(record.Competitors, ","),
	)
	if err != nil {
		return fmt.Errorf("insert flagged scan: %w", err)
	}

	return nil
}

// RecentFlagged returns the newest flagged scans, newest first.
func (as *AuditService) RecentFlagged(ctx context.Context, limit int) ([]*models.ScanRecord, error) {
	if as.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := as.db.QueryContext(ctx, `
		SELECT id, scan_id, fingerprint, scanner, risk_score, match_count, competitors, created_at
		FROM flagged_scans
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query flagged scans: %w", err)
	}
	defer rows.Close()

	var records []*models.ScanRecord
	for rows.Next() {
		var rec models.ScanRecord
		var competitors sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ScanID, &rec.Fingerprint, &rec.Scanner,
			&rec.RiskScore, &rec.MatchCount, &competitors, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flagged row: %w", err)
		}
		if competitors.Valid && competitors.String != "" {
			rec.Competitors = strings.Split(competitors.String, ",")
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// CountSince counts flagged scans within the given window.
func (as *AuditService) CountSince(ctx context.Context, window time.Duration) (int64, error) {
	if as.db == nil {
		return 0, nil
	}

	modifier := fmt.Sprintf("-%d seconds", int64(window.Seconds()))

	var count int64
	err := as.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM flagged_scans
		WHERE created_at >= datetime('now', ?)`, modifier).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count flagged scans: %w", err)
	}

	return count, nil
}

// Close closes the underlying database.
func (as *AuditService) Close() error {
	if as.db == nil {
		return nil
	}
	return as.db.Close()
}
