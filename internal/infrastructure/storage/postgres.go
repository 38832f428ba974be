package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/ports"
)

// uniqueViolation is the Postgres error code raised by the
// (serial_id, source_url) constraint.
const uniqueViolation = "23505"

// PostgresStore persists serials, detections, and scan logs into Postgres.
type PostgresStore struct {
	db sq.BaseRunner
	sb sq.StatementBuilderType
}

var _ ports.Store = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(db),
	}
}

// CreateSerial inserts a serial and fills in its generated id and timestamps.
func (s *PostgresStore) CreateSerial(ctx context.Context, serial *domain.TrackedSerial) error {
	now := time.Now().UTC()
	err := s.sb.Insert("tracked_serials").
		Columns("owner_id", "name", "serial_value", "is_active", "created_at", "updated_at").
		Values(serial.OwnerID, serial.Name, serial.SerialValue, serial.IsActive, now, now).
		Suffix("RETURNING id").
		QueryRowContext(ctx).
		Scan(&serial.ID)
	if err != nil {
		return fmt.Errorf("insert serial: %w", err)
	}

	serial.CreatedAt = now
	serial.UpdatedAt = now
	return nil
}

// GetSerial loads one serial scoped by owner; missing rows map to ErrNotFound.
func (s *PostgresStore) GetSerial(ctx context.Context, id, ownerID int64) (*domain.TrackedSerial, error) {
	row := s.sb.Select(serialColumns()...).
		From("tracked_serials").
		Where(sq.Eq{"id": id, "owner_id": ownerID}).
		QueryRowContext(ctx)

	serial, err := scanSerial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query serial: %w", err)
	}
	return serial, nil
}

// ListSerials returns an owner's serials in insertion order.
func (s *PostgresStore) ListSerials(ctx context.Context, ownerID int64, activeOnly bool) ([]domain.TrackedSerial, error) {
	query := s.sb.Select(serialColumns()...).
		From("tracked_serials").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("id")
	if activeOnly {
		query = query.Where(sq.Eq{"is_active": true})
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query serials: %w", err)
	}
	defer rows.Close()

	var out []domain.TrackedSerial
	for rows.Next() {
		serial, err := scanSerial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan serial: %w", err)
		}
		out = append(out, *serial)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// UpdateSerial writes back name, value, and active flag of an owned serial.
func (s *PostgresStore) UpdateSerial(ctx context.Context, serial *domain.TrackedSerial) error {
	res, err := s.sb.Update("tracked_serials").
		Set("name", serial.Name).
		Set("serial_value", serial.SerialValue).
		Set("is_active", serial.IsActive).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": serial.ID, "owner_id": serial.OwnerID}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update serial: %w", err)
	}
	return requireRow(res)
}

// DeleteSerial removes an owned serial and cascades its detections and scan
// logs in the same transaction. The cascade is explicit, not a foreign key.
func (s *PostgresStore) DeleteSerial(ctx context.Context, id, ownerID int64) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return fmt.Errorf("delete serial: store not backed by sql.DB")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txb := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(tx)

	res, err := txb.Delete("tracked_serials").
		Where(sq.Eq{"id": id, "owner_id": ownerID}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete serial: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := txb.Delete("detections").Where(sq.Eq{"serial_id": id}).ExecContext(ctx); err != nil {
		return fmt.Errorf("cascade detections: %w", err)
	}
	if _, err := txb.Delete("scan_logs").Where(sq.Eq{"serial_id": id}).ExecContext(ctx); err != nil {
		return fmt.Errorf("cascade scan logs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// TouchScanTimes stamps the last-scan columns selected by the flags.
func (s *PostgresStore) TouchScanTimes(ctx context.Context, id int64, general, marketplace bool, at time.Time) error {
	query := s.sb.Update("tracked_serials").
		Set("updated_at", at).
		Where(sq.Eq{"id": id})
	if general {
		query = query.Set("last_general_scan_at", at)
	}
	if marketplace {
		query = query.Set("last_marketplace_scan_at", at)
	}

	res, err := query.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("touch scan times: %w", err)
	}
	return requireRow(res)
}

// ListOwnerIDs returns distinct owners holding at least one serial.
func (s *PostgresStore) ListOwnerIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.sb.Select("DISTINCT owner_id").
		From("tracked_serials").
		OrderBy("owner_id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// DetectionExists answers the dedup gate query with exact URL matching.
func (s *PostgresStore) DetectionExists(ctx context.Context, serialID int64, sourceURL string) (bool, error) {
	var one int
	err := s.sb.Select("1").
		From("detections").
		Where(sq.Eq{"serial_id": serialID, "source_url": sourceURL}).
		Limit(1).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query detection existence: %w", err)
	}
	return true, nil
}

// CreateDetection inserts a detection; the UNIQUE (serial_id, source_url)
// constraint turns a duplicate into a no-op reported through the bool.
func (s *PostgresStore) CreateDetection(ctx context.Context, det *domain.Detection) (bool, error) {
	createdAt := time.Now().UTC()
	err := s.sb.Insert("detections").
		Columns("serial_id", "source_url", "title", "snippet", "source_type",
			"is_marketplace", "shop_id", "product_id", "shop_name",
			"status", "detected_at", "created_at").
		Values(det.SerialID, det.SourceURL, nullString(det.Title), nullString(det.Snippet),
			string(det.SourceType), det.IsMarketplace, nullString(det.ShopID),
			nullString(det.ProductID), nullString(det.ShopName),
			string(det.Status), det.DetectedAt, createdAt).
		Suffix("ON CONFLICT (serial_id, source_url) DO NOTHING RETURNING id").
		QueryRowContext(ctx).
		Scan(&det.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("insert detection: %w", err)
	}

	det.CreatedAt = createdAt
	return true, nil
}

// ListDetections joins through the owner's serials, optionally narrowed by the
// marketplace flag, newest first.
func (s *PostgresStore) ListDetections(ctx context.Context, ownerID int64, filter domain.DetectionFilter) ([]domain.Detection, error) {
	query := s.sb.Select(
		"d.id", "d.serial_id", "d.source_url", "d.title", "d.snippet",
		"d.source_type", "d.is_marketplace", "d.shop_id", "d.product_id",
		"d.shop_name", "d.status", "d.detected_at", "d.created_at").
		From("detections d").
		Join("tracked_serials s ON s.id = d.serial_id").
		Where(sq.Eq{"s.owner_id": ownerID}).
		OrderBy("d.id DESC")
	if filter.Marketplace != nil {
		query = query.Where(sq.Eq{"d.is_marketplace": *filter.Marketplace})
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var out []domain.Detection
	for rows.Next() {
		var det domain.Detection
		var title, snippet, shopID, productID, shopName sql.NullString
		var sourceType, status string
		if err := rows.Scan(&det.ID, &det.SerialID, &det.SourceURL, &title, &snippet,
			&sourceType, &det.IsMarketplace, &shopID, &productID,
			&shopName, &status, &det.DetectedAt, &det.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		det.Title = title.String
		det.Snippet = snippet.String
		det.ShopID = shopID.String
		det.ProductID = productID.String
		det.ShopName = shopName.String
		det.SourceType = domain.SourceType(sourceType)
		det.Status = domain.DetectionStatus(status)
		out = append(out, det)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// UpdateDetectionStatus moves an owned detection to the given status.
func (s *PostgresStore) UpdateDetectionStatus(ctx context.Context, detectionID, ownerID int64, status domain.DetectionStatus) error {
	res, err := s.sb.Update("detections").
		Set("status", string(status)).
		Where(sq.Expr(
			"id = ? AND serial_id IN (SELECT id FROM tracked_serials WHERE owner_id = ?)",
			detectionID, ownerID)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update detection status: %w", err)
	}
	return requireRow(res)
}

// CreateScanLog appends one immutable scan record.
func (s *PostgresStore) CreateScanLog(ctx context.Context, entry *domain.ScanLog) error {
	err := s.sb.Insert("scan_logs").
		Columns("serial_id", "scan_type", "total_results", "new_detections",
			"marketplace_detections", "completed_at").
		Values(entry.SerialID, string(entry.ScanType), entry.TotalResults,
			entry.NewDetections, entry.MarketplaceDetections, entry.CompletedAt).
		Suffix("RETURNING id").
		QueryRowContext(ctx).
		Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert scan log: %w", err)
	}
	return nil
}

// ListScanLogs returns a serial's scan history, newest first.
func (s *PostgresStore) ListScanLogs(ctx context.Context, serialID int64) ([]domain.ScanLog, error) {
	rows, err := s.sb.Select("id", "serial_id", "scan_type", "total_results",
		"new_detections", "marketplace_detections", "completed_at").
		From("scan_logs").
		Where(sq.Eq{"serial_id": serialID}).
		OrderBy("id DESC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query scan logs: %w", err)
	}
	defer rows.Close()

	var out []domain.ScanLog
	for rows.Next() {
		var entry domain.ScanLog
		var scanType string
		if err := rows.Scan(&entry.ID, &entry.SerialID, &scanType, &entry.TotalResults,
			&entry.NewDetections, &entry.MarketplaceDetections, &entry.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		entry.ScanType = domain.ScanType(scanType)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func serialColumns() []string {
	return []string{
		"id", "owner_id", "name", "serial_value", "is_active",
		"last_general_scan_at", "last_marketplace_scan_at",
		"created_at", "updated_at",
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSerial(row rowScanner) (*domain.TrackedSerial, error) {
	var serial domain.TrackedSerial
	var lastGeneral, lastMarketplace sql.NullTime
	err := row.Scan(&serial.ID, &serial.OwnerID, &serial.Name, &serial.SerialValue,
		&serial.IsActive, &lastGeneral, &lastMarketplace,
		&serial.CreatedAt, &serial.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastGeneral.Valid {
		t := lastGeneral.Time
		serial.LastGeneralScanAt = &t
	}
	if lastMarketplace.Valid {
		t := lastMarketplace.Time
		serial.LastMarketplaceScanAt = &t
	}
	return &serial, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
