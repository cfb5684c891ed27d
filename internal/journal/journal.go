// Package journal records one entry per device per monitoring cycle in two
// independent sinks: the logs table and a local text file.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/store"
	"github.com/HerbHall/netwarden/pkg/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	notAvailable     = "N/A"
)

// Entry is the device snapshot recorded after a check.
type Entry struct {
	Device models.Device
	Result models.MonitoringResult
}

// Journal writes monitoring records. Record never fails its caller.
type Journal struct {
	db       *store.Store
	file     *FileSink
	maxLines int
	logger   *zap.Logger
	now      func() time.Time
}

// New runs the journal migrations and returns a Journal writing to db and
// the file at filePath.
func New(ctx context.Context, db *store.Store, filePath string, maxLines int, logger *zap.Logger) (*Journal, error) {
	if err := db.Migrate(ctx, "journal", migrations()); err != nil {
		return nil, fmt.Errorf("journal migrations: %w", err)
	}
	if maxLines < 1 {
		maxLines = 10000
	}
	return &Journal{
		db:       db,
		file:     NewFileSink(filePath),
		maxLines: maxLines,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record writes e to both sinks. A failure in one sink is logged and does
// not prevent the write to the other.
func (j *Journal) Record(ctx context.Context, e Entry) {
	at := j.now()
	rec := BuildRecord(e, at)

	if err := j.insert(ctx, rec); err != nil {
		j.logger.Warn("journal store write failed",
			zap.String("device_id", e.Device.ID),
			zap.Error(err),
		)
	}
	if err := j.file.Append(FormatLine(e, at)); err != nil {
		j.logger.Warn("journal file write failed",
			zap.String("path", j.file.Path()),
			zap.String("device_id", e.Device.ID),
			zap.Error(err),
		)
	}
}

// Rotate trims the journal file to the configured line cap.
func (j *Journal) Rotate() (int, error) {
	dropped, err := j.file.Rotate(j.maxLines)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		j.logger.Info("journal file rotated",
			zap.String("path", j.file.Path()),
			zap.Int("dropped_lines", dropped),
			zap.Int("kept_lines", j.maxLines),
		)
	}
	return dropped, nil
}

// Level returns warning for offline devices and any result carrying an
// error, info otherwise.
func Level(r models.MonitoringResult) models.LogLevel {
	if r.Status == models.DeviceStatusOffline || r.Error != "" {
		return models.LogLevelWarning
	}
	return models.LogLevelInfo
}

// BuildRecord assembles the stored record for e.
func BuildRecord(e Entry, at time.Time) models.LogRecord {
	d, r := e.Device, e.Result
	status := r.Status
	if status == "" {
		status = models.DeviceStatusUnknown
	}

	msg := fmt.Sprintf("Monitoring %s: %s (%s) - Status: %s", d.Class, d.DisplayName(), d.IPAddress, status)
	if status != models.DeviceStatusOnline && r.Error != "" {
		msg += " - Error: " + r.Error
	}

	meta := models.LogMetadata{
		EquipmentName: d.DisplayName(),
		IPAddress:     d.IPAddress,
		Status:        status,
		Type:          d.Class,
		CPU:           r.CPU,
		RAM:           r.RAMUsage,
		Latency:       r.Latency,
		PacketLoss:    r.PacketLoss,
		Error:         r.Error,
		Timestamp:     at,
	}
	if d.Class == models.DeviceClassWindowsServer {
		meta.Disk = r.DiskUsage
	}

	return models.LogRecord{
		ID:         uuid.New().String(),
		Level:      Level(r),
		Message:    msg,
		SourceType: d.Class,
		SourceID:   d.ID,
		Metadata:   meta,
		CreatedAt:  at,
	}
}

// FormatLine renders the file line for e.
func FormatLine(e Entry, at time.Time) string {
	d, r := e.Device, e.Result
	status := r.Status
	if status == "" {
		status = models.DeviceStatusUnknown
	}
	disk := notAvailable
	if d.Class == models.DeviceClassWindowsServer {
		disk = formatInt(r.DiskUsage)
	}
	return fmt.Sprintf("[%s] %s | %s (%s) | Status: %s | CPU: %s%% | RAM: %s%% | Disk: %s%%",
		at.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		strings.ToUpper(string(d.Class)),
		d.DisplayName(), d.IPAddress, status,
		formatInt(r.CPU), formatInt(r.RAMUsage), disk,
	)
}

func formatInt(v *int) string {
	if v == nil {
		return notAvailable
	}
	return strconv.Itoa(*v)
}

func (j *Journal) insert(ctx context.Context, rec models.LogRecord) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = j.db.DB().ExecContext(ctx, j.db.Rebind(`
		INSERT INTO logs (id, level, message, source_type, source_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, string(rec.Level), rec.Message, string(rec.SourceType), rec.SourceID, string(meta), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// ListLogs returns records newest first. Limit defaults to 100 and is
// capped at 1000.
func (j *Journal) ListLogs(ctx context.Context, f models.LogFilter) ([]models.LogRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var (
		where []string
		args  []any
	)
	if f.Level != "" {
		where = append(where, "level = ?")
		args = append(args, string(f.Level))
	}
	if f.SourceType != "" {
		where = append(where, "source_type = ?")
		args = append(args, string(f.SourceType))
	}

	query := "SELECT id, level, message, source_type, source_id, metadata, created_at FROM logs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.DB().QueryContext(ctx, j.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	records := make([]models.LogRecord, 0, limit)
	for rows.Next() {
		var (
			rec               models.LogRecord
			level, sourceType string
			meta              sql.NullString
		)
		if err := rows.Scan(&rec.ID, &level, &rec.Message, &sourceType, &rec.SourceID, &meta, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		rec.Level = models.LogLevel(level)
		rec.SourceType = models.DeviceClass(sourceType)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &rec.Metadata); err != nil {
				j.logger.Debug("undecodable log metadata", zap.String("log_id", rec.ID), zap.Error(err))
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByLevel returns the number of records at level.
func (j *Journal) CountByLevel(ctx context.Context, level models.LogLevel) (int, error) {
	var n int
	err := j.db.DB().QueryRowContext(ctx,
		j.db.Rebind("SELECT COUNT(*) FROM logs WHERE level = ?"), string(level),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}
