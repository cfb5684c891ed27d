// Package inventory is the device registry: the router and Windows server
// tables the scheduler reads each cycle and writes monitoring results to.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/netwarden/internal/store"
	"github.com/HerbHall/netwarden/pkg/models"
)

// ErrDeviceNotFound is returned when no device matches the requested id.
var ErrDeviceNotFound = errors.New("device not found")

const (
	tableRouters        = "router_devices"
	tableWindowsServers = "windows_servers"
)

const deviceColumns = `id, name, ip_address, username, password_encrypted, snmp_community,
	status, last_check, latency, packet_loss, cpu_usage, ram_usage, ram_total, ram_used,
	disk_usage, disk_total, disk_used, uptime, created_at, updated_at`

// Store provides database access to the device tables.
type Store struct {
	db  *store.Store
	now func() time.Time
}

// New runs the inventory migrations and returns a ready Store.
func New(ctx context.Context, db *store.Store) (*Store, error) {
	if err := db.Migrate(ctx, "inventory", migrations()); err != nil {
		return nil, fmt.Errorf("inventory migrations: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func tableFor(class models.DeviceClass) (string, error) {
	switch class {
	case models.DeviceClassRouter:
		return tableRouters, nil
	case models.DeviceClassWindowsServer:
		return tableWindowsServers, nil
	default:
		return "", fmt.Errorf("unknown device class %q", class)
	}
}

// ListDevices returns every device of the given class ordered by name.
func (s *Store) ListDevices(ctx context.Context, class models.DeviceClass) ([]models.Device, error) {
	table, err := tableFor(class)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.DB().QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY name, id", deviceColumns, table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanDevice(rows, class)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// GetDevice returns one device or ErrDeviceNotFound.
func (s *Store) GetDevice(ctx context.Context, class models.DeviceClass, id string) (*models.Device, error) {
	table, err := tableFor(class)
	if err != nil {
		return nil, err
	}

	row := s.db.DB().QueryRowContext(ctx,
		s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", deviceColumns, table)), id)
	d, err := scanDevice(row, class)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

// FindByAddress returns the device of the class with the given address, or
// ErrDeviceNotFound.
func (s *Store) FindByAddress(ctx context.Context, class models.DeviceClass, ip string) (*models.Device, error) {
	table, err := tableFor(class)
	if err != nil {
		return nil, err
	}

	row := s.db.DB().QueryRowContext(ctx,
		s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE ip_address = ? LIMIT 1", deviceColumns, table)), ip)
	d, err := scanDevice(row, class)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find device by address: %w", err)
	}
	return d, nil
}

// InsertDevice stores a new device, assigning an id and timestamps when unset.
func (s *Store) InsertDevice(ctx context.Context, d *models.Device) error {
	table, err := tableFor(d.Class)
	if err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Status == "" {
		d.Status = models.DeviceStatusUnknown
	}
	now := s.now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err = s.db.DB().ExecContext(ctx, s.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (id, name, ip_address, username, password_encrypted, snmp_community,
			status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)),
		d.ID, d.Name, d.IPAddress, nullString(d.Username), nullString(d.PasswordEncrypted),
		nullString(d.SNMPCommunity), string(d.Status), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// UpdateStatus writes a monitoring result onto the device. Only fields that
// are present in the result are written; last_check and updated_at are
// always set. Returns the device as stored after the update.
func (s *Store) UpdateStatus(ctx context.Context, class models.DeviceClass, id string, r models.MonitoringResult) (*models.Device, error) {
	table, err := tableFor(class)
	if err != nil {
		return nil, err
	}

	lastCheck := r.LastCheck
	if lastCheck.IsZero() {
		lastCheck = s.now()
	}

	sets := []string{"last_check = ?", "updated_at = ?"}
	args := []any{lastCheck.UTC(), s.now()}
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if r.Status != "" {
		add("status", string(r.Status))
	}
	if r.Latency != nil {
		add("latency", *r.Latency)
	}
	if r.PacketLoss != nil {
		add("packet_loss", *r.PacketLoss)
	}
	if r.CPU != nil {
		add("cpu_usage", *r.CPU)
	}
	if r.RAMUsage != nil {
		add("ram_usage", *r.RAMUsage)
	}
	if r.RAMTotal != nil {
		add("ram_total", *r.RAMTotal)
	}
	if r.RAMUsed != nil {
		add("ram_used", *r.RAMUsed)
	}
	if r.DiskUsage != nil {
		add("disk_usage", *r.DiskUsage)
	}
	if r.DiskTotal != nil {
		add("disk_total", *r.DiskTotal)
	}
	if r.DiskUsed != nil {
		add("disk_used", *r.DiskUsed)
	}
	if r.Uptime != nil {
		add("uptime", *r.Uptime)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	res, err := s.db.DB().ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("update device status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update device status: %w", err)
	}
	if n == 0 {
		return nil, ErrDeviceNotFound
	}
	return s.GetDevice(ctx, class, id)
}

// ClassCounts is the per-class summary shown on the dashboard.
type ClassCounts struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Error   int `json:"error"`
}

// Counts returns device totals by status for both classes.
func (s *Store) Counts(ctx context.Context) (map[models.DeviceClass]ClassCounts, error) {
	out := make(map[models.DeviceClass]ClassCounts, 2)
	for _, class := range []models.DeviceClass{models.DeviceClassRouter, models.DeviceClassWindowsServer} {
		table, _ := tableFor(class)
		rows, err := s.db.DB().QueryContext(ctx,
			fmt.Sprintf("SELECT status, COUNT(*) FROM %s GROUP BY status", table))
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}

		var c ClassCounts
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s counts: %w", table, err)
			}
			c.Total += n
			switch models.DeviceStatus(status) {
			case models.DeviceStatusOnline:
				c.Online = n
			case models.DeviceStatusOffline:
				c.Offline = n
			case models.DeviceStatusError:
				c.Error = n
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
		out[class] = c
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(sc scanner, class models.DeviceClass) (*models.Device, error) {
	var (
		d                                    models.Device
		status                               string
		username, password, community, up    sql.NullString
		lastCheck                            sql.NullTime
		latency, loss, diskTotal, diskUsed   sql.NullFloat64
		cpu, ramUsage, ramTotal, ramUsed, du sql.NullInt64
	)
	err := sc.Scan(
		&d.ID, &d.Name, &d.IPAddress, &username, &password, &community,
		&status, &lastCheck, &latency, &loss, &cpu, &ramUsage, &ramTotal, &ramUsed,
		&du, &diskTotal, &diskUsed, &up, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Class = class
	d.Status = models.DeviceStatus(status)
	d.Username = username.String
	d.PasswordEncrypted = password.String
	d.SNMPCommunity = community.String
	if lastCheck.Valid {
		t := lastCheck.Time
		d.LastCheck = &t
	}
	d.Latency = floatPtr(latency)
	d.PacketLoss = floatPtr(loss)
	d.CPU = intPtr(cpu)
	d.RAMUsage = intPtr(ramUsage)
	d.RAMTotal = int64Ptr(ramTotal)
	d.RAMUsed = int64Ptr(ramUsed)
	d.DiskUsage = intPtr(du)
	d.DiskTotal = floatPtr(diskTotal)
	d.DiskUsed = floatPtr(diskUsed)
	if up.Valid {
		d.Uptime = &up.String
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
