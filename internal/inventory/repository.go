package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/watchdesk/pkg/models"
)

// Sentinel errors returned by the repository.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// DeviceFilter controls which devices are returned by List.
type DeviceFilter struct {
	Status     string // Filter by DeviceStatus value.
	DeviceType string // Filter by DeviceType value.
	Department string // Filter by owning department.
	Search     string // Search name, address, or location.
}

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int // Max results per page (default 50, max 1000).
	Offset int // Number of results to skip.
}

// ListResult wraps a paginated result set with a total count.
type ListResult struct {
	Items []models.Device `json:"items"`
	Total int             `json:"total"`
}

// DeviceRepository is the device registry consumed by the watch core and the
// CRUD API. Status, last-seen, and the metric snapshot move only through
// UpdateStatus so they always reflect poll outcomes.
type DeviceRepository interface {
	// Get returns a single device by ID.
	Get(ctx context.Context, id string) (*models.Device, error)

	// ListMonitored returns every device with monitoring enabled.
	ListMonitored(ctx context.Context) ([]models.Device, error)

	// List returns a filtered, paginated list of devices.
	List(ctx context.Context, filter DeviceFilter, opts ListOptions) (*ListResult, error)

	// Create inserts a new device. If device.ID is empty, a UUID is generated.
	Create(ctx context.Context, device *models.Device) error

	// Update modifies a device's configuration fields. Observed state
	// (status, last_seen, metrics) is never touched.
	Update(ctx context.Context, device *models.Device) error

	// UpdateStatus records a poll outcome: the new status, optionally a new
	// last-seen timestamp (nil leaves it unchanged), and optionally a fresh
	// metric snapshot (nil leaves the previous snapshot in place).
	UpdateStatus(ctx context.Context, id string, status models.DeviceStatus, lastSeen *time.Time, metrics *models.DeviceMetrics) error

	// Delete removes a device by ID.
	Delete(ctx context.Context, id string) error
}

// Compile-time interface guard.
var _ DeviceRepository = (*SQLiteDeviceRepository)(nil)

// SQLiteDeviceRepository implements DeviceRepository over the
// inventory_devices table.
type SQLiteDeviceRepository struct {
	db *sql.DB
}

// NewSQLiteDeviceRepository creates a DeviceRepository. The inventory_devices
// table must already exist (created by the inventory plugin's migrations).
func NewSQLiteDeviceRepository(db *sql.DB) *SQLiteDeviceRepository {
	return &SQLiteDeviceRepository{db: db}
}

// deviceColumns is the shared column list for device queries.
const deviceColumns = `id, name, ip_address, community, snmp_version,
	device_type, location, department, thresholds, monitored,
	status, last_seen, metrics, created_at, updated_at`

func (r *SQLiteDeviceRepository) Get(ctx context.Context, id string) (*models.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM inventory_devices WHERE id = ?`, id)
	d, err := scanDevice(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get device %q: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteDeviceRepository) ListMonitored(ctx context.Context) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM inventory_devices WHERE monitored = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list monitored devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanDevice(rows.Scan)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monitored devices: %w", err)
	}
	return devices, nil
}

func (r *SQLiteDeviceRepository) List(ctx context.Context, filter DeviceFilter, opts ListOptions) (*ListResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	// Build WHERE clause with parameterized placeholders.
	where := "1=1"
	var args []any

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.DeviceType != "" {
		where += " AND device_type = ?"
		args = append(args, filter.DeviceType)
	}
	if filter.Department != "" {
		where += " AND department = ?"
		args = append(args, filter.Department)
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR ip_address LIKE ? OR location LIKE ?)"
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM inventory_devices WHERE "+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}

	queryArgs := make([]any, 0, len(args)+2)
	queryArgs = append(queryArgs, args...)
	queryArgs = append(queryArgs, opts.Limit, opts.Offset)

	query := fmt.Sprintf(
		"SELECT %s FROM inventory_devices WHERE %s ORDER BY name ASC LIMIT ? OFFSET ?",
		deviceColumns, where,
	)

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanDevice(rows.Scan)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	if devices == nil {
		devices = []models.Device{}
	}

	return &ListResult{Items: devices, Total: total}, nil
}

func (r *SQLiteDeviceRepository) Create(ctx context.Context, device *models.Device) error {
	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	if device.Community == "" {
		device.Community = "public"
	}
	if device.Version == "" {
		device.Version = models.SNMPv2c
	}
	if device.Status == "" {
		device.Status = models.DeviceStatusOffline
	}
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	thJSON, _ := json.Marshal(device.Thresholds)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory_devices (
			id, name, ip_address, community, snmp_version,
			device_type, location, department, thresholds, monitored,
			status, last_seen, metrics, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.Name, device.IPAddress, device.Community, string(device.Version),
		string(device.DeviceType), device.Location, device.Department, string(thJSON), device.Monitored,
		string(device.Status), nullTime(device.LastSeen), nullMetrics(device.Metrics), device.CreatedAt, device.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

func (r *SQLiteDeviceRepository) Update(ctx context.Context, device *models.Device) error {
	thJSON, _ := json.Marshal(device.Thresholds)
	device.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory_devices SET
			name = ?, ip_address = ?, community = ?, snmp_version = ?,
			device_type = ?, location = ?, department = ?, thresholds = ?,
			monitored = ?, updated_at = ?
		WHERE id = ?`,
		device.Name, device.IPAddress, device.Community, string(device.Version),
		string(device.DeviceType), device.Location, device.Department, string(thJSON),
		device.Monitored, device.UpdatedAt,
		device.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("update device: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteDeviceRepository) UpdateStatus(ctx context.Context, id string, status models.DeviceStatus, lastSeen *time.Time, metrics *models.DeviceMetrics) error {
	set := []string{"status = ?", "updated_at = ?"}
	args := []any{string(status), time.Now().UTC()}

	if lastSeen != nil {
		set = append(set, "last_seen = ?")
		args = append(args, lastSeen.UTC())
	}
	if metrics != nil {
		mJSON, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
		set = append(set, "metrics = ?")
		args = append(args, string(mJSON))
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE inventory_devices SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update device status %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteDeviceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM inventory_devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanDevice scans one row (via a row.Scan-compatible func) into a Device.
func scanDevice(scan func(dest ...any) error) (*models.Device, error) {
	var d models.Device
	var thJSON string
	var metricsJSON sql.NullString
	var lastSeen sql.NullTime
	var dt, status, ver string

	err := scan(
		&d.ID, &d.Name, &d.IPAddress, &d.Community, &ver,
		&dt, &d.Location, &d.Department, &thJSON, &d.Monitored,
		&status, &lastSeen, &metricsJSON, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Version = models.SNMPVersion(ver)
	d.DeviceType = models.DeviceType(dt)
	d.Status = models.DeviceStatus(status)
	if lastSeen.Valid {
		d.LastSeen = lastSeen.Time
	}
	_ = json.Unmarshal([]byte(thJSON), &d.Thresholds)
	if metricsJSON.Valid && metricsJSON.String != "" {
		var m models.DeviceMetrics
		if err := json.Unmarshal([]byte(metricsJSON.String), &m); err == nil {
			d.Metrics = &m
		}
	}
	return &d, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullMetrics(m *models.DeviceMetrics) any {
	if m == nil {
		return nil
	}
	b, _ := json.Marshal(m)
	return string(b)
}

// isUniqueViolation detects SQLite unique-constraint failures without
// depending on driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
