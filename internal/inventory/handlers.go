package inventory

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/internal/server"
	"github.com/HerbHall/watchdesk/pkg/models"
	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// createDeviceRequest is the JSON body for POST /devices.
type createDeviceRequest struct {
	Name       string             `json:"name"`
	IPAddress  string             `json:"ip_address"`
	Community  string             `json:"community,omitempty"`
	Version    string             `json:"snmp_version,omitempty"`
	DeviceType string             `json:"device_type,omitempty"`
	Location   string             `json:"location,omitempty"`
	Department string             `json:"department,omitempty"`
	Thresholds *models.Thresholds `json:"thresholds,omitempty"`
	Monitored  *bool              `json:"monitored,omitempty"`
}

// updateDeviceRequest is the JSON body for PUT /devices/{id}.
type updateDeviceRequest struct {
	Name       string             `json:"name,omitempty"`
	IPAddress  string             `json:"ip_address,omitempty"`
	Community  string             `json:"community,omitempty"`
	Version    string             `json:"snmp_version,omitempty"`
	DeviceType string             `json:"device_type,omitempty"`
	Location   *string            `json:"location,omitempty"`
	Department *string            `json:"department,omitempty"`
	Thresholds *models.Thresholds `json:"thresholds,omitempty"`
	Monitored  *bool              `json:"monitored,omitempty"`
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/devices", Handler: m.handleListDevices},
		{Method: "POST", Path: "/devices", Handler: m.handleCreateDevice},
		{Method: "GET", Path: "/devices/{id}", Handler: m.handleGetDevice},
		{Method: "PUT", Path: "/devices/{id}", Handler: m.handleUpdateDevice},
		{Method: "DELETE", Path: "/devices/{id}", Handler: m.handleDeleteDevice},
		{Method: "PATCH", Path: "/devices/{id}/monitoring", Handler: m.handleToggleMonitoring},
	}
}

// handleListDevices returns a filtered, paginated device list.
//
//	@Summary		List devices
//	@Description	Returns registered devices with optional filters and pagination.
//	@Tags			inventory
//	@Produce		json
//	@Security		BearerAuth
//	@Param			status query string false "Filter by status (online, offline, warning, critical)"
//	@Param			type query string false "Filter by device type"
//	@Param			department query string false "Filter by department"
//	@Param			search query string false "Search name, address, or location"
//	@Param			limit query int false "Maximum results" default(50)
//	@Param			offset query int false "Results to skip" default(0)
//	@Success		200 {object} ListResult
//	@Failure		500 {object} server.Problem
//	@Router			/inventory/devices [get]
func (m *Module) handleListDevices(w http.ResponseWriter, r *http.Request) {
	filter := DeviceFilter{
		Status:     r.URL.Query().Get("status"),
		DeviceType: r.URL.Query().Get("type"),
		Department: r.URL.Query().Get("department"),
		Search:     r.URL.Query().Get("search"),
	}
	opts := ListOptions{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	result, err := m.repo.List(r.Context(), filter, opts)
	if err != nil {
		m.logger.Warn("failed to list devices", zap.Error(err))
		server.InternalError(w, "failed to list devices", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetDevice returns a single device by ID.
//
//	@Summary		Get device
//	@Description	Returns a single device including its latest metric snapshot.
//	@Tags			inventory
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id path string true "Device ID"
//	@Success		200 {object} models.Device
//	@Failure		404 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/inventory/devices/{id} [get]
func (m *Module) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	device, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "device not found", r.URL.Path)
			return
		}
		m.logger.Warn("failed to get device", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to get device", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// handleCreateDevice registers a new device.
//
//	@Summary		Create device
//	@Description	Registers a new device for monitoring.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body body createDeviceRequest true "Device definition"
//	@Success		201 {object} models.Device
//	@Failure		400 {object} server.Problem
//	@Failure		409 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/inventory/devices [post]
func (m *Module) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	if req.Name == "" {
		server.BadRequest(w, "name is required", r.URL.Path)
		return
	}
	if net.ParseIP(req.IPAddress) == nil {
		server.BadRequest(w, "ip_address must be a valid IP address", r.URL.Path)
		return
	}
	if req.Version != "" && !models.SNMPVersion(req.Version).Valid() {
		server.BadRequest(w, "snmp_version must be 1 or 2c", r.URL.Path)
		return
	}
	if req.DeviceType != "" && !models.DeviceType(req.DeviceType).Valid() {
		server.BadRequest(w, "unknown device_type", r.URL.Path)
		return
	}

	device := models.Device{
		Name:       req.Name,
		IPAddress:  req.IPAddress,
		Community:  req.Community,
		Version:    models.SNMPVersion(req.Version),
		DeviceType: models.DeviceType(req.DeviceType),
		Location:   req.Location,
		Department: req.Department,
		Thresholds: models.DefaultThresholds(),
		Monitored:  true,
	}
	if device.DeviceType == "" {
		device.DeviceType = models.DeviceTypeOther
	}
	if req.Thresholds != nil {
		device.Thresholds = *req.Thresholds
	}
	if req.Monitored != nil {
		device.Monitored = *req.Monitored
	}

	if err := m.repo.Create(r.Context(), &device); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			server.Conflict(w, "a device with that name or address already exists", r.URL.Path)
			return
		}
		m.logger.Warn("failed to create device", zap.Error(err))
		server.InternalError(w, "failed to create device", r.URL.Path)
		return
	}

	m.logger.Info("device registered",
		zap.String("id", device.ID),
		zap.String("name", device.Name),
		zap.String("ip", device.IPAddress))
	writeJSON(w, http.StatusCreated, device)
}

// handleUpdateDevice updates a device's configuration.
//
//	@Summary		Update device
//	@Description	Updates device configuration. Observed state (status, last_seen, metrics) cannot be set through this endpoint.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id path string true "Device ID"
//	@Param			body body updateDeviceRequest true "Fields to update"
//	@Success		200 {object} models.Device
//	@Failure		400 {object} server.Problem
//	@Failure		404 {object} server.Problem
//	@Failure		409 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/inventory/devices/{id} [put]
func (m *Module) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "device not found", r.URL.Path)
			return
		}
		m.logger.Warn("failed to get device for update", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to get device", r.URL.Path)
		return
	}

	var req updateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.IPAddress != "" {
		if net.ParseIP(req.IPAddress) == nil {
			server.BadRequest(w, "ip_address must be a valid IP address", r.URL.Path)
			return
		}
		existing.IPAddress = req.IPAddress
	}
	if req.Community != "" {
		existing.Community = req.Community
	}
	if req.Version != "" {
		if !models.SNMPVersion(req.Version).Valid() {
			server.BadRequest(w, "snmp_version must be 1 or 2c", r.URL.Path)
			return
		}
		existing.Version = models.SNMPVersion(req.Version)
	}
	if req.DeviceType != "" {
		if !models.DeviceType(req.DeviceType).Valid() {
			server.BadRequest(w, "unknown device_type", r.URL.Path)
			return
		}
		existing.DeviceType = models.DeviceType(req.DeviceType)
	}
	if req.Location != nil {
		existing.Location = *req.Location
	}
	if req.Department != nil {
		existing.Department = *req.Department
	}
	if req.Thresholds != nil {
		existing.Thresholds = *req.Thresholds
	}
	if req.Monitored != nil {
		existing.Monitored = *req.Monitored
	}

	if err := m.repo.Update(r.Context(), existing); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			server.Conflict(w, "a device with that name or address already exists", r.URL.Path)
			return
		}
		m.logger.Warn("failed to update device", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to update device", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a device.
//
//	@Summary		Delete device
//	@Description	Removes a device from the registry.
//	@Tags			inventory
//	@Security		BearerAuth
//	@Param			id path string true "Device ID"
//	@Success		204
//	@Failure		404 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/inventory/devices/{id} [delete]
func (m *Module) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := m.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "device not found", r.URL.Path)
			return
		}
		m.logger.Warn("failed to delete device", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to delete device", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleMonitoring flips the monitoring flag on a device.
//
//	@Summary		Toggle monitoring
//	@Description	Enables or disables polling for a device.
//	@Tags			inventory
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id path string true "Device ID"
//	@Success		200 {object} models.Device
//	@Failure		404 {object} server.Problem
//	@Failure		500 {object} server.Problem
//	@Router			/inventory/devices/{id}/monitoring [patch]
func (m *Module) handleToggleMonitoring(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := m.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "device not found", r.URL.Path)
			return
		}
		m.logger.Warn("failed to get device for toggle", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to get device", r.URL.Path)
		return
	}

	existing.Monitored = !existing.Monitored
	if err := m.repo.Update(r.Context(), existing); err != nil {
		m.logger.Warn("failed to toggle monitoring", zap.String("id", id), zap.Error(err))
		server.InternalError(w, "failed to toggle monitoring", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// -- helpers --

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func queryInt(r *http.Request, key string, def int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
