package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/inventory"
	"github.com/HerbHall/netwarden/pkg/models"
)

// CycleRunner runs one guarded monitoring cycle. Satisfied by *Scheduler.
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// DeviceSource lists devices and their status counts.
// Satisfied by *inventory.Store.
type DeviceSource interface {
	ListDevices(ctx context.Context, class models.DeviceClass) ([]models.Device, error)
	Counts(ctx context.Context) (map[models.DeviceClass]inventory.ClassCounts, error)
}

// LogSource reads the monitoring journal. Satisfied by *journal.Journal.
type LogSource interface {
	ListLogs(ctx context.Context, f models.LogFilter) ([]models.LogRecord, error)
	CountByLevel(ctx context.Context, level models.LogLevel) (int, error)
}

// API serves the monitoring endpoints.
type API struct {
	cycles  CycleRunner
	devices DeviceSource
	logs    LogSource
	logger  *zap.Logger
}

// NewAPI returns the monitoring HTTP handlers.
func NewAPI(cycles CycleRunner, devices DeviceSource, logs LogSource, logger *zap.Logger) *API {
	return &API{cycles: cycles, devices: devices, logs: logs, logger: logger}
}

// RegisterRoutes mounts the monitoring endpoints on mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/monitor/trigger", a.handleTrigger)
	mux.HandleFunc("POST /api/monitor/trigger", a.handleTrigger)
	mux.HandleFunc("GET /api/v1/logs", a.handleListLogs)
	mux.HandleFunc("GET /api/v1/routers", a.handleListRouters)
	mux.HandleFunc("GET /api/v1/windows-servers", a.handleListWindowsServers)
	mux.HandleFunc("GET /api/v1/dashboard/stats", a.handleStats)
}

// TriggerResponse is returned by a successful manual trigger.
type TriggerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	CycleReport
}

// handleTrigger runs one monitoring cycle and returns its report.
//
//	@Summary		Trigger a monitoring cycle
//	@Description	Runs one monitoring cycle over every device and returns its report. Also served at /api/monitor/trigger.
//	@Tags			monitor
//	@Produce		json
//	@Success		200 {object} TriggerResponse
//	@Failure		409 {object} map[string]any
//	@Failure		429 {object} map[string]any
//	@Failure		500 {object} map[string]any
//	@Router			/monitor/trigger [post]
func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	// A cycle can outlast the server write timeout; it is bounded by its own.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	report, err := a.cycles.RunCycle(r.Context())
	if errors.Is(err, ErrCycleInProgress) {
		pulseWriteProblem(w, http.StatusConflict, err.Error(), map[string]any{"success": false})
		return
	}
	if err != nil {
		a.logger.Warn("manual cycle failed", zap.Error(err))
		pulseWriteError(w, http.StatusInternalServerError, "monitoring cycle failed")
		return
	}
	pulseWriteJSON(w, http.StatusOK, TriggerResponse{
		Success:     true,
		Message:     "monitoring cycle completed",
		CycleReport: report,
	})
}

// handleListLogs returns journal records, newest first.
//
//	@Summary		List monitoring logs
//	@Description	Returns monitoring journal records, newest first.
//	@Tags			monitor
//	@Produce		json
//	@Param			level query string false "Log level" Enums(info, warning)
//	@Param			source_type query string false "Device class" Enums(router, windows_server)
//	@Param			limit query int false "Maximum records (capped at 1000)" default(100)
//	@Success		200 {array} models.LogRecord
//	@Failure		400 {object} map[string]any
//	@Failure		500 {object} map[string]any
//	@Router			/logs [get]
func (a *API) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.LogFilter{Limit: pulseParseLimit(r, 100)}

	switch level := models.LogLevel(q.Get("level")); level {
	case "", models.LogLevelInfo, models.LogLevelWarning:
		filter.Level = level
	default:
		pulseWriteError(w, http.StatusBadRequest, "level must be info or warning")
		return
	}
	switch source := models.DeviceClass(q.Get("source_type")); source {
	case "", models.DeviceClassRouter, models.DeviceClassWindowsServer:
		filter.SourceType = source
	default:
		pulseWriteError(w, http.StatusBadRequest, "source_type must be router or windows_server")
		return
	}

	records, err := a.logs.ListLogs(r.Context(), filter)
	if err != nil {
		a.logger.Warn("failed to list logs", zap.Error(err))
		pulseWriteError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}
	if records == nil {
		records = []models.LogRecord{}
	}
	pulseWriteJSON(w, http.StatusOK, records)
}

// handleListRouters returns every router.
//
//	@Summary		List routers
//	@Description	Returns every registered router with its latest status and metrics.
//	@Tags			devices
//	@Produce		json
//	@Success		200 {array} models.Device
//	@Failure		500 {object} map[string]any
//	@Router			/routers [get]
func (a *API) handleListRouters(w http.ResponseWriter, r *http.Request) {
	a.listDevices(w, r, models.DeviceClassRouter)
}

// handleListWindowsServers returns every Windows server.
//
//	@Summary		List Windows servers
//	@Description	Returns every registered Windows server with its latest status and metrics.
//	@Tags			devices
//	@Produce		json
//	@Success		200 {array} models.Device
//	@Failure		500 {object} map[string]any
//	@Router			/windows-servers [get]
func (a *API) handleListWindowsServers(w http.ResponseWriter, r *http.Request) {
	a.listDevices(w, r, models.DeviceClassWindowsServer)
}

func (a *API) listDevices(w http.ResponseWriter, r *http.Request, class models.DeviceClass) {
	devices, err := a.devices.ListDevices(r.Context(), class)
	if err != nil {
		a.logger.Warn("failed to list devices", zap.String("class", string(class)), zap.Error(err))
		pulseWriteError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	pulseWriteJSON(w, http.StatusOK, devices)
}

// StatsResponse is the dashboard summary.
type StatsResponse struct {
	Routers        inventory.ClassCounts `json:"routers"`
	WindowsServers inventory.ClassCounts `json:"windows_servers"`
	TotalDevices   int                   `json:"total_devices"`
	OnlineDevices  int                   `json:"online_devices"`
	Warnings       int                   `json:"warnings"`
}

// handleStats returns the dashboard summary.
//
//	@Summary		Dashboard stats
//	@Description	Returns device counts per class and the number of warning log records.
//	@Tags			monitor
//	@Produce		json
//	@Success		200 {object} StatsResponse
//	@Failure		500 {object} map[string]any
//	@Router			/dashboard/stats [get]
func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.devices.Counts(r.Context())
	if err != nil {
		a.logger.Warn("failed to count devices", zap.Error(err))
		pulseWriteError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	warnings, err := a.logs.CountByLevel(r.Context(), models.LogLevelWarning)
	if err != nil {
		a.logger.Warn("failed to count warnings", zap.Error(err))
		pulseWriteError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	resp := StatsResponse{
		Routers:        counts[models.DeviceClassRouter],
		WindowsServers: counts[models.DeviceClassWindowsServer],
		Warnings:       warnings,
	}
	resp.TotalDevices = resp.Routers.Total + resp.WindowsServers.Total
	resp.OnlineDevices = resp.Routers.Online + resp.WindowsServers.Online
	pulseWriteJSON(w, http.StatusOK, resp)
}

// -- helpers --

func pulseWriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem type URIs, matching the server package's catalogue.
const (
	problemTypeBadRequest = "https://netwarden.dev/problems/bad-request"
	problemTypeConflict   = "https://netwarden.dev/problems/conflict"
	problemTypeInternal   = "https://netwarden.dev/problems/internal-error"
)

// problemType returns the problem type URI for status, a lowercase
// hyphenated slug of the status text when no constant exists.
func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return problemTypeBadRequest
	case http.StatusConflict:
		return problemTypeConflict
	case http.StatusInternalServerError:
		return problemTypeInternal
	}
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '-':
			return '-'
		}
		return -1
	}, http.StatusText(status))
	return "https://netwarden.dev/problems/" + slug
}

func pulseWriteError(w http.ResponseWriter, status int, detail string) {
	pulseWriteProblem(w, status, detail, nil)
}

// pulseWriteProblem writes an RFC 7807 body; extra members are merged in.
func pulseWriteProblem(w http.ResponseWriter, status int, detail string, extra map[string]any) {
	body := map[string]any{
		"type":   problemType(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func pulseParseLimit(r *http.Request, defaultLimit int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return min(n, 1000)
		}
	}
	return defaultLimit
}
