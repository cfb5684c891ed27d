package models

import (
	"fmt"
	"time"
)

// Metrics is the partial set of resource figures a collector may return.
// A nil field means the value was not collected.
type Metrics struct {
	CPU       *int     `json:"cpu"`
	RAMUsage  *int     `json:"ram_usage"`
	RAMTotal  *int64   `json:"ram_total"`
	RAMUsed   *int64   `json:"ram_used"`
	DiskUsage *int     `json:"disk_usage,omitempty"`
	DiskTotal *float64 `json:"disk_total,omitempty"`
	DiskUsed  *float64 `json:"disk_used,omitempty"`
	Uptime    *string  `json:"uptime"`
}

// Empty reports whether no metric was collected.
func (m Metrics) Empty() bool {
	return m.CPU == nil && m.RAMUsage == nil && m.RAMTotal == nil && m.RAMUsed == nil &&
		m.DiskUsage == nil && m.DiskTotal == nil && m.DiskUsed == nil && m.Uptime == nil
}

// WithoutDisk returns a copy of m with disk fields cleared.
func (m Metrics) WithoutDisk() Metrics {
	m.DiskUsage, m.DiskTotal, m.DiskUsed = nil, nil, nil
	return m
}

// MonitoringResult is the per-cycle outcome for one device. It is built fresh
// every cycle, persisted onto the Device, journaled, then discarded.
type MonitoringResult struct {
	Status     DeviceStatus `json:"status"`
	LastCheck  time.Time    `json:"last_check"`
	Latency    *float64     `json:"latency"`
	PacketLoss *float64     `json:"packet_loss,omitempty"`
	Metrics
	Error string `json:"error,omitempty"`
}

// OfflineResult returns the result for a device that failed its probe.
// Latency is always nil and no metric is reported.
func OfflineResult(at time.Time, packetLoss float64) MonitoringResult {
	return MonitoringResult{
		Status:     DeviceStatusOffline,
		LastCheck:  at,
		PacketLoss: &packetLoss,
	}
}

// OnlineResult returns the result for a reachable device with the given metrics.
func OnlineResult(at time.Time, latency *float64, packetLoss float64, m Metrics) MonitoringResult {
	return MonitoringResult{
		Status:     DeviceStatusOnline,
		LastCheck:  at,
		Latency:    latency,
		PacketLoss: &packetLoss,
		Metrics:    m,
	}
}

// ErrorResult returns the result for a cycle that failed unexpectedly.
func ErrorResult(at time.Time, msg string) MonitoringResult {
	return MonitoringResult{
		Status:    DeviceStatusError,
		LastCheck: at,
		Error:     msg,
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// FormatUptime renders a duration in seconds as "{days}d {hours}h {minutes}m".
func FormatUptime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int64(seconds)
	days := s / 86400
	hours := (s % 86400) / 3600
	minutes := (s % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}
