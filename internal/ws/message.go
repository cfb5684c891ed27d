package ws

import (
	"time"

	"github.com/HerbHall/netwarden/pkg/models"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageDeviceChecked  MessageType = "monitor.device_checked"
	MessageStatusChanged  MessageType = "monitor.status_changed"
	MessageCycleCompleted MessageType = "monitor.cycle_completed"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	DeviceID  string      `json:"device_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// DeviceCheckedData is the payload for monitor.device_checked messages.
type DeviceCheckedData struct {
	Class      models.DeviceClass  `json:"class"`
	Name       string              `json:"name"`
	IPAddress  string              `json:"ip_address"`
	Status     models.DeviceStatus `json:"status"`
	Latency    *float64            `json:"latency"`
	PacketLoss *float64            `json:"packet_loss,omitempty"`
	CPU        *int                `json:"cpu"`
	RAM        *int                `json:"ram"`
	Disk       *int                `json:"disk,omitempty"`
	Uptime     *string             `json:"uptime,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// StatusChangedData is the payload for monitor.status_changed messages.
type StatusChangedData struct {
	Class     models.DeviceClass  `json:"class"`
	Name      string              `json:"name"`
	IPAddress string              `json:"ip_address"`
	From      models.DeviceStatus `json:"from"`
	To        models.DeviceStatus `json:"to"`
}

// CycleCompletedData is the payload for monitor.cycle_completed messages.
type CycleCompletedData struct {
	Devices    int   `json:"devices"`
	Online     int   `json:"online"`
	Offline    int   `json:"offline"`
	Errors     int   `json:"errors"`
	DurationMS int64 `json:"duration_ms"`
}
