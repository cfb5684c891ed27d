package pulse

import (
	"time"

	"github.com/HerbHall/netwarden/pkg/models"
)

// Event topics published by the scheduler.
const (
	TopicDeviceChecked  = "pulse.device.checked"
	TopicStatusChanged  = "pulse.device.status_changed"
	TopicCycleCompleted = "pulse.cycle.completed"
)

const eventSource = "pulse"

// DeviceCheckedEvent is the payload for TopicDeviceChecked.
type DeviceCheckedEvent struct {
	DeviceID  string                  `json:"device_id"`
	Class     models.DeviceClass      `json:"class"`
	Name      string                  `json:"name"`
	IPAddress string                  `json:"ip_address"`
	Result    models.MonitoringResult `json:"result"`
}

// StatusChangedEvent is the payload for TopicStatusChanged.
type StatusChangedEvent struct {
	DeviceID  string              `json:"device_id"`
	Class     models.DeviceClass  `json:"class"`
	Name      string              `json:"name"`
	IPAddress string              `json:"ip_address"`
	From      models.DeviceStatus `json:"from"`
	To        models.DeviceStatus `json:"to"`
	ChangedAt time.Time           `json:"changed_at"`
}
