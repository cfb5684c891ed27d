package models

import "time"

// LogLevel is the severity of a monitoring log record.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
)

// LogRecord is an append-only monitoring journal entry.
type LogRecord struct {
	ID         string      `json:"id"`
	Level      LogLevel    `json:"level"`
	Message    string      `json:"message"`
	SourceType DeviceClass `json:"source_type"`
	SourceID   string      `json:"source_id"`
	Metadata   LogMetadata `json:"metadata"`
	CreatedAt  time.Time   `json:"created_at"`
}

// LogMetadata is the snapshot of a MonitoringResult stored with each record.
type LogMetadata struct {
	EquipmentName string       `json:"equipment_name"`
	IPAddress     string       `json:"ip_address"`
	Status        DeviceStatus `json:"status"`
	Type          DeviceClass  `json:"type"`
	CPU           *int         `json:"cpu"`
	RAM           *int         `json:"ram"`
	Disk          *int         `json:"disk"`
	Latency       *float64     `json:"latency"`
	PacketLoss    *float64     `json:"packet_loss,omitempty"`
	Error         string       `json:"error,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// LogFilter narrows a log listing. Zero values mean "any".
type LogFilter struct {
	Level      LogLevel
	SourceType DeviceClass
	Limit      int
}
