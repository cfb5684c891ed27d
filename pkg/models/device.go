package models

import "time"

// DeviceClass selects which monitor and registry table a device belongs to.
type DeviceClass string

const (
	DeviceClassRouter        DeviceClass = "router"
	DeviceClassWindowsServer DeviceClass = "windows_server"
)

// Valid reports whether c is a known device class.
func (c DeviceClass) Valid() bool {
	return c == DeviceClassRouter || c == DeviceClassWindowsServer
}

// DeviceStatus represents the outcome of the most recent monitoring cycle.
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusError   DeviceStatus = "error"
	DeviceStatusUnknown DeviceStatus = "unknown"
)

// Device is a monitored piece of network equipment. Routers and Windows
// servers share this shape; disk fields are only ever written for servers.
type Device struct {
	ID        string      `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Class     DeviceClass `json:"class" example:"router"`
	Name      string      `json:"name" example:"core-rtr-01"`
	IPAddress string      `json:"ip_address" example:"192.168.1.1"`

	// Credentials. PasswordEncrypted is an opaque vault blob and never leaves the process.
	Username          string `json:"username,omitempty"`
	PasswordEncrypted string `json:"-"`
	SNMPCommunity     string `json:"snmp_community,omitempty"`

	Status     DeviceStatus `json:"status" example:"online"`
	LastCheck  *time.Time   `json:"last_check,omitempty"`
	Latency    *float64     `json:"latency,omitempty" example:"12.5"`
	PacketLoss *float64     `json:"packet_loss,omitempty" example:"0"`
	CPU        *int         `json:"cpu_usage,omitempty" example:"17"`
	RAMUsage   *int         `json:"ram_usage,omitempty" example:"42"`
	RAMTotal   *int64       `json:"ram_total,omitempty"`
	RAMUsed    *int64       `json:"ram_used,omitempty"`
	DiskUsage  *int         `json:"disk_usage,omitempty"`
	DiskTotal  *float64     `json:"disk_total,omitempty"`
	DiskUsed   *float64     `json:"disk_used,omitempty"`
	Uptime     *string      `json:"uptime,omitempty" example:"3d 4h 12m"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the device name, falling back to its address.
func (d *Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.IPAddress
}

// HasStoredCredentials reports whether a username and a password blob are on file.
func (d *Device) HasStoredCredentials() bool {
	return d.Username != "" && d.PasswordEncrypted != ""
}

// Credentials holds a decrypted username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Complete reports whether both username and password are present.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}
