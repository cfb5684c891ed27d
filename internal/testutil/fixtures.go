package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/netwarden/pkg/models"
)

// NewRouter returns a router Device with sensible defaults, suitable for
// test fixtures. It has no credentials, so it is monitored ping-only.
func NewRouter(opts ...func(*models.Device)) models.Device {
	return newDevice(models.DeviceClassRouter, "test-router", "192.168.1.1", opts)
}

// NewWindowsServer returns a Windows server Device with sensible defaults.
func NewWindowsServer(opts ...func(*models.Device)) models.Device {
	return newDevice(models.DeviceClassWindowsServer, "test-server", "10.0.1.10", opts)
}

func newDevice(class models.DeviceClass, name, ip string, opts []func(*models.Device)) models.Device {
	now := time.Now().UTC()
	d := models.Device{
		ID:        uuid.New().String(),
		Class:     class,
		Name:      name,
		IPAddress: ip,
		Status:    models.DeviceStatusUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithName sets the device name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// WithIP sets the device address.
func WithIP(ip string) func(*models.Device) {
	return func(d *models.Device) { d.IPAddress = ip }
}

// WithStatus sets the device status.
func WithStatus(s models.DeviceStatus) func(*models.Device) {
	return func(d *models.Device) { d.Status = s }
}

// WithCredentials sets the username and the stored password blob.
func WithCredentials(username, passwordBlob string) func(*models.Device) {
	return func(d *models.Device) {
		d.Username = username
		d.PasswordEncrypted = passwordBlob
	}
}

// WithCommunity sets the SNMP community string.
func WithCommunity(c string) func(*models.Device) {
	return func(d *models.Device) { d.SNMPCommunity = c }
}

// WithLastCheck sets the device's last_check timestamp.
func WithLastCheck(t time.Time) func(*models.Device) {
	return func(d *models.Device) { d.LastCheck = &t }
}
