// Package monitor runs one monitoring check for one device: probe first,
// then the device class's collectors in fallback order.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/collector"
	"github.com/HerbHall/netwarden/internal/probe"
	"github.com/HerbHall/netwarden/pkg/models"
)

// CredentialResolver returns a device's decrypted credentials and whether
// they are complete. Satisfied by *vault.Vault.
type CredentialResolver interface {
	ResolveCredentials(d *models.Device) (models.Credentials, bool)
}

// Monitor produces a MonitoringResult for one device. Check never returns
// an error; unexpected failures become a result with status error.
type Monitor interface {
	Class() models.DeviceClass
	Check(ctx context.Context, d models.Device) models.MonitoringResult
}

// Option configures a DeviceMonitor.
type Option func(*DeviceMonitor)

// WithCollectorFailureHook registers fn to be called with the protocol name
// each time a collector fails.
func WithCollectorFailureHook(fn func(protocol string)) Option {
	return func(m *DeviceMonitor) { m.onCollectorFailure = fn }
}

// WithClock overrides the time source used for lastCheck.
func WithClock(now func() time.Time) Option {
	return func(m *DeviceMonitor) { m.now = now }
}

// DeviceMonitor is the monitor shared by both device classes. Collectors
// are tried in order until one succeeds.
type DeviceMonitor struct {
	class      models.DeviceClass
	prober     probe.Prober
	creds      CredentialResolver
	collectors []collector.Collector
	keepDisk   bool
	logger     *zap.Logger

	now                func() time.Time
	onCollectorFailure func(protocol string)
}

// Compile-time interface guard.
var _ Monitor = (*DeviceMonitor)(nil)

// NewRouterMonitor tries SSH first and falls back to SNMP.
func NewRouterMonitor(p probe.Prober, creds CredentialResolver, ssh, snmp collector.Collector, logger *zap.Logger, opts ...Option) *DeviceMonitor {
	return newDeviceMonitor(models.DeviceClassRouter, p, creds, []collector.Collector{ssh, snmp}, false, logger, opts)
}

// NewWindowsMonitor collects over WinRM only.
func NewWindowsMonitor(p probe.Prober, creds CredentialResolver, winrm collector.Collector, logger *zap.Logger, opts ...Option) *DeviceMonitor {
	return newDeviceMonitor(models.DeviceClassWindowsServer, p, creds, []collector.Collector{winrm}, true, logger, opts)
}

func newDeviceMonitor(class models.DeviceClass, p probe.Prober, creds CredentialResolver, chain []collector.Collector, keepDisk bool, logger *zap.Logger, opts []Option) *DeviceMonitor {
	m := &DeviceMonitor{
		class:      class,
		prober:     p,
		creds:      creds,
		collectors: chain,
		keepDisk:   keepDisk,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *DeviceMonitor) Class() models.DeviceClass { return m.class }

// Check probes the device and, when it is online with credentials on file,
// collects metrics. Collector failures never change the online status.
func (m *DeviceMonitor) Check(ctx context.Context, d models.Device) (result models.MonitoringResult) {
	checkedAt := m.now()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor panic recovered",
				zap.String("device_id", d.ID),
				zap.String("device", d.DisplayName()),
				zap.Any("panic", r),
			)
			result = models.ErrorResult(checkedAt, fmt.Sprintf("monitor panic: %v", r))
		}
	}()

	if err := m.precheck(ctx, d); err != nil {
		m.logger.Warn("device check failed",
			zap.String("device_id", d.ID),
			zap.String("device", d.DisplayName()),
			zap.Error(err),
		)
		return models.ErrorResult(checkedAt, err.Error())
	}

	conn := m.prober.Probe(ctx, d.IPAddress)
	if !conn.Online {
		loss := conn.PacketLoss
		if loss == 0 {
			loss = 100
		}
		return models.OfflineResult(checkedAt, loss)
	}

	creds, ok := m.creds.ResolveCredentials(&d)
	if !ok {
		// Ping-only device.
		return models.OnlineResult(checkedAt, conn.Latency, conn.PacketLoss, models.Metrics{})
	}

	metrics := m.collect(ctx, d, creds)
	return models.OnlineResult(checkedAt, conn.Latency, conn.PacketLoss, metrics)
}

func (m *DeviceMonitor) precheck(ctx context.Context, d models.Device) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("check aborted: %w", err)
	}
	if d.IPAddress == "" {
		return errors.New("device has no ip address")
	}
	return nil
}

// collect walks the collector chain. An empty Metrics is returned when every
// collector fails.
func (m *DeviceMonitor) collect(ctx context.Context, d models.Device, creds models.Credentials) models.Metrics {
	target := collector.Target{
		Address:     d.IPAddress,
		Credentials: creds,
		Community:   d.SNMPCommunity,
	}

	for i, c := range m.collectors {
		if c == nil {
			continue
		}
		metrics, err := c.Collect(ctx, target)
		if err == nil {
			if !m.keepDisk {
				metrics = metrics.WithoutDisk()
			}
			return metrics
		}

		m.logger.Debug("collector failed",
			zap.String("device_id", d.ID),
			zap.String("address", d.IPAddress),
			zap.String("protocol", c.Protocol()),
			zap.Error(err),
		)
		if m.onCollectorFailure != nil {
			m.onCollectorFailure(c.Protocol())
		}
		if next := m.nextCollector(i); next != nil {
			m.logger.Info("falling back to next collector",
				zap.String("device_id", d.ID),
				zap.String("from", c.Protocol()),
				zap.String("to", next.Protocol()),
			)
		}
	}
	return models.Metrics{}
}

func (m *DeviceMonitor) nextCollector(i int) collector.Collector {
	for _, c := range m.collectors[i+1:] {
		if c != nil {
			return c
		}
	}
	return nil
}
