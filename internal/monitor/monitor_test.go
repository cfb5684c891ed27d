package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/collector"
	"github.com/HerbHall/netwarden/internal/probe"
	"github.com/HerbHall/netwarden/internal/vault"
	"github.com/HerbHall/netwarden/pkg/models"
)

// --- fakes ---

type fakeProber struct {
	result probe.Result
	calls  atomic.Int32
}

func (f *fakeProber) Probe(context.Context, string) probe.Result {
	f.calls.Add(1)
	return f.result
}

func online(latency float64) *fakeProber {
	return &fakeProber{result: probe.Result{Online: true, Latency: &latency}}
}

func offline() *fakeProber {
	return &fakeProber{result: probe.Unreachable()}
}

type fakeCollector struct {
	protocol string
	metrics  models.Metrics
	err      error
	panicMsg string
	calls    atomic.Int32
	target   collector.Target
}

func (f *fakeCollector) Protocol() string { return f.protocol }

func (f *fakeCollector) Collect(_ context.Context, t collector.Target) (models.Metrics, error) {
	f.calls.Add(1)
	f.target = t
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.metrics, f.err
}

type fakeResolver struct {
	creds models.Credentials
	ok    bool
}

func (f fakeResolver) ResolveCredentials(*models.Device) (models.Credentials, bool) {
	return f.creds, f.ok
}

var (
	withCreds = fakeResolver{creds: models.Credentials{Username: "admin", Password: "pw"}, ok: true}
	noCreds   = fakeResolver{}
	fixedNow  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func clock() Option { return WithClock(func() time.Time { return fixedNow }) }

func sshOK() *fakeCollector {
	return &fakeCollector{protocol: collector.ProtocolSSH, metrics: models.Metrics{
		CPU: models.Ptr(17), RAMUsage: models.Ptr(40), Uptime: models.Ptr("1w2d"),
	}}
}

func snmpOK() *fakeCollector {
	return &fakeCollector{protocol: collector.ProtocolSNMP, metrics: models.Metrics{
		CPU: models.Ptr(33), RAMTotal: models.Ptr[int64](4000), RAMUsed: models.Ptr[int64](1000), RAMUsage: models.Ptr(25),
	}}
}

func failing(protocol string) *fakeCollector {
	return &fakeCollector{protocol: protocol, err: errors.New(protocol + " unavailable")}
}

func assertNoMetrics(t *testing.T, r models.MonitoringResult) {
	t.Helper()
	if !r.Metrics.Empty() {
		t.Errorf("expected no metrics, got %+v", r.Metrics)
	}
}

// --- router monitor ---

func TestRouter_PingOnlyDevice(t *testing.T) {
	p := online(12)
	ssh, snmp := sshOK(), snmpOK()
	m := NewRouterMonitor(p, noCreds, ssh, snmp, zap.NewNop(), clock())

	r := m.Check(context.Background(), models.Device{ID: "r1", IPAddress: "192.168.1.1"})

	if r.Status != models.DeviceStatusOnline {
		t.Fatalf("Status = %q, want online", r.Status)
	}
	if r.Latency == nil || *r.Latency != 12 {
		t.Errorf("Latency = %v, want 12", r.Latency)
	}
	assertNoMetrics(t, r)
	if !r.LastCheck.Equal(fixedNow) {
		t.Errorf("LastCheck = %v, want %v", r.LastCheck, fixedNow)
	}
	if ssh.calls.Load() != 0 || snmp.calls.Load() != 0 {
		t.Error("collectors must not run without credentials")
	}
}

func TestRouter_OfflineSkipsCollectors(t *testing.T) {
	p := offline()
	ssh, snmp := sshOK(), snmpOK()
	m := NewRouterMonitor(p, withCreds, ssh, snmp, zap.NewNop(), clock())

	r := m.Check(context.Background(), models.Device{ID: "r1", IPAddress: "10.0.0.5", Username: "admin", PasswordEncrypted: "x"})

	if r.Status != models.DeviceStatusOffline {
		t.Fatalf("Status = %q, want offline", r.Status)
	}
	if r.Latency != nil {
		t.Errorf("Latency = %v, want nil", *r.Latency)
	}
	if r.PacketLoss == nil || *r.PacketLoss != 100 {
		t.Errorf("PacketLoss = %v, want 100", r.PacketLoss)
	}
	assertNoMetrics(t, r)
	if p.calls.Load() != 1 {
		t.Errorf("prober called %d times, want 1", p.calls.Load())
	}
	if ssh.calls.Load() != 0 || snmp.calls.Load() != 0 {
		t.Errorf("collectors called (ssh=%d snmp=%d), want 0", ssh.calls.Load(), snmp.calls.Load())
	}
}

func TestRouter_OfflineZeroLossReportedAsTotal(t *testing.T) {
	p := &fakeProber{result: probe.Result{Online: false}}
	m := NewRouterMonitor(p, noCreds, sshOK(), snmpOK(), zap.NewNop())

	r := m.Check(context.Background(), models.Device{ID: "r1", IPAddress: "10.0.0.5"})
	if r.PacketLoss == nil || *r.PacketLoss != 100 {
		t.Errorf("PacketLoss = %v, want 100", r.PacketLoss)
	}
}

func TestRouter_SSHSucceeds(t *testing.T) {
	ssh, snmp := sshOK(), snmpOK()
	m := NewRouterMonitor(online(3), withCreds, ssh, snmp, zap.NewNop())

	r := m.Check(context.Background(), models.Device{ID: "r1", IPAddress: "10.0.0.1"})

	if r.Status != models.DeviceStatusOnline || r.CPU == nil || *r.CPU != 17 {
		t.Errorf("result = %+v, want SSH metrics", r)
	}
	if snmp.calls.Load() != 0 {
		t.Error("SNMP must not run when SSH succeeds")
	}
	if ssh.target.Credentials.Username != "admin" {
		t.Errorf("SSH target credentials = %+v", ssh.target.Credentials)
	}
}

func TestRouter_FallsBackToSNMP(t *testing.T) {
	ssh, snmp := failing(collector.ProtocolSSH), snmpOK()
	var failures []string
	m := NewRouterMonitor(online(5), withCreds, ssh, snmp, zap.NewNop(),
		WithCollectorFailureHook(func(p string) { failures = append(failures, p) }))

	r := m.Check(context.Background(), models.Device{ID: "r1", IPAddress: "10.0.0.1", SNMPCommunity: "private"})

	if r.Status != models.DeviceStatusOnline {
		t.Fatalf("Status = %q, want online", r.Status)
	}
	if r.CPU == nil || *r.CPU != 33 || r.RAMUsage == nil || *r.RAMUsage != 25 {
		t.Errorf("expected SNMP metrics, got %+v", r.Metrics)
	}
	if snmp.target.Community != "private" {
		t.Errorf("SNMP community = %q, want private", snmp.target.Community)
	}
	if len(failures) != 1 || failures[0] != collector.ProtocolSSH {
		t.Errorf("failure hook calls = %v, want [ssh]", failures)
	}
}

func TestRouter_AllCollectorsFail(t *testing.T) {
	ssh, snmp := failing(collector.ProtocolSSH), failing(collector.ProtocolSNMP)
	m := NewRouterMonitor(online(7.5), withCreds, ssh, snmp, zap.NewNop())

	r := m.Check(context.Background(), models.Device{ID: "r1", IPAddress: "10.0.0.1"})

	if r.Status != models.DeviceStatusOnline {
		t.Fatalf("Status = %q, want online (collector failure is not an error)", r.Status)
	}
	if r.Latency == nil || *r.Latency != 7.5 {
		t.Errorf("Latency = %v, want 7.5", r.Latency)
	}
	assertNoMetrics(t, r)
	if r.Error != "" {
		t.Errorf("Error = %q, want empty", r.Error)
	}
	if ssh.calls.Load() != 1 || snmp.calls.Load() != 1 {
		t.Errorf("calls ssh=%d snmp=%d, want 1 each", ssh.calls.Load(), snmp.calls.Load())
	}
}

func TestRouter_DiskFieldsDropped(t *testing.T) {
	ssh := &fakeCollector{protocol: collector.ProtocolSSH, metrics: models.Metrics{
		CPU: models.Ptr(1), DiskUsage: models.Ptr(50), DiskTotal: models.Ptr(10.0),
	}}
	m := NewRouterMonitor(online(1), withCreds, ssh, snmpOK(), zap.NewNop())

	r := m.Check(context.Background(), models.Device{ID: "r1", IPAddress: "10.0.0.1"})
	if r.DiskUsage != nil || r.DiskTotal != nil {
		t.Error("router results must not carry disk metrics")
	}
}

func TestRouter_PanicBecomesError(t *testing.T) {
	ssh := &fakeCollector{protocol: collector.ProtocolSSH, panicMsg: "nil map write"}
	m := NewRouterMonitor(online(1), withCreds, ssh, snmpOK(), zap.NewNop(), clock())

	r := m.Check(context.Background(), models.Device{ID: "r1", IPAddress: "10.0.0.1"})

	if r.Status != models.DeviceStatusError {
		t.Fatalf("Status = %q, want error", r.Status)
	}
	if r.Error == "" {
		t.Error("error result must carry a message")
	}
	if !r.LastCheck.Equal(fixedNow) {
		t.Errorf("LastCheck = %v, want %v", r.LastCheck, fixedNow)
	}
	assertNoMetrics(t, r)
}

func TestRouter_MissingAddressIsError(t *testing.T) {
	p := online(1)
	m := NewRouterMonitor(p, noCreds, sshOK(), snmpOK(), zap.NewNop())

	r := m.Check(context.Background(), models.Device{ID: "r1"})
	if r.Status != models.DeviceStatusError {
		t.Errorf("Status = %q, want error", r.Status)
	}
	if p.calls.Load() != 0 {
		t.Error("prober must not run without an address")
	}
}

func TestRouter_CanceledContextIsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewRouterMonitor(online(1), noCreds, sshOK(), snmpOK(), zap.NewNop())
	if r := m.Check(ctx, models.Device{ID: "r1", IPAddress: "10.0.0.1"}); r.Status != models.DeviceStatusError {
		t.Errorf("Status = %q, want error", r.Status)
	}
}

// --- windows monitor ---

func TestWindows_CollectsOverWinRM(t *testing.T) {
	winrm := &fakeCollector{protocol: collector.ProtocolWinRM, metrics: models.Metrics{
		CPU: models.Ptr(12), DiskUsage: models.Ptr(49), DiskTotal: models.Ptr(99.45), DiskUsed: models.Ptr(48.27),
	}}
	m := NewWindowsMonitor(online(2), withCreds, winrm, zap.NewNop())

	r := m.Check(context.Background(), models.Device{ID: "s1", IPAddress: "10.0.1.10"})

	if r.Status != models.DeviceStatusOnline {
		t.Fatalf("Status = %q, want online", r.Status)
	}
	if r.DiskUsage == nil || *r.DiskUsage != 49 || r.DiskTotal == nil {
		t.Errorf("disk metrics missing: %+v", r.Metrics)
	}
	if m.Class() != models.DeviceClassWindowsServer {
		t.Errorf("Class() = %q", m.Class())
	}
}

func TestWindows_WinRMFailureStillOnline(t *testing.T) {
	winrm := failing(collector.ProtocolWinRM)
	m := NewWindowsMonitor(online(2), withCreds, winrm, zap.NewNop())

	r := m.Check(context.Background(), models.Device{ID: "s1", IPAddress: "10.0.1.10"})

	if r.Status != models.DeviceStatusOnline {
		t.Fatalf("Status = %q, want online", r.Status)
	}
	assertNoMetrics(t, r)
	if winrm.calls.Load() != 1 {
		t.Errorf("winrm calls = %d, want 1", winrm.calls.Load())
	}
}

func TestWindows_OfflineSkipsWinRM(t *testing.T) {
	winrm := &fakeCollector{protocol: collector.ProtocolWinRM}
	m := NewWindowsMonitor(offline(), withCreds, winrm, zap.NewNop())

	r := m.Check(context.Background(), models.Device{ID: "s1", IPAddress: "10.0.1.10"})
	if r.Status != models.DeviceStatusOffline || r.Latency != nil {
		t.Errorf("result = %+v, want offline without latency", r)
	}
	if winrm.calls.Load() != 0 {
		t.Error("WinRM must not run for an offline server")
	}
}

func TestWindows_PingOnlyDevice(t *testing.T) {
	key, err := vault.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	v, err := vault.New(key, zap.NewNop())
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}

	tests := []struct {
		name   string
		device models.Device
	}{
		{"no credentials", models.Device{ID: "s1", IPAddress: "10.0.1.10"}},
		{"username only", models.Device{ID: "s2", IPAddress: "10.0.1.11", Username: "Administrator"}},
		{"corrupt blob", models.Device{ID: "s3", IPAddress: "10.0.1.12", Username: "Administrator", PasswordEncrypted: "{not json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winrm := &fakeCollector{protocol: collector.ProtocolWinRM, metrics: models.Metrics{CPU: models.Ptr(5)}}
			m := NewWindowsMonitor(online(3), v, winrm, zap.NewNop(), clock())

			r := m.Check(context.Background(), tt.device)

			if r.Status != models.DeviceStatusOnline {
				t.Fatalf("Status = %q, want online", r.Status)
			}
			if r.Latency == nil || *r.Latency != 3 {
				t.Errorf("Latency = %v, want 3", r.Latency)
			}
			assertNoMetrics(t, r)
			if n := winrm.calls.Load(); n != 0 {
				t.Errorf("winrm calls = %d, want 0", n)
			}
		})
	}
}
