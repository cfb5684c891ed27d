package inventory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/netwarden/internal/store"
	"github.com/HerbHall/netwarden/pkg/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(context.Background(), db)
	if err != nil {
		t.Fatalf("inventory.New: %v", err)
	}
	return s
}

func insert(t *testing.T, s *Store, d *models.Device) *models.Device {
	t.Helper()
	if err := s.InsertDevice(context.Background(), d); err != nil {
		t.Fatalf("InsertDevice: %v", err)
	}
	return d
}

func TestInsertAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d := insert(t, s, &models.Device{
		Class:             models.DeviceClassRouter,
		Name:              "core-rtr",
		IPAddress:         "192.168.1.1",
		Username:          "admin",
		PasswordEncrypted: `"pw"`,
		SNMPCommunity:     "private",
	})
	if d.ID == "" {
		t.Fatal("InsertDevice did not assign an id")
	}

	got, err := s.GetDevice(ctx, models.DeviceClassRouter, d.ID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got.Name != "core-rtr" || got.IPAddress != "192.168.1.1" || got.SNMPCommunity != "private" {
		t.Errorf("unexpected device: %+v", got)
	}
	if got.Status != models.DeviceStatusUnknown {
		t.Errorf("Status = %q, want unknown", got.Status)
	}
	if got.LastCheck != nil || got.CPU != nil {
		t.Error("fresh device should have no monitoring fields")
	}
	if !got.HasStoredCredentials() {
		t.Error("credentials were not persisted")
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetDevice(context.Background(), models.DeviceClassWindowsServer, "missing")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("got %v, want ErrDeviceNotFound", err)
	}
}

func TestListDevices_SeparatesClasses(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	insert(t, s, &models.Device{Class: models.DeviceClassRouter, Name: "b-rtr", IPAddress: "10.0.0.2"})
	insert(t, s, &models.Device{Class: models.DeviceClassRouter, Name: "a-rtr", IPAddress: "10.0.0.1"})
	insert(t, s, &models.Device{Class: models.DeviceClassWindowsServer, Name: "dc01", IPAddress: "10.0.1.1"})

	routers, err := s.ListDevices(ctx, models.DeviceClassRouter)
	if err != nil {
		t.Fatalf("ListDevices(router): %v", err)
	}
	if len(routers) != 2 || routers[0].Name != "a-rtr" {
		t.Errorf("routers = %+v", routers)
	}
	for _, r := range routers {
		if r.Class != models.DeviceClassRouter {
			t.Errorf("router listed with class %q", r.Class)
		}
	}

	servers, err := s.ListDevices(ctx, models.DeviceClassWindowsServer)
	if err != nil {
		t.Fatalf("ListDevices(server): %v", err)
	}
	if len(servers) != 1 {
		t.Errorf("got %d servers, want 1", len(servers))
	}

	if _, err := s.ListDevices(ctx, "switch"); err == nil {
		t.Error("expected error for unknown class")
	}
}

func TestUpdateStatus_WritesOnlyPresentFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	d := insert(t, s, &models.Device{Class: models.DeviceClassRouter, Name: "rtr", IPAddress: "10.0.0.1"})

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	online := models.OnlineResult(at, models.Ptr(12.5), 0, models.Metrics{
		CPU:      models.Ptr(17),
		RAMUsage: models.Ptr(42),
		RAMTotal: models.Ptr[int64](1 << 30),
		RAMUsed:  models.Ptr[int64](450 << 20),
		Uptime:   models.Ptr("3d 4h 12m"),
	})
	if _, err := s.UpdateStatus(ctx, models.DeviceClassRouter, d.ID, online); err != nil {
		t.Fatalf("UpdateStatus(online): %v", err)
	}

	later := at.Add(time.Minute)
	got, err := s.UpdateStatus(ctx, models.DeviceClassRouter, d.ID, models.OfflineResult(later, 100))
	if err != nil {
		t.Fatalf("UpdateStatus(offline): %v", err)
	}

	if got.Status != models.DeviceStatusOffline {
		t.Errorf("Status = %q, want offline", got.Status)
	}
	if got.LastCheck == nil || !got.LastCheck.Equal(later) {
		t.Errorf("LastCheck = %v, want %v", got.LastCheck, later)
	}
	if got.PacketLoss == nil || *got.PacketLoss != 100 {
		t.Errorf("PacketLoss = %v, want 100", got.PacketLoss)
	}
	// Metrics from the previous online cycle survive an offline result.
	if got.CPU == nil || *got.CPU != 17 {
		t.Errorf("CPU = %v, want 17 retained", got.CPU)
	}
	if got.Latency == nil || *got.Latency != 12.5 {
		t.Errorf("Latency = %v, want 12.5 retained", got.Latency)
	}
	if got.Uptime == nil || *got.Uptime != "3d 4h 12m" {
		t.Errorf("Uptime = %v, want retained", got.Uptime)
	}
}

func TestUpdateStatus_ZeroIsAValue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	d := insert(t, s, &models.Device{Class: models.DeviceClassWindowsServer, Name: "srv", IPAddress: "10.0.1.1"})

	r := models.OnlineResult(time.Now(), models.Ptr(1.0), 0, models.Metrics{CPU: models.Ptr(0), DiskTotal: models.Ptr(0.0)})
	got, err := s.UpdateStatus(ctx, models.DeviceClassWindowsServer, d.ID, r)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.CPU == nil || *got.CPU != 0 {
		t.Errorf("CPU = %v, want stored 0", got.CPU)
	}
	if got.DiskTotal == nil || *got.DiskTotal != 0 {
		t.Errorf("DiskTotal = %v, want stored 0", got.DiskTotal)
	}
}

func TestUpdateStatus_Idempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	d := insert(t, s, &models.Device{Class: models.DeviceClassRouter, Name: "rtr", IPAddress: "10.0.0.1"})

	r := models.OnlineResult(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), models.Ptr(3.0), 0,
		models.Metrics{CPU: models.Ptr(5), RAMUsage: models.Ptr(60)})

	first, err := s.UpdateStatus(ctx, models.DeviceClassRouter, d.ID, r)
	if err != nil {
		t.Fatalf("first UpdateStatus: %v", err)
	}
	second, err := s.UpdateStatus(ctx, models.DeviceClassRouter, d.ID, r)
	if err != nil {
		t.Fatalf("second UpdateStatus: %v", err)
	}

	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	if *first.CPU != *second.CPU || *first.RAMUsage != *second.RAMUsage ||
		*first.Latency != *second.Latency || first.Status != second.Status ||
		!first.LastCheck.Equal(*second.LastCheck) {
		t.Errorf("stored fields changed between identical updates:\n%+v\n%+v", first, second)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.UpdateStatus(context.Background(), models.DeviceClassRouter, "nope",
		models.OfflineResult(time.Now(), 100))
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("got %v, want ErrDeviceNotFound", err)
	}
}

func TestCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r1 := insert(t, s, &models.Device{Class: models.DeviceClassRouter, Name: "r1", IPAddress: "10.0.0.1"})
	insert(t, s, &models.Device{Class: models.DeviceClassRouter, Name: "r2", IPAddress: "10.0.0.2"})
	s1 := insert(t, s, &models.Device{Class: models.DeviceClassWindowsServer, Name: "s1", IPAddress: "10.0.1.1"})

	if _, err := s.UpdateStatus(ctx, models.DeviceClassRouter, r1.ID,
		models.OnlineResult(time.Now(), models.Ptr(1.0), 0, models.Metrics{})); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, models.DeviceClassWindowsServer, s1.ID,
		models.ErrorResult(time.Now(), "boom")); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if got := counts[models.DeviceClassRouter]; got.Total != 2 || got.Online != 1 {
		t.Errorf("router counts = %+v", got)
	}
	if got := counts[models.DeviceClassWindowsServer]; got.Total != 1 || got.Error != 1 {
		t.Errorf("server counts = %+v", got)
	}
}

type fakeEncrypter struct{ calls int }

func (f *fakeEncrypter) EncryptPassword(plain string) (string, error) {
	f.calls++
	return `{"encrypted":"` + strings.Repeat("x", len(plain)) + `","isEncrypted":true}`, nil
}

func TestImportFromFile(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "devices.yaml")
	doc := `
routers:
  - name: edge
    ip_address: 192.168.1.1
    username: admin
    password: secret
    snmp_community: monitor
  - ip_address: 192.168.1.2
windows_servers:
  - name: dc01
    ip_address: 10.0.1.10
    username: Administrator
    password: hunter2
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write import file: %v", err)
	}

	enc := &fakeEncrypter{}
	res, err := s.ImportFromFile(ctx, path, enc)
	if err != nil {
		t.Fatalf("ImportFromFile: %v", err)
	}
	if res.Created != 3 || res.Skipped != 0 {
		t.Errorf("first import = %+v, want 3 created", res)
	}
	if enc.calls != 2 {
		t.Errorf("encrypter called %d times, want 2", enc.calls)
	}

	edge, err := s.FindByAddress(ctx, models.DeviceClassRouter, "192.168.1.1")
	if err != nil {
		t.Fatalf("FindByAddress: %v", err)
	}
	if strings.Contains(edge.PasswordEncrypted, "secret") {
		t.Error("plaintext password stored")
	}
	unnamed, err := s.FindByAddress(ctx, models.DeviceClassRouter, "192.168.1.2")
	if err != nil {
		t.Fatalf("FindByAddress: %v", err)
	}
	if unnamed.Name != "192.168.1.2" || unnamed.HasStoredCredentials() {
		t.Errorf("unnamed router = %+v", unnamed)
	}

	res, err = s.ImportFromFile(ctx, path, enc)
	if err != nil {
		t.Fatalf("second ImportFromFile: %v", err)
	}
	if res.Created != 0 || res.Skipped != 3 {
		t.Errorf("second import = %+v, want 3 skipped", res)
	}
}

func TestImport_PasswordWithoutVault(t *testing.T) {
	s := testStore(t)
	f := ImportFile{Routers: []ImportDevice{{IPAddress: "10.0.0.1", Username: "a", Password: "b"}}}
	if _, err := s.Import(context.Background(), f, nil); err == nil {
		t.Error("expected error when a password cannot be encrypted")
	}
}
