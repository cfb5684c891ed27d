package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HerbHall/netwarden/internal/collector"
	"github.com/HerbHall/netwarden/internal/inventory"
	"github.com/HerbHall/netwarden/internal/journal"
	"github.com/HerbHall/netwarden/internal/monitor"
	"github.com/HerbHall/netwarden/internal/probe"
	"github.com/HerbHall/netwarden/internal/pulse"
	"github.com/HerbHall/netwarden/internal/server"
	"github.com/HerbHall/netwarden/internal/store"
	"github.com/HerbHall/netwarden/internal/testutil"
	"github.com/HerbHall/netwarden/internal/vault"
	"github.com/HerbHall/netwarden/pkg/models"
)

const devicePassword = "Adm1n-R0uter-S3cret!"

type onlineProber struct{}

func (onlineProber) Probe(context.Context, string) probe.Result {
	latency := 1.5
	return probe.Result{Online: true, Latency: &latency}
}

// recordingCollector remembers the password it was handed.
type recordingCollector struct {
	protocol string

	mu       sync.Mutex
	password string
}

func (c *recordingCollector) Protocol() string { return c.protocol }

func (c *recordingCollector) Collect(_ context.Context, t collector.Target) (models.Metrics, error) {
	c.mu.Lock()
	c.password = t.Credentials.Password
	c.mu.Unlock()
	cpu, ram := 12, 34
	return models.Metrics{CPU: &cpu, RAMUsage: &ram}, nil
}

func (c *recordingCollector) received() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.password
}

type hygieneEnv struct {
	handler     http.Handler
	logs        *observer.ObservedLogs
	ssh         *recordingCollector
	blob        string
	journalPath string
}

func newHygieneEnv(t *testing.T) *hygieneEnv {
	t.Helper()
	ctx := context.Background()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	inv, err := inventory.New(ctx, db)
	if err != nil {
		t.Fatalf("inventory.New: %v", err)
	}
	journalPath := filepath.Join(t.TempDir(), "logs", "surveillance.log")
	jrnl, err := journal.New(ctx, db, journalPath, 10000, logger)
	if err != nil {
		t.Fatalf("journal.New: %v", err)
	}

	key, err := vault.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	v, err := vault.New(key, logger)
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	blob, err := v.EncryptPassword(devicePassword)
	if err != nil {
		t.Fatalf("EncryptPassword: %v", err)
	}

	d := testutil.NewRouter(
		testutil.WithName("core-gw"),
		testutil.WithCredentials("admin", blob),
	)
	if err := inv.InsertDevice(ctx, &d); err != nil {
		t.Fatalf("InsertDevice: %v", err)
	}

	ssh := &recordingCollector{protocol: collector.ProtocolSSH}
	snmp := &recordingCollector{protocol: collector.ProtocolSNMP}
	routers := monitor.NewRouterMonitor(onlineProber{}, v, ssh, snmp, logger)

	sched := pulse.NewScheduler(inv, []monitor.Monitor{routers}, jrnl, nil, pulse.DefaultConfig(), logger)
	api := pulse.NewAPI(sched, inv, jrnl, logger)
	srv := server.New("127.0.0.1:0", logger, server.Options{}, api)

	return &hygieneEnv{
		handler:     srv.Handler(),
		logs:        logs,
		ssh:         ssh,
		blob:        blob,
		journalPath: journalPath,
	}
}

func (e *hygieneEnv) do(t *testing.T, method, path string) string {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: status = %d, body = %s", method, path, w.Code, w.Body.String())
	}
	body, _ := io.ReadAll(w.Body)
	return string(body)
}

// containsSecret checks whether any observed log entry mentions secret in
// its message or fields.
func containsSecret(logs *observer.ObservedLogs, secret string) bool {
	for _, entry := range logs.All() {
		if strings.Contains(entry.Message, secret) {
			return true
		}
		for k, v := range entry.ContextMap() {
			if strings.Contains(k, secret) {
				return true
			}
			if s, ok := v.(string); ok && strings.Contains(s, secret) {
				return true
			}
		}
		for _, f := range entry.Context {
			if err, ok := f.Interface.(error); ok && strings.Contains(err.Error(), secret) {
				return true
			}
		}
	}
	return false
}

func TestCredentialsNeverLeak(t *testing.T) {
	env := newHygieneEnv(t)

	var responses []string
	responses = append(responses,
		env.do(t, http.MethodPost, "/api/v1/monitor/trigger"),
		env.do(t, http.MethodGet, "/api/v1/routers"),
		env.do(t, http.MethodGet, "/api/v1/logs"),
		env.do(t, http.MethodGet, "/api/v1/dashboard/stats"),
	)

	if got := env.ssh.received(); got != devicePassword {
		t.Fatalf("collector received password %q, want the decrypted secret", got)
	}

	journalFile, err := os.ReadFile(env.journalPath)
	if err != nil {
		t.Fatalf("read journal file: %v", err)
	}

	for _, secret := range []string{devicePassword, env.blob} {
		for i, body := range responses {
			if strings.Contains(body, secret) {
				t.Errorf("response %d contains a credential: %s", i, body)
			}
		}
		if containsSecret(env.logs, secret) {
			t.Error("credential found in log output")
		}
		if strings.Contains(string(journalFile), secret) {
			t.Error("credential found in journal file")
		}
	}
}

func TestDeviceListingOmitsPasswordField(t *testing.T) {
	env := newHygieneEnv(t)

	body := env.do(t, http.MethodGet, "/api/v1/routers")
	for _, field := range []string{"password", "password_encrypted", "ciphertext"} {
		if strings.Contains(strings.ToLower(body), `"`+field) {
			t.Errorf("device listing exposes %q: %s", field, body)
		}
	}
	if !strings.Contains(body, `"username":"admin"`) {
		t.Errorf("expected username in listing, got %s", body)
	}
}
