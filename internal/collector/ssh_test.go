package collector

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/HerbHall/netwarden/pkg/models"
)

const routerOSOutput = `                   uptime: 3w2d4h12m7s
                  version: 7.14.2 (stable)
               build-time: 2024-03-27 13:19:03
         factory-software: 7.12
              free-memory: 200.0MiB
             total-memory: 256.0MiB
                      cpu: ARM
                cpu-count: 4
                 cpu-load: 17%
           free-hdd-space: 88.2MiB
          total-hdd-space: 128.0MiB
             architecture-name: arm
               board-name: hAP ax^2
`

// generateTestHostKey generates an ed25519 host key for the test SSH server.
func generateTestHostKey(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("create signer: %v", err)
	}
	return signer
}

// newTestSSHServer starts an in-process SSH server that accepts password auth
// and answers every exec request with output and exit status 0.
func newTestSSHServer(t *testing.T, username, password, output string) (host string, port int) {
	t.Helper()

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == username && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("invalid credentials")
		},
	}
	config.AddHostKey(generateTestHostKey(t))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go handleTestSSHConn(conn, config, output)
		}
	}()
	t.Cleanup(func() {
		listener.Close()
		<-done
	})

	tcpAddr := listener.Addr().(*net.TCPAddr)
	return tcpAddr.IP.String(), tcpAddr.Port
}

func handleTestSSHConn(conn net.Conn, config *ssh.ServerConfig, output string) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}

		go func() {
			defer channel.Close()
			for req := range requests {
				if req.Type != "exec" {
					if req.WantReply {
						req.Reply(false, nil)
					}
					continue
				}
				if req.WantReply {
					req.Reply(true, nil)
				}
				_, _ = channel.Write([]byte(output))
				status := make([]byte, 4)
				binary.BigEndian.PutUint32(status, 0)
				_, _ = channel.SendRequest("exit-status", false, status)
				return
			}
		}()
	}
}

func TestSSHCollector_Collect(t *testing.T) {
	host, port := newTestSSHServer(t, "admin", "routerpw", routerOSOutput)
	c := NewSSHCollector(SSHConfig{Port: port, ReadyTimeout: 2 * time.Second}, zap.NewNop())

	m, err := c.Collect(context.Background(), Target{
		Address:     host,
		Credentials: models.Credentials{Username: "admin", Password: "routerpw"},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if m.CPU == nil || *m.CPU != 17 {
		t.Errorf("CPU = %v, want 17", m.CPU)
	}
	if m.RAMTotal == nil || *m.RAMTotal != 256<<20 {
		t.Errorf("RAMTotal = %v, want %d", m.RAMTotal, 256<<20)
	}
	if m.RAMUsed == nil || *m.RAMUsed != 56<<20 {
		t.Errorf("RAMUsed = %v, want %d", m.RAMUsed, 56<<20)
	}
	if m.RAMUsage == nil || *m.RAMUsage != 22 {
		t.Errorf("RAMUsage = %v, want 22", m.RAMUsage)
	}
	if m.Uptime == nil || *m.Uptime != "3w2d4h12m7s" {
		t.Errorf("Uptime = %v, want 3w2d4h12m7s", m.Uptime)
	}
	if m.DiskUsage != nil {
		t.Error("router collector should not report disk usage")
	}
}

func TestSSHCollector_AuthFailure(t *testing.T) {
	host, port := newTestSSHServer(t, "admin", "routerpw", routerOSOutput)
	c := NewSSHCollector(SSHConfig{Port: port, ReadyTimeout: 2 * time.Second}, zap.NewNop())

	_, err := c.Collect(context.Background(), Target{
		Address:     host,
		Credentials: models.Credentials{Username: "admin", Password: "wrong"},
	})
	if err == nil {
		t.Fatal("expected authentication error")
	}
}

func TestSSHCollector_UnexpectedOutput(t *testing.T) {
	host, port := newTestSSHServer(t, "admin", "pw", "bad command name print (line 1 column 9)\n")
	c := NewSSHCollector(SSHConfig{Port: port, ReadyTimeout: 2 * time.Second}, zap.NewNop())

	_, err := c.Collect(context.Background(), Target{
		Address:     host,
		Credentials: models.Credentials{Username: "admin", Password: "pw"},
	})
	if !errors.Is(err, ErrNoMetrics) {
		t.Errorf("got %v, want ErrNoMetrics", err)
	}
}

func TestSSHCollector_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	c := NewSSHCollector(SSHConfig{Port: port, ReadyTimeout: time.Second}, zap.NewNop())
	_, err = c.Collect(context.Background(), Target{
		Address:     "127.0.0.1",
		Credentials: models.Credentials{Username: "a", Password: "b"},
	})
	if err == nil {
		t.Fatal("expected dial error")
	}
}

func TestSSHCollector_ReadyTimeout(t *testing.T) {
	// A listener that accepts but never speaks SSH.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	t.Cleanup(func() {
		l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	port := l.Addr().(*net.TCPAddr).Port
	c := NewSSHCollector(SSHConfig{Port: port, ReadyTimeout: 200 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	_, err = c.Collect(context.Background(), Target{
		Address:     "127.0.0.1",
		Credentials: models.Credentials{Username: "a", Password: "b"},
	})
	if err == nil {
		t.Fatal("expected handshake timeout")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Collect took %s, want bounded by ready timeout", elapsed)
	}
}

func TestSSHCollector_RequiresCredentials(t *testing.T) {
	c := NewSSHCollector(SSHConfig{}, zap.NewNop())
	c.dial = func(context.Context, string, *ssh.ClientConfig) (*ssh.Client, error) {
		t.Fatal("dial must not be attempted without credentials")
		return nil, nil
	}
	if _, err := c.Collect(context.Background(), Target{Address: "10.0.0.1"}); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestParseRouterOSResources(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantCPU   *int
		wantTotal *int64
		wantUsed  *int64
		wantUsage *int
		wantUp    *string
		wantErr   error
	}{
		{
			name:      "plain byte counts",
			output:    "cpu-load: 5%\nfree-memory: 750\ntotal-memory: 1000\nuptime: 1d2h\n",
			wantCPU:   models.Ptr(5),
			wantTotal: models.Ptr[int64](1000),
			wantUsed:  models.Ptr[int64](250),
			wantUsage: models.Ptr(25),
			wantUp:    models.Ptr("1d2h"),
		},
		{
			name:      "KiB units and CRLF",
			output:    "cpu-load: 0%\r\nfree-memory: 512KiB\r\ntotal-memory: 1024KiB\r\nuptime: 5m\r\n",
			wantCPU:   models.Ptr(0),
			wantTotal: models.Ptr[int64](1024 << 10),
			wantUsed:  models.Ptr[int64](512 << 10),
			wantUsage: models.Ptr(50),
			wantUp:    models.Ptr("5m"),
		},
		{
			name:    "cpu only",
			output:  "CPU-LOAD: 99%\n",
			wantCPU: models.Ptr(99),
		},
		{
			name:   "free memory without total is ignored",
			output: "free-memory: 10MiB\nuptime: 2h\n",
			wantUp: models.Ptr("2h"),
		},
		{
			name:    "no recognised keys",
			output:  "expected end of command\n",
			wantErr: ErrNoMetrics,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseRouterOSResources(tt.output)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertIntPtr(t, "CPU", m.CPU, tt.wantCPU)
			assertInt64Ptr(t, "RAMTotal", m.RAMTotal, tt.wantTotal)
			assertInt64Ptr(t, "RAMUsed", m.RAMUsed, tt.wantUsed)
			assertIntPtr(t, "RAMUsage", m.RAMUsage, tt.wantUsage)
			if (m.Uptime == nil) != (tt.wantUp == nil) || (m.Uptime != nil && *m.Uptime != *tt.wantUp) {
				t.Errorf("Uptime = %v, want %v", strPtr(m.Uptime), strPtr(tt.wantUp))
			}
		})
	}
}

func assertIntPtr(t *testing.T, name string, got, want *int) {
	t.Helper()
	if (got == nil) != (want == nil) || (got != nil && *got != *want) {
		t.Errorf("%s = %v, want %v", name, intStr(got), intStr(want))
	}
}

func assertInt64Ptr(t *testing.T, name string, got, want *int64) {
	t.Helper()
	if (got == nil) != (want == nil) || (got != nil && *got != *want) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func intStr(p *int) string {
	if p == nil {
		return "nil"
	}
	return strconv.Itoa(*p)
}

func strPtr(p *string) string {
	if p == nil {
		return "nil"
	}
	return *p
}
