package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/HerbHall/netwarden/pkg/models"
)

// SSHConfig controls the SSH collector.
type SSHConfig struct {
	Port         int
	ReadyTimeout time.Duration
	ExecTimeout  time.Duration
	Command      string
}

// SSHCollector runs the RouterOS resource command over SSH and parses it.
type SSHCollector struct {
	cfg    SSHConfig
	logger *zap.Logger

	// dial establishes the SSH client. Overridden in tests.
	dial func(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}

// Compile-time interface guard.
var _ Collector = (*SSHCollector)(nil)

// NewSSHCollector creates an SSH collector with defaults for unset fields.
func NewSSHCollector(cfg SSHConfig, logger *zap.Logger) *SSHCollector {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 5 * time.Second
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = 10 * time.Second
	}
	if cfg.Command == "" {
		cfg.Command = "/system resource print"
	}
	return &SSHCollector{cfg: cfg, logger: logger, dial: dialSSH}
}

func (c *SSHCollector) Protocol() string { return ProtocolSSH }

// Collect connects, runs the resource command, and parses the output once
// the session closes.
func (c *SSHCollector) Collect(ctx context.Context, t Target) (models.Metrics, error) {
	if !t.Credentials.Complete() {
		return models.Metrics{}, errors.New("ssh: credentials required")
	}

	addr := net.JoinHostPort(t.Address, strconv.Itoa(c.cfg.Port))
	config := &ssh.ClientConfig{
		User: t.Credentials.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(t.Credentials.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // G106: monitored devices are not pinned, host keys are not tracked
		Timeout:         c.cfg.ReadyTimeout,
	}

	readyCtx, cancel := context.WithTimeout(ctx, c.cfg.ReadyTimeout)
	client, err := c.dial(readyCtx, addr, config)
	cancel()
	if err != nil {
		return models.Metrics{}, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	defer client.Close()

	output, err := c.run(ctx, client)
	if err != nil {
		return models.Metrics{}, err
	}

	m, err := ParseRouterOSResources(output)
	if err != nil {
		return models.Metrics{}, fmt.Errorf("ssh %s: %w", addr, err)
	}
	return m, nil
}

func (c *SSHCollector) run(ctx context.Context, client *ssh.Client) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	execCtx, cancel := context.WithTimeout(ctx, c.cfg.ExecTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- session.Run(c.cfg.Command)
	}()

	select {
	case err := <-done:
		if stderr.Len() > 0 {
			c.logger.Debug("ssh stderr",
				zap.String("command", c.cfg.Command),
				zap.String("stderr", strings.TrimSpace(stderr.String())),
			)
		}
		// RouterOS may close the channel without an exit status.
		var missing *ssh.ExitMissingError
		if err != nil && !errors.As(err, &missing) {
			return "", fmt.Errorf("ssh exec %q: %w", c.cfg.Command, err)
		}
	case <-execCtx.Done():
		client.Close()
		<-done
		return "", fmt.Errorf("ssh exec %q: %w", c.cfg.Command, execCtx.Err())
	}

	return stdout.String(), nil
}

// dialSSH honours ctx for the TCP connect and bounds the handshake by the
// client config timeout.
func dialSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(config.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		sshConn.Close()
		return nil, err
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

var (
	reCPULoad     = regexp.MustCompile(`(?i)cpu-load:\s*(\d+)%`)
	reFreeMemory  = regexp.MustCompile(`(?i)free-memory:\s*([\d.]+)\s*([KMGT]i?B)?`)
	reTotalMemory = regexp.MustCompile(`(?i)total-memory:\s*([\d.]+)\s*([KMGT]i?B)?`)
	reUptime      = regexp.MustCompile(`(?i)uptime:\s*([^\r\n]+)`)
)

// ParseRouterOSResources extracts metrics from `/system resource print`
// output. Memory figures are converted to bytes. ErrNoMetrics is returned
// when none of cpu-load, memory or uptime is present.
func ParseRouterOSResources(output string) (models.Metrics, error) {
	var m models.Metrics

	if match := reCPULoad.FindStringSubmatch(output); match != nil {
		if cpu, err := strconv.Atoi(match[1]); err == nil {
			m.CPU = &cpu
		}
	}

	free, freeOK := parseMemory(reFreeMemory.FindStringSubmatch(output))
	total, totalOK := parseMemory(reTotalMemory.FindStringSubmatch(output))
	if freeOK && totalOK {
		used := total - free
		m.RAMTotal = &total
		m.RAMUsed = &used
		m.RAMUsage = usagePercent(float64(used), float64(total))
	}

	if match := reUptime.FindStringSubmatch(output); match != nil {
		if up := strings.TrimSpace(match[1]); up != "" {
			m.Uptime = &up
		}
	}

	if m.Empty() {
		return models.Metrics{}, ErrNoMetrics
	}
	return m, nil
}

func parseMemory(match []string) (int64, bool) {
	if match == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	var mult float64 = 1
	switch strings.ToUpper(strings.TrimSuffix(strings.TrimSuffix(match[2], "B"), "b")) {
	case "K", "KI":
		mult = 1 << 10
	case "M", "MI":
		mult = 1 << 20
	case "G", "GI":
		mult = 1 << 30
	case "T", "TI":
		mult = 1 << 40
	}
	return int64(v * mult), true
}
