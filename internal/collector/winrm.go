package collector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/masterzen/winrm"
	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/pkg/models"
)

// windowsMetricsScript uses WMI so it also runs on Server 2012. Any metric
// that cannot be read defaults to 0; only an unexpected failure exits 1.
const windowsMetricsScript = `
try {
  $cpu = Get-WmiObject Win32_Processor | Measure-Object -Property LoadPercentage -Average | Select-Object -ExpandProperty Average
  if (-not $cpu) { $cpu = 0 }

  $os = Get-WmiObject Win32_OperatingSystem
  $memTotalMB = 0; $memUsedMB = 0; $memUsedPercent = 0
  if ($os -and $os.TotalVisibleMemorySize) {
    $memTotalMB = [math]::Round($os.TotalVisibleMemorySize / 1KB, 2)
    $memFreeMB = [math]::Round($os.FreePhysicalMemory / 1KB, 2)
    $memUsedMB = $memTotalMB - $memFreeMB
    $memUsedPercent = [math]::Round(($memUsedMB / $memTotalMB) * 100, 2)
  }

  $uptimeSeconds = 0
  if ($os -and $os.LastBootUpTime) {
    $bootTime = [System.Management.ManagementDateTimeConverter]::ToDateTime($os.LastBootUpTime)
    $uptimeSeconds = ((Get-Date) - $bootTime).TotalSeconds
  }

  $disk = Get-WmiObject Win32_LogicalDisk -Filter "DeviceID='C:'"
  if ($disk -and $disk.Size) {
    $diskUsedBytes = $disk.Size - $disk.FreeSpace
    $diskUsed = [math]::Round($diskUsedBytes / 1GB, 2)
    $diskTotal = [math]::Round($disk.Size / 1GB, 2)
    $diskPercent = [math]::Round(($diskUsedBytes / $disk.Size) * 100, 2)
  } else {
    $diskUsed = 0; $diskTotal = 0; $diskPercent = 0
  }

  Write-Output "CPU=$cpu"
  Write-Output "RAM_USAGE=$memUsedPercent"
  Write-Output "RAM_TOTAL=$memTotalMB"
  Write-Output "RAM_USED=$memUsedMB"
  Write-Output "UPTIME=$uptimeSeconds"
  Write-Output "DISK_USED=$diskUsed"
  Write-Output "DISK_TOTAL=$diskTotal"
  Write-Output "DISK_PERCENT=$diskPercent"
} catch {
  Write-Error "metrics script failed: $_"
  exit 1
}
`

// WinRMConfig controls the WinRM collector.
type WinRMConfig struct {
	Port     int
	HTTPS    bool
	Insecure bool
	Timeout  time.Duration
}

// scriptRunner executes a PowerShell script and returns its output and exit code.
type scriptRunner func(ctx context.Context, t Target, script string) (stdout, stderr string, exitCode int, err error)

// WinRMCollector runs the metrics script on a Windows server.
type WinRMCollector struct {
	cfg    WinRMConfig
	logger *zap.Logger
	run    scriptRunner
}

// Compile-time interface guard.
var _ Collector = (*WinRMCollector)(nil)

// NewWinRMCollector creates a WinRM collector with defaults for unset fields.
func NewWinRMCollector(cfg WinRMConfig, logger *zap.Logger) *WinRMCollector {
	if cfg.Port == 0 {
		cfg.Port = 5985
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &WinRMCollector{cfg: cfg, logger: logger}
	c.run = c.runWinRM
	return c
}

func (c *WinRMCollector) Protocol() string { return ProtocolWinRM }

// Collect runs the script and parses its KEY=value output. A transport error
// or a non-zero exit status fails the collection.
func (c *WinRMCollector) Collect(ctx context.Context, t Target) (models.Metrics, error) {
	if !t.Credentials.Complete() {
		return models.Metrics{}, errors.New("winrm: credentials required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	stdout, stderr, code, err := c.run(ctx, t, windowsMetricsScript)
	if err != nil {
		return models.Metrics{}, fmt.Errorf("winrm %s: %w", t.Address, err)
	}
	if code != 0 {
		return models.Metrics{}, fmt.Errorf("winrm %s: script exited with code %d: %s",
			t.Address, code, strings.TrimSpace(stderr))
	}

	m, err := ParseWindowsMetrics(stdout)
	if err != nil {
		return models.Metrics{}, fmt.Errorf("winrm %s: %w", t.Address, err)
	}
	return m, nil
}

func (c *WinRMCollector) runWinRM(ctx context.Context, t Target, script string) (string, string, int, error) {
	endpoint := winrm.NewEndpoint(t.Address, c.cfg.Port, c.cfg.HTTPS, c.cfg.Insecure, nil, nil, nil, c.cfg.Timeout)
	client, err := winrm.NewClient(endpoint, t.Credentials.Username, t.Credentials.Password)
	if err != nil {
		return "", "", 0, fmt.Errorf("create client: %w", err)
	}
	return client.RunWithContextWithString(ctx, winrm.Powershell(script), "")
}

var windowsMetricPatterns = map[string]*regexp.Regexp{
	"CPU":          regexp.MustCompile(`(?m)^\s*CPU=([\d.]+)`),
	"RAM_USAGE":    regexp.MustCompile(`(?m)^\s*RAM_USAGE=([\d.]+)`),
	"RAM_TOTAL":    regexp.MustCompile(`(?m)^\s*RAM_TOTAL=([\d.]+)`),
	"RAM_USED":     regexp.MustCompile(`(?m)^\s*RAM_USED=([\d.]+)`),
	"UPTIME":       regexp.MustCompile(`(?m)^\s*UPTIME=([\d.]+)`),
	"DISK_USED":    regexp.MustCompile(`(?m)^\s*DISK_USED=([\d.]+)`),
	"DISK_TOTAL":   regexp.MustCompile(`(?m)^\s*DISK_TOTAL=([\d.]+)`),
	"DISK_PERCENT": regexp.MustCompile(`(?m)^\s*DISK_PERCENT=([\d.]+)`),
}

// ParseWindowsMetrics extracts the script's KEY=value lines. Percentages and
// memory figures (MB) are rounded to integers, disk sizes stay decimal GB,
// and uptime seconds are rendered as "{d}d {h}h {m}m".
func ParseWindowsMetrics(output string) (models.Metrics, error) {
	values := make(map[string]float64, len(windowsMetricPatterns))
	for key, re := range windowsMetricPatterns {
		match := re.FindStringSubmatch(output)
		if match == nil {
			continue
		}
		v, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		values[key] = v
	}
	if len(values) == 0 {
		return models.Metrics{}, ErrNoMetrics
	}

	var m models.Metrics
	if v, ok := values["CPU"]; ok {
		m.CPU = models.Ptr(roundInt(v))
	}
	if v, ok := values["RAM_USAGE"]; ok {
		m.RAMUsage = models.Ptr(roundInt(v))
	}
	if v, ok := values["RAM_TOTAL"]; ok {
		m.RAMTotal = models.Ptr(int64(roundInt(v)))
	}
	if v, ok := values["RAM_USED"]; ok {
		m.RAMUsed = models.Ptr(int64(roundInt(v)))
	}
	if v, ok := values["UPTIME"]; ok {
		m.Uptime = models.Ptr(models.FormatUptime(v))
	}
	if v, ok := values["DISK_USED"]; ok {
		m.DiskUsed = models.Ptr(v)
	}
	if v, ok := values["DISK_TOTAL"]; ok {
		m.DiskTotal = models.Ptr(v)
	}
	if v, ok := values["DISK_PERCENT"]; ok {
		m.DiskUsage = models.Ptr(roundInt(v))
	}
	return m, nil
}
