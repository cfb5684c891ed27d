// Package collector retrieves resource metrics from devices over SSH, SNMP
// and WinRM. Collectors return an error for any transport or parse failure
// so the caller can fall back to another protocol or report no metrics.
package collector

import (
	"context"
	"errors"
	"math"

	"github.com/HerbHall/netwarden/pkg/models"
)

// ErrNoMetrics is returned when a device answered but its output carried
// none of the expected metrics.
var ErrNoMetrics = errors.New("no metrics in collector output")

// Protocol names used in logs and metric labels.
const (
	ProtocolSSH   = "ssh"
	ProtocolSNMP  = "snmp"
	ProtocolWinRM = "winrm"
)

// Target identifies the device a collector talks to.
type Target struct {
	Address     string
	Credentials models.Credentials
	// Community is the SNMP community string. Empty means the collector default.
	Community string
}

// Collector fetches metrics from one device with one protocol.
type Collector interface {
	Protocol() string
	Collect(ctx context.Context, t Target) (models.Metrics, error)
}

// usagePercent returns round(used/total*100), or nil when total is not positive.
func usagePercent(used, total float64) *int {
	if total <= 0 {
		return nil
	}
	pct := roundInt(used / total * 100)
	return &pct
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
