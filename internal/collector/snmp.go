package collector

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/pkg/models"
)

// Standard OIDs fetched in a single GET.
const (
	oidSysUpTime       = "1.3.6.1.2.1.1.3.0"        // centiseconds
	oidHrProcessorLoad = "1.3.6.1.2.1.25.3.3.1.2.1" // percent, first processor
	oidHrStorageSize   = "1.3.6.1.2.1.25.2.3.1.5.1" // allocation units
	oidHrStorageUsed   = "1.3.6.1.2.1.25.2.3.1.6.1" // allocation units
)

var resourceOIDs = []string{oidSysUpTime, oidHrProcessorLoad, oidHrStorageSize, oidHrStorageUsed}

// SNMPConfig controls the SNMP collector.
type SNMPConfig struct {
	Port      int
	Timeout   time.Duration
	Retries   int
	Community string // default community when a device has none
	Version   string // "1" or "2c"
}

// SNMPCollector reads HOST-RESOURCES-MIB figures with gosnmp.
type SNMPCollector struct {
	cfg    SNMPConfig
	logger *zap.Logger

	// get performs the SNMP GET. Overridden in tests.
	get func(ctx context.Context, g *gosnmp.GoSNMP, oids []string) (*gosnmp.SnmpPacket, error)
}

// Compile-time interface guard.
var _ Collector = (*SNMPCollector)(nil)

// NewSNMPCollector creates an SNMP collector with defaults for unset fields.
func NewSNMPCollector(cfg SNMPConfig, logger *zap.Logger) *SNMPCollector {
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Community == "" {
		cfg.Community = "public"
	}
	if cfg.Version == "" {
		cfg.Version = "2c"
	}
	return &SNMPCollector{cfg: cfg, logger: logger, get: snmpGet}
}

func (c *SNMPCollector) Protocol() string { return ProtocolSNMP }

// Collect issues one GET for uptime, CPU load and memory. Missing OIDs
// leave their fields nil; transport errors and agent errors other than a
// per-OID noSuchName fail the collection.
func (c *SNMPCollector) Collect(ctx context.Context, t Target) (models.Metrics, error) {
	community := t.Community
	if community == "" {
		community = c.cfg.Community
	}

	g := &gosnmp.GoSNMP{
		Target:    t.Address,
		Port:      uint16(c.cfg.Port),
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   c.cfg.Timeout,
		Retries:   c.cfg.Retries,
		Context:   ctx,
	}
	if c.cfg.Version == "1" {
		g.Version = gosnmp.Version1
	}

	pdus, err := c.getResources(ctx, g)
	if err != nil {
		return models.Metrics{}, fmt.Errorf("snmp get %s: %w", t.Address, err)
	}
	return metricsFromPDUs(pdus), nil
}

// getResources fetches resourceOIDs. SNMPv1 agents answer a GET containing
// an unknown OID with noSuchName for the whole request, so the offending OID
// (ErrorIndex is 1-based) is dropped and the GET repeated with the rest.
func (c *SNMPCollector) getResources(ctx context.Context, g *gosnmp.GoSNMP) ([]gosnmp.SnmpPDU, error) {
	oids := append([]string(nil), resourceOIDs...)
	for len(oids) > 0 {
		pkt, err := c.get(ctx, g, oids)
		if err != nil {
			return nil, err
		}
		switch {
		case pkt.Error == gosnmp.NoError:
			return pkt.Variables, nil
		case pkt.Error == gosnmp.NoSuchName && pkt.ErrorIndex > 0 && int(pkt.ErrorIndex) <= len(oids):
			idx := int(pkt.ErrorIndex) - 1
			c.logger.Debug("snmp agent lacks oid, retrying without it",
				zap.String("target", g.Target),
				zap.String("oid", oids[idx]),
			)
			oids = append(oids[:idx], oids[idx+1:]...)
		default:
			return nil, fmt.Errorf("agent returned %s", pkt.Error)
		}
	}
	return nil, nil
}

func snmpGet(_ context.Context, g *gosnmp.GoSNMP, oids []string) (*gosnmp.SnmpPacket, error) {
	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer g.Conn.Close()

	return g.Get(oids)
}

// metricsFromPDUs maps GET variables onto Metrics. Variables the agent does
// not implement are skipped.
func metricsFromPDUs(pdus []gosnmp.SnmpPDU) models.Metrics {
	var (
		m           models.Metrics
		total, used *big.Int
	)

	for _, pdu := range pdus {
		switch pdu.Type {
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
			continue
		}

		// gosnmp reports names with a leading dot.
		name := pdu.Name
		if len(name) > 0 && name[0] == '.' {
			name = name[1:]
		}

		value := gosnmp.ToBigInt(pdu.Value)
		switch name {
		case oidSysUpTime:
			up := models.FormatUptime(float64(value.Int64()) / 100)
			m.Uptime = &up
		case oidHrProcessorLoad:
			cpu := int(value.Int64())
			m.CPU = &cpu
		case oidHrStorageSize:
			total = value
		case oidHrStorageUsed:
			used = value
		}
	}

	if total != nil {
		v := total.Int64()
		m.RAMTotal = &v
	}
	if used != nil {
		v := used.Int64()
		m.RAMUsed = &v
	}
	if total != nil && used != nil {
		m.RAMUsage = usagePercent(float64(used.Int64()), float64(total.Int64()))
	}
	return m
}
