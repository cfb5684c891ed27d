package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/collector"
	"github.com/HerbHall/netwarden/internal/config"
	"github.com/HerbHall/netwarden/internal/event"
	"github.com/HerbHall/netwarden/internal/inventory"
	"github.com/HerbHall/netwarden/internal/journal"
	"github.com/HerbHall/netwarden/internal/monitor"
	"github.com/HerbHall/netwarden/internal/probe"
	"github.com/HerbHall/netwarden/internal/pulse"
	"github.com/HerbHall/netwarden/internal/store"
	"github.com/HerbHall/netwarden/internal/vault"
	"github.com/HerbHall/netwarden/internal/version"
)

// app holds the components shared by every subcommand.
type app struct {
	v         *viper.Viper
	cfg       config.Config
	logger    *zap.Logger
	db        *store.Store
	inventory *inventory.Store
	journal   *journal.Journal
	vault     *vault.Vault
}

// openApp loads configuration, opens the database, and runs migrations.
func openApp(ctx context.Context) (*app, error) {
	v, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg, err := config.Monitoring(v)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	a := &app{v: v, cfg: cfg, logger: logger}
	if err := a.open(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	db, err := store.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		return err
	}
	a.logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("driver", db.Driver()),
	)

	if a.inventory, err = inventory.New(ctx, db); err != nil {
		return err
	}
	if a.journal, err = journal.New(ctx, db, a.cfg.Journal.File, a.cfg.Journal.MaxLines, a.logger.Named("journal")); err != nil {
		return err
	}
	if a.vault, err = vault.New(a.cfg.Vault.Key, a.logger.Named("vault")); err != nil {
		return fmt.Errorf("initialize vault: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}

// monitors builds the router and Windows monitors from configuration.
func (a *app) monitors() []monitor.Monitor {
	c := a.cfg.Collectors
	prober := probe.NewICMPProber(probe.Config{
		Timeout:    a.cfg.Probe.Timeout,
		Count:      a.cfg.Probe.Count,
		MinReplies: a.cfg.Probe.MinReplies,
		Privileged: a.cfg.Probe.Privileged,
	}, a.logger.Named("probe"))

	ssh := collector.NewSSHCollector(collector.SSHConfig{
		Port:         c.SSH.Port,
		ReadyTimeout: c.SSH.ReadyTimeout,
		ExecTimeout:  c.SSH.ExecTimeout,
		Command:      c.SSH.Command,
	}, a.logger.Named("ssh"))
	snmp := collector.NewSNMPCollector(collector.SNMPConfig{
		Port:      c.SNMP.Port,
		Timeout:   c.SNMP.Timeout,
		Retries:   c.SNMP.Retries,
		Community: c.SNMP.Community,
		Version:   c.SNMP.Version,
	}, a.logger.Named("snmp"))
	winrm := collector.NewWinRMCollector(collector.WinRMConfig{
		Port:     c.WinRM.Port,
		HTTPS:    c.WinRM.HTTPS,
		Insecure: c.WinRM.Insecure,
		Timeout:  c.WinRM.Timeout,
	}, a.logger.Named("winrm"))

	hook := monitor.WithCollectorFailureHook(pulse.RecordCollectorFailure)
	return []monitor.Monitor{
		monitor.NewRouterMonitor(prober, a.vault, ssh, snmp, a.logger.Named("router"), hook),
		monitor.NewWindowsMonitor(prober, a.vault, winrm, a.logger.Named("windows"), hook),
	}
}

// scheduler wires the monitors to the inventory and journal. events may be nil.
func (a *app) scheduler(events event.Publisher) *pulse.Scheduler {
	return pulse.NewScheduler(a.inventory, a.monitors(), a.journal, events, pulse.Config{
		Interval:     a.cfg.Pulse.Interval,
		CycleTimeout: a.cfg.Pulse.CycleTimeout,
		RotateEvery:  a.cfg.Pulse.RotateEvery,
	}, a.logger.Named("pulse"))
}
