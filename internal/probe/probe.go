// Package probe checks device reachability with ICMP echo requests.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Result is the outcome of one connectivity probe. Latency is nil whenever
// the device is offline.
type Result struct {
	Online     bool
	Latency    *float64 // average round trip in milliseconds
	PacketLoss float64  // percent
}

// Unreachable is the result reported for any probe that could not complete.
func Unreachable() Result {
	return Result{Online: false, PacketLoss: 100}
}

// Prober checks whether an address answers. Implementations never return
// an error; every failure is reported as an unreachable result.
type Prober interface {
	Probe(ctx context.Context, address string) Result
}

// Config controls the ICMP probe.
type Config struct {
	Timeout    time.Duration
	Count      int
	MinReplies int
	Privileged bool
}

// ICMPProber probes with pro-bing.
type ICMPProber struct {
	cfg    Config
	logger *zap.Logger
}

// Compile-time interface guard.
var _ Prober = (*ICMPProber)(nil)

// NewICMPProber creates a prober. Zero config values fall back to a single
// echo, a single required reply and a 3s timeout.
func NewICMPProber(cfg Config, logger *zap.Logger) *ICMPProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MinReplies < 1 {
		cfg.MinReplies = 1
	}
	if cfg.Count < cfg.MinReplies {
		cfg.Count = cfg.MinReplies
	}
	return &ICMPProber{cfg: cfg, logger: logger}
}

// Probe pings address and reports it online when at least MinReplies
// echo replies arrive before the timeout.
func (p *ICMPProber) Probe(ctx context.Context, address string) Result {
	stats, err := p.ping(ctx, address)
	if err != nil {
		p.logger.Debug("probe failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return Unreachable()
	}
	return fromStatistics(stats, p.cfg.MinReplies)
}

func (p *ICMPProber) ping(ctx context.Context, address string) (*probing.Statistics, error) {
	if address == "" {
		return nil, errors.New("empty address")
	}

	pinger, err := probing.NewPinger(address)
	if err != nil {
		return nil, fmt.Errorf("create pinger: %w", err)
	}
	pinger.Count = p.cfg.Count
	pinger.Timeout = p.cfg.Timeout
	pinger.SetPrivileged(p.cfg.Privileged)

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("run ping: %w", err)
		}
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return nil, ctx.Err()
	}

	return pinger.Statistics(), nil
}

func fromStatistics(stats *probing.Statistics, minReplies int) Result {
	if stats == nil || stats.PacketsRecv < minReplies {
		loss := 100.0
		if stats != nil && stats.PacketsSent > 0 {
			loss = stats.PacketLoss
		}
		return Result{Online: false, PacketLoss: loss}
	}

	latency := float64(stats.AvgRtt) / float64(time.Millisecond)
	return Result{
		Online:     true,
		Latency:    &latency,
		PacketLoss: stats.PacketLoss,
	}
}
