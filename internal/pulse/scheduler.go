// Package pulse drives the monitoring cycle: it checks every registered
// device concurrently, persists each result, and journals it.
package pulse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/event"
	"github.com/HerbHall/netwarden/internal/journal"
	"github.com/HerbHall/netwarden/internal/monitor"
	"github.com/HerbHall/netwarden/pkg/models"
)

// ErrCycleInProgress is returned when a cycle is triggered while another
// one is still running.
var ErrCycleInProgress = errors.New("monitoring cycle already in progress")

// Registry is the device storage the scheduler reads and writes.
// Satisfied by *inventory.Store.
type Registry interface {
	ListDevices(ctx context.Context, class models.DeviceClass) ([]models.Device, error)
	UpdateStatus(ctx context.Context, class models.DeviceClass, id string, r models.MonitoringResult) (*models.Device, error)
}

// Recorder journals per-device results. Satisfied by *journal.Journal.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry)
	Rotate() (int, error)
}

// CycleReport summarizes one completed cycle.
type CycleReport struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"-"`
	DurationMS      int64         `json:"duration_ms"`
	Devices         int           `json:"devices"`
	Online          int           `json:"online"`
	Offline         int           `json:"offline"`
	Errors          int           `json:"errors"`
	PersistFailures int           `json:"persist_failures"`
	ListFailures    int           `json:"list_failures"`
	Rotated         bool          `json:"rotated"`
	TimedOut        bool          `json:"timed_out"`
}

func (r *CycleReport) count(status models.DeviceStatus) {
	r.Devices++
	switch status {
	case models.DeviceStatusOnline:
		r.Online++
	case models.DeviceStatusOffline:
		r.Offline++
	default:
		r.Errors++
	}
}

func (r CycleReport) outcome() string {
	switch {
	case r.TimedOut:
		return "timeout"
	case r.ListFailures > 0 || r.PersistFailures > 0:
		return "partial"
	default:
		return "ok"
	}
}

// Scheduler runs monitoring cycles on a fixed interval and on demand. At
// most one cycle is in flight at any time.
type Scheduler struct {
	registry Registry
	monitors []monitor.Monitor
	recorder Recorder
	events   event.Publisher
	cfg      Config
	logger   *zap.Logger

	inFlight atomic.Bool
	looping  atomic.Bool
	cycles   int // guarded by inFlight

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler checking devices of each monitor's class.
// events may be nil.
func NewScheduler(registry Registry, monitors []monitor.Monitor, recorder Recorder, events event.Publisher, cfg Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		registry: registry,
		monitors: monitors,
		recorder: recorder,
		events:   events,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Start begins the scheduling loop in the background. The first cycle runs
// immediately, then one per interval until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.looping.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.looping.Store(false)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.tick()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()

	s.logger.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("cycle_timeout", s.cfg.CycleTimeout),
	)
}

// Stop prevents further cycles and waits for an in-flight timer cycle to
// finish. The running cycle is not cancelled.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// running reports whether the scheduling loop is active.
func (s *Scheduler) running() bool {
	return s.looping.Load()
}

func (s *Scheduler) cycleInFlight() bool {
	return s.inFlight.Load()
}

func (s *Scheduler) tick() {
	if _, err := s.RunCycle(s.ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
		s.logger.Warn("monitoring cycle failed", zap.Error(err))
	}
}

// RunCycle runs one full cycle over every device unless a cycle is already
// running, in which case it returns ErrCycleInProgress without checking
// anything. The cycle is bounded by the cycle timeout and is not cancelled
// by ctx.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleReport, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		cyclesSkipped.Inc()
		s.logger.Info("monitoring cycle skipped, previous cycle still running")
		return CycleReport{}, ErrCycleInProgress
	}
	defer s.inFlight.Store(false)

	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CycleTimeout)
	defer cancel()

	start := time.Now()
	report := CycleReport{StartedAt: start.UTC()}
	var mu sync.Mutex
	var groups sync.WaitGroup

	for _, m := range s.monitors {
		groups.Add(1)
		go func(m monitor.Monitor) {
			defer groups.Done()
			s.runGroup(cycleCtx, m, &report, &mu)
		}(m)
	}
	groups.Wait()

	report.TimedOut = errors.Is(cycleCtx.Err(), context.DeadlineExceeded)

	s.cycles++
	if s.cfg.RotateEvery > 0 && s.cycles%s.cfg.RotateEvery == 0 {
		if _, err := s.recorder.Rotate(); err != nil {
			s.logger.Warn("journal rotation failed", zap.Error(err))
		} else {
			report.Rotated = true
		}
	}

	report.Duration = time.Since(start)
	report.DurationMS = report.Duration.Milliseconds()
	cyclesTotal.WithLabelValues(report.outcome()).Inc()
	cycleDuration.Observe(report.Duration.Seconds())

	s.logger.Info("monitoring cycle completed",
		zap.Duration("duration", report.Duration),
		zap.Int("devices", report.Devices),
		zap.Int("online", report.Online),
		zap.Int("offline", report.Offline),
		zap.Int("errors", report.Errors),
		zap.Int("persist_failures", report.PersistFailures),
		zap.Bool("rotated", report.Rotated),
	)
	s.publish(cycleCtx, TopicCycleCompleted, report)

	return report, nil
}

// runGroup checks every device of one class concurrently.
func (s *Scheduler) runGroup(ctx context.Context, m monitor.Monitor, report *CycleReport, mu *sync.Mutex) {
	class := m.Class()
	devices, err := s.registry.ListDevices(ctx, class)
	if err != nil {
		s.logger.Warn("failed to list devices",
			zap.String("class", string(class)),
			zap.Error(err),
		)
		mu.Lock()
		report.ListFailures++
		mu.Unlock()
		return
	}

	var wg sync.WaitGroup
	for _, d := range devices {
		wg.Add(1)
		go func(d models.Device) {
			defer wg.Done()
			status, persisted := s.checkDevice(ctx, m, d)
			mu.Lock()
			report.count(status)
			if !persisted {
				report.PersistFailures++
			}
			mu.Unlock()
		}(d)
	}
	wg.Wait()
}

// checkDevice runs the monitor, persists and journals the result, and
// publishes the device events. It reports the final status and whether the
// result was persisted.
func (s *Scheduler) checkDevice(ctx context.Context, m monitor.Monitor, d models.Device) (status models.DeviceStatus, persisted bool) {
	if d.Class == "" {
		d.Class = m.Class()
	}
	previous := d.Status
	status = models.DeviceStatusError

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("device cycle panic recovered",
				zap.String("device_id", d.ID),
				zap.Any("panic", r),
			)
			status, persisted = models.DeviceStatusError, false
		}
	}()

	result := m.Check(ctx, d)

	stored := d
	updated, err := s.registry.UpdateStatus(ctx, d.Class, d.ID, result)
	if err != nil {
		s.logger.Warn("failed to persist device status",
			zap.String("device_id", d.ID),
			zap.String("device", d.DisplayName()),
			zap.Error(err),
		)
		result = models.ErrorResult(result.LastCheck, fmt.Sprintf("persist status: %v", err))
	} else {
		persisted = true
		if updated != nil {
			stored = *updated
		}
	}

	deviceChecksTotal.WithLabelValues(string(d.Class), string(result.Status)).Inc()
	s.recorder.Record(ctx, journal.Entry{Device: stored, Result: result})

	s.publish(ctx, TopicDeviceChecked, DeviceCheckedEvent{
		DeviceID:  d.ID,
		Class:     d.Class,
		Name:      d.DisplayName(),
		IPAddress: d.IPAddress,
		Result:    result,
	})
	if previous != result.Status {
		s.publish(ctx, TopicStatusChanged, StatusChangedEvent{
			DeviceID:  d.ID,
			Class:     d.Class,
			Name:      d.DisplayName(),
			IPAddress: d.IPAddress,
			From:      previous,
			To:        result.Status,
			ChangedAt: result.LastCheck,
		})
	}

	return result.Status, persisted
}

func (s *Scheduler) publish(ctx context.Context, topic string, payload any) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, event.Event{
		Topic:     topic,
		Source:    eventSource,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Debug("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
