// Package stats counts invocations and samples the bridge process for the optional
// stats route.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const DefaultHistorySize = 32

// StatsManager keeps invocation counters and the most recent status updates.
type StatsManager struct {
	mu          sync.RWMutex
	total       uint64
	failed      uint64
	timedOut    uint64
	totalTime   time.Duration
	recent      []StatusUpdate
	historySize int
	started     time.Time

	proc   *process.Process
	logger *slog.Logger
}

func NewStatsManager(logger *slog.Logger, historySize int) *StatsManager {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("Process stats unavailable", "error", err)
	}
	return &StatsManager{
		historySize: historySize,
		recent:      make([]StatusUpdate, 0, historySize),
		started:     time.Now(),
		proc:        proc,
		logger:      logger,
	}
}

// ObserveInvocation implements adapter.Observer.
func (s *StatsManager) ObserveInvocation(status int, d time.Duration, err error) {
	su := Event().WithStatus(status).Took(d)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		su.Timeout()
	case err != nil:
		su.Failure(err)
	default:
		su.Response()
	}
	s.Enqueue(su)
}

func (s *StatsManager) Enqueue(su *StatusUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.totalTime += su.duration
	switch su.Event {
	case EventError:
		s.failed++
	case EventTimeout:
		s.timedOut++
	}

	if len(s.recent) == s.historySize {
		copy(s.recent, s.recent[1:])
		s.recent = s.recent[:len(s.recent)-1]
	}
	s.recent = append(s.recent, *su)
}

type Snapshot struct {
	Invocations   uint64         `json:"invocations"`
	Failures      uint64         `json:"failures"`
	Timeouts      uint64         `json:"timeouts"`
	MeanLatencyMs float64        `json:"mean_latency_ms"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Recent        []StatusUpdate `json:"recent"`
	Process       *ProcessStats  `json:"process,omitempty"`
}

type ProcessStats struct {
	RSSBytes       uint64  `json:"rss_bytes"`
	CPUPercent     float64 `json:"cpu_percent"`
	UsedRamPercent float64 `json:"used_ram_percent"`
}

func (s *StatsManager) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Invocations:   s.total,
		Failures:      s.failed,
		Timeouts:      s.timedOut,
		UptimeSeconds: time.Since(s.started).Seconds(),
		Recent:        append([]StatusUpdate(nil), s.recent...),
	}
	if s.total > 0 {
		snap.MeanLatencyMs = float64((s.totalTime / time.Duration(s.total)).Microseconds()) / 1000
	}
	s.mu.RUnlock()

	snap.Process = s.processStats()
	return snap
}

func (s *StatsManager) processStats() *ProcessStats {
	if s.proc == nil {
		return nil
	}
	memInfo, err1 := s.proc.MemoryInfo()
	cpuPercent, err2 := s.proc.CPUPercent()
	virtualMem, err3 := mem.VirtualMemory()
	if err := errors.Join(err1, err2, err3); err != nil {
		s.logger.Debug("Failed to sample process stats", "error", err)
		return nil
	}
	return &ProcessStats{
		RSSBytes:       memInfo.RSS,
		CPUPercent:     cpuPercent,
		UsedRamPercent: virtualMem.UsedPercent,
	}
}

// ServeHTTP writes the current snapshot as JSON.
func (s *StatsManager) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		s.logger.Error("Failed to write stats", "error", err)
	}
}
