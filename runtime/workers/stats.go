package workers

import (
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"sync"
	"time"

	"realtime-hub/contract"

	"github.com/shirou/gopsutil/process"
)

type Stats struct {
	Online     int
	Goroutines int
	RSS        uint64
	CPUPercent float64
	At         time.Time
}

// StatsWorker periodically logs how many users are online and what the process costs.
type StatsWorker struct {
	mu             sync.RWMutex
	log            *slog.Logger
	directory      contract.IDirectory
	metricInterval time.Duration
	latest         Stats
}

func NewStatsWorker(log *slog.Logger, directory contract.IDirectory, metricInterval time.Duration) *StatsWorker {
	return &StatsWorker{log: log, directory: directory, metricInterval: metricInterval}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping stats collection")
			return nil
		case <-ticker.C:
			stats := Stats{
				Online:     len(w.directory.Snapshot()),
				Goroutines: goruntime.NumGoroutine(),
				At:         time.Now().UTC(),
			}
			if memInfo, err := p.MemoryInfo(); err == nil {
				stats.RSS = memInfo.RSS
			} else {
				w.log.Debug("Error while finding process ram usage", "err", err)
			}
			if cpu, err := p.CPUPercent(); err == nil {
				stats.CPUPercent = cpu
			} else {
				w.log.Debug("Error while finding process cpu usage", "err", err)
			}

			w.mu.Lock()
			w.latest = stats
			w.mu.Unlock()
			w.log.Info("Hub stats",
				"online", stats.Online,
				"goroutines", stats.Goroutines,
				"rss_bytes", stats.RSS,
				"cpu_percent", stats.CPUPercent)
		}
	}
}

// Latest returns the last collected stats, zero before the first tick.
func (w *StatsWorker) Latest() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}
