package stats

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"tagbadge/internal/badge"
	"tagbadge/internal/logging"
)

// Snapshot is what the stats endpoint and the --stats flag report.
type Snapshot struct {
	Cache      badge.CacheStats `json:"cache"`
	RSSBytes   uint64           `json:"rss_bytes"`
	Goroutines int              `json:"goroutines"`
	Uptime     string           `json:"uptime"`
}

type Collector struct {
	cache   *badge.SurfaceCaches
	started time.Time

	once sync.Once
	proc *process.Process
}

func NewCollector(cache *badge.SurfaceCaches) *Collector {
	return &Collector{cache: cache, started: time.Now()}
}

// Collect reads the cache counters and the process memory. A failed memory
// read leaves RSSBytes at zero.
func (c *Collector) Collect() Snapshot {
	snap := Snapshot{
		Cache:      c.cache.Stats(),
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(c.started).Round(time.Second).String(),
	}

	c.once.Do(func() {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			logging.Module("stats").Warnf("Process info unavailable: %v", err)
			return
		}
		c.proc = p
	})
	if c.proc == nil {
		return snap
	}

	mem, err := c.proc.MemoryInfo()
	if err != nil {
		logging.Module("stats").Debugf("Failed to read memory info: %v", err)
		return snap
	}
	snap.RSSBytes = mem.RSS
	return snap
}
