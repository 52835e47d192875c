package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu       sync.Mutex
	commands map[string]*commandStats
}

type commandStats struct {
	ok     uint64
	failed uint64
}

func New() *Collector {
	return &Collector{commands: map[string]*commandStats{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordCommand counts one leave command outcome, e.g. "create" or "approve".
func (c *Collector) RecordCommand(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.commands[name]
	if !ok {
		stats = &commandStats{}
		c.commands[name] = stats
	}
	if err != nil {
		stats.failed++
		return
	}
	stats.ok++
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"leaveCommands":    c.commandSnapshot(),
	}
}

func (c *Collector) commandSnapshot() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		stats := c.commands[name]
		out = append(out, map[string]any{
			"command": name,
			"ok":      stats.ok,
			"failed":  stats.failed,
		})
	}
	return out
}
