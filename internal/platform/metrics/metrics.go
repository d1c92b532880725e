package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	totalDurationMs uint64
	importRuns      uint64
	importCells     uint64
	importErrors    uint64
	payableRuns     uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordImport counts one reconciliation run and its applied and failed cells.
func (c *Collector) RecordImport(applied, failed int) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.importRuns, 1)
	atomic.AddUint64(&c.importCells, uint64(applied))
	atomic.AddUint64(&c.importErrors, uint64(failed))
}

func (c *Collector) RecordPayable() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.payableRuns, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":     total,
		"errorsTotal":       errs,
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"importRunsTotal":   atomic.LoadUint64(&c.importRuns),
		"importCellsTotal":  atomic.LoadUint64(&c.importCells),
		"importErrorsTotal": atomic.LoadUint64(&c.importErrors),
		"payableRunsTotal":  atomic.LoadUint64(&c.payableRuns),
	}
}
