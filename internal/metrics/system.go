package metrics

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// SystemCollector periodically logs host and process resource usage so
// long export renders leave a trace in the server log
type SystemCollector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process
}

// NewSystemCollector creates a collector; intervals under a second are
// clamped to the default
func NewSystemCollector(interval time.Duration, logger *zap.Logger) *SystemCollector {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &SystemCollector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start begins periodic collection. Returns when the context is
// cancelled.
func (c *SystemCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("system metrics collection stopped")
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *SystemCollector) collect() {
	fields := make([]zap.Field, 0, 4)

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		fields = append(fields, zap.Float64("cpu_percent", percents[0]))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields,
			zap.Float64("mem_used_gb", float64(vm.Used)/(1<<30)),
			zap.Float64("mem_percent", vm.UsedPercent))
	}
	if c.proc != nil {
		if p, err := c.proc.CPUPercent(); err == nil {
			fields = append(fields, zap.Float64("process_cpu_percent", p))
		}
	}

	c.logger.Info("system metrics", fields...)
}
