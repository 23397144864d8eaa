package debug

import (
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// LogRuntimeStats logs goroutine count and heap figures once, tagged with
// the command that just finished and how long it took.
func LogRuntimeStats(logger *slog.Logger, command string, elapsed time.Duration) {
	if logger == nil {
		return
	}
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var goroutines uint64
	if samples[0].Value.Kind() == metrics.KindUint64 {
		goroutines = samples[0].Value.Uint64()
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	logger.Info("runtime-stats",
		slog.String("command", command),
		slog.Duration("elapsed", elapsed),
		slog.Uint64("goroutines", goroutines),
		slog.Uint64("heap_alloc", ms.HeapAlloc),
		slog.Uint64("total_alloc", ms.TotalAlloc),
		slog.Uint64("num_gc", uint64(ms.NumGC)),
	)
}
