// Package stats samples process resource usage while the bench command runs.
package stats

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

type Sample struct {
	Elapsed      time.Duration
	HeapAlloc    uint64
	ProcessRSS   uint64
	CPUPercent   float64
	NumGC        uint32
	NumGoroutine int
}

type Summary struct {
	Elapsed        time.Duration
	Samples        int
	PeakHeapAlloc  uint64
	PeakProcessRSS uint64
	PeakCPUPercent float64
	AvgCPUPercent  float64
	PeakGoroutines int
	GCCycles       uint32
}

// Collector samples runtime and process statistics at a fixed interval
// between Start and Stop.
type Collector struct {
	interval time.Duration
	proc     *process.Process

	mu      sync.Mutex
	start   time.Time
	samples []Sample

	stop chan struct{}
	done chan struct{}
}

func NewCollector(interval time.Duration) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process info: %w", err)
	}
	return &Collector{
		interval: interval,
		proc:     proc,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (c *Collector) Start() {
	c.start = time.Now()
	go c.collect()
}

func (c *Collector) collect() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-c.stop:
			c.sample()
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Sample{
		Elapsed:      time.Since(c.start),
		HeapAlloc:    mem.HeapAlloc,
		NumGC:        mem.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if info, err := c.proc.MemoryInfo(); err == nil && info != nil {
		s.ProcessRSS = info.RSS
	}
	if cpu, err := c.proc.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}

	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

// Stop ends sampling and summarizes the collected samples.
func (c *Collector) Stop() Summary {
	close(c.stop)
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()
	return summarize(time.Since(c.start), c.samples)
}

func summarize(elapsed time.Duration, samples []Sample) Summary {
	sum := Summary{Elapsed: elapsed, Samples: len(samples)}
	if len(samples) == 0 {
		return sum
	}

	var totalCPU float64
	for _, s := range samples {
		sum.PeakHeapAlloc = max(sum.PeakHeapAlloc, s.HeapAlloc)
		sum.PeakProcessRSS = max(sum.PeakProcessRSS, s.ProcessRSS)
		sum.PeakCPUPercent = max(sum.PeakCPUPercent, s.CPUPercent)
		sum.PeakGoroutines = max(sum.PeakGoroutines, s.NumGoroutine)
		totalCPU += s.CPUPercent
	}
	sum.GCCycles = samples[len(samples)-1].NumGC - samples[0].NumGC
	sum.AvgCPUPercent = totalCPU / float64(len(samples))
	return sum
}

func (s Summary) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w,
		"elapsed:     %s\n"+
			"samples:     %d\n"+
			"peak heap:   %s\n"+
			"peak rss:    %s\n"+
			"cpu:         %.1f%% peak, %.1f%% avg\n"+
			"goroutines:  %d peak\n"+
			"gc cycles:   %d\n",
		s.Elapsed.Round(time.Millisecond),
		s.Samples,
		humanize.IBytes(s.PeakHeapAlloc),
		humanize.IBytes(s.PeakProcessRSS),
		s.PeakCPUPercent, s.AvgCPUPercent,
		s.PeakGoroutines,
		s.GCCycles,
	)
	return int64(n), err
}
