package workermonitor

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/monotasks/shufflesweep/report"
	"github.com/monotasks/shufflesweep/target"
)

// Monitor samples utilization on one worker while an external job runs, so
// the sweep report can be lined up against the logs collected afterwards.
type Monitor interface {
	Start() error
	Stop()
	Wait()
	Measurements() *report.WorkerMeasurements
}

type workerMonitor struct {
	target target.Target
	stop   *atomic.Bool
	wg     *sync.WaitGroup
	wm     *report.WorkerMeasurements
}

func New(t target.Target) Monitor {
	return &workerMonitor{
		target: t,
		stop:   &atomic.Bool{},
		wg:     &sync.WaitGroup{},
		wm:     &report.WorkerMeasurements{},
	}
}

var sampleInterval = 1 * time.Second

func (mon *workerMonitor) Start() error {
	// Probe once so an unreachable worker fails here instead of silently
	// producing an empty series.
	_, err := mon.target.RunCommand("cat /proc/stat")
	if err != nil {
		return err
	}

	mon.wg.Add(1)
	go mon.run()
	return nil
}

func (mon *workerMonitor) Stop() {
	mon.stop.Store(true)
}

func (mon *workerMonitor) Wait() {
	mon.wg.Wait()
}

func (mon *workerMonitor) Measurements() *report.WorkerMeasurements {
	return mon.wm
}

func (mon *workerMonitor) run() {
	defer mon.wg.Done()
	var prevCPU *cpuTimes
	for !mon.stop.Load() {
		buf := mon.sample("cat /proc/stat")
		t := time.Now()
		currCPU := parseCPUTimes(buf)
		if prevCPU != nil && currCPU != nil {
			mon.appendCPUMetrics(t, currCPU, prevCPU)
		}
		prevCPU = currCPU

		mon.appendMemoryMetrics(time.Now(), mon.sample("cat /proc/meminfo"))
		mon.appendDiskIOMetrics(time.Now(), mon.sample("cat /proc/diskstats"))
		mon.appendNetworkMetrics(time.Now(), mon.sample("cat /proc/net/dev"))

		time.Sleep(sampleInterval)
	}
}

func (mon *workerMonitor) sample(cmd string) []byte {
	buf, err := mon.target.RunCommand(cmd)
	if err != nil {
		slog.Warn("worker monitor: failed to run command",
			slog.String("command", cmd),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return buf
}
