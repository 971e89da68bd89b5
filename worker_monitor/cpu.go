package workermonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/monotasks/shufflesweep/report"
)

type cpuTimes struct {
	user    int
	nice    int
	system  int
	idle    int
	iowait  int
	irq     int
	softIrq int
	steal   int
}

func (ts *cpuTimes) total() int {
	return ts.user + ts.nice + ts.system + ts.idle + ts.iowait + ts.irq + ts.softIrq + ts.steal
}

func parseCPUTimes(buf []byte) *cpuTimes {
	for _, line := range strings.Split(string(buf), "\n") {
		// We only want the aggregate line, not the per-core ones.
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 9 {
			return nil
		}
		user, _ := strconv.Atoi(parts[1])
		nice, _ := strconv.Atoi(parts[2])
		system, _ := strconv.Atoi(parts[3])
		idle, _ := strconv.Atoi(parts[4])
		iowait, _ := strconv.Atoi(parts[5])
		irq, _ := strconv.Atoi(parts[6])
		softIrq, _ := strconv.Atoi(parts[7])
		steal, _ := strconv.Atoi(parts[8])
		return &cpuTimes{
			user:    user,
			nice:    nice,
			system:  system,
			idle:    idle,
			iowait:  iowait,
			irq:     irq,
			softIrq: softIrq,
			steal:   steal,
		}
	}
	return nil
}

func (mon *workerMonitor) appendCPUMetrics(now time.Time, curr *cpuTimes, prev *cpuTimes) {
	delta := float64(curr.total() - prev.total())
	if delta <= 0 {
		return
	}
	mon.wm.CpuUsageUser = append(mon.wm.CpuUsageUser, report.Measurement[float64]{
		Time:  now.Unix(),
		Value: float64(100*(curr.user-prev.user)) / delta,
	})
	mon.wm.CpuUsageSystem = append(mon.wm.CpuUsageSystem, report.Measurement[float64]{
		Time:  now.Unix(),
		Value: float64(100*(curr.system-prev.system)) / delta,
	})
	mon.wm.CpuUsageIdle = append(mon.wm.CpuUsageIdle, report.Measurement[float64]{
		Time:  now.Unix(),
		Value: float64(100*(curr.idle-prev.idle)) / delta,
	})
	mon.wm.CpuUsageIowait = append(mon.wm.CpuUsageIowait, report.Measurement[float64]{
		Time:  now.Unix(),
		Value: float64(100*(curr.iowait-prev.iowait)) / delta,
	})
}
