package workermonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/monotasks/shufflesweep/report"
)

func (mon *workerMonitor) appendMemoryMetrics(now time.Time, buf []byte) {
	total := 0
	free := 0
	buffers := 0
	cached := 0
	available := 0

	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) != 3 {
			continue
		}
		value, _ := strconv.Atoi(parts[1])
		bytes := value * 1024
		switch key := strings.TrimSuffix(parts[0], ":"); key {
		case "MemTotal":
			total = bytes
		case "MemFree":
			free = bytes
		case "MemAvailable":
			available = bytes
		case "Buffers":
			buffers = bytes
		case "Cached":
			cached = bytes
		case "SReclaimable":
			cached += bytes
		}
	}

	if total == 0 {
		return
	}
	used := total - free - buffers - cached
	usedPct := 100 * (float64(used) / float64(total))

	mon.wm.MemUsedBytes = append(mon.wm.MemUsedBytes, report.Measurement[int]{
		Time:  now.Unix(),
		Value: used,
	})
	mon.wm.MemUsedPct = append(mon.wm.MemUsedPct, report.Measurement[float64]{
		Time:  now.Unix(),
		Value: usedPct,
	})
	mon.wm.MemAvailBytes = append(mon.wm.MemAvailBytes, report.Measurement[int]{
		Time:  now.Unix(),
		Value: available,
	})
}
