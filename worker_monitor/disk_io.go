package workermonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/monotasks/shufflesweep/report"
)

// /proc/diskstats sectors are always 512 bytes regardless of the device's
// real sector size.
const sectorSizeBytes = 512

func (mon *workerMonitor) appendDiskIOMetrics(now time.Time, buf []byte) {
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 14 {
			continue
		}

		deviceName := parts[2]
		sectorsRead, _ := strconv.Atoi(parts[5])
		sectorsWritten, _ := strconv.Atoi(parts[9])
		timeSpentDoingIOs, _ := strconv.Atoi(parts[12])

		mon.wm.DiskReadBytes = append(mon.wm.DiskReadBytes, report.DeviceMeasurement[int]{
			DeviceName: deviceName,
			Measurement: report.Measurement[int]{
				Time:  now.Unix(),
				Value: sectorsRead * sectorSizeBytes,
			},
		})
		mon.wm.DiskWriteBytes = append(mon.wm.DiskWriteBytes, report.DeviceMeasurement[int]{
			DeviceName: deviceName,
			Measurement: report.Measurement[int]{
				Time:  now.Unix(),
				Value: sectorsWritten * sectorSizeBytes,
			},
		})
		mon.wm.DiskIOTimeMs = append(mon.wm.DiskIOTimeMs, report.DeviceMeasurement[int]{
			DeviceName: deviceName,
			Measurement: report.Measurement[int]{
				Time:  now.Unix(),
				Value: timeSpentDoingIOs,
			},
		})
	}
}
