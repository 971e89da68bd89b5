package workermonitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/monotasks/shufflesweep/report"
)

func (mon *workerMonitor) appendNetworkMetrics(now time.Time, buf []byte) {
	for _, line := range strings.Split(string(buf), "\n") {
		parts := strings.Fields(line)
		if len(parts) != 17 {
			continue
		}

		iface := strings.TrimSuffix(parts[0], ":")
		recvBytes, _ := strconv.Atoi(parts[1])
		sendBytes, _ := strconv.Atoi(parts[9])

		mon.wm.NetBytesRecv = append(mon.wm.NetBytesRecv, report.DeviceMeasurement[int]{
			DeviceName: iface,
			Measurement: report.Measurement[int]{
				Time:  now.Unix(),
				Value: recvBytes,
			},
		})
		mon.wm.NetBytesSent = append(mon.wm.NetBytesSent, report.DeviceMeasurement[int]{
			DeviceName: iface,
			Measurement: report.Measurement[int]{
				Time:  now.Unix(),
				Value: sendBytes,
			},
		})
	}
}
