package workermonitor

import (
	"testing"
	"time"

	"github.com/monotasks/shufflesweep/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor() *workerMonitor {
	return &workerMonitor{wm: &report.WorkerMeasurements{}}
}

func TestParseCPUTimes(t *testing.T) {
	buf := []byte("cpu  100 5 50 800 20 3 2 1 0 0\ncpu0 25 1 12 200 5 1 0 0 0 0\n")
	ts := parseCPUTimes(buf)
	require.NotNil(t, ts)
	assert.Equal(t, 100, ts.user)
	assert.Equal(t, 50, ts.system)
	assert.Equal(t, 800, ts.idle)
	assert.Equal(t, 20, ts.iowait)
	assert.Equal(t, 981, ts.total())
}

func TestParseCPUTimesIgnoresGarbage(t *testing.T) {
	assert.Nil(t, parseCPUTimes([]byte("intr 12345\nctxt 6789\n")))
	assert.Nil(t, parseCPUTimes(nil))
}

func TestAppendCPUMetricsPercentages(t *testing.T) {
	mon := newTestMonitor()
	prev := &cpuTimes{user: 100, system: 100, idle: 100, iowait: 100}
	curr := &cpuTimes{user: 150, system: 100, idle: 150, iowait: 100}

	mon.appendCPUMetrics(time.Now(), curr, prev)

	require.Len(t, mon.wm.CpuUsageUser, 1)
	assert.InDelta(t, 50.0, mon.wm.CpuUsageUser[0].Value, 0.001)
	assert.InDelta(t, 0.0, mon.wm.CpuUsageSystem[0].Value, 0.001)
	assert.InDelta(t, 50.0, mon.wm.CpuUsageIdle[0].Value, 0.001)
	assert.InDelta(t, 0.0, mon.wm.CpuUsageIowait[0].Value, 0.001)
}

func TestAppendCPUMetricsSkipsNonPositiveDelta(t *testing.T) {
	mon := newTestMonitor()
	same := &cpuTimes{user: 100, idle: 100}
	mon.appendCPUMetrics(time.Now(), same, same)
	assert.Empty(t, mon.wm.CpuUsageUser)
}

func TestAppendMemoryMetrics(t *testing.T) {
	mon := newTestMonitor()
	buf := []byte(`MemTotal:       1000 kB
MemFree:         400 kB
MemAvailable:    600 kB
Buffers:          50 kB
Cached:          100 kB
SReclaimable:     50 kB
`)
	mon.appendMemoryMetrics(time.Now(), buf)

	require.Len(t, mon.wm.MemUsedBytes, 1)
	// used = total - free - buffers - cached(incl SReclaimable)
	assert.Equal(t, (1000-400-50-150)*1024, mon.wm.MemUsedBytes[0].Value)
	assert.InDelta(t, 40.0, mon.wm.MemUsedPct[0].Value, 0.001)
	assert.Equal(t, 600*1024, mon.wm.MemAvailBytes[0].Value)
}

func TestAppendMemoryMetricsIgnoresEmptyInput(t *testing.T) {
	mon := newTestMonitor()
	mon.appendMemoryMetrics(time.Now(), nil)
	assert.Empty(t, mon.wm.MemUsedBytes)
}

func TestAppendDiskIOMetrics(t *testing.T) {
	mon := newTestMonitor()
	buf := []byte("   8       0 sda 1000 10 2048 300 500 5 4096 200 0 450 650 0 0 0 0 12 30\n")
	mon.appendDiskIOMetrics(time.Now(), buf)

	require.Len(t, mon.wm.DiskReadBytes, 1)
	assert.Equal(t, "sda", mon.wm.DiskReadBytes[0].DeviceName)
	assert.Equal(t, 2048*512, mon.wm.DiskReadBytes[0].Measurement.Value)
	assert.Equal(t, 4096*512, mon.wm.DiskWriteBytes[0].Measurement.Value)
	assert.Equal(t, 450, mon.wm.DiskIOTimeMs[0].Measurement.Value)
}

func TestAppendNetworkMetrics(t *testing.T) {
	mon := newTestMonitor()
	buf := []byte(`Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
  eth0: 123456     789    0    0    0     0          0         0   654321     987    0    0    0     0       0          0
`)
	mon.appendNetworkMetrics(time.Now(), buf)

	require.Len(t, mon.wm.NetBytesRecv, 1)
	assert.Equal(t, "eth0", mon.wm.NetBytesRecv[0].DeviceName)
	assert.Equal(t, 123456, mon.wm.NetBytesRecv[0].Measurement.Value)
	assert.Equal(t, 654321, mon.wm.NetBytesSent[0].Measurement.Value)
}
