package report

type Measurement[T any] struct {
	Time  int64
	Value T
}

type DeviceMeasurement[T any] struct {
	DeviceName  string
	Measurement Measurement[T]
}

// Utilization samples taken on one worker while a job was running. The
// shapes mirror what the benchmarked system's own continuous monitor
// records, so both can be lined up during analysis.
type WorkerMeasurements struct {
	CpuUsageUser   []Measurement[float64]
	CpuUsageSystem []Measurement[float64]
	CpuUsageIdle   []Measurement[float64]
	CpuUsageIowait []Measurement[float64]

	MemUsedBytes  []Measurement[int]
	MemUsedPct    []Measurement[float64]
	MemAvailBytes []Measurement[int]

	DiskReadBytes  []DeviceMeasurement[int]
	DiskWriteBytes []DeviceMeasurement[int]
	DiskIOTimeMs   []DeviceMeasurement[int]

	NetBytesSent []DeviceMeasurement[int]
	NetBytesRecv []DeviceMeasurement[int]
}

// One parameter combination: the stringified args in the order they were
// passed to the external driver, plus what happened.
type RunOutcome struct {
	Args        []string
	Values      map[string]any
	Command     string
	DurationSec float64
	ArchivePath string                         // empty if log collection was skipped or failed
	Error       string                         // non-empty iff this combination failed
	Workers     map[string]*WorkerMeasurements `json:",omitempty"`
}

type SweepReport struct {
	Name         string
	Input        map[string]any
	Outcomes     []*RunOutcome
	TotalTimeSec float64
	Error        string // non-empty iff the sweep was aborted
}

// Top-level report covering every job file given to the driver.
type Report struct {
	Sweeps       []*SweepReport
	TotalTimeSec float64
}
