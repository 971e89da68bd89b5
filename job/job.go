package job

import (
	"fmt"
	"strings"

	"github.com/monotasks/shufflesweep/target"
)

// Params is one point in a job's parameter grid. Args are positional and
// ordered exactly as the external driver expects them on its command line.
type Params struct {
	Args   []string
	Values map[string]any
	Banner string
}

// Label names the log archive for this combination.
func (p *Params) Label() string {
	return strings.Join(p.Args, "_")
}

type Context struct {
	// Where job commands run. The master of the cluster being benchmarked,
	// or the local machine when the driver runs on the master itself.
	Driver target.Target

	// Hostnames of the machines participating in the external job.
	Workers []string

	// Root of the external distribution, e.g. /root/spark.
	SparkHome string

	// Root of the HDFS installation used by jobs that stage input data.
	HadoopHome string
}

type Job interface {
	// Set up the job. May probe the cluster, e.g. to verify the external
	// distribution is present. Called once, before the first combination.
	SetUp(ctx *Context) error

	// The full parameter grid, in the order combinations must run.
	Combinations() []Params

	// Build the external command line for one combination. May refine p
	// with values only knowable at run time (e.g. whether input data
	// already exists on the cluster).
	Command(p *Params) (string, error)

	// Runs after a combination's logs have been archived. Cleanup hook.
	PostRun(p *Params) error

	// A human-friendly name the user can set for this job. Only used for debugging/printing.
	GetName() string

	// Any input given to this job by the user. Included in the sweep report. Not used for anything else.
	GetInput() map[string]any
}

type jobType string

type jobFactory func(map[string]any) (Job, error)

var jobs map[jobType]jobFactory

// All job types must register themselves at module load time so that deserialization can create a job of that type.
func RegisterJob(jtype string, f jobFactory) {
	if jobs == nil {
		jobs = map[jobType]jobFactory{}
	}
	jobs[jobType(jtype)] = f
}

type SerializedJob struct {
	Type  jobType
	Input map[string]any
}

type JobFile []SerializedJob

func DeserializeJob(sj *SerializedJob) (Job, error) {
	f, ok := jobs[sj.Type]
	if !ok {
		return nil, fmt.Errorf("unknown job type: %s", sj.Type)
	}
	return f(sj.Input)
}
