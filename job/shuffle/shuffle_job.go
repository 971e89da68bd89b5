package shuffle

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/mitchellh/mapstructure"
	"github.com/monotasks/shufflesweep/job"
	"github.com/monotasks/shufflesweep/util"
)

// Drives monotasks.ShuffleJob: repeated jobs that read shuffled data, over
// the cartesian product of items-per-partition values and task multipliers.
type sjob struct {
	input *ShuffleJobInput
	ctx   *job.Context
}

type ShuffleJobInput struct {
	Name              string
	NumMachines       int
	CoresPerMachine   int
	ItemsPerPartition []int
	TaskMultipliers   []int
	LongsPerValue     int
	NumShuffles       int
	SortByKey         bool
	CacheRDD          bool
	MinSparkVersion   string
}

func init() {
	job.RegisterJob("shuffle", func(a map[string]any) (job.Job, error) {
		input := &ShuffleJobInput{}
		err := mapstructure.Decode(a, input)
		if err != nil {
			return nil, fmt.Errorf("can't convert input to ShuffleJobInput: %w", err)
		}
		return NewShuffleJob(input)
	})
}

func NewShuffleJob(input *ShuffleJobInput) (job.Job, error) {
	if strings.HasPrefix(input.MinSparkVersion, "v") {
		return nil, fmt.Errorf("spark version string must not have a v prefix")
	}
	if input.MinSparkVersion != "" {
		_, err := version.NewVersion(input.MinSparkVersion)
		if err != nil {
			return nil, fmt.Errorf("can't parse minimum spark version: %w", err)
		}
	}
	return &sjob{input: input}, nil
}

func (j *sjob) SetUp(ctx *job.Context) error {
	j.ctx = ctx

	if j.input.MinSparkVersion == "" {
		return nil
	}

	cmd := fmt.Sprintf("%s --version 2>&1", path.Join(ctx.SparkHome, "bin/spark-submit"))
	out, err := ctx.Driver.RunCommand(cmd)
	if err != nil {
		return fmt.Errorf("external distribution at %s is not runnable: %w", ctx.SparkHome, err)
	}

	installed, err := parseSparkVersion(out)
	if err != nil {
		return err
	}
	minimum := version.Must(version.NewVersion(j.input.MinSparkVersion))
	if installed.LessThan(minimum) {
		return fmt.Errorf("installed spark version %s is older than required %s", installed, minimum)
	}
	return nil
}

var sparkVersionRe = regexp.MustCompile(`version\s+(\d+(?:\.\d+)+)`)

func parseSparkVersion(out []byte) (*version.Version, error) {
	m := sparkVersionRe.FindSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("did not find a version in spark-submit output")
	}
	return version.NewVersion(string(m[1]))
}

// Outer loop over items-per-partition, inner loop over multipliers, both in
// the order the user listed them. Task counts scale off machines x cores.
func (j *sjob) Combinations() []job.Params {
	baseMapTasks := j.input.NumMachines * j.input.CoresPerMachine
	baseReduceTasks := j.input.NumMachines * j.input.CoresPerMachine

	var combos []job.Params
	for _, itemsPerPartition := range j.input.ItemsPerPartition {
		for _, multiplier := range j.input.TaskMultipliers {
			numMapTasks := multiplier * baseMapTasks
			numReduceTasks := multiplier * baseReduceTasks
			combos = append(combos, job.Params{
				Args: []string{
					strconv.Itoa(numMapTasks),
					strconv.Itoa(numReduceTasks),
					strconv.Itoa(itemsPerPartition),
					strconv.Itoa(j.input.LongsPerValue),
					strconv.Itoa(j.input.NumShuffles),
					strconv.FormatBool(j.input.SortByKey),
					strconv.FormatBool(j.input.CacheRDD),
				},
				Values: map[string]any{
					"numMapTasks":       numMapTasks,
					"numReduceTasks":    numReduceTasks,
					"itemsPerPartition": itemsPerPartition,
					"longsPerValue":     j.input.LongsPerValue,
					"numShuffles":       j.input.NumShuffles,
					"sortByKey":         j.input.SortByKey,
					"cacheRDD":          j.input.CacheRDD,
				},
				Banner: fmt.Sprintf("Running experiment with %d shuffle values", itemsPerPartition),
			})
		}
	}
	return combos
}

func (j *sjob) Command(p *job.Params) (string, error) {
	return fmt.Sprintf(
		"%s monotasks.ShuffleJob %s",
		path.Join(j.ctx.SparkHome, "bin/run-example"),
		strings.Join(p.Args, " "),
	), nil
}

func (j *sjob) PostRun(p *job.Params) error {
	return nil
}

func (j *sjob) GetName() string {
	return j.input.Name
}

func (j *sjob) GetInput() map[string]any {
	return util.StructMap(j.input)
}
