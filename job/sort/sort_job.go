package sort

import (
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/monotasks/shufflesweep/job"
	"github.com/monotasks/shufflesweep/util"
)

// Drives monotasks.SortJob: repeated jobs that each sort the same amount of
// data, using different numbers of values for each key. Input data is staged
// in HDFS and reused across combinations once generated.
type sjob struct {
	input *SortJobInput
	ctx   *job.Context
}

type SortJobInput struct {
	Name                 string
	TargetTotalDataGB    int
	ValuesPerKey         []int
	CoresPerWorker       []int
	NumShuffles          int
	CacheInputOutputData bool

	// Runs on the driver after every combination to drop the worker page
	// caches. Empty disables the step.
	ClearCacheCommand string
}

// HDFS blocks are actually 128MB; round down here so that none of the output
// tasks end up writing data to two different blocks, which the external job
// does not handle correctly.
const hdfsBlocksPerGB = 1024 / 105

// index of the use-existing-data-files flag in the argument tuple
const useExistingArgIndex = 6

func init() {
	job.RegisterJob("sort", func(a map[string]any) (job.Job, error) {
		input := &SortJobInput{}
		err := mapstructure.Decode(a, input)
		if err != nil {
			return nil, fmt.Errorf("can't convert input to SortJobInput: %w", err)
		}
		return NewSortJob(input), nil
	})
}

func NewSortJob(input *SortJobInput) job.Job {
	return &sjob{input: input}
}

func (j *sjob) SetUp(ctx *job.Context) error {
	j.ctx = ctx
	return nil
}

func (j *sjob) Combinations() []job.Params {
	numTasks := j.input.TargetTotalDataGB * hdfsBlocksPerGB

	var combos []job.Params
	for _, coresPerWorker := range j.input.CoresPerWorker {
		for _, valuesPerKey := range j.input.ValuesPerKey {
			totalNumItems := float64(j.input.TargetTotalDataGB) / (4.9 + float64(valuesPerKey)*1.92) * (64 * 4000000)
			itemsPerTask := int(totalNumItems / float64(numTasks))
			dataFilename := fmt.Sprintf("randomData_%d_%dGB_105target", valuesPerKey, j.input.TargetTotalDataGB)

			// The coresPerWorker parameter won't be used by the external job;
			// it's just included for convenience in how the log files are named.
			combos = append(combos, job.Params{
				Args: []string{
					strconv.Itoa(numTasks),
					strconv.Itoa(numTasks),
					strconv.Itoa(itemsPerTask),
					strconv.Itoa(valuesPerKey),
					strconv.Itoa(j.input.NumShuffles),
					dataFilename,
					strconv.FormatBool(false), // refined at command-build time
					strconv.FormatBool(j.input.CacheInputOutputData),
					strconv.Itoa(coresPerWorker),
				},
				Values: map[string]any{
					"numTasks":       numTasks,
					"itemsPerTask":   itemsPerTask,
					"valuesPerKey":   valuesPerKey,
					"numShuffles":    j.input.NumShuffles,
					"dataFilename":   dataFilename,
					"coresPerWorker": coresPerWorker,
				},
				Banner: fmt.Sprintf("Running sort experiment with %d values per key", valuesPerKey),
			})
		}
	}
	return combos
}

func (j *sjob) Command(p *job.Params) (string, error) {
	dataFilename, ok := p.Values["dataFilename"].(string)
	if !ok {
		return "", fmt.Errorf("sort job params are missing the data filename")
	}

	// Whether the input data files already exist can change while the sweep
	// runs (the first combination generates them), so check just before
	// building the command.
	useExisting := j.hdfsFileExists(dataFilename)
	p.Args[useExistingArgIndex] = strconv.FormatBool(useExisting)
	p.Values["useExistingDataFiles"] = useExisting

	return fmt.Sprintf(
		"%s monotasks.SortJob %s",
		path.Join(j.ctx.SparkHome, "bin/run-example"),
		strings.Join(p.Args, " "),
	), nil
}

func (j *sjob) hdfsFileExists(filename string) bool {
	cmd := fmt.Sprintf("%s fs -ls %s", path.Join(j.ctx.HadoopHome, "bin/hadoop"), filename)
	_, err := j.ctx.Driver.RunCommand(cmd)
	return err == nil
}

func (j *sjob) PostRun(p *job.Params) error {
	// Clear the buffer cache, to sidestep issue with machines dying.
	if j.input.ClearCacheCommand != "" {
		out, err := j.ctx.Driver.RunCommand(j.input.ClearCacheCommand)
		if err != nil {
			return fmt.Errorf("clearing worker buffer caches failed: %w", err)
		}
		slog.Debug("cleared worker buffer caches", slog.String("output", util.LastNonEmptyLine(out)))
	}

	// Delete any sorted data so the next combination starts clean.
	cmd := fmt.Sprintf("%s dfs -rm -r ./*sorted*", path.Join(j.ctx.HadoopHome, "bin/hadoop"))
	out, err := j.ctx.Driver.RunCommand(cmd)
	if err != nil {
		return fmt.Errorf("deleting sorted data failed: %w", err)
	}
	slog.Debug("deleted sorted data", slog.String("output", util.LastNonEmptyLine(out)))
	return nil
}

func (j *sjob) GetName() string {
	return j.input.Name
}

func (j *sjob) GetInput() map[string]any {
	return util.StructMap(j.input)
}
