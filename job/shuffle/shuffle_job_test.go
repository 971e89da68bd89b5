package shuffle

import (
	"errors"
	"io"
	"testing"

	"github.com/monotasks/shufflesweep/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	output []byte
	err    error
}

func (t *fakeDriver) RunCommand(cmd string) ([]byte, error) {
	return t.output, t.err
}

func (t *fakeDriver) CopyFileTo(localFile io.Reader, remotePath string) error {
	return nil
}

func (t *fakeDriver) CopyFileFrom(remotePath string, localFile io.Writer) error {
	return nil
}

func (t *fakeDriver) ListFiles(dir string) ([]string, error) {
	return nil, nil
}

func TestCombinationsGridOrder(t *testing.T) {
	j, err := NewShuffleJob(&ShuffleJobInput{
		Name:              "shuffle",
		NumMachines:       2,
		CoresPerMachine:   4,
		ItemsPerPartition: []int{1000, 2000},
		TaskMultipliers:   []int{1, 2, 4},
		LongsPerValue:     6,
		NumShuffles:       6,
	})
	require.NoError(t, err)

	combos := j.Combinations()
	require.Len(t, combos, 6)

	// outer loop over items-per-partition, inner loop over multipliers
	assert.Equal(t, 1000, combos[0].Values["itemsPerPartition"])
	assert.Equal(t, 1000, combos[2].Values["itemsPerPartition"])
	assert.Equal(t, 2000, combos[3].Values["itemsPerPartition"])

	// base count is machines x cores = 8
	assert.Equal(t, 8, combos[0].Values["numMapTasks"])
	assert.Equal(t, 16, combos[1].Values["numMapTasks"])
	assert.Equal(t, 32, combos[2].Values["numMapTasks"])
	assert.Equal(t, 8, combos[3].Values["numMapTasks"])
}

func TestCombinationsArgumentTuple(t *testing.T) {
	j, err := NewShuffleJob(&ShuffleJobInput{
		Name:              "shuffle",
		NumMachines:       1,
		CoresPerMachine:   8,
		ItemsPerPartition: []int{8000000},
		TaskMultipliers:   []int{4},
		LongsPerValue:     6,
		NumShuffles:       6,
		SortByKey:         true,
		CacheRDD:          false,
	})
	require.NoError(t, err)

	combos := j.Combinations()
	require.Len(t, combos, 1)
	assert.Equal(t, []string{"32", "32", "8000000", "6", "6", "true", "false"}, combos[0].Args)
	assert.Equal(t, "32_32_8000000_6_6_true_false", combos[0].Label())
}

func TestCommandShape(t *testing.T) {
	j, err := NewShuffleJob(&ShuffleJobInput{
		Name:              "shuffle",
		NumMachines:       1,
		CoresPerMachine:   1,
		ItemsPerPartition: []int{10},
		TaskMultipliers:   []int{1},
	})
	require.NoError(t, err)
	require.NoError(t, j.SetUp(&job.Context{Driver: &fakeDriver{}, SparkHome: "/opt/spark"}))

	combos := j.Combinations()
	cmd, err := j.Command(&combos[0])
	require.NoError(t, err)
	assert.Equal(t, "/opt/spark/bin/run-example monotasks.ShuffleJob 1 1 10 0 0 false false", cmd)
}

func TestNegativeValuesPassThroughUnchecked(t *testing.T) {
	j, err := NewShuffleJob(&ShuffleJobInput{
		Name:              "shuffle",
		NumMachines:       1,
		CoresPerMachine:   8,
		ItemsPerPartition: []int{-5},
		TaskMultipliers:   []int{-1},
	})
	require.NoError(t, err)

	combos := j.Combinations()
	require.Len(t, combos, 1)
	assert.Equal(t, "-8", combos[0].Args[0])
	assert.Equal(t, "-5", combos[0].Args[2])
}

func TestParseSparkVersion(t *testing.T) {
	v, err := parseSparkVersion([]byte("Welcome to Spark version 1.6.2\nUsing Scala version 2.10.5\n"))
	require.NoError(t, err)
	assert.Equal(t, "1.6.2", v.String())

	_, err = parseSparkVersion([]byte("no useful output"))
	assert.Error(t, err)
}

func TestSetUpVersionCheck(t *testing.T) {
	newJob := func(min string) job.Job {
		j, err := NewShuffleJob(&ShuffleJobInput{Name: "shuffle", MinSparkVersion: min})
		require.NoError(t, err)
		return j
	}

	driver := &fakeDriver{output: []byte("Welcome to Spark version 1.6.2\n")}

	err := newJob("1.5.0").SetUp(&job.Context{Driver: driver, SparkHome: "/root/spark"})
	assert.NoError(t, err)

	err = newJob("2.0.0").SetUp(&job.Context{Driver: driver, SparkHome: "/root/spark"})
	assert.Error(t, err)

	broken := &fakeDriver{output: []byte("sh: not found"), err: errors.New("exit status 127")}
	err = newJob("1.5.0").SetUp(&job.Context{Driver: broken, SparkHome: "/root/spark"})
	assert.Error(t, err)
}

func TestNewShuffleJobRejectsBadVersions(t *testing.T) {
	_, err := NewShuffleJob(&ShuffleJobInput{MinSparkVersion: "v1.6.2"})
	assert.Error(t, err)

	_, err = NewShuffleJob(&ShuffleJobInput{MinSparkVersion: "not a version"})
	assert.Error(t, err)
}
