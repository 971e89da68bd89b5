package diskprobe

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alitto/pond"
	"github.com/monotasks/shufflesweep/target"
)

const megabyteInBytes = 1024 * 1024

// Input configures one probe run. Each file size is written Trials times in
// fsync'd chunks, read back sequentially, then all files of that size are
// read in parallel to measure aggregate throughput.
type Input struct {
	Dir               string
	FileSizesBytes    []int
	Trials            int
	ChunkSizeBytes    int
	ClearCacheCommand string
}

type SizeResult struct {
	SizeBytes        int
	WriteMBps        []float64
	ReadMBps         []float64
	ParallelReadMBps float64
}

func Run(input *Input) ([]*SizeResult, error) {
	if input.Trials <= 0 {
		input.Trials = 9
	}
	if input.ChunkSizeBytes <= 0 {
		input.ChunkSizeBytes = 4048
	}

	var results []*SizeResult
	for _, size := range input.FileSizesBytes {
		result, err := runSize(input, size)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func runSize(input *Input, size int) (*SizeResult, error) {
	result := &SizeResult{SizeBytes: size}
	slog.Info("writing files to disk", slog.Int("sizeBytes", size), slog.Int("trials", input.Trials))

	var filenames []string
	for trial := 0; trial < input.Trials; trial++ {
		filename := filepath.Join(input.Dir, fmt.Sprintf("probe_%d_%d.dat", size, time.Now().UnixNano()))
		writeMBps, err := writeFileInChunks(filename, size, input.ChunkSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("writing %s failed: %w", filename, err)
		}
		result.WriteMBps = append(result.WriteMBps, writeMBps)

		err = clearCache(input.ClearCacheCommand)
		if err != nil {
			return nil, err
		}

		readMBps, err := readFile(filename, size)
		if err != nil {
			return nil, fmt.Errorf("reading %s failed: %w", filename, err)
		}
		result.ReadMBps = append(result.ReadMBps, readMBps)

		filenames = append(filenames, filename)
	}

	err := clearCache(input.ClearCacheCommand)
	if err != nil {
		return nil, err
	}

	// Read all of the files in parallel, one reader per file.
	pool := pond.New(len(filenames), 0, pond.MinWorkers(len(filenames)))
	start := time.Now()
	for _, filename := range filenames {
		pool.Submit(func() {
			_, err := readFile(filename, size)
			if err != nil {
				slog.Error("parallel read failed", slog.String("file", filename), slog.String("error", err.Error()))
			}
		})
	}
	pool.StopAndWait()
	elapsed := time.Since(start).Seconds()
	result.ParallelReadMBps = float64(size*len(filenames)) / (megabyteInBytes * elapsed)
	slog.Info("parallel read finished", slog.Int("sizeBytes", size), slog.Float64("aggregateMBps", result.ParallelReadMBps))

	for _, filename := range filenames {
		err = os.Remove(filename)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func writeFileInChunks(filename string, size int, chunkSize int) (float64, error) {
	start := time.Now()
	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	chunk := bytes.Repeat([]byte{0xff}, chunkSize)
	written := 0
	for written < size {
		remaining := size - written
		if remaining < chunkSize {
			chunk = chunk[:remaining]
		}
		n, err := f.Write(chunk)
		if err != nil {
			return 0, err
		}
		written += n
	}
	err = f.Sync()
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start).Seconds()
	return float64(size) / (megabyteInBytes * elapsed), nil
}

func readFile(filename string, size int) (float64, error) {
	start := time.Now()
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	_, err = io.Copy(io.Discard, f)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start).Seconds()
	return float64(size) / (megabyteInBytes * elapsed), nil
}

func clearCache(cmd string) error {
	if cmd == "" {
		return nil
	}
	local := &target.LocalTarget{}
	out, err := local.RunCommand(cmd)
	if err != nil {
		return fmt.Errorf("clearing the buffer cache failed: %w (output: %s)", err, string(out))
	}
	return nil
}
