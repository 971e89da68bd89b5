package logcollector

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alitto/pond"
	"github.com/monotasks/shufflesweep/target"
	"github.com/schollz/progressbar/v3"
)

// Collector fetches the configured log directories from every worker over
// SFTP and bundles them into one compressed archive per run, named after the
// run's parameter tuple.
type Collector struct {
	input *CollectorInput
}

type CollectorInput struct {
	// One target per worker hostname.
	Targets map[string]target.Target

	// Remote directories to fetch from each worker.
	RemoteDirs []string

	// Where finished archives land.
	LocalDir string

	// How many workers to fetch from at once.
	FetchConcurrency int

	// When non-nil, each finished archive is also uploaded.
	Uploader *ArchiveUploader
}

func NewCollector(input *CollectorInput) *Collector {
	if input.FetchConcurrency <= 0 {
		input.FetchConcurrency = 8
	}
	return &Collector{input: input}
}

func (c *Collector) Collect(label string, workers []string) (string, error) {
	staging, err := os.MkdirTemp("", "shufflesweep-logs-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(staging)

	errChan := make(chan error, len(workers))
	pool := pond.New(c.input.FetchConcurrency, 0, pond.MinWorkers(c.input.FetchConcurrency))
	p := progressbar.Default(int64(len(workers)), "Collecting logs:")
	for _, worker := range workers {
		pool.Submit(func() {
			defer p.Add(1)
			err := c.fetchWorker(staging, worker)
			if err != nil {
				slog.Error("failed to fetch logs from worker",
					slog.String("worker", worker),
					slog.String("error", err.Error()),
				)
				errChan <- err
			}
		})
	}
	pool.StopAndWait()
	p.Finish()

	select {
	case err := <-errChan:
		return "", fmt.Errorf("collecting logs from some workers failed: %w", err)
	default:
	}

	err = os.MkdirAll(c.input.LocalDir, os.ModePerm)
	if err != nil {
		return "", err
	}
	archivePath := filepath.Join(c.input.LocalDir, fmt.Sprintf("experiment_log_%s.tar.gz", label))
	err = writeTarGz(staging, archivePath)
	if err != nil {
		return "", fmt.Errorf("archiving collected logs failed: %w", err)
	}
	slog.Info("archived worker logs", slog.String("path", archivePath))

	if c.input.Uploader != nil {
		err = c.input.Uploader.Upload(archivePath)
		if err != nil {
			return "", fmt.Errorf("uploading archive failed: %w", err)
		}
	}

	return archivePath, nil
}

func (c *Collector) fetchWorker(staging string, worker string) error {
	t, ok := c.input.Targets[worker]
	if !ok {
		return fmt.Errorf("no target for worker %s", worker)
	}
	for _, dir := range c.input.RemoteDirs {
		files, err := t.ListFiles(dir)
		if err != nil {
			return fmt.Errorf("listing %s failed: %w", dir, err)
		}
		for _, remote := range files {
			err = c.fetchFile(t, remote, filepath.Join(staging, worker, strings.TrimPrefix(remote, "/")))
			if err != nil {
				return fmt.Errorf("fetching %s failed: %w", remote, err)
			}
		}
	}
	return nil
}

func (c *Collector) fetchFile(t target.Target, remote string, local string) error {
	err := os.MkdirAll(filepath.Dir(local), os.ModePerm)
	if err != nil {
		return err
	}
	f, err := os.Create(local)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.CopyFileFrom(remote, f)
}

func writeTarGz(root string, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	err = filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		err = tw.WriteHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	err = tw.Close()
	if err != nil {
		return err
	}
	return gz.Close()
}
