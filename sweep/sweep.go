package sweep

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/monotasks/shufflesweep/job"
	"github.com/monotasks/shufflesweep/report"
	"github.com/monotasks/shufflesweep/target"
	"github.com/monotasks/shufflesweep/util"
	workermonitor "github.com/monotasks/shufflesweep/worker_monitor"
)

// Archiver collects logs from every worker after a combination finishes and
// returns the path of the archive it produced.
type Archiver interface {
	Collect(label string, workers []string) (string, error)
}

type Config struct {
	// The default is to abort the whole sweep at the first failed
	// combination. Setting this keeps going and records failures in the
	// report instead.
	ContinueOnFailure bool

	// When non-empty, utilization is sampled on these workers while each
	// combination runs and attached to its outcome.
	MonitorTargets map[string]target.Target
}

// Runner executes one job's full parameter grid, one combination at a time:
// build the command, run it to completion, archive the worker logs, then run
// the job's cleanup hook.
type Runner struct {
	job      job.Job
	ctx      *job.Context
	archiver Archiver
	cfg      Config
}

func NewRunner(j job.Job, ctx *job.Context, archiver Archiver, cfg Config) *Runner {
	return &Runner{job: j, ctx: ctx, archiver: archiver, cfg: cfg}
}

func (r *Runner) Run() *report.SweepReport {
	rep := &report.SweepReport{
		Name:     r.job.GetName(),
		Input:    r.job.GetInput(),
		Outcomes: []*report.RunOutcome{},
	}

	combos := r.job.Combinations()
	slog.Info("starting sweep",
		slog.String("name", r.job.GetName()),
		slog.Int("combinations", len(combos)),
	)

	start := time.Now()
	for i := range combos {
		outcome := r.runCombination(&combos[i])
		rep.Outcomes = append(rep.Outcomes, outcome)
		if outcome.Error != "" && !r.cfg.ContinueOnFailure {
			rep.Error = outcome.Error
			break
		}
	}
	rep.TotalTimeSec = time.Since(start).Seconds()

	slog.Info("finished sweep",
		slog.String("name", r.job.GetName()),
		slog.Float64("totalTimeSec", rep.TotalTimeSec),
	)
	return rep
}

func (r *Runner) runCombination(p *job.Params) *report.RunOutcome {
	outcome := &report.RunOutcome{Values: p.Values}

	cmd, err := r.job.Command(p)
	if err != nil {
		outcome.Args = p.Args
		outcome.Error = fmt.Errorf("building job command failed: %w", err).Error()
		return outcome
	}
	// Command may refine the args, so record them afterwards.
	outcome.Args = p.Args
	outcome.Command = cmd

	if p.Banner != "" {
		slog.Info(p.Banner)
	}
	slog.Info("running job command", slog.String("command", cmd))

	monitors := r.startMonitors()

	tstart := time.Now()
	out, err := r.ctx.Driver.RunCommand(cmd)
	outcome.DurationSec = time.Since(tstart).Seconds()

	outcome.Workers = stopMonitors(monitors)

	if err != nil {
		slog.Error("job command failed",
			slog.String("command", cmd),
			slog.String("error", err.Error()),
			slog.String("output", util.LastNonEmptyLine(out)),
		)
		outcome.Error = fmt.Errorf("running job failed: %w", err).Error()
		return outcome
	}
	slog.Debug("job command finished", slog.String("output", util.LastNonEmptyLine(out)))

	archivePath, err := r.archiver.Collect(p.Label(), r.ctx.Workers)
	if err != nil {
		outcome.Error = fmt.Errorf("archiving worker logs failed: %w", err).Error()
		return outcome
	}
	outcome.ArchivePath = archivePath

	err = r.job.PostRun(p)
	if err != nil {
		outcome.Error = fmt.Errorf("job cleanup failed: %w", err).Error()
		return outcome
	}

	return outcome
}

func (r *Runner) startMonitors() map[string]workermonitor.Monitor {
	if len(r.cfg.MonitorTargets) == 0 {
		return nil
	}
	monitors := map[string]workermonitor.Monitor{}
	for host, t := range r.cfg.MonitorTargets {
		mon := workermonitor.New(t)
		err := mon.Start()
		if err != nil {
			slog.Warn("failed to start worker monitor",
				slog.String("host", host),
				slog.String("error", err.Error()),
			)
			continue
		}
		monitors[host] = mon
	}
	return monitors
}

func stopMonitors(monitors map[string]workermonitor.Monitor) map[string]*report.WorkerMeasurements {
	if len(monitors) == 0 {
		return nil
	}
	for _, mon := range monitors {
		mon.Stop()
	}
	measurements := map[string]*report.WorkerMeasurements{}
	for host, mon := range monitors {
		mon.Wait()
		measurements[host] = mon.Measurements()
	}
	return measurements
}
