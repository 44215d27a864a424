// Package harness sequences a benchmark run as an explicit series of
// phases: provision host resources, prepare the result sink, label the
// environment, then drive the trial loop. Each phase returns an error
// consumed here, so every phase can be tested in isolation.
package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/p-arndt/pruefstand/internal/config"
	"github.com/p-arndt/pruefstand/internal/trial"
)

type MountProvisioner interface {
	Provision(ctx context.Context, baseDir string, n int) error
}

type NetworkProvisioner interface {
	Provision(ctx context.Context, tapCount int) error
}

type ResultCollector interface {
	Prepare(resultDir string) error
	RecordEnvironment(ctx context.Context, resultDir string) (string, error)
}

type TrialRunner interface {
	RunTrials(ctx context.Context, opts trial.Options) (trial.Summary, error)
}

// RunJournal is the run-level slice of the journal. Trial-level recording
// is wired into the trial runner directly.
type RunJournal interface {
	StartRun(id, environment string, trialCount int) error
	FinishRun(id string, completed, failed int) error
}

type Harness struct {
	cfg     *config.Config
	mounts  MountProvisioner
	network NetworkProvisioner
	results ResultCollector
	trials  TrialRunner
	journal RunJournal
	logger  *slog.Logger
}

func New(cfg *config.Config, mounts MountProvisioner, network NetworkProvisioner,
	results ResultCollector, trials TrialRunner, journal RunJournal, logger *slog.Logger) *Harness {
	return &Harness{
		cfg:     cfg,
		mounts:  mounts,
		network: network,
		results: results,
		trials:  trials,
		journal: journal,
		logger:  logger,
	}
}

type RunOptions struct {
	TargetBinary     string
	ResultDir        string
	TrialCount       int
	ProvisionMounts  bool
	ProvisionNetwork bool
}

// Run executes one full benchmark. Setup failures abort before any trial
// runs; failed trials are tolerated and reflected in the summary, not in
// the returned error.
func (h *Harness) Run(ctx context.Context, opts RunOptions) (trial.Summary, error) {
	var sum trial.Summary

	if opts.ProvisionMounts {
		if err := h.mounts.Provision(ctx, h.cfg.Mounts.BaseDir, h.cfg.Mounts.Count); err != nil {
			return sum, fmt.Errorf("provision mounts: %w", err)
		}
	}
	if opts.ProvisionNetwork {
		if err := h.network.Provision(ctx, h.cfg.Network.TapCount); err != nil {
			return sum, fmt.Errorf("provision network: %w", err)
		}
	}

	if err := h.results.Prepare(opts.ResultDir); err != nil {
		return sum, fmt.Errorf("prepare result dir: %w", err)
	}
	environment, err := h.results.RecordEnvironment(ctx, opts.ResultDir)
	if err != nil {
		return sum, fmt.Errorf("record environment: %w", err)
	}
	h.logger.Info("environment recorded", "label", environment)

	runID := uuid.NewString()
	if h.journal != nil {
		if err := h.journal.StartRun(runID, environment, opts.TrialCount); err != nil {
			h.logger.Warn("journal start run", "error", err)
		}
	}

	sum, err = h.trials.RunTrials(ctx, trial.Options{
		RunID:        runID,
		TargetBinary: opts.TargetBinary,
		TrialCount:   opts.TrialCount,
		ScratchDir:   h.cfg.Target.ChrootBaseDir,
		ResultDir:    opts.ResultDir,
		FixedArgs:    h.cfg.Target.FixedArgs(),
	})

	if h.journal != nil {
		if jerr := h.journal.FinishRun(runID, sum.Completed, sum.Failed); jerr != nil {
			h.logger.Warn("journal finish run", "error", jerr)
		}
	}
	if err != nil {
		return sum, err
	}

	h.logger.Info("benchmark complete",
		"run_id", runID,
		"completed", sum.Completed,
		"failed", sum.Failed,
		"total", opts.TrialCount,
		"elapsed", units.HumanDuration(sum.Elapsed),
	)
	return sum, nil
}
