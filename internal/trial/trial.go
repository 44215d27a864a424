// Package trial drives the measurement loop: it invokes the target binary
// under a syscall tracer once per trial and writes each tracer report to
// an indexed file in the result directory.
package trial

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/p-arndt/pruefstand/internal/hostexec"
)

// Recorder receives per-trial outcomes. Implemented by the run journal;
// a nil Recorder disables recording.
type Recorder interface {
	RecordTrial(runID string, index int, ok bool, duration time.Duration, artifact string, errMsg string) error
}

type Options struct {
	RunID        string
	TargetBinary string
	TrialCount   int
	ScratchDir   string
	ResultDir    string
	FixedArgs    []string
}

type Summary struct {
	Completed int
	Failed    int
	Elapsed   time.Duration
}

type Runner struct {
	runner   hostexec.Runner
	tracer   string
	recorder Recorder
	logger   *slog.Logger
}

func NewRunner(runner hostexec.Runner, tracer string, recorder Recorder, logger *slog.Logger) *Runner {
	return &Runner{runner: runner, tracer: tracer, recorder: recorder, logger: logger}
}

// RunTrials executes trials 1..TrialCount sequentially. Invocations never
// overlap: the tracer's aggregate statistics would interleave across
// processes otherwise. A failed trial is logged and skipped so the run
// collects as many samples as it can; a scratch or result directory that
// cannot be written is fatal.
func (r *Runner) RunTrials(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()
	var sum Summary

	for i := 1; i <= opts.TrialCount; i++ {
		if err := resetScratch(opts.ScratchDir); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("reset scratch dir before trial %d: %w", i, err)
		}

		trialStart := time.Now()
		args := append([]string{"-f", "-c", "--", opts.TargetBinary}, opts.FixedArgs...)
		out, err := r.runner.Run(ctx, r.tracer, args...)
		elapsed := time.Since(trialStart)

		if err != nil {
			r.logger.Warn("trial failed", "trial", i, "error", err)
			sum.Failed++
			r.record(opts.RunID, i, false, elapsed, "", err.Error())
			continue
		}

		artifact := filepath.Join(opts.ResultDir, strconv.Itoa(i))
		if err := os.WriteFile(artifact, out, 0o644); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("write report for trial %d: %w", i, err)
		}

		sum.Completed++
		r.record(opts.RunID, i, true, elapsed, artifact, "")
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

func (r *Runner) record(runID string, index int, ok bool, d time.Duration, artifact, errMsg string) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordTrial(runID, index, ok, d, artifact, errMsg); err != nil {
		r.logger.Warn("record trial outcome", "trial", index, "error", err)
	}
}

// resetScratch guarantees no state carries over between trials: the
// target binary rebuilds its chroot tree under a freshly created dir.
func resetScratch(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
