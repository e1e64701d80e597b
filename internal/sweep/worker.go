package sweep

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// AutoApproveArgs is the periodic sweep job. It carries no payload; the sweep
// always scans for every overdue submission.
type AutoApproveArgs struct{}

func (AutoApproveArgs) Kind() string { return "auto_approve_sweep" }

// SubmissionSweeper approves every submission past its review window.
type SubmissionSweeper interface {
	AutoApproveDue(ctx context.Context) (int, error)
}

type AutoApproveWorker struct {
	river.WorkerDefaults[AutoApproveArgs]
	subs SubmissionSweeper
	log  *slog.Logger
}

func NewAutoApproveWorker(subs SubmissionSweeper, log *slog.Logger) *AutoApproveWorker {
	if log == nil {
		log = slog.Default()
	}
	return &AutoApproveWorker{subs: subs, log: log}
}

func (w *AutoApproveWorker) Work(ctx context.Context, job *river.Job[AutoApproveArgs]) error {
	n, err := w.subs.AutoApproveDue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info("auto-approve sweep completed", "approved", n)
	}
	return nil
}
