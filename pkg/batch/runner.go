package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"arxivdl/pkg/archive"
	"arxivdl/pkg/arxivid"
	"arxivdl/pkg/display"
	"arxivdl/pkg/downloader"
	"arxivdl/pkg/ledger"
	"arxivdl/pkg/lock"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options controls a run.
type Options struct {
	Host        string
	DownloadDir string
	ExtractDir  string
	// Jobs is the number of identifiers processed at once. Values below 2
	// mean sequential.
	Jobs int
	// Force deletes an existing archive before fetching it again.
	Force bool
	// Extract unpacks each archive after a successful fetch.
	Extract bool
}

// Runner executes the pipeline. It never stops early: every input gets
// an Outcome.
// Immutable
type Runner struct {
	dl     downloader.Downloader
	disp   display.Display
	ledger *ledger.Ledger
	opts   Options
}

// NewRunner creates a Runner. led may be nil to skip recording.
func NewRunner(dl downloader.Downloader, disp display.Display, led *ledger.Ledger, opts Options) *Runner {
	return &Runner{dl: dl, disp: disp, ledger: led, opts: opts}
}

// Run processes inputs and returns the report. Inputs may be bare
// identifiers or arXiv URLs. Repeated identifiers are processed once.
func (r *Runner) Run(ctx context.Context, inputs []string) *Report {
	report := &Report{Run: uuid.NewString()}
	slog.Debug("Starting run", "run", report.Run, "inputs", len(inputs), "jobs", r.opts.Jobs)

	seen := make(map[string]bool)
	var pending []*Outcome
	for _, input := range inputs {
		id, err := arxivid.Parse(input)
		if err != nil {
			r.disp.Log(fmt.Sprintf("Isn't a valid arxiv id: %s", input))
			report.Outcomes = append(report.Outcomes, &Outcome{Input: input, Status: StatusInvalid, Err: err})
			continue
		}
		if seen[id] {
			slog.Debug("Skipping repeated identifier", "id", id, "input", input)
			continue
		}
		seen[id] = true

		o := &Outcome{
			Input: input,
			ID:    id,
			Plan:  NewPlan(r.opts.Host, r.opts.DownloadDir, r.opts.ExtractDir, id),
		}
		report.Outcomes = append(report.Outcomes, o)
		pending = append(pending, o)
	}

	// Failures are recorded per outcome; the group never cancels siblings.
	var g errgroup.Group
	g.SetLimit(max(r.opts.Jobs, 1))
	for _, o := range pending {
		g.Go(func() error {
			r.process(ctx, report.Run, o)
			return nil
		})
	}
	g.Wait()

	for _, o := range report.Outcomes {
		if o.Failed() {
			report.Failures++
		}
	}
	return report
}

func (r *Runner) process(ctx context.Context, run string, o *Outcome) {
	plan := o.Plan
	task := r.disp.StartTask(o.ID)

	err := r.fetchAndExtract(ctx, o, task)
	if err != nil {
		o.Status, o.Err = StatusFailed, err
		task.Fail(err)
		slog.Debug("Identifier failed", "id", o.ID, "error", err)
	} else {
		switch o.Status {
		case StatusExtracted:
			task.Done(fmt.Sprintf("Downloaded file extracted to %s", plan.ExtractPath))
		case StatusCached:
			task.Done(fmt.Sprintf("File '%s' is already downloaded", plan.DownloadPath))
		default:
			task.Done(fmt.Sprintf("Downloaded %s to %s", plan.URL, plan.DownloadPath))
		}
	}

	r.record(ctx, run, o)
}

// fetchAndExtract holds the archive lock for the whole pipeline so that a
// concurrent process never extracts a half-written archive.
func (r *Runner) fetchAndExtract(ctx context.Context, o *Outcome, task display.Task) error {
	plan := o.Plan

	unlock, err := lock.Acquire(ctx, plan.DownloadPath)
	if err != nil {
		return err
	}
	defer unlock()

	if r.opts.Force {
		if err := os.Remove(plan.DownloadPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", plan.DownloadPath, err)
		}
	}

	res, err := r.dl.Fetch(ctx, plan.URL, plan.DownloadPath, task)
	if err != nil {
		return err
	}
	o.Result = res
	o.Status = StatusDownloaded
	if res.Skipped {
		o.Status = StatusCached
	} else if r.opts.Extract {
		task.Log(fmt.Sprintf("Downloaded %s to %s", plan.URL, plan.DownloadPath))
	}

	if !r.opts.Extract {
		return nil
	}
	if err := ExtractStage(ctx, plan, task); err != nil {
		return err
	}
	o.Status = StatusExtracted
	return nil
}

// ExtractStage unpacks the archive into a temporary directory next to the
// destination and renames it into place, replacing any previous tree.
func ExtractStage(ctx context.Context, plan *Plan, task display.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	task.SetStage("Extract", plan.ExtractPath)
	slog.Debug("Extracting archive", "src", plan.DownloadPath, "dest", plan.ExtractPath)

	tmpDir := plan.ExtractPath + ".tmp"
	if err := os.RemoveAll(tmpDir); err != nil {
		return err
	}
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	if err := archive.Extract(plan.DownloadPath, tmpDir); err != nil {
		return fmt.Errorf("extract stage failed: %w", err)
	}

	if err := os.RemoveAll(plan.ExtractPath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", plan.ExtractPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(plan.ExtractPath), 0755); err != nil {
		return err
	}
	return os.Rename(tmpDir, plan.ExtractPath)
}

func (r *Runner) record(ctx context.Context, run string, o *Outcome) {
	if r.ledger == nil {
		return
	}
	e := ledger.Entry{
		ID:      o.ID,
		URL:     o.Plan.URL,
		Archive: o.Plan.DownloadPath,
		Status:  string(o.Status),
		Run:     run,
	}
	if o.Status == StatusExtracted {
		e.Extracted = o.Plan.ExtractPath
	}
	if o.Result != nil {
		e.Bytes = max(o.Result.Total, o.Result.Written)
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	// Recording must not be cancelled along with the work it describes.
	if err := r.ledger.Record(context.WithoutCancel(ctx), e); err != nil {
		slog.Warn("Failed to update history", "id", o.ID, "error", err)
	}
}
