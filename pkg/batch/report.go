package batch

import (
	"fmt"

	"arxivdl/pkg/common"
	"arxivdl/pkg/downloader"

	"github.com/dustin/go-humanize"
)

// Status is the final state of one input.
type Status string

const (
	StatusInvalid    Status = "invalid"
	StatusFailed     Status = "failed"
	StatusDownloaded Status = "downloaded"
	StatusCached     Status = "cached"
	StatusExtracted  Status = "extracted"
)

// Outcome is what happened to one input.
type Outcome struct {
	Input  string
	ID     string
	Plan   *Plan
	Status Status
	Result *downloader.Result
	Err    error
}

// Failed reports whether the outcome counts against the exit status.
func (o *Outcome) Failed() bool {
	return o.Status == StatusInvalid || o.Status == StatusFailed
}

// Report collects the outcomes of one run in input order.
type Report struct {
	Run      string
	Outcomes []*Outcome
	Failures int
}

// ExitCode is 1 when any input was invalid or failed.
func (r *Report) ExitCode() int {
	if r.Failures > 0 {
		return 1
	}
	return 0
}

// Output summarises the run as a table.
func (r *Report) Output() *common.Output {
	table := &common.Table{Header: []string{"Input", "Status", "Size", "Path"}}
	for _, o := range r.Outcomes {
		size, path := "-", "-"
		if o.Result != nil && o.Result.Total > 0 {
			size = humanize.Bytes(uint64(o.Result.Total))
		} else if o.Result != nil && o.Result.Written > 0 {
			size = humanize.Bytes(uint64(o.Result.Written))
		}
		switch o.Status {
		case StatusExtracted:
			path = o.Plan.ExtractPath
		case StatusDownloaded, StatusCached:
			path = o.Plan.DownloadPath
		case StatusFailed:
			if o.Err != nil {
				path = o.Err.Error()
			}
		}
		table.AddRow(o.Input, string(o.Status), size, path)
	}
	return &common.Output{
		Table:  table,
		Footer: fmt.Sprintf("%d of %d succeeded", len(r.Outcomes)-r.Failures, len(r.Outcomes)),
	}
}
