package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"arxivdl/pkg/arxivid"
	"arxivdl/pkg/batch"
	"arxivdl/pkg/common"
	"arxivdl/pkg/config"
	"arxivdl/pkg/disk"
	"arxivdl/pkg/display"
	"arxivdl/pkg/downloader"
	"arxivdl/pkg/ledger"
	"arxivdl/pkg/meta"

	"github.com/dustin/go-humanize"
)

// Managers holds the shared services handed to every handler.
type Managers struct {
	Cfg    config.ReadOnly
	Disp   display.Display
	Client *http.Client
	Ledger *ledger.Ledger
}

// RegisterHandlers binds every command in cli.def to its implementation.
func RegisterHandlers(e *Engine, m *Managers) {
	e.Register("fetch", HandlerFunc(m.fetch))
	e.Register("validate", HandlerFunc(m.validate))
	e.Register("info", HandlerFunc(m.info))
	e.Register("history", HandlerFunc(m.history))
	e.Register("disk/info", HandlerFunc(func(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
		return m.disk().Info()
	}))
	e.Register("disk/clean", HandlerFunc(func(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
		return m.disk().CleanDir()
	}))
	e.Register("version", HandlerFunc(func(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
		return common.Success(&common.Output{Message: config.GetBuildInfo()}), nil
	}))
}

func (m *Managers) disk() disk.Manager {
	return disk.NewManager(m.Cfg.GetDownloadDir(), m.Cfg.GetExtractDir())
}

// fetchParams are the resolved settings of one fetch invocation. Flags
// override the config.
type fetchParams struct {
	IDs        []string
	DlDir      string
	ExtractDir string
	Jobs       int
	Force      bool
	NoExtract  bool
}

func (m *Managers) bindFetch(inv *Invocation) (*fetchParams, error) {
	p := &fetchParams{
		IDs:        inv.Lists["ids"],
		DlDir:      m.Cfg.GetDownloadDir(),
		ExtractDir: m.Cfg.GetExtractDir(),
		Jobs:       m.Cfg.GetJobs(),
		Force:      inv.Bool("force"),
		NoExtract:  inv.Bool("no-extract"),
	}
	if v := inv.String("dl_dir"); v != "" {
		p.DlDir = v
	}
	if v := inv.String("extract_dir"); v != "" {
		p.ExtractDir = v
	}
	if _, set := inv.Flags["jobs"]; set {
		p.Jobs = inv.Int("jobs")
		if p.Jobs < 1 {
			return nil, fmt.Errorf("--jobs must be at least 1, got %d", p.Jobs)
		}
	}
	return p, nil
}

func (m *Managers) fetch(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	p, err := m.bindFetch(inv)
	if err != nil {
		return nil, err
	}

	runner := batch.NewRunner(downloader.New(m.Client), m.Disp, m.Ledger, batch.Options{
		Host:        m.Cfg.GetHost(),
		DownloadDir: p.DlDir,
		ExtractDir:  p.ExtractDir,
		Jobs:        p.Jobs,
		Force:       p.Force,
		Extract:     !p.NoExtract,
	})
	report := runner.Run(ctx, p.IDs)

	res := &ExecutionResult{ExitCode: report.ExitCode()}
	if len(report.Outcomes) > 1 {
		res.Output = report.Output()
	}
	return res, nil
}

func (m *Managers) validate(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	table := &common.Table{Header: []string{"Input", "Valid", "Identifier", "Version", "Source"}}
	invalid := 0
	for _, input := range inv.Lists["ids"] {
		id, err := arxivid.Parse(input)
		if err != nil {
			invalid++
			table.AddRow(input, "no", "-", "-", "-")
			continue
		}
		table.AddRow(input, "yes", id, versionLabel(id), arxivid.SourceURL(m.Cfg.GetHost(), id))
	}

	res := common.Success(&common.Output{Table: table})
	if invalid > 0 {
		res.ExitCode = 1
		res.Output.Footer = fmt.Sprintf("%d of %d invalid", invalid, len(table.Rows))
	}
	return res, nil
}

// versionLabel names the version an identifier pins; unversioned ids get
// whatever arXiv serves as the latest.
func versionLabel(id string) string {
	if v := arxivid.Version(id); v != "" {
		return v
	}
	return "latest"
}

func (m *Managers) info(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	paper, err := meta.NewClient(m.Client, m.Cfg.GetHost()).Lookup(ctx, inv.Args["id"])
	if err != nil {
		return nil, err
	}

	out := &common.Output{
		Message: paper.Title,
		KV: []common.KV{
			{Key: "ID", Value: paper.ID},
			{Key: "Version", Value: versionLabel(paper.ID)},
			{Key: "Authors", Value: strings.Join(paper.Authors, "; ")},
			{Key: "Date", Value: paper.Date},
			{Key: "Abstract page", Value: paper.PageURL},
			{Key: "Source", Value: arxivid.SourceURL(m.Cfg.GetHost(), paper.ID)},
		},
		Footer: paper.Abstract,
	}
	if paper.PDFURL != "" {
		out.KV = append(out.KV, common.KV{Key: "PDF", Value: paper.PDFURL})
	}
	if m.Ledger != nil {
		if e, ok, err := m.Ledger.Get(paper.ID); err == nil && ok {
			out.KV = append(out.KV, common.KV{
				Key:   "Local",
				Value: fmt.Sprintf("%s %s", e.Status, humanize.Time(e.Updated)),
			})
		}
	}
	return common.Success(out), nil
}

func (m *Managers) history(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	if m.Ledger == nil {
		return nil, fmt.Errorf("history is not available")
	}

	if expr := inv.String("query"); expr != "" {
		results, err := m.Ledger.Query(ctx, expr)
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		for _, r := range results {
			b, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return nil, err
			}
			sb.Write(b)
			sb.WriteByte('\n')
		}
		return common.Success(&common.Output{Message: strings.TrimSuffix(sb.String(), "\n")}), nil
	}

	entries, err := m.Ledger.Entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return common.Success(&common.Output{Message: "No fetches recorded yet."}), nil
	}

	table := &common.Table{Header: []string{"ID", "Status", "Size", "Updated", "Path"}}
	for _, e := range entries {
		path := e.Extracted
		if path == "" {
			path = e.Archive
		}
		if e.Error != "" {
			path = e.Error
		}
		table.AddRow(e.ID, e.Status, humanize.Bytes(uint64(e.Bytes)), humanize.Time(e.Updated), path)
	}
	return common.Success(&common.Output{
		Table:  table,
		Footer: fmt.Sprintf("%d entries in %s", len(entries), m.Ledger.Path()),
	}), nil
}
