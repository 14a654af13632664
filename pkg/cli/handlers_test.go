package cli

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"arxivdl/pkg/config"
	"arxivdl/pkg/display"
	"arxivdl/pkg/ledger"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func tarball(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	tw.Write([]byte(content))
	tw.Close()
	return buf.Bytes()
}

type harness struct {
	root   string
	out    *lockedBuffer
	engine *Engine
	cfg    config.ReadOnly
}

// newHarness wires the default engine to a TLS server that serves e-prints
// and abstract pages.
func newHarness(t *testing.T, archives map[string][]byte, pages map[string]string) *harness {
	t.Helper()
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := strings.CutPrefix(r.URL.Path, "/e-print/"); ok {
			body, found := archives[id]
			if !found {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
			if r.Method != http.MethodHead {
				w.Write(body)
			}
			return
		}
		if id, ok := strings.CutPrefix(r.URL.Path, "/abs/"); ok {
			if page, found := pages[id]; found {
				w.Write([]byte(page))
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(ts.Close)

	root := t.TempDir()
	cfg := config.Init()
	w := cfg.Checkout()
	w.SetHost(ts.Listener.Addr().String())
	w.SetDownloadDir(filepath.Join(root, "dl"))
	w.SetExtractDir(filepath.Join(root, "extracted"))
	w.SetStateDir(filepath.Join(root, "state"))
	cfg.Freeze()

	h := &harness{root: root, out: &lockedBuffer{}, cfg: cfg}
	h.engine = defaultEngine(t)
	RegisterHandlers(h.engine, &Managers{
		Cfg:    cfg,
		Disp:   display.NewWriterDisplay(h.out, display.WithLive(false)),
		Client: ts.Client(),
		Ledger: ledger.Open(cfg.GetLedgerPath()),
	})
	return h
}

func (h *harness) run(t *testing.T, args ...string) *ExecutionResult {
	t.Helper()
	res, err := h.engine.Run(context.Background(), args)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return res
}

func TestFetchCommand(t *testing.T) {
	h := newHarness(t, map[string][]byte{
		"0704.0001": tarball(t, "main.tex", "\\begin{document}"),
	}, nil)

	res := h.run(t, "0704.0001", "not-an-id")
	if res.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1 for an invalid id", res.ExitCode)
	}
	if res.Output == nil || res.Output.Table == nil || len(res.Output.Table.Rows) != 2 {
		t.Fatalf("expected a two row report, got %+v", res.Output)
	}

	data, err := os.ReadFile(filepath.Join(h.root, "extracted", "0704.0001", "main.tex"))
	if err != nil || string(data) != "\\begin{document}" {
		t.Errorf("extracted file = %q, %v", data, err)
	}
	if !strings.Contains(h.out.String(), "Isn't a valid arxiv id: not-an-id") {
		t.Errorf("output:\n%s", h.out)
	}
}

func TestFetchCommandFlags(t *testing.T) {
	h := newHarness(t, map[string][]byte{
		"math/0211159": tarball(t, "paper.tex", "x"),
	}, nil)
	dl := filepath.Join(h.root, "elsewhere")

	res := h.run(t, "fetch", "--dl-dir="+dl, "--no-extract", "-j", "2", "math/0211159")
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d\n%s", res.ExitCode, h.out)
	}
	if res.Output != nil {
		t.Errorf("single identifier should not print a report: %+v", res.Output)
	}
	if _, err := os.Stat(filepath.Join(dl, "math", "0211159")); err != nil {
		t.Errorf("archive not in flag directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.root, "extracted")); !os.IsNotExist(err) {
		t.Errorf("--no-extract still extracted: %v", err)
	}

	if _, err := h.engine.Run(context.Background(), []string{"fetch", "-j", "0", "math/0211159"}); err == nil {
		t.Error("expected --jobs 0 to be rejected")
	}
}

func TestValidateCommand(t *testing.T) {
	h := newHarness(t, nil, nil)

	res := h.run(t, "validate", "0704.0001", "https://arxiv.org/abs/hep-th/9901001v1")
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
	rows := res.Output.Table.Rows
	if rows[1][2] != "hep-th/9901001v1" || rows[1][3] != "v1" {
		t.Errorf("row = %v", rows[1])
	}
	if rows[0][3] != "latest" {
		t.Errorf("unversioned id should show latest: %v", rows[0])
	}
	if !strings.HasSuffix(rows[0][4], "/e-print/0704.0001") {
		t.Errorf("source url = %q", rows[0][4])
	}

	res = h.run(t, "validate", "0704.0001", "1234")
	if res.ExitCode != 1 || res.Output.Footer != "1 of 2 invalid" {
		t.Errorf("exit code = %d, footer = %q", res.ExitCode, res.Output.Footer)
	}
}

func TestHistoryCommand(t *testing.T) {
	h := newHarness(t, map[string][]byte{
		"0704.0001": tarball(t, "a.tex", "a"),
	}, nil)

	res := h.run(t, "history")
	if res.Output.Message != "No fetches recorded yet." {
		t.Errorf("empty history = %+v", res.Output)
	}

	h.run(t, "0704.0001", "0704.0002")

	res = h.run(t, "history")
	if res.Output.Table == nil || len(res.Output.Table.Rows) != 2 {
		t.Fatalf("history = %+v", res.Output)
	}
	if res.Output.Table.Rows[0][1] != "extracted" || res.Output.Table.Rows[1][1] != "failed" {
		t.Errorf("rows = %v", res.Output.Table.Rows)
	}

	res = h.run(t, "history", "-q", `[.entries[] | select(.status == "failed") | .id]`)
	if !strings.Contains(res.Output.Message, `"0704.0002"`) || strings.Contains(res.Output.Message, `"0704.0001"`) {
		t.Errorf("query output = %q", res.Output.Message)
	}

	if _, err := h.engine.Run(context.Background(), []string{"history", "-q", ".entries["}); err == nil {
		t.Error("expected a bad query to fail")
	}
}

func TestInfoCommand(t *testing.T) {
	h := newHarness(t, nil, map[string]string{
		"0704.0001": `<html><head>
<meta name="citation_title" content="Prompt diphoton production" />
<meta name="citation_author" content="Berger, E. L." />
<meta name="citation_date" content="2007/04/02" />
<meta name="citation_abstract" content="Cross sections." />
</head></html>`,
	})

	res := h.run(t, "info", "0704.0001")
	if res.Output.Message != "Prompt diphoton production" || res.Output.Footer != "Cross sections." {
		t.Errorf("output = %+v", res.Output)
	}
	if res.Output.KV[1].Key != "Version" || res.Output.KV[1].Value != "latest" {
		t.Errorf("kv = %+v", res.Output.KV)
	}

	if _, err := h.engine.Run(context.Background(), []string{"info", "9912.99999"}); err == nil {
		t.Error("expected an unknown paper to fail")
	}
}

func TestDiskCommands(t *testing.T) {
	h := newHarness(t, map[string][]byte{
		"0704.0001": tarball(t, "a.tex", "abc"),
	}, nil)
	h.run(t, "0704.0001")

	res := h.run(t, "disk", "info")
	if res.Output.Table == nil || len(res.Output.Table.Rows) != 2 {
		t.Fatalf("disk info = %+v", res.Output)
	}

	res = h.run(t, "clean")
	if !strings.HasPrefix(res.Output.Message, "Clean complete") {
		t.Errorf("clean = %q", res.Output.Message)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.GetDownloadDir(), "0704.0001")); !os.IsNotExist(err) {
		t.Errorf("archive survived clean: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.GetExtractDir(), "0704.0001", "a.tex")); err != nil {
		t.Errorf("extracted tree removed: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t, nil, nil)
	res := h.run(t, "version")
	if !strings.HasPrefix(res.Output.Message, "arxivdl ") {
		t.Errorf("version = %q", res.Output.Message)
	}
}
