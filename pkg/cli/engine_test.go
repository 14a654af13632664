package cli

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
)

type mockHandler struct {
	err error
}

func (m *mockHandler) Execute(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	return nil, m.err
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultDSL)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	e.Out = &bytes.Buffer{}
	return e
}

func TestEngineErrorPropagation(t *testing.T) {
	dsl := `
cmd parent "Parent command"
cmd parent child "Child command"
    arg required string "Required argument"
`
	engine, err := NewEngine(dsl)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	engine.Register("parent/child", &mockHandler{err: fmt.Errorf("boom")})

	_, err = engine.Run(context.Background(), []string{"parent", "child"})
	if err == nil || !strings.Contains(err.Error(), "argument required is missing") {
		t.Fatalf("expected missing argument error, got %v", err)
	}

	_, err = engine.Run(context.Background(), []string{"parent", "child", "x"})
	if err == nil || err.Error() != "boom" {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestEngineUnknownSubcommand(t *testing.T) {
	dsl := `
cmd parent "Parent command"
cmd parent child "Child command"
`
	engine, err := NewEngine(dsl)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	_, err = engine.Run(context.Background(), []string{"parent", "unknown"})
	if err == nil || err.Error() != "unknown command: parent unknown" {
		t.Errorf("got %v", err)
	}
}

func TestParseDefaultCommand(t *testing.T) {
	e := defaultEngine(t)
	pr := e.Parse([]string{"0704.0001", "hep-th/9901001v1"})
	if pr.Error != nil || pr.Help {
		t.Fatalf("unexpected result: %+v", pr)
	}
	if pr.Invocation.Command.Name != "fetch" {
		t.Errorf("command = %s", pr.Invocation.Command.Name)
	}
	if got := pr.Invocation.Lists["ids"]; !slices.Equal(got, []string{"0704.0001", "hep-th/9901001v1"}) {
		t.Errorf("ids = %v", got)
	}
}

func TestParseFetchFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"underscore", []string{"fetch", "--dl_dir", "papers", "-j", "4", "1501.00001"}},
		{"alias", []string{"fetch", "--dl-dir", "papers", "--jobs", "4", "1501.00001"}},
		{"equals", []string{"--dl-dir=papers", "--jobs=4", "1501.00001"}},
		{"after ids", []string{"1501.00001", "--dl_dir", "papers", "-j", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := defaultEngine(t).Parse(tt.args)
			if pr.Error != nil {
				t.Fatalf("Parse failed: %v", pr.Error)
			}
			inv := pr.Invocation
			if inv.String("dl_dir") != "papers" {
				t.Errorf("dl_dir = %q", inv.String("dl_dir"))
			}
			if inv.Int("jobs") != 4 {
				t.Errorf("jobs = %d", inv.Int("jobs"))
			}
			if !slices.Equal(inv.Lists["ids"], []string{"1501.00001"}) {
				t.Errorf("ids = %v", inv.Lists["ids"])
			}
		})
	}
}

func TestParseBoolFlags(t *testing.T) {
	pr := defaultEngine(t).Parse([]string{"-v", "-f", "--no_extract", "0704.0001"})
	if pr.Error != nil {
		t.Fatalf("Parse failed: %v", pr.Error)
	}
	inv := pr.Invocation
	if !inv.Bool("verbose") || !inv.Bool("force") || !inv.Bool("no-extract") {
		t.Errorf("flags = %v, global = %v", inv.Flags, inv.Global)
	}

	pr = defaultEngine(t).Parse([]string{"--force=false", "0704.0001"})
	if pr.Error != nil || pr.Invocation.Bool("force") {
		t.Errorf("--force=false: %v %v", pr.Error, pr.Invocation.Flags)
	}
}

func TestParseDoubleDash(t *testing.T) {
	pr := defaultEngine(t).Parse([]string{"validate", "--", "-x", "0704.0001"})
	if pr.Error != nil {
		t.Fatalf("Parse failed: %v", pr.Error)
	}
	if got := pr.Invocation.Lists["ids"]; !slices.Equal(got, []string{"-x", "0704.0001"}) {
		t.Errorf("ids = %v", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad int", []string{"fetch", "-j", "many", "0704.0001"}, `"many" is not a number`},
		{"missing value", []string{"fetch", "0704.0001", "--dl_dir"}, "needs a value"},
		{"unknown flag", []string{"fetch", "--bogus", "0704.0001"}, "unknown flag for fetch: --bogus"},
		{"no ids", []string{"fetch"}, "argument ids is missing"},
		{"extra arg", []string{"info", "0704.0001", "0704.0002"}, "unexpected argument"},
		{"ambiguous", []string{"h"}, "ambiguous command"},
		{"bad bool", []string{"--force=maybe", "0704.0001"}, "invalid value for --force"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := defaultEngine(t).Parse(tt.args)
			if pr.Error == nil || !strings.Contains(pr.Error.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, pr.Error)
			}
		})
	}
}

func TestParsePrefixAndOmittedParent(t *testing.T) {
	tests := []struct {
		args []string
		path string
	}{
		{[]string{"val", "0704.0001"}, "validate"},
		{[]string{"disk", "info"}, "disk/info"},
		{[]string{"di", "cl"}, "disk/clean"},
		{[]string{"clean"}, "disk/clean"},
		{[]string{"vers"}, "version"},
	}
	for _, tt := range tests {
		pr := defaultEngine(t).Parse(tt.args)
		if pr.Error != nil {
			t.Errorf("%v: %v", tt.args, pr.Error)
			continue
		}
		if got := getCmdPath(pr.Invocation.Command); got != tt.path {
			t.Errorf("%v resolved to %s, want %s", tt.args, got, tt.path)
		}
	}
}

func TestParseHelp(t *testing.T) {
	tests := []struct {
		args []string
		help []string
	}{
		{nil, nil},
		{[]string{"--help"}, nil},
		{[]string{"help", "ids"}, []string{"ids"}},
		{[]string{"fetch", "--help"}, []string{"fetch"}},
		{[]string{"disk"}, []string{"disk"}},
		{[]string{"-h", "disk", "clean"}, []string{"disk", "clean"}},
	}
	for _, tt := range tests {
		pr := defaultEngine(t).Parse(tt.args)
		if pr.Error != nil || !pr.Help {
			t.Errorf("%v: expected help, got %+v", tt.args, pr)
			continue
		}
		if !slices.Equal(pr.HelpArgs, tt.help) {
			t.Errorf("%v: help args = %v, want %v", tt.args, pr.HelpArgs, tt.help)
		}
	}
}

func TestPrintHelp(t *testing.T) {
	e := defaultEngine(t)
	out := &bytes.Buffer{}
	e.Out = out

	e.PrintHelp()
	for _, want := range []string{"arxivdl", "fetch", "validate", "disk", "--verbose"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("main help lacks %q:\n%s", want, out)
		}
	}

	out.Reset()
	e.PrintHelp("fetch")
	for _, want := range []string{"--dl_dir", "dl-dir", "-j", "arxivdl 0704.0001"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("fetch help lacks %q:\n%s", want, out)
		}
	}

	out.Reset()
	e.PrintHelp("ids")
	if !strings.Contains(out.String(), "hep-th/9901001") {
		t.Errorf("topic help:\n%s", out)
	}
}

func TestDSLErrors(t *testing.T) {
	tests := []struct {
		name string
		dsl  string
		want string
	}{
		{"unknown keyword", `frobnicate`, "unknown keyword"},
		{"bad flag type", `cmd a "A"
flag x float "X"`, "expected flag type"},
		{"arg outside cmd", `arg x string "X"`, "'arg' must follow a 'cmd'"},
		{"alias outside flag", `cmd a "A"
alias b`, "'alias' must follow a 'flag'"},
		{"arg after variadic", `cmd a "A"
arg xs strings "Xs"
arg y string "Y"`, "variadic"},
		{"two defaults", `cmd a "A"
default
cmd b "B"
default`, "already the default"},
		{"nested default", `cmd a "A"
cmd a b "B"
default`, "top-level"},
		{"unterminated", `cmd a "A`, "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.dsl)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
