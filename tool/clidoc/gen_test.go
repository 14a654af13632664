package main

import (
	"strings"
	"testing"

	"arxivdl/pkg/cli"
)

func TestGenerateReference(t *testing.T) {
	e, err := cli.NewEngine(cli.DefaultDSL)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	doc, err := generate(e)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	out := string(doc)

	for _, want := range []string{
		"## fetch",
		"This is the default command",
		"arxivdl fetch [flags] <ids>...",
		"`--dl_dir`, `--dl-dir`",
		"`--jobs`, `-j`",
		"## disk clean",
		"arxivdl info <id>",
		"## Topic: ids",
		"| `--verbose`, `-v` | bool |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("reference lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "## help") {
		t.Error("help should not be documented as a command")
	}
	if strings.Index(out, "## disk clean") > strings.Index(out, "## fetch") {
		t.Error("commands should be sorted by path")
	}
}
