// Command clidoc renders a cli.def file as a Markdown command reference.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"arxivdl/pkg/cli"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: clidoc <path/to/cli.def> <out.md>")
		os.Exit(2)
	}
	inPath, outPath := os.Args[1], os.Args[2]
	inAbs, err := filepath.Abs(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "abs path for %s: %v\n", inPath, err)
		os.Exit(1)
	}
	fmt.Printf("Processing %s\n", inAbs)
	if filepath.Ext(inPath) != ".def" {
		fmt.Fprintf(os.Stderr, "input must be a .def file: %s\n", inPath)
		os.Exit(2)
	}
	if !strings.HasSuffix(outPath, ".md") {
		fmt.Fprintf(os.Stderr, "output must be a .md file: %s\n", outPath)
		os.Exit(2)
	}
	content, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", inPath, err)
		os.Exit(1)
	}
	engine, err := cli.NewEngine(string(content))
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", inPath, err)
		os.Exit(1)
	}

	doc, err := generate(engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Writing %s\n", outPath)
	if err := os.WriteFile(outPath, doc, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
}
