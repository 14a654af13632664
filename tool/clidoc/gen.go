package main

import (
	"bytes"
	_ "embed"
	"sort"
	"strings"
	"text/template"

	"arxivdl/pkg/cli"
)

type genData struct {
	GlobalFlags []*cli.Flag
	Leafs       []*cli.Command
	Topics      []*cli.Topic
}

func generate(e *cli.Engine) ([]byte, error) {
	var leafs []*cli.Command
	walkCommands(e.Commands, func(c *cli.Command) {
		if len(c.Subs) == 0 && c.Name != "help" {
			leafs = append(leafs, c)
		}
	})
	sort.SliceStable(leafs, func(i, j int) bool { return cmdPath(leafs[i]) < cmdPath(leafs[j]) })

	funcs := template.FuncMap{
		"cmdPath": cmdPath,
		"flagLabel": func(f *cli.Flag) string {
			label := "`--" + f.Name + "`"
			for _, a := range f.Aliases {
				label += ", `--" + a + "`"
			}
			if f.Short != "" {
				label += ", `-" + f.Short + "`"
			}
			return label
		},
		"argLabel": func(a *cli.Arg) string {
			if a.Type == cli.TypeStrings {
				return "<" + a.Name + ">..."
			}
			return "<" + a.Name + ">"
		},
		"usage": usage,
	}

	tmpl, err := template.New("doc").Funcs(funcs).Parse(referenceTemplate)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, genData{GlobalFlags: e.GlobalFlags, Leafs: leafs, Topics: e.Topics}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func walkCommands(cmds []*cli.Command, fn func(*cli.Command)) {
	for _, c := range cmds {
		fn(c)
		walkCommands(c.Subs, fn)
	}
}

func cmdPath(c *cli.Command) string {
	if c.Parent == nil {
		return c.Name
	}
	return cmdPath(c.Parent) + " " + c.Name
}

func usage(c *cli.Command) string {
	parts := []string{"arxivdl", cmdPath(c)}
	if len(c.Flags) > 0 {
		parts = append(parts, "[flags]")
	}
	for _, a := range c.Args {
		if a.Type == cli.TypeStrings {
			parts = append(parts, "<"+a.Name+">...")
		} else {
			parts = append(parts, "<"+a.Name+">")
		}
	}
	return strings.Join(parts, " ")
}

//go:embed reference.tmpl
var referenceTemplate string
