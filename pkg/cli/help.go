package cli

import (
	"fmt"
	"strings"
)

func (e *Engine) PrintHelp(args ...string) {
	t := e.Theme
	out := e.Out
	if len(args) > 0 {
		subject := args[0]
		// Try topic
		for _, topic := range e.Topics {
			if topic.Name == subject || strings.HasPrefix(topic.Name, subject) {
				e.PrintTopicHelp(topic)
				return
			}
		}
		// Find command in hierarchy
		curr := e.Commands
		var found *Command
		for _, arg := range args {
			var match *Command
			for _, c := range curr {
				if c.Name == arg || strings.HasPrefix(c.Name, arg) {
					match = c
					break
				}
			}
			if match == nil {
				break
			}
			found = match
			curr = match.Subs
		}
		if found != nil {
			e.PrintCommandHelp(found)
			return
		}
	}
	fmt.Fprintf(out, "%s\n", t.Styled(t.Cyan.Bold(true), "arxivdl - arXiv e-print source fetcher"))
	fmt.Fprintf(out, "\n%s\n", t.Styled(t.Bold, "Usage:"))
	fmt.Fprintf(out, "  arxivdl %s\n", t.Styled(t.Yellow, "[flags] [command] <args>"))
	if def := e.defaultCommand(); def != nil {
		fmt.Fprintf(out, "  %s\n", t.Styled(t.Dim, "Without a command, arguments go to '"+def.Name+"'."))
	}
	fmt.Fprintf(out, "\n%s\n", t.Styled(t.Bold, "Global Flags:"))
	fmt.Fprintf(out, "  %-12s %s\n", t.Styled(t.Cyan, "--help, -h"), t.Styled(t.Dim, "Show help [command | topic]"))
	for _, f := range e.GlobalFlags {
		fmt.Fprintf(out, "  %-12s %s\n", t.Styled(t.Cyan, flagLabel(f)), t.Styled(t.Dim, f.Desc))
	}
	// Categorize commands
	categories := []struct {
		icon string
		cmds []string
	}{
		{t.IconFetch, []string{"fetch", "validate"}},
		{t.IconLookup, []string{"info"}},
		{t.IconHistory, []string{"history"}},
		{t.IconDisk, []string{"disk"}},
	}
	shown := make(map[string]bool)
	fmt.Fprintln(out)
	for _, cat := range categories {
		for _, name := range cat.cmds {
			for _, c := range e.Commands {
				if c.Name == name {
					e.printCommandTree(c, "", true, cat.icon)
					shown[c.Name] = true
				}
			}
		}
	}
	fmt.Fprintln(out)
	// Show remaining commands under MISC
	var misc []*Command
	for _, c := range e.Commands {
		if !shown[c.Name] && c.Name != "help" {
			misc = append(misc, c)
		}
	}
	if len(misc) > 0 {
		fmt.Fprintf(out, "%s %s\n", t.Bullet, t.Styled(t.Bold, "MISC"))
		for i, c := range misc {
			e.printCommandTree(c, "", i == len(misc)-1, "")
		}
		fmt.Fprintln(out)
	}
	if len(e.Topics) > 0 {
		fmt.Fprintf(out, "%s %s\n", t.IconHelp, t.Styled(t.Bold, "Topics:"))
		for _, topic := range e.Topics {
			name := t.Styled(t.Cyan, topic.Name)
			padding := e.getPadding(topic.Name, 20)
			fmt.Fprintf(out, "  %s %s %s\n", name, padding, t.Styled(t.Dim, topic.Desc))
		}
	}
	fmt.Fprintf(out, "\nType '%s' for more details.\n", t.Styled(t.Yellow, "arxivdl help <command>"))
}

func flagLabel(f *Flag) string {
	label := "--" + f.Name
	for _, a := range f.Aliases {
		label += ", --" + a
	}
	if f.Short != "" {
		label += ", -" + f.Short
	}
	if f.Type != TypeBool {
		label += " <" + f.Type + ">"
	}
	return label
}

func (e *Engine) getPadding(name string, target int) string {
	t := e.Theme
	dots := max(target-len(name), 2)
	return t.Styled(t.Dim, strings.Repeat(".", dots))
}

func (e *Engine) printCommandTree(c *Command, indent string, isLast bool, icon string) {
	t := e.Theme
	prefix := t.BoxTree
	if isLast {
		prefix = t.BoxLast
	}
	namePart := indent + prefix + " "
	if icon != "" {
		namePart += icon + " "
	}
	namePart += t.Styled(t.Cyan, c.Name)
	// Padding is computed on the visual length, not the styled string.
	visualLen := len(indent) + 4
	if icon != "" {
		visualLen += 3
	}
	visualLen += len(c.Name)
	padding := e.getPadding(strings.Repeat(" ", visualLen), 30)
	fmt.Fprintf(e.Out, "%s %s %s\n", namePart, padding, t.Styled(t.Dim, c.Desc))
	newIndent := indent
	if isLast {
		newIndent += "    "
	} else {
		newIndent += t.BoxItem + " "
	}
	for i, s := range c.Subs {
		e.printCommandTree(s, newIndent, i == len(c.Subs)-1, "")
	}
}

func (e *Engine) PrintCommandHelp(c *Command) {
	t := e.Theme
	out := e.Out
	fmt.Fprintf(out, "\n%s %s\n", t.Styled(t.Bold, "Command:"), t.Styled(t.Cyan, strings.ReplaceAll(getCmdPath(c), "/", " ")))
	fmt.Fprintf(out, "%s %s\n", t.Styled(t.Bold, "Description:"), t.Styled(t.Dim, c.Desc))
	if c.Default {
		fmt.Fprintf(out, "%s\n", t.Styled(t.Dim, "This is the default command; its name may be omitted."))
	}
	fmt.Fprintln(out)
	if len(c.Subs) > 0 {
		fmt.Fprintf(out, "%s\n", t.Styled(t.Bold, "Subcommands:"))
		for i, s := range c.Subs {
			prefix := t.BoxTree
			if i == len(c.Subs)-1 {
				prefix = t.BoxLast
			}
			fmt.Fprintf(out, "  %s %-12s %s\n", prefix, t.Styled(t.Cyan, s.Name), t.Styled(t.Dim, s.Desc))
		}
		fmt.Fprintln(out)
	}
	if len(c.Args) > 0 {
		fmt.Fprintf(out, "%s\n", t.Styled(t.Bold, "Arguments:"))
		for _, a := range c.Args {
			label := "<" + a.Name + ">"
			if a.Type == TypeStrings {
				label += "..."
			}
			fmt.Fprintf(out, "  %-15s %s\n", t.Styled(t.Yellow, label), t.Styled(t.Dim, a.Desc))
		}
		fmt.Fprintln(out)
	}
	if len(c.Flags) > 0 {
		fmt.Fprintf(out, "%s\n", t.Styled(t.Bold, "Flags:"))
		for _, f := range c.Flags {
			fmt.Fprintf(out, "  %-30s %s\n", t.Styled(t.Cyan, flagLabel(f)), t.Styled(t.Dim, f.Desc))
		}
		fmt.Fprintln(out)
	}
	if len(c.Examples) > 0 {
		fmt.Fprintf(out, "%s\n", t.Styled(t.Bold, "Examples:"))
		for _, ex := range c.Examples {
			fmt.Fprintf(out, "  %s %s\n", t.Styled(t.Green, "$"), ex)
		}
		fmt.Fprintln(out)
	}
}

func (e *Engine) PrintTopicHelp(topic *Topic) {
	t := e.Theme
	fmt.Fprintf(e.Out, "\n%s %s\n", t.Styled(t.Bold, "Topic:"), t.Styled(t.Cyan, topic.Name))
	fmt.Fprintf(e.Out, "%s %s\n", t.Styled(t.Bold, "Description:"), t.Styled(t.Dim, topic.Desc))
	fmt.Fprintln(e.Out)
	fmt.Fprintf(e.Out, "%s\n\n", topic.Text)
}
