package cli

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed cli.def
var DefaultDSL string

// Mutable
type Engine struct {
	GlobalFlags []*Flag
	Commands    []*Command
	Topics      []*Topic
	Handlers    map[string]Handler
	Theme       *Theme
	// Out receives help text.
	Out io.Writer
}

func NewEngine(dsl string) (*Engine, error) {
	e := &Engine{
		Handlers: make(map[string]Handler),
		Theme:    DefaultTheme(),
		Out:      os.Stdout,
	}
	if err := e.parseDSL(dsl); err != nil {
		return nil, err
	}
	e.Commands = append(e.Commands, &Command{
		Name: "help",
		Desc: "Show help information",
	})
	return e, nil
}

// Register binds h to a command path such as "disk/clean".
func (e *Engine) Register(cmdPath string, h Handler) {
	e.Handlers[cmdPath] = h
}

func (e *Engine) parseDSL(dsl string) error {
	p := newParser(dsl, e)
	return p.parse()
}

type ParseResult struct {
	Invocation *Invocation
	Help       bool
	HelpArgs   []string
	Error      error
}

// helpRequest is returned by resolve when "--help" follows a command.
type helpRequest struct {
	path []string
}

func (h *helpRequest) Error() string {
	return "help requested for " + strings.Join(h.path, " ")
}

func (e *Engine) Run(ctx context.Context, args []string) (*ExecutionResult, error) {
	res := e.Parse(args)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.Help {
		e.PrintHelp(res.HelpArgs...)
		return &ExecutionResult{ExitCode: 0}, nil
	}
	return e.Execute(ctx, res.Invocation)
}

func (e *Engine) Parse(args []string) *ParseResult {
	res := &ParseResult{
		Invocation: &Invocation{
			Args:   make(map[string]string),
			Lists:  make(map[string][]string),
			Flags:  make(map[string]any),
			Global: make(map[string]any),
		},
	}
	var remaining []string
	// Global flags may appear anywhere before "--".
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			remaining = append(remaining, args[i:]...)
			break
		}
		if arg == "--help" || arg == "-h" {
			res.Help = true
			continue
		}
		consumed, err := e.matchFlag(e.GlobalFlags, res.Invocation.Global, args, &i)
		if err != nil {
			res.Error = err
			return res
		}
		if !consumed {
			remaining = append(remaining, arg)
		}
	}

	if res.Help {
		res.HelpArgs = remaining
		return res
	}

	if len(remaining) == 0 {
		res.Help = true
		return res
	}

	if remaining[0] == "help" {
		res.Help = true
		res.HelpArgs = remaining[1:]
		return res
	}

	inv, err := e.resolve(res.Invocation, nil, remaining)
	if err != nil {
		var hr *helpRequest
		if errors.As(err, &hr) {
			res.Help = true
			res.HelpArgs = hr.path
			return res
		}
		res.Error = err
		return res
	}
	res.Invocation = inv
	return res
}

func (e *Engine) Execute(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	path := getCmdPath(inv.Command)
	if h, ok := e.Handlers[path]; ok {
		return h.Execute(ctx, inv)
	}
	return nil, fmt.Errorf("no handler registered for command: %s", path)
}

func (e *Engine) defaultCommand() *Command {
	for _, c := range e.Commands {
		if c.Default {
			return c
		}
	}
	return nil
}

// resolve matches args against the subcommands of parent, or the top-level
// commands when parent is nil. Unique prefixes are accepted.
func (e *Engine) resolve(inv *Invocation, parent *Command, args []string) (*Invocation, error) {
	cmds := e.Commands
	if parent != nil {
		cmds = parent.Subs
	}
	word := args[0]
	// Command match
	var matches []*Command
	if !strings.HasPrefix(word, "-") {
		for _, c := range cmds {
			if c.Name == word {
				matches = []*Command{c}
				break
			}
			if strings.HasPrefix(c.Name, word) {
				matches = append(matches, c)
			}
		}
	}
	if len(matches) > 1 {
		var names []string
		for _, m := range matches {
			names = append(names, m.Name)
		}
		return nil, fmt.Errorf("ambiguous command: %s (candidates: %s)", word, strings.Join(names, ", "))
	}
	if len(matches) == 1 {
		cmd := matches[0]
		if cmd.Name == "help" {
			return nil, &helpRequest{path: args[1:]}
		}
		currArgs := args[1:]
		if len(currArgs) > 0 && (currArgs[0] == "--help" || currArgs[0] == "-h") {
			return nil, &helpRequest{path: strings.Split(getCmdPath(cmd), "/")}
		}
		if len(cmd.Subs) > 0 {
			if len(currArgs) == 0 {
				return nil, &helpRequest{path: strings.Split(getCmdPath(cmd), "/")}
			}
			return e.resolve(inv, cmd, currArgs)
		}
		inv.Command = cmd
		if err := e.parseParams(inv, cmd, currArgs); err != nil {
			return nil, err
		}
		return inv, nil
	}
	if parent != nil {
		return nil, fmt.Errorf("unknown command: %s %s", strings.ReplaceAll(getCmdPath(parent), "/", " "), word)
	}
	// Omitted parent support
	if !strings.HasPrefix(word, "-") {
		var subMatches []*Command
		for _, c := range cmds {
			for _, s := range c.Subs {
				if s.Name == word || strings.HasPrefix(s.Name, word) {
					subMatches = append(subMatches, s)
				}
			}
		}
		if len(subMatches) > 1 {
			var names []string
			for _, m := range subMatches {
				names = append(names, strings.ReplaceAll(getCmdPath(m), "/", " "))
			}
			return nil, fmt.Errorf("ambiguous command: %s (candidates: %s)", word, strings.Join(names, ", "))
		}
		if len(subMatches) == 1 {
			s := subMatches[0]
			inv.Command = s
			if err := e.parseParams(inv, s, args[1:]); err != nil {
				return nil, err
			}
			return inv, nil
		}
	}
	// Not a command at all: hand the whole line to the default command.
	if def := e.defaultCommand(); def != nil {
		inv.Command = def
		if err := e.parseParams(inv, def, args); err != nil {
			return nil, err
		}
		return inv, nil
	}
	return nil, fmt.Errorf("unknown command: %s", word)
}

// matchFlag tries to consume args[*i] as one of flags, storing the value in
// into. It understands "--name", "--name=value", "--name value" and "-s".
func (e *Engine) matchFlag(flags []*Flag, into map[string]any, args []string, i *int) (bool, error) {
	arg := args[*i]
	var name, value string
	hasValue := false
	switch {
	case strings.HasPrefix(arg, "--"):
		name = arg[2:]
		if k := strings.IndexByte(name, '='); k >= 0 {
			name, value, hasValue = name[:k], name[k+1:], true
		}
	case strings.HasPrefix(arg, "-") && len(arg) == 2:
		name = arg[1:]
	default:
		return false, nil
	}

	long := strings.HasPrefix(arg, "--")
	for _, f := range flags {
		if long && !f.matches(name) {
			continue
		}
		if !long && (f.Short == "" || f.Short != name) {
			continue
		}
		if f.Type == TypeBool {
			if hasValue {
				b, err := strconv.ParseBool(value)
				if err != nil {
					return false, fmt.Errorf("invalid value for --%s: %q", f.Name, value)
				}
				into[f.Name] = b
			} else {
				into[f.Name] = true
			}
			return true, nil
		}
		if !hasValue {
			if *i+1 >= len(args) {
				return false, fmt.Errorf("flag --%s needs a value", f.Name)
			}
			*i++
			value = args[*i]
		}
		switch f.Type {
		case TypeInt:
			n, err := strconv.Atoi(value)
			if err != nil {
				return false, fmt.Errorf("invalid value for --%s: %q is not a number", f.Name, value)
			}
			into[f.Name] = n
		default:
			into[f.Name] = value
		}
		return true, nil
	}
	return false, nil
}

func (e *Engine) parseParams(inv *Invocation, cmd *Command, args []string) error {
	argIdx := 0
	onlyArgs := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !onlyArgs && arg == "--" {
			onlyArgs = true
			continue
		}
		if !onlyArgs && strings.HasPrefix(arg, "-") && len(arg) > 1 {
			consumed, err := e.matchFlag(cmd.Flags, inv.Flags, args, &i)
			if err != nil {
				return err
			}
			if !consumed {
				return fmt.Errorf("unknown flag for %s: %s", cmd.Name, arg)
			}
			continue
		}
		if argIdx >= len(cmd.Args) {
			return fmt.Errorf("unexpected argument for %s: %s", cmd.Name, arg)
		}
		a := cmd.Args[argIdx]
		if a.Type == TypeStrings {
			inv.Lists[a.Name] = append(inv.Lists[a.Name], arg)
			continue
		}
		inv.Args[a.Name] = arg
		argIdx++
	}

	// Check for missing required arguments
	if argIdx < len(cmd.Args) {
		a := cmd.Args[argIdx]
		if a.Type != TypeStrings || len(inv.Lists[a.Name]) == 0 {
			return fmt.Errorf("argument %s is missing", a.Name)
		}
	}
	return nil
}

func getCmdPath(c *Command) string {
	if c.Parent == nil {
		return c.Name
	}
	return getCmdPath(c.Parent) + "/" + c.Name
}
