package cli

import (
	"context"

	"arxivdl/pkg/common"
)

// ExecutionResult is what a handler hands back to main.
type ExecutionResult = common.ExecutionResult

// Flag types understood by the engine.
const (
	TypeBool    = "bool"
	TypeString  = "string"
	TypeInt     = "int"
	TypeStrings = "strings" // args only: collects every remaining word
)

type Flag struct {
	Name    string
	Short   string
	Aliases []string
	Type    string // "bool", "string", "int"
	Desc    string
}

func (f *Flag) matches(name string) bool {
	if name == f.Name {
		return true
	}
	for _, a := range f.Aliases {
		if name == a {
			return true
		}
	}
	return false
}

type Arg struct {
	Name string
	Type string
	Desc string
}

type Command struct {
	Name     string
	Desc     string
	Args     []*Arg
	Flags    []*Flag
	Subs     []*Command
	Parent   *Command
	Examples []string
	// Default marks the command run when the first word is not a command.
	Default bool
}

type Topic struct {
	Name string
	Desc string
	Text string
}

// Invocation is a fully parsed command line.
type Invocation struct {
	Command *Command
	Args    map[string]string
	Lists   map[string][]string
	Flags   map[string]any
	Global  map[string]any
}

// String returns the named flag or arg value, or "".
func (inv *Invocation) String(name string) string {
	if v, ok := inv.Flags[name].(string); ok {
		return v
	}
	if v, ok := inv.Global[name].(string); ok {
		return v
	}
	return inv.Args[name]
}

// Bool returns the named bool flag.
func (inv *Invocation) Bool(name string) bool {
	if v, ok := inv.Flags[name].(bool); ok {
		return v
	}
	v, _ := inv.Global[name].(bool)
	return v
}

// Int returns the named int flag, or 0 when unset.
func (inv *Invocation) Int(name string) int {
	v, _ := inv.Flags[name].(int)
	return v
}

type Handler interface {
	Execute(ctx context.Context, inv *Invocation) (*ExecutionResult, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, inv *Invocation) (*ExecutionResult, error)

func (f HandlerFunc) Execute(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	return f(ctx, inv)
}
