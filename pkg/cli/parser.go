package cli

import (
	"fmt"
	"slices"
)

var (
	flagTypes = []string{TypeBool, TypeString, TypeInt}
	argTypes  = []string{TypeString, TypeStrings}
)

// Mutable
type parser struct {
	lex       *lexer
	tok       token
	engine    *Engine
	lastCmd   *Command
	lastFlag  *Flag
	lastTopic *Topic
	pathBuf   [8]string // Reusable buffer for short paths to avoid allocations
}

func newParser(dsl string, engine *Engine) *parser {
	p := &parser{
		lex:    newLexer(dsl),
		engine: engine,
	}
	p.next()
	return p
}

func (p *parser) next() {
	p.tok = p.lex.nextToken()
}

func (p *parser) parse() error {
	for p.tok.kind != tokEOF {
		if p.tok.kind == tokError {
			return fmt.Errorf("line %d: %s", p.tok.line, p.tok.value)
		}
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseStatement() error {
	if p.tok.kind != tokIdentifier {
		return fmt.Errorf("line %d: expected keyword, got %q", p.tok.line, p.tok.value)
	}

	switch p.tok.value {
	case "global":
		p.lastCmd = nil
		p.lastFlag = nil
		p.lastTopic = nil
		p.next()
		return nil
	case "cmd":
		return p.parseCommand()
	case "flag":
		return p.parseFlag()
	case "alias":
		return p.parseAlias()
	case "arg":
		return p.parseArg()
	case "default":
		return p.parseDefault()
	case "example":
		return p.parseExample()
	case "topic":
		return p.parseTopic()
	case "text":
		return p.parseText()
	default:
		return fmt.Errorf("line %d: unknown keyword %q", p.tok.line, p.tok.value)
	}
}

func (p *parser) parseFlag() error {
	p.next() // skip 'flag'
	if p.tok.kind != tokIdentifier {
		return fmt.Errorf("line %d: expected flag name", p.tok.line)
	}
	name := p.tok.value
	p.next()

	if p.tok.kind != tokIdentifier || !slices.Contains(flagTypes, p.tok.value) {
		return fmt.Errorf("line %d: expected flag type (one of %v)", p.tok.line, flagTypes)
	}
	fType := p.tok.value
	p.next()

	if p.tok.kind != tokString {
		return fmt.Errorf("line %d: expected flag description", p.tok.line)
	}
	desc := p.tok.value
	p.next()

	f := &Flag{Name: name, Type: fType, Desc: desc}

	// A single letter after the description is the short form.
	if p.tok.kind == tokIdentifier && len(p.tok.value) == 1 {
		f.Short = p.tok.value
		p.next()
	}

	if p.lastCmd == nil {
		p.engine.GlobalFlags = append(p.engine.GlobalFlags, f)
	} else {
		p.lastCmd.Flags = append(p.lastCmd.Flags, f)
	}
	p.lastFlag = f
	return nil
}

func (p *parser) parseAlias() error {
	if p.lastFlag == nil {
		return fmt.Errorf("line %d: 'alias' must follow a 'flag'", p.tok.line)
	}
	p.next() // skip 'alias'
	if p.tok.kind != tokIdentifier {
		return fmt.Errorf("line %d: expected alias name", p.tok.line)
	}
	p.lastFlag.Aliases = append(p.lastFlag.Aliases, p.tok.value)
	p.next()
	return nil
}

func (p *parser) parseCommand() error {
	p.next() // skip 'cmd'

	path := p.pathBuf[:0]
	for p.tok.kind == tokIdentifier {
		path = append(path, p.tok.value)
		p.next()
	}

	if len(path) == 0 {
		return fmt.Errorf("line %d: expected command name or path", p.tok.line)
	}

	desc := ""
	if p.tok.kind == tokString {
		desc = p.tok.value
		p.next()
	}

	var parent *Command
	var current *Command

	for i, name := range path {
		var list *[]*Command
		if parent == nil {
			list = &p.engine.Commands
		} else {
			list = &parent.Subs
		}

		current = nil
		for _, c := range *list {
			if c.Name == name {
				current = c
				break
			}
		}

		if current == nil {
			current = &Command{Name: name, Parent: parent}
			*list = append(*list, current)
		}

		if i == len(path)-1 && desc != "" {
			current.Desc = desc
		}
		parent = current
	}

	p.lastCmd = current
	p.lastFlag = nil
	return nil
}

func (p *parser) parseArg() error {
	if p.lastCmd == nil {
		return fmt.Errorf("line %d: 'arg' must follow a 'cmd'", p.tok.line)
	}
	p.next() // skip 'arg'

	if p.tok.kind != tokIdentifier {
		return fmt.Errorf("line %d: expected arg name", p.tok.line)
	}
	name := p.tok.value
	p.next()

	if p.tok.kind != tokIdentifier || !slices.Contains(argTypes, p.tok.value) {
		return fmt.Errorf("line %d: expected arg type (one of %v)", p.tok.line, argTypes)
	}
	aType := p.tok.value
	p.next()

	if p.tok.kind != tokString {
		return fmt.Errorf("line %d: expected arg description", p.tok.line)
	}
	desc := p.tok.value
	p.next()

	if n := len(p.lastCmd.Args); n > 0 && p.lastCmd.Args[n-1].Type == TypeStrings {
		return fmt.Errorf("line %d: no arg may follow the variadic arg %s", p.tok.line, p.lastCmd.Args[n-1].Name)
	}
	p.lastCmd.Args = append(p.lastCmd.Args, &Arg{Name: name, Type: aType, Desc: desc})
	return nil
}

func (p *parser) parseDefault() error {
	if p.lastCmd == nil || p.lastCmd.Parent != nil {
		return fmt.Errorf("line %d: 'default' must follow a top-level 'cmd'", p.tok.line)
	}
	for _, c := range p.engine.Commands {
		if c.Default && c != p.lastCmd {
			return fmt.Errorf("line %d: %s is already the default command", p.tok.line, c.Name)
		}
	}
	p.lastCmd.Default = true
	p.next()
	return nil
}

func (p *parser) parseExample() error {
	if p.lastCmd == nil {
		return fmt.Errorf("line %d: 'example' must follow a 'cmd'", p.tok.line)
	}
	p.next() // skip 'example'
	if p.tok.kind != tokString {
		return fmt.Errorf("line %d: expected example string", p.tok.line)
	}
	p.lastCmd.Examples = append(p.lastCmd.Examples, p.tok.value)
	p.next()
	return nil
}

func (p *parser) parseTopic() error {
	p.next() // skip 'topic'
	if p.tok.kind != tokIdentifier {
		return fmt.Errorf("line %d: expected topic name", p.tok.line)
	}
	name := p.tok.value
	p.next()

	if p.tok.kind != tokString {
		return fmt.Errorf("line %d: expected topic description", p.tok.line)
	}
	desc := p.tok.value
	p.next()

	t := &Topic{Name: name, Desc: desc}
	p.engine.Topics = append(p.engine.Topics, t)
	p.lastCmd = nil
	p.lastFlag = nil
	p.lastTopic = t
	return nil
}

func (p *parser) parseText() error {
	if p.lastTopic == nil {
		return fmt.Errorf("line %d: 'text' must follow a 'topic'", p.tok.line)
	}
	p.next() // skip 'text'
	if p.tok.kind != tokString {
		return fmt.Errorf("line %d: expected text string", p.tok.line)
	}
	p.lastTopic.Text = p.tok.value
	p.next()
	return nil
}
