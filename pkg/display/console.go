// Package display implementation for terminal-based output.
package display

import (
	"arxivdl/pkg/common"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	clearLine = "\x1b[1A\x1b[2K"

	defaultRefresh = 100 * time.Millisecond
	barWidth       = 30
)

var (
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	stageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	headStyle  = lipgloss.NewStyle().Bold(true)
)

// Option configures a console display.
type Option func(*consoleDisplay)

// WithLive toggles in-place redrawing of task lines. Without it every
// stage change and completion is printed as a plain line.
func WithLive(live bool) Option {
	return func(d *consoleDisplay) { d.live = live }
}

// WithRefresh sets the minimum interval between progress redraws.
func WithRefresh(interval time.Duration) Option {
	return func(d *consoleDisplay) { d.refresh = interval }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *consoleDisplay) { d.now = now }
}

// consoleDisplay handles terminal output.
// Mutable, guarded by mu.
type consoleDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	live    bool
	verbose bool
	refresh time.Duration
	now     func() time.Time

	bar     progress.Model
	spinner spinner.Spinner

	tasks []*consoleTask
	drawn int // lines currently on screen that belong to tasks
}

// NewConsole creates a Display that writes to standard error.
// Live redrawing is enabled only when standard error is a terminal.
func NewConsole(opts ...Option) Display {
	live := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return NewWriterDisplay(os.Stderr, append([]Option{WithLive(live)}, opts...)...)
}

// NewWriterDisplay creates a Display that writes to the provided io.Writer.
func NewWriterDisplay(w io.Writer, opts ...Option) Display {
	d := &consoleDisplay{
		out:     w,
		live:    true,
		refresh: defaultRefresh,
		now:     time.Now,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		spinner: spinner.MiniDot,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.verbose = v
}

func (d *consoleDisplay) StartTask(name string) Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &consoleTask{d: d, name: name, started: d.now()}
	d.tasks = append(d.tasks, t)
	if d.live {
		d.redrawLocked()
	} else {
		fmt.Fprintf(d.out, "[%s] started\n", name)
	}
	return t
}

// Log writes msg above the live task lines.
func (d *consoleDisplay) Log(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emitLocked(msg + "\n")
}

// Print writes a message directly to the output writer.
func (d *consoleDisplay) Print(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emitLocked(msg)
}

func (d *consoleDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	d.tasks = nil
}

// emitLocked prints text above the task area and redraws the tasks below it.
func (d *consoleDisplay) emitLocked(text string) {
	d.clearLocked()
	fmt.Fprint(d.out, text)
	d.redrawLocked()
}

func (d *consoleDisplay) clearLocked() {
	if !d.live {
		return
	}
	if d.drawn > 0 {
		fmt.Fprint(d.out, strings.Repeat(clearLine, d.drawn))
	}
	d.drawn = 0
}

func (d *consoleDisplay) redrawLocked() {
	if !d.live {
		return
	}
	d.clearLocked()
	now := d.now()
	for _, t := range d.tasks {
		for _, line := range t.lines(now) {
			fmt.Fprintln(d.out, line)
			d.drawn++
		}
		t.lastDraw = now
	}
}

func (d *consoleDisplay) removeLocked(t *consoleTask) {
	for i, x := range d.tasks {
		if x == t {
			d.tasks = append(d.tasks[:i], d.tasks[i+1:]...)
			return
		}
	}
}

// RenderOutput displays structured data from an Output struct to the console.
func (d *consoleDisplay) Render(out *common.Output) {
	if out == nil {
		return
	}
	var sb strings.Builder

	if out.Message != "" {
		sb.WriteString(out.Message + "\n")
	}

	if len(out.KV) > 0 {
		width := 0
		for _, kv := range out.KV {
			width = max(width, len(kv.Key)+1)
		}
		for _, kv := range out.KV {
			fmt.Fprintf(&sb, "%s %s\n", headStyle.Render(fmt.Sprintf("%-*s", width, kv.Key+":")), kv.Value)
		}
	}

	if out.Table != nil {
		renderTable(&sb, out.Table)
	}

	if out.Footer != "" {
		sb.WriteString(out.Footer + "\n")
	}
	d.Print(sb.String())
}

func renderTable(sb *strings.Builder, t *common.Table) {
	if len(t.Header) == 0 {
		return
	}

	// Widths are computed on unstyled text.
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range t.Header {
		sb.WriteString(headStyle.Render(fmt.Sprintf("%-*s", widths[i], h)) + "  ")
	}
	sb.WriteString("\n")

	totalWidth := 0
	for _, w := range widths {
		totalWidth += w + 2
	}
	sb.WriteString(strings.Repeat("-", totalWidth) + "\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(sb, "%-*s  ", widths[i], cell)
			}
		}
		sb.WriteString("\n")
	}
}

// consoleTask is a single tracked unit of work.
// Mutable, guarded by d.mu.
type consoleTask struct {
	d        *consoleDisplay
	name     string
	stage    string
	target   string
	current  int64
	total    int64
	reported bool
	started  time.Time
	stageAt  time.Time
	lastDraw time.Time
}

func (t *consoleTask) Log(msg string) {
	t.d.Log(fmt.Sprintf("%s %s", nameStyle.Render("["+t.name+"]"), msg))
}

func (t *consoleTask) SetStage(name string, target string) {
	d := t.d
	d.mu.Lock()
	defer d.mu.Unlock()
	t.stage, t.target = name, target
	t.current, t.total, t.reported = 0, 0, false
	t.stageAt = d.now()
	if d.live {
		d.redrawLocked()
		return
	}
	if d.verbose || target != "" {
		fmt.Fprintf(d.out, "[%s] %s %s\n", t.name, name, target)
	}
}

func (t *consoleTask) Progress(current, total int64) {
	d := t.d
	d.mu.Lock()
	defer d.mu.Unlock()
	t.current, t.total, t.reported = current, total, true
	if !d.live {
		return
	}
	finished := total > 0 && current >= total
	if !finished && d.now().Sub(t.lastDraw) < d.refresh {
		return
	}
	d.redrawLocked()
}

func (t *consoleTask) Done(msg string) {
	t.finish(okStyle.Render("✓")+" "+nameStyle.Render("["+t.name+"]")+" Done", msg)
}

func (t *consoleTask) Fail(err error) {
	t.finish(errStyle.Render("✗")+" "+nameStyle.Render("["+t.name+"]")+" Failed", err.Error())
}

func (t *consoleTask) finish(head, msg string) {
	d := t.d
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(t)
	line := head
	if msg != "" {
		line += ": " + msg
	}
	if d.verbose {
		line += " " + dimStyle.Render(Elapsed(d.now().Sub(t.started)))
	}
	d.emitLocked(line + "\n")
}

// lines renders the task's status, one or two lines.
func (t *consoleTask) lines(now time.Time) []string {
	head := nameStyle.Render("[" + t.name + "]")
	if t.stage != "" {
		head += " " + stageStyle.Render(t.stage)
	}
	if t.target != "" {
		head += " " + dimStyle.Render(t.target)
	}
	if !t.reported {
		return []string{head}
	}

	elapsed := now.Sub(t.stageAt)
	rate := Rate(t.current, elapsed)
	frames := t.d.spinner.Frames
	frame := frames[int(elapsed/t.d.spinner.FPS)%len(frames)]

	var bar string
	if t.total > 0 {
		bar = t.d.bar.ViewAs(float64(t.current) / float64(t.total))
	} else {
		bar = dimStyle.Render(strings.Repeat("·", barWidth))
	}
	status := fmt.Sprintf("%s %s %s %s %s",
		okStyle.Render(frame),
		Elapsed(elapsed),
		bar,
		Counts(t.current, t.total),
		dimStyle.Render(Throughput(rate, ETA(t.current, t.total, rate))),
	)
	return []string{head, status}
}
