// Package common provides shared types used across arxivdl.
// It holds the execution results and renderable output that commands hand
// back to the CLI layer for display.
package common

// ExecutionResult represents the outcome of an arxivdl command.
type ExecutionResult struct {
	// ExitCode is the status code the process exits with.
	ExitCode int

	// Output is rendered to the console before exiting, if non-nil.
	Output *Output
}

// Output is structured, display-agnostic command output.
type Output struct {
	// Message is printed first, on its own line.
	Message string
	// KV is a list of aligned key/value lines.
	KV []KV
	// Table is rendered after the key/value lines.
	Table *Table
	// Footer is printed last.
	Footer string
}

// KV is a single labelled value.
type KV struct {
	Key   string
	Value string
}

// Table is a simple header + rows grid.
type Table struct {
	Header []string
	Rows   [][]string
}

// AddRow appends a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Success returns a zero-exit result carrying out.
func Success(out *Output) *ExecutionResult {
	return &ExecutionResult{ExitCode: 0, Output: out}
}
