package display

import "arxivdl/pkg/common"

// Task represents a unit of work that can be monitored.
type Task interface {
	// Log adds a log message associated with this task.
	Log(msg string)
	// SetStage updates the current stage of the task (e.g. "Download", "Extract")
	// and the target file/folder being worked on.
	SetStage(name string, target string)
	// Progress reports that current of total bytes are done. A total of 0
	// means the size is unknown.
	Progress(current, total int64)
	// Done marks the task as completed and removes it from the display.
	// It is the responsibility of the caller who created the task via StartTask.
	Done(msg string)
	// Fail marks the task as failed and removes it from the display.
	Fail(err error)
}

// Display handles the visualization of tasks and logs.
type Display interface {
	// StartTask creates and returns a new tracked Task.
	StartTask(name string) Task
	// Log adds a direct log message to the display.
	Log(msg string)
	// Print adds a primary output message (e.g. table, info) to the display.
	Print(msg string)
	// Render prints structured command output.
	Render(out *common.Output)
	// SetVerbose enables or disables verbose logging.
	SetVerbose(v bool)
	// Close cleans up any resources and ensures final output is rendered.
	Close()
}

// Discard is a Task that ignores everything reported to it.
var Discard Task = nopTask{}

type nopTask struct{}

func (nopTask) Log(string)              {}
func (nopTask) SetStage(string, string) {}
func (nopTask) Progress(int64, int64)   {}
func (nopTask) Done(string)             {}
func (nopTask) Fail(error)              {}
