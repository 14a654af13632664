package downloader

import "fmt"

// Kind classifies a fetch failure.
type Kind int

const (
	// ProbeFailed means the metadata (HEAD) request could not complete.
	ProbeFailed Kind = iota + 1
	// GetFailed means the retrieval request or its body transfer failed.
	GetFailed
	// FileCreateFailed means the destination could not be opened for writing.
	FileCreateFailed
	// WriteFailed means a chunk could not be written to the destination.
	WriteFailed
)

func (k Kind) String() string {
	switch k {
	case ProbeFailed:
		return "probe failed"
	case GetFailed:
		return "get failed"
	case FileCreateFailed:
		return "file create failed"
	case WriteFailed:
		return "write failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by Fetch. Target is the offending URL or file path.
type Error struct {
	Kind   Kind
	Target string
	Err    error
}

// Sentinels for errors.Is matching on Kind alone.
var (
	ErrProbeFailed      = &Error{Kind: ProbeFailed}
	ErrGetFailed        = &Error{Kind: GetFailed}
	ErrFileCreateFailed = &Error{Kind: FileCreateFailed}
	ErrWriteFailed      = &Error{Kind: WriteFailed}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case ProbeFailed:
		msg = fmt.Sprintf("'%s', HEAD request failed", e.Target)
	case GetFailed:
		msg = fmt.Sprintf("failed to GET from '%s'", e.Target)
	case FileCreateFailed:
		msg = fmt.Sprintf("failed to create file '%s'", e.Target)
	case WriteFailed:
		msg = fmt.Sprintf("error while writing to file '%s'", e.Target)
	default:
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Target)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the Kind-only sentinels above.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Target != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, target string, err error) *Error {
	return &Error{Kind: kind, Target: target, Err: err}
}
