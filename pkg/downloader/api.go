// Package downloader retrieves remote archives onto the local filesystem.
// It supports multiple schemes (currently HTTP and HTTPS) and reports
// progress via the display package.
package downloader

import (
	"arxivdl/pkg/display"
	"context"
)

// Downloader manages the retrieval of resources from various URIs.
type Downloader interface {
	// Fetch makes dest hold the resource at uri. If dest already has the
	// size the remote declares, nothing is transferred and the result is
	// marked Skipped. Progress and logs go to task.
	Fetch(ctx context.Context, uri string, dest string, task display.Task) (*Result, error)
}

// SchemeHandler defines the interface for handling specific URI schemes (e.g., "http://").
type SchemeHandler interface {
	// Fetch executes the download for a URI supported by this handler.
	Fetch(ctx context.Context, uri string, dest string, task display.Task) (*Result, error)
	// Schemes returns the list of URI schemes (e.g., ["http", "https"]) this handler can process.
	Schemes() []string
}

// Result describes a completed fetch.
type Result struct {
	// URL is the resource that was fetched.
	URL string
	// Path is the local file now holding the resource.
	Path string
	// Total is the size declared by the remote, or 0 if it declared none.
	Total int64
	// Written is the number of body bytes written during this call.
	Written int64
	// Skipped is set when dest already matched the declared size.
	Skipped bool
}
