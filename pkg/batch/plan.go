// Package batch runs the fetch pipeline for a list of identifiers:
// validate, download, extract and record, one identifier at a time or on
// a bounded worker pool.
package batch

import (
	"path/filepath"

	"arxivdl/pkg/arxivid"
)

// Plan contains the resolved locations for one identifier.
type Plan struct {
	// ID is the validated identifier.
	ID string
	// URL is the e-print source URL.
	URL string
	// DownloadPath is where the archive is saved.
	DownloadPath string
	// ExtractPath is the directory the archive is unpacked into.
	ExtractPath string
}

// NewPlan resolves the URL and local paths of id. Legacy identifiers keep
// their archive prefix as a subdirectory.
func NewPlan(host, downloadDir, extractDir, id string) *Plan {
	rel := filepath.FromSlash(id)
	return &Plan{
		ID:           id,
		URL:          arxivid.SourceURL(host, id),
		DownloadPath: filepath.Join(downloadDir, rel),
		ExtractPath:  filepath.Join(extractDir, rel),
	}
}
