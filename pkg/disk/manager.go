// Package disk reports and reclaims the local storage used by arxivdl.
package disk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"arxivdl/pkg/common"

	"github.com/dustin/go-humanize"
)

// manager defines the internal state for managing arxivdl's local storage.
type manager struct {
	downloadDir string
	extractDir  string
}

// Manager is a pointer to the internal manager implementation.
type Manager = *manager

// NewManager creates a disk manager over the download and extract directories.
func NewManager(downloadDir, extractDir string) Manager {
	return &manager{downloadDir: downloadDir, extractDir: extractDir}
}

// Usage represents disk usage information for a specific category of data.
type Usage struct {
	Label string
	Size  int64
	Items int
	Path  string
}

// Info renders Usage as a table.
func (m *manager) Info() (*common.ExecutionResult, error) {
	stats, total := m.Usage()
	table := &common.Table{
		Header: []string{"Type", "Size", "Items", "Path"},
	}
	for _, s := range stats {
		table.AddRow(s.Label, humanize.Bytes(uint64(s.Size)), humanize.Comma(int64(s.Items)), s.Path)
	}

	return common.Success(&common.Output{
		Table:  table,
		Footer: fmt.Sprintf("Total: %s", humanize.Bytes(uint64(total))),
	}), nil
}

// CleanDir runs Clean and reports what was reclaimed.
func (m *manager) CleanDir() (*common.ExecutionResult, error) {
	freed, err := m.Clean()
	if err != nil {
		return nil, err
	}
	return common.Success(&common.Output{
		Message: fmt.Sprintf("Clean complete, freed %s", humanize.Bytes(uint64(freed))),
	}), nil
}

// Usage returns the size of each managed directory and their sum.
// Missing directories count as empty.
func (m *manager) Usage() ([]Usage, int64) {
	dirs := []struct{ label, path string }{
		{"Archives", m.downloadDir},
		{"Extracted", m.extractDir},
	}
	var total int64
	var stats []Usage
	for _, d := range dirs {
		size, count := DirSize(d.path)
		total += size
		stats = append(stats, Usage{
			Label: d.label,
			Size:  size,
			Items: count,
			Path:  d.path,
		})
	}
	return stats, total
}

// Clean removes every downloaded archive, keeping the directory itself and
// any extracted trees. It returns the number of bytes freed.
func (m *manager) Clean() (int64, error) {
	entries, err := os.ReadDir(m.downloadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", m.downloadDir, err)
	}

	var freed int64
	for _, e := range entries {
		path := filepath.Join(m.downloadDir, e.Name())
		size, _ := DirSize(path)
		slog.Info("Cleaning", "path", path)
		if err := os.RemoveAll(path); err != nil {
			return freed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		freed += size
	}
	return freed, nil
}

// DirSize calculates the total size and file count under path, which may
// also be a single file.
func DirSize(path string) (int64, int) {
	var size int64
	var count int
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})
	return size, count
}
