// Package ledger keeps a JSON record of the last outcome for every fetched
// identifier. The file is loaded lazily and always written atomically.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"arxivdl/pkg/lock"

	"github.com/itchyny/gojq"
)

const formatVersion = 1

// Entry is the stored outcome of one identifier.
type Entry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url,omitempty"`
	Archive   string    `json:"archive,omitempty"`
	Extracted string    `json:"extracted,omitempty"`
	Bytes     int64     `json:"bytes"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Run       string    `json:"run,omitempty"`
	Updated   time.Time `json:"updated"`
}

type document struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

// Ledger is safe for concurrent use.
// Mutable
type Ledger struct {
	path string
	now  func() time.Time

	mu     sync.Mutex
	doc    *document
	loaded bool
}

// Open returns a ledger backed by the file at path. Nothing is read until
// the first access.
func Open(path string) *Ledger {
	return &Ledger{path: path, now: time.Now}
}

// Path returns the backing file.
func (l *Ledger) Path() string { return l.path }

// Record upserts e, keyed by its ID, and saves the file. The file is
// re-read under a lock first so that concurrent processes do not lose
// each other's entries.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("ledger: entry without id")
	}
	if e.Updated.IsZero() {
		e.Updated = l.now().UTC()
	}

	unlock, err := lock.Acquire(ctx, l.path)
	if err != nil {
		return err
	}
	defer unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(); err != nil {
		return err
	}
	l.doc.Entries[e.ID] = &e
	return l.saveLocked()
}

// Get returns the entry for id, if any.
func (l *Ledger) Get(id string) (Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureLoaded(); err != nil {
		return Entry{}, false, err
	}
	e, ok := l.doc.Entries[id]
	if !ok {
		return Entry{}, false, nil
	}
	return *e, true, nil
}

// Entries returns all entries sorted by ID.
func (l *Ledger) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureLoaded(); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(l.doc.Entries))
	for _, e := range l.doc.Entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Query runs a jq expression over the ledger document, shaped as
// {"version": 1, "entries": {"<id>": {...}}}, and returns every result.
func (l *Ledger) Query(ctx context.Context, expr string) ([]any, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	input, err := l.generic()
	if err != nil {
		return nil, err
	}

	var results []any
	iter := q.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("query failed: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

// generic converts the document to the plain map/slice form gojq walks.
func (l *Ledger) generic() (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureLoaded(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(l.doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return v, nil
}

// Must be called with mu held.
func (l *Ledger) ensureLoaded() error {
	if l.loaded {
		return nil
	}
	return l.loadLocked()
}

// loadLocked (re)reads the file. A missing file is an empty ledger.
// Must be called with mu held.
func (l *Ledger) loadLocked() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.doc = &document{Version: formatVersion, Entries: map[string]*Entry{}}
			l.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal JSON %s: %w", l.path, err)
	}
	if doc.Entries == nil {
		doc.Entries = map[string]*Entry{}
	}
	l.doc = &doc
	l.loaded = true
	return nil
}

// saveLocked writes the document atomically: temp file, then rename.
// Must be called with mu held.
func (l *Ledger) saveLocked() error {
	data, err := json.MarshalIndent(l.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := l.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, l.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
