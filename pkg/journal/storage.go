// Package journal persists a history of swaps and fee withdrawals to a JSON
// file.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultFileName = ".zrx-settle-journal.json"

// Journal is an append-only log of entries backed by a JSON file.
type Journal struct {
	filePath string
	mu       sync.RWMutex
	entries  []*Entry
}

type fileFormat struct {
	Entries []*Entry `json:"entries"`
}

// Open loads the journal at filePath, or $HOME/DefaultFileName when empty.
// A missing file is created on the first Record.
func Open(filePath string) (*Journal, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get home directory")
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	j := &Journal{filePath: filePath}
	if err := j.load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "failed to load journal")
	}
	return j, nil
}

func (j *Journal) load() error {
	data, err := os.ReadFile(j.filePath)
	if err != nil {
		return err
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return errors.Wrap(err, "failed to unmarshal journal")
	}
	j.entries = f.Entries
	return nil
}

// save writes the entries to a temporary file and renames it over the
// journal. Callers hold the lock.
func (j *Journal) save() error {
	data, err := json.MarshalIndent(fileFormat{Entries: j.entries}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal journal")
	}
	if err := os.MkdirAll(filepath.Dir(j.filePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	tempFile := j.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write journal")
	}
	if err := os.Rename(tempFile, j.filePath); err != nil {
		return errors.Wrap(err, "failed to rename temp file")
	}
	return nil
}

// Record appends e, assigning an ID and timestamp if it has none, and
// persists the journal.
func (j *Journal) Record(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, e)
	if err := j.save(); err != nil {
		j.entries = j.entries[:len(j.entries)-1]
		return err
	}
	return nil
}

// List returns entries oldest first. A non-empty network restricts the
// result to that network.
func (j *Journal) List(network string) []*Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]*Entry, 0, len(j.entries))
	for _, e := range j.entries {
		if network == "" || e.Network == network {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.Before(out[b].Timestamp)
	})
	return out
}

// Count returns the number of recorded entries.
func (j *Journal) Count() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

func (j *Journal) FilePath() string {
	return j.filePath
}
