package dashboard

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/report"
)

// Snapshot is one parsed version of the scored file.
type Snapshot struct {
	Header    []string
	Customers []report.Customer
	LoadedAt  time.Time
}

// Store serves the scored file, re-reading it when its size or
// modification time changes. A new pipeline run is picked up on the
// next request.
type Store struct {
	path  string
	label string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	snap    *Snapshot
}

func NewStore(path, label string) *Store {
	return &Store{path: path, label: label}
}

// Snapshot returns the current contents of the scored file.
func (s *Store) Snapshot() (*Snapshot, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, &data.DataLoadError{Path: s.path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.snap, nil
	}
	t, err := data.ReadScored(s.path)
	if err != nil {
		return nil, err
	}
	cs, err := report.ParseScored(t, s.label)
	if err != nil {
		var le *data.DataLoadError
		if errors.As(err, &le) {
			le.Path = s.path
		}
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	s.snap = &Snapshot{Header: t.Header, Customers: cs, LoadedAt: time.Now().UTC()}
	s.modTime, s.size = info.ModTime(), info.Size()
	return s.snap, nil
}
