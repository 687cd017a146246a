package notary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileMirror stores threat records as a JSON array in a single file.
//
// Writes go through a temp file in the same directory followed by a rename,
// so readers never observe a half-written array. A single mutex serializes
// writers; the detector notarizes threats one at a time so contention is not
// a concern.
type FileMirror struct {
	mu   sync.Mutex
	path string
}

var _ Mirror = (*FileMirror)(nil)

// NewFileMirror creates a mirror backed by the given file. The file is
// created on first append; a missing or corrupt file reads as empty.
func NewFileMirror(path string) *FileMirror {
	return &FileMirror{path: path}
}

// load reads the current record array. Callers hold the lock or accept a
// point-in-time snapshot.
func (m *FileMirror) load() ([]*Record, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mirror file: %w", err)
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		// Corrupt file starts a fresh array rather than blocking all future
		// notarizations.
		return nil, nil
	}
	return records, nil
}

// Append adds a record to the end of the file.
func (m *FileMirror) Append(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.load()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mirror records: %w", err)
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".threat_records-*.json")
	if err != nil {
		return fmt.Errorf("create temp mirror file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp mirror file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp mirror file: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace mirror file: %w", err)
	}
	return nil
}

// All returns every record in file order (oldest first).
func (m *FileMirror) All(_ context.Context) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

// ByUser returns the records for one user, in file order.
func (m *FileMirror) ByUser(ctx context.Context, userID string) ([]*Record, error) {
	all, err := m.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// HasRecordFor reports whether any record exists for the user.
func (m *FileMirror) HasRecordFor(ctx context.Context, userID string) (bool, error) {
	all, err := m.All(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range all {
		if r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// MemoryMirror is an in-memory Mirror for tests and chainless development.
type MemoryMirror struct {
	mu      sync.RWMutex
	records []*Record
}

var _ Mirror = (*MemoryMirror)(nil)

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) Append(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *MemoryMirror) All(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, len(m.records))
	for i, r := range m.records {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (m *MemoryMirror) ByUser(ctx context.Context, userID string) ([]*Record, error) {
	all, err := m.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryMirror) HasRecordFor(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}
