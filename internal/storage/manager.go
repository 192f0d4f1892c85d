package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/btree"
)

// ErrSegmentInUse is returned when deleting the active generation.
var ErrSegmentInUse = errors.New("segment in use")

// maxSectionSize bounds section readers; reads stop at the real end of file.
const maxSectionSize = 1 << 62

// Manager owns the segment files of one store directory.
//
// Generations are kept in an ordered set; the highest one is the active
// segment. Manager is not safe for concurrent use: the engine serializes
// every call.
type Manager struct {
	dir     string
	gens    *btree.BTreeG[uint64]
	readers map[uint64]*os.File
}

// OpenManager scans dir for segment files and creates generation 0 when the
// directory holds none.
func OpenManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	m := &Manager{
		dir:     dir,
		gens:    btree.NewOrderedG[uint64](8),
		readers: make(map[uint64]*os.File),
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if gen, ok := ParseSegmentName(e.Name()); ok {
			m.gens.ReplaceOrInsert(gen)
		}
	}

	if m.gens.Len() == 0 {
		f, err := os.OpenFile(m.path(0), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("create segment 0: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		m.gens.ReplaceOrInsert(0)
	}

	return m, nil
}

func (m *Manager) path(gen uint64) string {
	return filepath.Join(m.dir, SegmentName(gen))
}

// Dir returns the managed directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Generations returns every known generation in ascending order.
func (m *Manager) Generations() []uint64 {
	out := make([]uint64, 0, m.gens.Len())
	m.gens.Ascend(func(gen uint64) bool {
		out = append(out, gen)
		return true
	})
	return out
}

// Active returns the highest generation.
func (m *Manager) Active() uint64 {
	gen, _ := m.gens.Max()
	return gen
}

// Has reports whether gen is a known generation.
func (m *Manager) Has(gen uint64) bool {
	return m.gens.Has(gen)
}

// Writer opens an existing generation for appending.
func (m *Manager) Writer(gen uint64) (*SegmentWriter, error) {
	if !m.gens.Has(gen) {
		return nil, fmt.Errorf("segment %d: %w", gen, os.ErrNotExist)
	}
	return openSegmentWriter(m.path(gen), gen, os.O_CREATE)
}

// Rotate creates a new, empty generation and returns a writer for it.
// Existing segments are left alone.
func (m *Manager) Rotate(gen uint64) (*SegmentWriter, error) {
	if m.gens.Has(gen) {
		return nil, fmt.Errorf("segment %d: %w", gen, os.ErrExist)
	}
	sw, err := openSegmentWriter(m.path(gen), gen, os.O_CREATE|os.O_EXCL)
	if err != nil {
		return nil, err
	}
	m.gens.ReplaceOrInsert(gen)
	return sw, nil
}

// Abandon drops a generation created by Rotate that was never committed,
// closing the writer and removing the file.
func (m *Manager) Abandon(sw *SegmentWriter) error {
	err := sw.discard()
	m.dropReader(sw.gen)
	m.gens.Delete(sw.gen)
	if rerr := os.Remove(m.path(sw.gen)); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// ReaderAt returns a reader positioned at offset in gen. Read handles are
// cached per generation, so bytes flushed by the active writer are visible
// to later reads.
func (m *Manager) ReaderAt(gen uint64, offset int64) (io.Reader, error) {
	if offset < 0 {
		return nil, fmt.Errorf("segment %d: negative offset %d", gen, offset)
	}
	f, ok := m.readers[gen]
	if !ok {
		if !m.gens.Has(gen) {
			return nil, fmt.Errorf("segment %d: %w", gen, os.ErrNotExist)
		}
		var err error
		f, err = os.Open(m.path(gen))
		if err != nil {
			return nil, err
		}
		m.readers[gen] = f
	}
	return io.NewSectionReader(f, offset, maxSectionSize-offset), nil
}

// Delete closes any cached reader and removes the segment file.
// The active generation cannot be deleted.
func (m *Manager) Delete(gen uint64) error {
	if gen == m.Active() {
		return fmt.Errorf("segment %d: %w", gen, ErrSegmentInUse)
	}
	m.dropReader(gen)
	if err := os.Remove(m.path(gen)); err != nil {
		return err
	}
	m.gens.Delete(gen)
	return nil
}

// Truncate cuts gen down to size bytes.
func (m *Manager) Truncate(gen uint64, size int64) error {
	m.dropReader(gen)
	return os.Truncate(m.path(gen), size)
}

// Size returns the on-disk size of gen.
func (m *Manager) Size(gen uint64) (int64, error) {
	info, err := os.Stat(m.path(gen))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// TotalSize sums the sizes of every generation.
func (m *Manager) TotalSize() (int64, error) {
	var total int64
	for _, gen := range m.Generations() {
		size, err := m.Size(gen)
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}

func (m *Manager) dropReader(gen uint64) {
	if f, ok := m.readers[gen]; ok {
		f.Close()
		delete(m.readers, gen)
	}
}

// Close releases every cached read handle.
func (m *Manager) Close() error {
	var firstErr error
	for gen, f := range m.readers {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.readers, gen)
	}
	return firstErr
}
