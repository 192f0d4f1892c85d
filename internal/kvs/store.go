// Package kvs implements a log-structured key-value store.
//
// Every mutation is appended to the active segment file as an encoded
// command. An in-memory index maps each live key to the segment generation
// and offset of the Set record that last wrote it. Overwritten and removed
// records accumulate as redundant records until compaction rewrites the live
// records into a fresh generation and deletes the old ones.
package kvs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/nconghau/MiniKVS/internal/command"
	"github.com/nconghau/MiniKVS/internal/index"
	"github.com/nconghau/MiniKVS/internal/storage"
)

// DefaultCompactionThreshold is the number of redundant records that
// triggers compaction.
const DefaultCompactionThreshold = 100

type Config struct {
	Dir                 string
	CompactionThreshold int  // compact when this many redundant records exist
	SyncOnWrite         bool // fsync after every write (slow but durable)
	Logger              *slog.Logger
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:                 dir,
		CompactionThreshold: DefaultCompactionThreshold,
		SyncOnWrite:         false,
	}
}

// Store is a single-directory log-structured store. Methods are serialized
// by an internal mutex; one directory must only be opened by one Store.
type Store struct {
	mu sync.Mutex

	config   Config
	logger   *slog.Logger
	segments *storage.Manager
	writer   *storage.SegmentWriter
	index    *index.Index

	// redundant counts superseded records since the last compaction.
	redundant int
	// compactAt is the redundant count that triggers the next automatic
	// compaction. A failed attempt pushes it one threshold further.
	compactAt int
	closed    bool

	metrics struct {
		sets        int64
		gets        int64
		removes     int64
		compactions int64
	}
}

// Stats is a point-in-time view of the store.
type Stats struct {
	Keys             int
	Generations      []uint64
	ActiveGeneration uint64
	DiskBytes        int64
	RedundantRecords int
	Sets             int64
	Gets             int64
	Removes          int64
	Compactions      int64
}

// Open opens the store in dir with the default configuration.
func Open(dir string) (*Store, error) {
	return OpenWithConfig(DefaultConfig(dir))
}

// OpenWithConfig opens or creates a store and rebuilds its index by
// replaying every segment.
func OpenWithConfig(config Config) (*Store, error) {
	if config.CompactionThreshold <= 0 {
		config.CompactionThreshold = DefaultCompactionThreshold
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	segments, err := storage.OpenManager(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: open segments: %w", ErrIO, err)
	}

	s := &Store{
		config:   config,
		logger:   logger.With("component", "kvs"),
		segments: segments,
		index:    index.New(),
	}
	s.compactAt = config.CompactionThreshold

	if err := s.recover(); err != nil {
		segments.Close()
		return nil, fmt.Errorf("recovery failed: %w", err)
	}

	w, err := segments.Writer(segments.Active())
	if err != nil {
		segments.Close()
		return nil, fmt.Errorf("%w: open active segment: %w", ErrIO, err)
	}
	s.writer = w

	s.logger.Info("Store opened",
		"dir", config.Dir,
		"keys", s.index.Len(),
		"generations", len(segments.Generations()),
		"active", w.Generation(),
		"redundant", s.redundant,
	)
	return s, nil
}

func validate(key, value string) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(key) > command.MaxKeySize {
		return fmt.Errorf("%w (%d bytes)", ErrKeyTooLarge, command.MaxKeySize)
	}
	if len(value) > command.MaxValueSize {
		return fmt.Errorf("%w (%d bytes)", ErrValueTooLarge, command.MaxValueSize)
	}
	return nil
}

// Set stores value under key. The record is flushed to the segment file
// before the index is updated.
func (s *Store) Set(key, value string) error {
	if err := validate(key, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	cmd := command.Set(key, value)
	loc, err := s.appendCommand(cmd)
	if err != nil {
		return err
	}
	s.metrics.sets++
	s.apply(cmd, loc)

	return s.maybeCompact()
}

// Get returns the value stored under key. The boolean is false when the key
// is absent.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	s.metrics.gets++

	loc, ok := s.index.Lookup(key)
	if !ok {
		return "", false, nil
	}

	cmd, err := s.readSet(key, loc)
	if err != nil {
		return "", false, err
	}
	return cmd.Value, true, nil
}

// Remove deletes key. It fails with ErrKeyNotFound when key is absent.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, ok := s.index.Lookup(key); !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	cmd := command.Remove(key)
	loc, err := s.appendCommand(cmd)
	if err != nil {
		return err
	}
	s.metrics.removes++
	s.apply(cmd, loc)

	return s.maybeCompact()
}

// Keys returns every live key in ascending order.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.index.Keys(), nil
}

func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Stats{}, ErrClosed
	}

	diskBytes, err := s.segments.TotalSize()
	if err != nil {
		return Stats{}, fmt.Errorf("%w: stat segments: %w", ErrIO, err)
	}

	return Stats{
		Keys:             s.index.Len(),
		Generations:      s.segments.Generations(),
		ActiveGeneration: s.writer.Generation(),
		DiskBytes:        diskBytes,
		RedundantRecords: s.redundant,
		Sets:             s.metrics.sets,
		Gets:             s.metrics.gets,
		Removes:          s.metrics.removes,
		Compactions:      s.metrics.compactions,
	}, nil
}

// Close flushes the active segment and releases every file handle.
// Calling Close more than once is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.writer.Close()
	if merr := s.segments.Close(); err == nil {
		err = merr
	}
	if err != nil {
		return fmt.Errorf("%w: close: %w", ErrIO, err)
	}
	s.logger.Info("Store closed", "dir", s.config.Dir)
	return nil
}

// appendCommand writes cmd to the active segment and flushes it. The
// returned location is where the record begins.
func (s *Store) appendCommand(cmd command.Command) (index.Location, error) {
	data := command.Encode(cmd)
	gen := s.writer.Generation()

	offset, err := s.writer.Append(data)
	if err != nil {
		return index.Location{}, fmt.Errorf("%w: append to segment %d: %w", ErrIO, gen, err)
	}

	if s.config.SyncOnWrite {
		err = s.writer.Sync()
	} else {
		err = s.writer.Flush()
	}
	if err != nil {
		return index.Location{}, fmt.Errorf("%w: flush segment %d: %w", ErrIO, gen, err)
	}

	return index.Location{Generation: gen, Offset: offset, Size: int64(len(data))}, nil
}

// apply updates the index for a record that is already on disk at loc.
// Live writes and recovery share it so both derive the same state.
func (s *Store) apply(cmd command.Command, loc index.Location) {
	switch cmd.Kind {
	case command.KindSet:
		if _, existed := s.index.Upsert(cmd.Key, loc); existed {
			s.redundant++
		}
	case command.KindRemove:
		if s.index.Remove(cmd.Key) {
			s.redundant++
		}
	}
}

// readSet decodes the record at loc and checks that it is the Set of key.
func (s *Store) readSet(key string, loc index.Location) (command.Command, error) {
	r, err := s.segments.ReaderAt(loc.Generation, loc.Offset)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return command.Command{}, fmt.Errorf("%w: key %q: %w", ErrCorruptIndex, key, err)
		}
		return command.Command{}, fmt.Errorf("%w: open segment %d: %w", ErrIO, loc.Generation, err)
	}

	cmd, n, err := command.Decode(r)
	if err != nil {
		if err == io.EOF || errors.Is(err, command.ErrMalformedRecord) {
			return command.Command{}, fmt.Errorf("%w: key %q at %d:%d: %w", ErrCorruptIndex, key, loc.Generation, loc.Offset, err)
		}
		return command.Command{}, fmt.Errorf("%w: read segment %d: %w", ErrIO, loc.Generation, err)
	}

	if cmd.Kind != command.KindSet || cmd.Key != key || n != loc.Size {
		return command.Command{}, fmt.Errorf("%w: key %q at %d:%d holds %v", ErrCorruptIndex, key, loc.Generation, loc.Offset, cmd)
	}
	return cmd, nil
}
