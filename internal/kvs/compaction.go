package kvs

import (
	"fmt"
	"time"

	"github.com/nconghau/MiniKVS/internal/command"
	"github.com/nconghau/MiniKVS/internal/index"
	"github.com/nconghau/MiniKVS/internal/storage"
)

// maybeCompact runs after every mutation and compacts once enough redundant
// records have piled up. After a failure the next attempt waits for another
// threshold of redundant records. Callers hold s.mu.
func (s *Store) maybeCompact() error {
	if s.redundant < s.compactAt {
		return nil
	}
	if err := s.compact(); err != nil {
		s.compactAt = s.redundant + s.config.CompactionThreshold
		return fmt.Errorf("%w: %w", ErrCompaction, err)
	}
	return nil
}

// Compact rewrites the live records into a new generation and deletes every
// older generation, regardless of the redundant-record count.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.compact()
}

// compact stages a complete new segment and index before touching live
// state. If staging fails the new segment is removed and the old segments,
// writer and index stay in use.
func (s *Store) compact() error {
	start := time.Now()
	oldGens := s.segments.Generations()
	newGen := s.segments.Active() + 1

	s.logger.Info("Compaction triggered",
		"redundant", s.redundant,
		"keys", s.index.Len(),
		"generation", newGen,
	)

	staging, err := s.segments.Rotate(newGen)
	if err != nil {
		return fmt.Errorf("%w: create segment %d: %w", ErrIO, newGen, err)
	}

	staged, err := s.rewriteLive(staging)
	if err == nil {
		if serr := staging.Sync(); serr != nil {
			err = fmt.Errorf("%w: sync segment %d: %w", ErrIO, newGen, serr)
		}
	}
	if err != nil {
		if aerr := s.segments.Abandon(staging); aerr != nil {
			s.logger.Warn("Failed to remove abandoned segment", "generation", newGen, "error", aerr)
		}
		s.logger.Error("Compaction error", "generation", newGen, "error", err)
		return err
	}

	// Commit: from here on the new generation is authoritative.
	if cerr := s.writer.Close(); cerr != nil {
		s.logger.Warn("Failed to close previous active segment", "generation", s.writer.Generation(), "error", cerr)
	}
	s.writer = staging
	s.index = staged
	s.redundant = 0
	s.compactAt = s.config.CompactionThreshold

	for _, gen := range oldGens {
		if derr := s.segments.Delete(gen); derr != nil {
			s.logger.Warn("Failed to delete old segment after compaction", "generation", gen, "error", derr)
		}
	}

	s.metrics.compactions++
	s.logger.Info("Compaction finished",
		"generation", newGen,
		"keys", staged.Len(),
		"bytes", staging.Offset(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// rewriteLive copies the Set record of every indexed key into w and returns
// an index pointing into w.
func (s *Store) rewriteLive(w *storage.SegmentWriter) (*index.Index, error) {
	staged := index.New()

	it := s.index.Iterate()
	for it.Next() {
		key, loc := it.Key(), it.Location()

		cmd, err := s.readSet(key, loc)
		if err != nil {
			return nil, err
		}

		data := command.Encode(cmd)
		offset, err := w.Append(data)
		if err != nil {
			return nil, fmt.Errorf("%w: append to segment %d: %w", ErrIO, w.Generation(), err)
		}
		staged.Upsert(key, index.Location{
			Generation: w.Generation(),
			Offset:     offset,
			Size:       int64(len(data)),
		})
	}

	return staged, nil
}
