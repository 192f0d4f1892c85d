package kvs

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/nconghau/MiniKVS/internal/command"
	"github.com/nconghau/MiniKVS/internal/index"
)

const replayBufferSize = 256 * 1024

// recover rebuilds the index by replaying every generation in ascending
// order, applying each record exactly like a live write.
func (s *Store) recover() error {
	active := s.segments.Active()
	for _, gen := range s.segments.Generations() {
		if err := s.replay(gen, gen == active); err != nil {
			return err
		}
	}
	return nil
}

// replay applies the records of one generation. A record cut short by the
// end of the file ends the generation; on the active generation the torn
// bytes are truncated so new appends follow the last complete record.
func (s *Store) replay(gen uint64, active bool) error {
	r, err := s.segments.ReaderAt(gen, 0)
	if err != nil {
		return fmt.Errorf("%w: open segment %d: %w", ErrIO, gen, err)
	}
	br := bufio.NewReaderSize(r, replayBufferSize)

	var offset int64
	records := 0
	for {
		cmd, n, err := command.Decode(br)
		if err == io.EOF {
			break
		}
		if errors.Is(err, command.ErrIncomplete) {
			s.logger.Warn("Torn record at end of segment",
				"generation", gen,
				"offset", offset,
				"bytes", n,
				"active", active,
			)
			if active {
				if terr := s.segments.Truncate(gen, offset); terr != nil {
					return fmt.Errorf("%w: truncate segment %d: %w", ErrIO, gen, terr)
				}
			}
			break
		}
		if err != nil {
			if errors.Is(err, command.ErrMalformedRecord) {
				return fmt.Errorf("segment %d at offset %d: %w", gen, offset, err)
			}
			return fmt.Errorf("%w: read segment %d: %w", ErrIO, gen, err)
		}

		s.apply(cmd, index.Location{Generation: gen, Offset: offset, Size: n})
		offset += n
		records++
	}

	s.logger.Debug("Segment replayed", "generation", gen, "records", records, "bytes", offset)
	return nil
}
