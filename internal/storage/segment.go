package storage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	segmentPrefix = "kvs-"
	segmentExt    = ".log"

	writeBufferSize = 64 * 1024
)

// SegmentName returns the file name of a generation, e.g. "kvs-3.log".
func SegmentName(gen uint64) string {
	return fmt.Sprintf("%s%d%s", segmentPrefix, gen, segmentExt)
}

// ParseSegmentName extracts the generation from a segment file name.
func ParseSegmentName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentExt) {
		return 0, false
	}
	num := name[len(segmentPrefix) : len(name)-len(segmentExt)]
	if num == "" || (len(num) > 1 && num[0] == '0') {
		return 0, false
	}
	gen, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// SegmentWriter appends records to one generation.
// It is not safe for concurrent use.
type SegmentWriter struct {
	gen    uint64
	file   *os.File
	w      *bufio.Writer
	offset int64
}

func openSegmentWriter(path string, gen uint64, flags int) (*SegmentWriter, error) {
	f, err := os.OpenFile(path, flags|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &SegmentWriter{
		gen:    gen,
		file:   f,
		w:      bufio.NewWriterSize(f, writeBufferSize),
		offset: info.Size(),
	}, nil
}

// Generation returns the generation this writer appends to.
func (sw *SegmentWriter) Generation() uint64 {
	return sw.gen
}

// Offset returns the position the next record will be written at.
func (sw *SegmentWriter) Offset() int64 {
	return sw.offset
}

// Append buffers data and returns the offset at which it begins.
// Data is not visible to readers until Flush.
func (sw *SegmentWriter) Append(data []byte) (int64, error) {
	pos := sw.offset
	n, err := sw.w.Write(data)
	sw.offset += int64(n)
	if err != nil {
		return pos, err
	}
	return pos, nil
}

// Flush hands buffered bytes to the operating system.
func (sw *SegmentWriter) Flush() error {
	return sw.w.Flush()
}

// Sync flushes and fsyncs the segment file.
func (sw *SegmentWriter) Sync() error {
	if err := sw.w.Flush(); err != nil {
		return err
	}
	return sw.file.Sync()
}

// Close flushes, syncs and closes the file.
func (sw *SegmentWriter) Close() error {
	if sw.file == nil {
		return nil
	}
	err := sw.Sync()
	if cerr := sw.file.Close(); err == nil {
		err = cerr
	}
	sw.file = nil
	return err
}

// discard closes the file without flushing buffered bytes.
func (sw *SegmentWriter) discard() error {
	if sw.file == nil {
		return nil
	}
	err := sw.file.Close()
	sw.file = nil
	return err
}
