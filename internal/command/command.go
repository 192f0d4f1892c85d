package command

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Record layout on disk:
// [crc32(4)][keyLen(4)][valueLen(4)][kind(1)][key][value]
// The checksum covers kind, key and value.
const (
	HeaderSize = 4 + 4 + 4 + 1

	MaxKeySize   = 64 * 1024
	MaxValueSize = 64 * 1024 * 1024
)

var (
	// ErrMalformedRecord is returned when bytes do not form a valid record.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrIncomplete is returned when the stream ends in the middle of a record.
	// It wraps ErrMalformedRecord.
	ErrIncomplete = fmt.Errorf("%w: incomplete record", ErrMalformedRecord)
)

var crcTable = crc32.MakeTable(crc32.IEEE)

// Kind tags a Command variant.
type Kind byte

const (
	KindSet Kind = iota + 1
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Command is one mutation of the store. Value is empty for KindRemove.
type Command struct {
	Kind  Kind
	Key   string
	Value string
}

// Set builds a set command.
func Set(key, value string) Command {
	return Command{Kind: KindSet, Key: key, Value: value}
}

// Remove builds a remove command.
func Remove(key string) Command {
	return Command{Kind: KindRemove, Key: key}
}

func (c Command) String() string {
	if c.Kind == KindSet {
		return fmt.Sprintf("Set{%q=%q}", c.Key, c.Value)
	}
	return fmt.Sprintf("%s{%q}", c.Kind, c.Key)
}

// EncodedSize returns len(Encode(c)).
func EncodedSize(c Command) int64 {
	return int64(HeaderSize + len(c.Key) + len(c.Value))
}

// Encode serializes c into a self-delimiting record.
func Encode(c Command) []byte {
	value := c.Value
	if c.Kind == KindRemove {
		value = ""
	}

	buf := make([]byte, HeaderSize+len(c.Key)+len(value))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(c.Key)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(value)))
	buf[12] = byte(c.Kind)
	copy(buf[HeaderSize:], c.Key)
	copy(buf[HeaderSize+len(c.Key):], value)

	binary.LittleEndian.PutUint32(buf[0:4], crc32.Checksum(buf[12:], crcTable))
	return buf
}

// Decode reads exactly one record from r and returns it together with the
// number of bytes consumed.
//
// io.EOF is returned only when r is exhausted at a record boundary. A stream
// that ends inside a record yields ErrIncomplete; any other invalid content
// yields ErrMalformedRecord.
func Decode(r io.Reader) (Command, int64, error) {
	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, header)
	if err != nil {
		if err == io.EOF {
			return Command{}, 0, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return Command{}, int64(n), ErrIncomplete
		}
		return Command{}, int64(n), err
	}

	storedCrc := binary.LittleEndian.Uint32(header[0:4])
	klen := binary.LittleEndian.Uint32(header[4:8])
	vlen := binary.LittleEndian.Uint32(header[8:12])
	kind := Kind(header[12])

	switch kind {
	case KindSet:
	case KindRemove:
		if vlen != 0 {
			return Command{}, HeaderSize, fmt.Errorf("%w: remove with value length %d", ErrMalformedRecord, vlen)
		}
	default:
		return Command{}, HeaderSize, fmt.Errorf("%w: unknown kind %d", ErrMalformedRecord, byte(kind))
	}
	if klen > MaxKeySize || vlen > MaxValueSize {
		return Command{}, HeaderSize, fmt.Errorf("%w: key length %d, value length %d", ErrMalformedRecord, klen, vlen)
	}

	body := make([]byte, 1+int(klen)+int(vlen))
	body[0] = byte(kind)
	m, err := io.ReadFull(r, body[1:])
	consumed := int64(HeaderSize + m)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Command{}, consumed, ErrIncomplete
		}
		return Command{}, consumed, err
	}

	if crc32.Checksum(body, crcTable) != storedCrc {
		return Command{}, consumed, fmt.Errorf("%w: checksum mismatch", ErrMalformedRecord)
	}

	c := Command{
		Kind: kind,
		Key:  string(body[1 : 1+klen]),
	}
	if kind == KindSet {
		c.Value = string(body[1+klen:])
	}
	return c, consumed, nil
}

// DecodeBytes decodes the first record in b.
func DecodeBytes(b []byte) (Command, int64, error) {
	return Decode(bytes.NewReader(b))
}
