package command

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cmds := []Command{
		Set("a", "1"),
		Set("", ""),
		Set("key with spaces", "value\nwith\nnewlines"),
		Set("ключ", strings.Repeat("v", 4096)),
		Remove("a"),
		Remove(""),
	}

	for _, c := range cmds {
		enc := Encode(c)
		if int64(len(enc)) != EncodedSize(c) {
			t.Errorf("%v: EncodedSize=%d, len(Encode)=%d", c, EncodedSize(c), len(enc))
		}

		got, n, err := DecodeBytes(enc)
		if err != nil {
			t.Fatalf("%v: decode: %v", c, err)
		}
		if got != c {
			t.Errorf("decode mismatch: want %v, got %v", c, got)
		}
		if n != int64(len(enc)) {
			t.Errorf("%v: consumed %d bytes, want %d", c, n, len(enc))
		}
	}
}

func TestDecodeStream(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Encode(Set("a", "1")))
	buf.Write(Encode(Set("b", "2")))
	buf.Write(Encode(Remove("a")))

	want := []Command{Set("a", "1"), Set("b", "2"), Remove("a")}
	r := bytes.NewReader(buf.Bytes())
	var total int64
	for i, w := range want {
		c, n, err := Decode(r)
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if c != w {
			t.Fatalf("record %d: want %v, got %v", i, w, c)
		}
		total += n
	}
	if total != int64(buf.Len()) {
		t.Fatalf("consumed %d bytes, want %d", total, buf.Len())
	}

	if _, _, err := Decode(r); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	enc := Encode(Set("hello", "world"))

	for cut := 1; cut < len(enc); cut++ {
		_, _, err := DecodeBytes(enc[:cut])
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("cut at %d: expected ErrIncomplete, got %v", cut, err)
		}
		if !errors.Is(err, ErrMalformedRecord) {
			t.Fatalf("cut at %d: ErrIncomplete should wrap ErrMalformedRecord", cut)
		}
	}
}

func TestDecodeCorrupted(t *testing.T) {
	enc := Encode(Set("hello", "world"))
	enc[len(enc)-1] ^= 0xff

	_, _, err := DecodeBytes(enc)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	if errors.Is(err, ErrIncomplete) {
		t.Fatalf("checksum failure must not look like truncation: %v", err)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	enc := Encode(Set("k", "v"))
	enc[12] = 0x7f

	if _, _, err := DecodeBytes(enc); !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord for unknown kind, got %v", err)
	}
}

func TestEncodeRemoveDropsValue(t *testing.T) {
	c := Command{Kind: KindRemove, Key: "k", Value: "ignored"}
	got, _, err := DecodeBytes(Encode(c))
	if err != nil {
		t.Fatal(err)
	}
	if got != Remove("k") {
		t.Fatalf("expected %v, got %v", Remove("k"), got)
	}
}
