// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import (
	"bytes"
	"testing"

	"github.com/kr/pretty"
)

// TestRoundTripAllLevels covers invariant 1: decompress(compress(D,
// level)) == D for every documented level.
func TestRoundTripAllLevels(t *testing.T) {
	for level := 0; level <= 9; level++ {
		compressed, err := compressLevel([]byte(loremIpsum), level)
		if err != nil {
			t.Fatalf("level %d: compress: %v", level, err)
		}
		if !bytes.HasPrefix(compressed, []byte{'L', 'Z', 'I', 'P'}) {
			t.Fatalf("level %d: compressed stream does not start with magic: % x", level, compressed[:4])
		}
		got, err := decompressAll(compressed)
		if err != nil {
			t.Fatalf("level %d: decompress: %v", level, err)
		}
		if !bytes.Equal(got, []byte(loremIpsum)) {
			t.Fatalf("level %d: round trip mismatch:\n%# v", level, pretty.Formatter(got))
		}
	}
}

// TestChunkedWrite covers scenario 2: the 445-byte input fed in
// 130/110/105/100-byte writes still round-trips.
func TestChunkedWrite(t *testing.T) {
	src := []byte(loremIpsum)
	sizes := []int{130, 110, 105, 100}
	if total := sizes[0] + sizes[1] + sizes[2] + sizes[3]; total != len(src) {
		t.Fatalf("chunk sizes %v do not sum to %d", sizes, len(src))
	}

	w, err := NewWriter(NewWriterConfig(6))
	if err != nil {
		t.Fatal(err)
	}
	var compressed []byte
	buf := make([]byte, 4096)
	off := 0
	for _, size := range sizes {
		chunk := src[off : off+size]
		off += size
		for len(chunk) > 0 {
			n, err := w.Write(chunk)
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			chunk = chunk[n:]
			for {
				n, err := w.Read(buf)
				if n > 0 {
					compressed = append(compressed, buf[:n]...)
				}
				if err != nil {
					t.Fatalf("read: %v", err)
				}
				if n == 0 {
					break
				}
			}
		}
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	for {
		n, err := w.Read(buf)
		if n > 0 {
			compressed = append(compressed, buf[:n]...)
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if n == 0 {
			break
		}
	}

	got, err := decompressAll(compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("chunked-write round trip mismatch:\n%# v", pretty.Formatter(got))
	}
}

// TestTrailerFields covers invariants 5 and 6: the trailer's CRC and
// member-size fields match what the stream actually contains.
func TestTrailerFields(t *testing.T) {
	src := []byte(loremIpsum)
	compressed, err := compressLevel(src, 6)
	if err != nil {
		t.Fatal(err)
	}
	trailer := compressed[len(compressed)-20:]
	crc := uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24
	dataSize := leUint64(trailer[4:12])
	memberSize := leUint64(trailer[12:20])

	wantCRC := crc32IEEE(src)
	if crc != wantCRC {
		t.Errorf("trailer CRC = %08x, want %08x", crc, wantCRC)
	}
	if dataSize != uint64(len(src)) {
		t.Errorf("trailer data size = %d, want %d", dataSize, len(src))
	}
	if memberSize != uint64(len(compressed)) {
		t.Errorf("trailer member size = %d, want %d", memberSize, len(compressed))
	}
}

// TestConcatenatedMembers covers invariant 7: concatenating two
// independently produced streams decompresses to the concatenation of
// their sources.
func TestConcatenatedMembers(t *testing.T) {
	a := []byte(loremIpsum)
	b := randomBytes(2048, 1)

	ca, err := compressLevel(a, 6)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := compressLevel(b, 6)
	if err != nil {
		t.Fatal(err)
	}

	got, err := decompressAll(append(append([]byte{}, ca...), cb...))
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, a...), b...)
	if !bytes.Equal(got, want) {
		t.Fatalf("concatenated-member round trip mismatch (got %d bytes, want %d)", len(got), len(want))
	}
}

// TestRestartMember exercises restart_member producing two members
// within a single Writer, matching the container orchestrator's
// member-restart operation.
func TestRestartMember(t *testing.T) {
	w, err := NewWriter(NewWriterConfig(6))
	if err != nil {
		t.Fatal(err)
	}
	first := []byte(loremIpsum[:200])
	second := []byte(loremIpsum[200:])

	out1, err := drainWriter(w, first, 0)
	if err != nil {
		t.Fatalf("first member: %v", err)
	}
	if !w.MemberFinished() {
		t.Fatal("first member not finished after Finish+drain")
	}
	if err := w.RestartMember(0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	out2, err := drainWriter(w, second, 0)
	if err != nil {
		t.Fatalf("second member: %v", err)
	}

	if w.TotalInSize() != uint64(len(first)+len(second)) {
		t.Errorf("TotalInSize = %d, want %d", w.TotalInSize(), len(first)+len(second))
	}
	if w.TotalOutSize() != uint64(len(out1)+len(out2)) {
		t.Errorf("TotalOutSize = %d, want %d", w.TotalOutSize(), len(out1)+len(out2))
	}

	got, err := decompressAll(append(append([]byte{}, out1...), out2...))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte(loremIpsum)) {
		t.Fatalf("restart-member round trip mismatch:\n%# v", pretty.Formatter(got))
	}
}

// TestSequenceErrorOnRestartBeforeFinish covers the sequence_error
// kind: restart_member before the previous member finished draining.
func TestSequenceErrorOnRestartBeforeFinish(t *testing.T) {
	w, err := NewWriter(NewWriterConfig(6))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(loremIpsum)); err != nil {
		t.Fatal(err)
	}
	if err := w.RestartMember(0); err == nil {
		t.Fatal("expected a sequence error before the member finished")
	} else if e, ok := err.(*Error); !ok || e.Kind != SequenceError {
		t.Fatalf("got error %v, want SequenceError", err)
	}
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
