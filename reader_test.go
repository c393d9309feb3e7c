// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import (
	"bytes"
	"testing"
)

// TestSplitStreamDecode covers scenario 3: splitting a compressed
// stream at arbitrary offsets and feeding the pieces in order still
// yields the original bytes, and property 3 more generally.
func TestSplitStreamDecode(t *testing.T) {
	src := []byte(loremIpsum)
	compressed, err := compressLevel(src, 0)
	if err != nil {
		t.Fatal(err)
	}

	offsets := []int{20, 40, 60, 100, len(compressed)}
	r := NewReader()
	var out []byte
	buf := make([]byte, 4096)
	prev := 0
	for _, off := range offsets {
		piece := compressed[prev:off]
		prev = off
		for len(piece) > 0 {
			n, err := r.Write(piece)
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			piece = piece[n:]
			for {
				n, err := r.Read(buf)
				if n > 0 {
					out = append(out, buf[:n]...)
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
	if err := r.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if n == 0 {
			break
		}
	}

	if !bytes.Equal(out, src) {
		t.Fatalf("split-stream decode mismatch (got %d bytes, want %d)", len(out), len(src))
	}
}

// TestSplitAtEveryOffset is a broader sweep of property 3: every
// single-point split of the compressed stream, fed as two Write calls
// before a single Finish, still round-trips.
func TestSplitAtEveryOffset(t *testing.T) {
	src := []byte(loremIpsum[:64])
	compressed, err := compressLevel(src, 6)
	if err != nil {
		t.Fatal(err)
	}
	for split := 1; split < len(compressed); split++ {
		r := NewReader()
		buf := make([]byte, 4096)
		var out []byte
		drain := func() {
			for {
				n, err := r.Read(buf)
				if n > 0 {
					out = append(out, buf[:n]...)
				}
				if err != nil || n == 0 {
					return
				}
			}
		}
		fed := 0
		for _, piece := range [][]byte{compressed[:split], compressed[split:]} {
			for len(piece) > 0 {
				n, werr := r.Write(piece)
				if werr != nil {
					t.Fatalf("split %d: write: %v", split, werr)
				}
				piece = piece[n:]
				fed += n
				drain()
			}
		}
		if err := r.Finish(); err != nil {
			t.Fatalf("split %d: finish: %v", split, err)
		}
		drain()
		if !bytes.Equal(out, src) {
			t.Fatalf("split %d: mismatch (got %d bytes, want %d)", split, len(out), len(src))
		}
	}
}

// TestEmptyInput covers the empty-input boundary: zero uncompressed
// size, a valid trailer, decompresses to empty.
func TestEmptyInput(t *testing.T) {
	compressed, err := compressLevel(nil, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(compressed, []byte{'L', 'Z', 'I', 'P'}) {
		t.Fatalf("empty-input stream missing magic prefix")
	}
	got, err := decompressAll(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %d bytes", len(got))
	}
}

// TestOneByteInput covers the 1-byte boundary.
func TestOneByteInput(t *testing.T) {
	for _, level := range []int{0, 6} {
		compressed, err := compressLevel([]byte{0x42}, level)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		got, err := decompressAll(compressed)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		if !bytes.Equal(got, []byte{0x42}) {
			t.Fatalf("level %d: got %v, want [0x42]", level, got)
		}
	}
}

// TestDictionaryLengthInput covers the dictionary-length boundary: a
// source exactly one dictionary in length round-trips and the
// decoder never reports an out-of-range distance.
func TestDictionaryLengthInput(t *testing.T) {
	cfg := NewWriterConfig(1) // level 1: 1 MiB dictionary
	src := randomBytes(int(cfg.DictSize), 7)

	w, err := NewWriter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	compressed, err := drainWriter(w, src, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decompressAll(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("dictionary-length round trip mismatch (got %d bytes, want %d)", len(got), len(src))
	}
}

// TestTruncatedTrailer covers scenario 5: removing bytes from the
// trailer yields unexpected_eof on finish.
func TestTruncatedTrailer(t *testing.T) {
	src := randomBytes(1<<16, 2)
	compressed, err := compressLevel(src, 6)
	if err != nil {
		t.Fatal(err)
	}
	truncated := compressed[:len(compressed)-5]

	r := NewReader()
	_, err = drainReader(r, truncated, 4096)
	if err == nil {
		t.Fatal("expected unexpected_eof, got nil")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != UnexpectedEOF {
		t.Fatalf("got error %v, want UnexpectedEOF", err)
	}
}

// TestBitFlipInPayload covers scenario 6: flipping a bit in the
// compressed payload yields a decode fault (data_error, unexpected_eof
// or header_error) on finish.
func TestBitFlipInPayload(t *testing.T) {
	src := randomBytes(1<<16, 3)
	compressed, err := compressLevel(src, 6)
	if err != nil {
		t.Fatal(err)
	}
	mid := len(compressed) / 2
	flipped := append([]byte{}, compressed...)
	flipped[mid] ^= 0x01

	r := NewReader()
	_, err = drainReader(r, flipped, 4096)
	if err == nil {
		t.Fatal("expected an error after the bit flip, got nil")
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("got non-Error %v", err)
	}
	if e.Kind != DataError && e.Kind != UnexpectedEOF && e.Kind != HeaderError {
		t.Fatalf("got Kind %v, want a decode fault", e.Kind)
	}
}

// TestBadMagic covers header_error: the first header doesn't resemble
// the magic at all.
func TestBadMagic(t *testing.T) {
	r := NewReader()
	_, err := drainReader(r, bytes.Repeat([]byte{0}, 32), 0)
	if err == nil {
		t.Fatal("expected header_error, got nil")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != HeaderError {
		t.Fatalf("got error %v, want HeaderError", err)
	}
}

// TestCorruptMagicLooksDamaged feeds a header whose magic is damaged
// in exactly 2 of 4 positions (resembling a corrupted member rather
// than unrelated data) as the very first header of the stream, where
// the header/data distinction collapses to header_error since there
// is no prior valid member to suggest mid-stream corruption.
func TestCorruptMagicLooksDamaged(t *testing.T) {
	hdr := buildHeader(1 << 20)
	damaged := append([]byte{}, hdr[:]...)
	damaged[1] = 'X' // corrupt magic bytes 1 and 3; bytes 0 and 2 still match
	damaged[3] = 'Y'
	rest := bytes.Repeat([]byte{0}, 64)

	r := NewReader()
	_, err := drainReader(r, append(damaged, rest...), 0)
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if e, ok := err.(*Error); !ok || e.Kind != HeaderError {
		t.Fatalf("got error %v, want HeaderError", err)
	}
}

// TestSyncToMember exercises sync_to_member: after a corrupted lead-in
// it should find the next genuine member header and keep decoding.
func TestSyncToMember(t *testing.T) {
	good, err := compressLevel([]byte(loremIpsum), 6)
	if err != nil {
		t.Fatal(err)
	}
	garbage := bytes.Repeat([]byte{0xAA}, 37)
	stream := append(append([]byte{}, garbage...), good...)

	r := NewReader()
	r.Write(stream[:1])
	r.SyncToMember()
	n, err := r.Write(stream[1:])
	if err != nil {
		t.Fatal(err)
	}
	fed := 1 + n
	for fed < len(stream) {
		k, err := r.Write(stream[fed:])
		if err != nil {
			t.Fatal(err)
		}
		if k == 0 {
			break
		}
		fed += k
	}
	if err := r.Finish(); err != nil {
		t.Fatalf("finish after sync: %v", err)
	}
	buf := make([]byte, 4096)
	var out []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			t.Fatalf("read after sync: %v", err)
		}
		if n == 0 {
			break
		}
	}
	if !bytes.Equal(out, []byte(loremIpsum)) {
		t.Fatalf("sync-to-member mismatch (got %d bytes)", len(out))
	}
}
