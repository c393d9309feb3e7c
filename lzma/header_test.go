// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

import "testing"

func TestDictionarySizeRoundTrip(t *testing.T) {
	sizes := []uint32{
		minDictionarySize,
		1 << 16,
		1 << 20,
		3 << 20,
		8 << 20,
		1 << 24,
		maxDictionarySize,
	}
	for _, size := range sizes {
		b := EncodeDictionarySize(size)
		got, ok := DecodeDictionarySize(b)
		if !ok {
			t.Fatalf("DecodeDictionarySize(%#02x) for size %d: not ok", b, size)
		}
		if got < size {
			t.Errorf("size %d encoded to %#02x decodes to %d, smaller than requested", size, b, got)
		}
		// Coded size must not overshoot by more than one sixteenth
		// step, the codec's coarsest resolution.
		if step := got / 16; got > size+step {
			t.Errorf("size %d encoded to %#02x decodes to %d, too coarse", size, b, got)
		}
	}
}

func TestDictionarySizeClampsOutOfRange(t *testing.T) {
	size, ok := DecodeDictionarySize(EncodeDictionarySize(0))
	if !ok || size != minDictionarySize {
		t.Errorf("EncodeDictionarySize(0) -> decode = (%d, %v), want (%d, true)", size, ok, minDictionarySize)
	}

	size, ok = DecodeDictionarySize(EncodeDictionarySize(^uint32(0)))
	if !ok || size != maxDictionarySize {
		t.Errorf("EncodeDictionarySize(max uint32) -> decode = (%d, %v), want (%d, true)", size, ok, maxDictionarySize)
	}
}

func TestVerifyHeader(t *testing.T) {
	var hdr [HeaderSize]byte
	copy(hdr[:4], Magic[:])
	hdr[4] = Version
	hdr[5] = EncodeDictionarySize(1 << 20)
	if !VerifyHeader(hdr) {
		t.Fatal("well-formed header rejected")
	}

	bad := hdr
	bad[0] = 'X'
	if VerifyHeader(bad) {
		t.Fatal("header with bad magic accepted")
	}

	bad = hdr
	bad[4] = 2
	if VerifyHeader(bad) {
		t.Fatal("header with unsupported version accepted")
	}
}
