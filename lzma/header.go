// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

// HeaderSize is the length in bytes of a member header: four magic
// bytes, one version byte and one coded-dictionary-size byte.
const HeaderSize = 6

// Magic is the four-byte sequence every lzip member starts with.
var Magic = [4]byte{'L', 'Z', 'I', 'P'}

// Version is the only member-header version this package produces or
// accepts; lzip has never defined another.
const Version = 1

// lzipMagic is an alias kept for findHeader in rangedecoder.go, which
// only ever needs the first magic byte to decide where to resync.
var lzipMagic = Magic

const headerSize = HeaderSize

// VerifyHeader reports whether hdr is a well-formed member header:
// correct magic, supported version and a dictionary-size byte that
// decodes to a size in range.
func VerifyHeader(hdr [HeaderSize]byte) bool {
	if hdr[0] != Magic[0] || hdr[1] != Magic[1] || hdr[2] != Magic[2] || hdr[3] != Magic[3] {
		return false
	}
	if hdr[4] != Version {
		return false
	}
	_, ok := DecodeDictionarySize(hdr[5])
	return ok
}

func verifyHeader(hdr [HeaderSize]byte) bool { return VerifyHeader(hdr) }

// realBits returns the position of the highest set bit of value plus
// one (0 for value == 0), matching the reference header codec's own
// shift-and-count helper.
func realBits(value uint32) uint {
	bits := uint(0)
	for value > 0 {
		value >>= 1
		bits++
	}
	return bits
}

func isValidDictionarySize(size uint32) bool {
	return size >= minDictionarySize && size <= maxDictionarySize
}

// EncodeDictionarySize packs a dictionary size into the single coded
// byte lzip stores it as: bits 0-4 hold real_bits(size-1), and when
// the size isn't an exact power of two, bits 5-7 hold how many
// sixteenths of that next power of two the decoder subtracts back
// out.
func EncodeDictionarySize(size uint32) byte {
	if !isValidDictionarySize(size) {
		if size < minDictionarySize {
			size = minDictionarySize
		} else {
			size = maxDictionarySize
		}
	}
	b := byte(realBits(size - 1))
	if size > minDictionarySize {
		baseSize := uint32(1) << b
		fraction := baseSize / 16
		for i := uint32(7); i >= 1; i-- {
			if baseSize-i*fraction >= size {
				b |= byte(i << 5)
				break
			}
		}
	}
	return b
}

// DecodeDictionarySize unpacks the coded byte back into a concrete
// dictionary size, reporting false when the byte encodes an
// out-of-range dictionary size.
func DecodeDictionarySize(b byte) (size uint32, ok bool) {
	size = uint32(1) << (b & 0x1F)
	if size > minDictionarySize {
		size -= (size / 16) * uint32((b>>5)&7)
	}
	return size, isValidDictionarySize(size)
}
