// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import "github.com/ulikunitz/lzip/lzma"

// headerSize and trailerSize are the on-disk byte counts framing
// every member: a 6-byte header, then the LZMA stream, then a
// 20-byte trailer.
const (
	headerSize  = lzma.HeaderSize
	trailerSize = 20
)

// verifyMagicPrefix reports how many of hdr's leading bytes match the
// lzip magic, used to tell a truncated-but-genuine header
// (unexpected_eof) apart from truncated data that does not start with
// the magic (header_error).
func verifyMagicPrefix(hdr []byte) int {
	n := 0
	for i := 0; i < len(hdr) && i < 4; i++ {
		if hdr[i] != lzma.Magic[i] {
			break
		}
		n++
	}
	return n
}

// verifyCorrupt reports whether hdr looks like a damaged header
// rather than arbitrary data: 2 or 3 (not 0, 1 or all 4) of its magic
// bytes match.
func verifyCorrupt(hdr [4]byte) bool {
	matches := 0
	for i := 0; i < 4; i++ {
		if hdr[i] == lzma.Magic[i] {
			matches++
		}
	}
	return matches > 1 && matches < 4
}

func verifyMagic(hdr [4]byte) bool {
	return hdr[0] == lzma.Magic[0] && hdr[1] == lzma.Magic[1] &&
		hdr[2] == lzma.Magic[2] && hdr[3] == lzma.Magic[3]
}

// buildHeader renders a 6-byte member header for dictSize.
func buildHeader(dictSize uint32) [headerSize]byte {
	var hdr [headerSize]byte
	copy(hdr[0:4], lzma.Magic[:])
	hdr[4] = lzma.Version
	hdr[5] = lzma.EncodeDictionarySize(dictSize)
	return hdr
}
